package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/middleware"
	"github.com/haatbazar/marketplace/services"
)

type CategoryController struct {
	categories *services.CategoryService
	log        *zap.Logger
}

func NewCategoryController(categories *services.CategoryService, log *zap.Logger) *CategoryController {
	return &CategoryController{categories: categories, log: log}
}

// List handles GET /categories. The public sees active categories only;
// ?all=true includes inactive ones.
func (ctl *CategoryController) List(c *gin.Context) {
	all, _ := strconv.ParseBool(c.Query("all"))
	categories, err := ctl.categories.List(c.Request.Context(), !all)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"categories": categories})
}

// ListOwn handles GET /seller/categories.
func (ctl *CategoryController) ListOwn(c *gin.Context) {
	user := middleware.CurrentUser(c)
	categories, err := ctl.categories.ListByOwner(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"categories": categories})
}

// Get handles GET /categories/:id.
func (ctl *CategoryController) Get(c *gin.Context) {
	category, err := ctl.categories.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"category": category})
}

// Create handles POST /seller/categories.
func (ctl *CategoryController) Create(c *gin.Context) {
	var in services.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	user := middleware.CurrentUser(c)
	category, err := ctl.categories.Create(c.Request.Context(), user.ID, in)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusCreated, "category created", gin.H{"category": category})
}

// Update handles PUT /seller/categories/:id. Only the creating seller may
// edit a category.
func (ctl *CategoryController) Update(c *gin.Context) {
	var in services.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	user := middleware.CurrentUser(c)
	category, err := ctl.categories.Update(c.Request.Context(), user.ID, c.Param("id"), in)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "category updated", gin.H{"category": category})
}

// Delete handles DELETE /seller/categories/:id. Deletion is refused while
// any product still references the category.
func (ctl *CategoryController) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := ctl.categories.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "category deleted", nil)
}
