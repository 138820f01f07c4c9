package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/repository"
	"github.com/haatbazar/marketplace/services"
)

// ProductController serves the public catalog.
type ProductController struct {
	products *services.ProductService
	reviews  *services.ReviewService
	log      *zap.Logger
}

func NewProductController(products *services.ProductService, reviews *services.ReviewService, log *zap.Logger) *ProductController {
	return &ProductController{products: products, reviews: reviews, log: log}
}

// List handles GET /products with filtering and pagination.
func (ctl *ProductController) List(c *gin.Context) {
	filter := repository.ProductFilter{
		Category: c.Query("category"),
		Tag:      c.Query("tag"),
		Search:   c.Query("search"),
		Page:     intQuery(c, "page", 1),
		Limit:    intQuery(c, "limit", 20),
	}
	if v, err := strconv.ParseFloat(c.Query("minPrice"), 64); err == nil {
		filter.MinPrice = &v
	}
	if v, err := strconv.ParseFloat(c.Query("maxPrice"), 64); err == nil {
		filter.MaxPrice = &v
	}
	if v, err := strconv.ParseBool(c.Query("hotCollection")); err == nil {
		filter.HotCollection = &v
	}

	page, err := ctl.products.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "", page)
}

// Get handles GET /products/:id.
func (ctl *ProductController) Get(c *gin.Context) {
	product, err := ctl.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"product": product})
}

// Reviews handles GET /products/:id/reviews.
func (ctl *ProductController) Reviews(c *gin.Context) {
	reviews, err := ctl.reviews.ListByProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"reviews": reviews})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
