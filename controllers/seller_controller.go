package controllers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/middleware"
	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/services"
	"github.com/haatbazar/marketplace/storage"
)

const maxUploadSize = 10 << 20 // per file

type SellerController struct {
	products  *services.ProductService
	orders    *services.OrderService
	dashboard *services.DashboardService
	media     storage.MediaStore
	log       *zap.Logger
}

func NewSellerController(products *services.ProductService, orders *services.OrderService, dashboard *services.DashboardService, media storage.MediaStore, log *zap.Logger) *SellerController {
	return &SellerController{products: products, orders: orders, dashboard: dashboard, media: media, log: log}
}

// Dashboard handles GET /seller/dashboard.
func (ctl *SellerController) Dashboard(c *gin.Context) {
	user := middleware.CurrentUser(c)
	stats, err := ctl.dashboard.Seller(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}

// Products handles GET /seller/products, the seller's own listings.
func (ctl *SellerController) Products(c *gin.Context) {
	user := middleware.CurrentUser(c)
	page, err := ctl.products.ListBySeller(c.Request.Context(), user.ID,
		intQuery(c, "page", 1), intQuery(c, "limit", 20))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "", page)
}

// CreateProduct handles POST /seller/products.
func (ctl *SellerController) CreateProduct(c *gin.Context) {
	var in services.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	user := middleware.CurrentUser(c)
	product, err := ctl.products.Create(c.Request.Context(), user.ID, in)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusCreated, "product created", gin.H{"product": product})
}

// UpdateProduct handles PUT /seller/products/:id.
func (ctl *SellerController) UpdateProduct(c *gin.Context) {
	var in services.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	user := middleware.CurrentUser(c)
	product, err := ctl.products.Update(c.Request.Context(), user.ID, c.Param("id"), in)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "product updated", gin.H{"product": product})
}

// DeleteProduct handles DELETE /seller/products/:id.
func (ctl *SellerController) DeleteProduct(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := ctl.products.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "product deleted", nil)
}

// UploadImages handles POST /seller/products/:id/images. Files are stored
// through the media store and their URLs appended to the listing.
func (ctl *SellerController) UploadImages(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		respond(c, http.StatusBadRequest, "invalid multipart form", nil)
		return
	}
	files := c.Request.MultipartForm.File["images"]
	if len(files) == 0 {
		respond(c, http.StatusBadRequest, "no images provided", nil)
		return
	}

	urls := make([]string, 0, len(files))
	for _, header := range files {
		if header.Size > maxUploadSize {
			respond(c, http.StatusBadRequest, fmt.Sprintf("file %s exceeds the 10MB limit", header.Filename), nil)
			return
		}
		file, err := header.Open()
		if err != nil {
			respondError(c, ctl.log, err)
			return
		}
		name := fmt.Sprintf("products/%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(header.Filename)))
		url, err := ctl.media.Upload(c.Request.Context(), name, header.Header.Get("Content-Type"), file)
		file.Close()
		if err != nil {
			respondError(c, ctl.log, err)
			return
		}
		urls = append(urls, url)
	}

	user := middleware.CurrentUser(c)
	product, err := ctl.products.AppendImages(c.Request.Context(), user.ID, c.Param("id"), urls)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "images uploaded", gin.H{"product": product})
}

// Orders handles GET /seller/orders.
func (ctl *SellerController) Orders(c *gin.Context) {
	user := middleware.CurrentUser(c)
	page, err := ctl.orders.ListForSeller(c.Request.Context(), user.ID,
		models.OrderStatus(c.Query("status")), intQuery(c, "page", 1), intQuery(c, "limit", 20))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "", page)
}

// UpdateOrderStatus handles PATCH /seller/orders/:id/status. The status
// update email is queued after the change is durable.
func (ctl *SellerController) UpdateOrderStatus(c *gin.Context) {
	var in services.UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	user := middleware.CurrentUser(c)
	order, err := ctl.orders.UpdateStatus(c.Request.Context(), user.ID, c.Param("id"), in.Status)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "order status updated", gin.H{"order": order})
}
