package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/services"
)

type AdminController struct {
	admin     *services.AdminService
	orders    *services.OrderService
	dashboard *services.DashboardService
	log       *zap.Logger
}

func NewAdminController(admin *services.AdminService, orders *services.OrderService, dashboard *services.DashboardService, log *zap.Logger) *AdminController {
	return &AdminController{admin: admin, orders: orders, dashboard: dashboard, log: log}
}

// Dashboard handles GET /admin/dashboard.
func (ctl *AdminController) Dashboard(c *gin.Context) {
	stats, err := ctl.dashboard.Admin(c.Request.Context())
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}

// Users handles GET /admin/users.
func (ctl *AdminController) Users(c *gin.Context) {
	page, err := ctl.admin.ListUsers(c.Request.Context(), c.Query("role"),
		intQuery(c, "page", 1), intQuery(c, "limit", 20))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "", page)
}

// SetBanned handles PATCH /admin/users/:id/ban.
func (ctl *AdminController) SetBanned(c *gin.Context) {
	var body struct {
		Banned *bool `json:"banned" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}
	user, err := ctl.admin.SetBanned(c.Request.Context(), c.Param("id"), *body.Banned)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	message := "user unbanned"
	if *body.Banned {
		message = "user banned"
	}
	respond(c, http.StatusOK, message, gin.H{"user": user})
}

// Orders handles GET /admin/orders across all sellers.
func (ctl *AdminController) Orders(c *gin.Context) {
	page, err := ctl.orders.ListAll(c.Request.Context(),
		models.OrderStatus(c.Query("status")), intQuery(c, "page", 1), intQuery(c, "limit", 20))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "", page)
}
