package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/middleware"
	"github.com/haatbazar/marketplace/services"
)

type OrderController struct {
	orders *services.OrderService
	log    *zap.Logger
}

func NewOrderController(orders *services.OrderService, log *zap.Logger) *OrderController {
	return &OrderController{orders: orders, log: log}
}

// Create handles POST /orders for buyers. The confirmation email goes out
// after the response; its failure never affects the created order.
func (ctl *OrderController) Create(c *gin.Context) {
	var in services.CreateOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	user := middleware.CurrentUser(c)
	order, err := ctl.orders.Create(c.Request.Context(), user.ID, in)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusCreated, "order placed", gin.H{"order": order})
}

// Get handles GET /orders/:id for the order's buyer, seller or an admin.
func (ctl *OrderController) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	order, err := ctl.orders.Get(c.Request.Context(), user.ID, user.Role, c.Param("id"))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"order": order})
}
