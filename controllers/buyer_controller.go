package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/middleware"
	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/services"
)

type BuyerController struct {
	orders  *services.OrderService
	reviews *services.ReviewService
	log     *zap.Logger
}

func NewBuyerController(orders *services.OrderService, reviews *services.ReviewService, log *zap.Logger) *BuyerController {
	return &BuyerController{orders: orders, reviews: reviews, log: log}
}

// Orders handles GET /buyer/orders.
func (ctl *BuyerController) Orders(c *gin.Context) {
	user := middleware.CurrentUser(c)
	page, err := ctl.orders.ListForBuyer(c.Request.Context(), user.ID,
		models.OrderStatus(c.Query("status")), intQuery(c, "page", 1), intQuery(c, "limit", 20))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "", page)
}

// CreateReview handles POST /buyer/orders/:id/review. Only a completed
// order the buyer owns can be reviewed, and only once.
func (ctl *BuyerController) CreateReview(c *gin.Context) {
	var in services.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	user := middleware.CurrentUser(c)
	review, err := ctl.reviews.Create(c.Request.Context(), user.ID, c.Param("id"), in)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusCreated, "review submitted", gin.H{"review": review})
}
