package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haatbazar/marketplace/controllers"
	"github.com/haatbazar/marketplace/middleware"
	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/repository"
	"github.com/haatbazar/marketplace/services"
)

// Deps carries everything route registration needs.
type Deps struct {
	Auth     *controllers.AuthController
	Product  *controllers.ProductController
	Category *controllers.CategoryController
	Order    *controllers.OrderController
	Buyer    *controllers.BuyerController
	Seller   *controllers.SellerController
	Admin    *controllers.AdminController

	Tokens *services.TokenService
	Users  repository.UserRepository
}

// Register wires the full HTTP surface onto the router.
func Register(r *gin.Engine, d Deps) {
	authenticated := middleware.Authenticate(d.Tokens, d.Users)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	auth := r.Group("/auth")
	auth.Use(middleware.AuthRateLimit())
	{
		auth.POST("/register", d.Auth.Register)
		auth.POST("/login", d.Auth.Login)
		auth.POST("/refresh", d.Auth.Refresh)
		auth.POST("/logout", d.Auth.Logout)
		auth.POST("/forgot-password", d.Auth.ForgotPassword)
		auth.POST("/reset-password/:token", d.Auth.ResetPassword)
		auth.GET("/me", authenticated, d.Auth.Me)
	}

	products := r.Group("/products")
	{
		products.GET("", d.Product.List)
		products.GET("/:id", d.Product.Get)
		products.GET("/:id/reviews", d.Product.Reviews)
	}

	categories := r.Group("/categories")
	{
		categories.GET("", d.Category.List)
		categories.GET("/:id", d.Category.Get)
	}

	orders := r.Group("/orders")
	orders.Use(authenticated)
	{
		orders.POST("", middleware.Authorize(models.RoleBuyer), d.Order.Create)
		orders.GET("/:id", d.Order.Get)
	}

	buyer := r.Group("/buyer")
	buyer.Use(authenticated, middleware.Authorize(models.RoleBuyer))
	{
		buyer.GET("/orders", d.Buyer.Orders)
		buyer.POST("/orders/:id/review", d.Buyer.CreateReview)
	}

	seller := r.Group("/seller")
	seller.Use(authenticated, middleware.Authorize(models.RoleSeller))
	{
		seller.GET("/dashboard", d.Seller.Dashboard)
		seller.GET("/products", d.Seller.Products)
		seller.POST("/products", d.Seller.CreateProduct)
		seller.PUT("/products/:id", d.Seller.UpdateProduct)
		seller.DELETE("/products/:id", d.Seller.DeleteProduct)
		seller.POST("/products/:id/images", d.Seller.UploadImages)
		seller.GET("/orders", d.Seller.Orders)
		seller.PATCH("/orders/:id/status", d.Seller.UpdateOrderStatus)
		seller.GET("/categories", d.Category.ListOwn)
		seller.POST("/categories", d.Category.Create)
		seller.PUT("/categories/:id", d.Category.Update)
		seller.DELETE("/categories/:id", d.Category.Delete)
	}

	admin := r.Group("/admin")
	admin.Use(authenticated, middleware.Authorize(models.RoleAdmin))
	{
		admin.GET("/dashboard", d.Admin.Dashboard)
		admin.GET("/users", d.Admin.Users)
		admin.PATCH("/users/:id/ban", d.Admin.SetBanned)
		admin.GET("/orders", d.Admin.Orders)
	}
}
