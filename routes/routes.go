package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/storefront/controllers"
	"github.com/yashrajoria/storefront/middleware"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/validators"
)

// Handlers is everything the HTTP surface dispatches to.
type Handlers struct {
	Catalog   *models.Catalog
	Auth      middleware.Authenticator
	Factory   *controllers.Factory
	Account   *controllers.AuthController
	Cart      *controllers.CartController
	Orders    *controllers.OrderController
	UserLists *controllers.UserListsController
	Uploads   *controllers.UploadController
	Health    *controllers.HealthController
}

// CORS builds the cross-origin policy. An empty list allows any origin.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: len(origins) > 0,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// RegisterRoutes mounts /health and the /api/v1 tree.
func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/health", h.Health.Health)

	api := r.Group("/api/v1", middleware.ParseBody())
	registerCatalogRoutes(api, h)
	registerReviewRoutes(api, h)
	registerCouponRoutes(api, h)
	registerUserRoutes(api, h)
	registerShoppingRoutes(api, h)
}

func registerCatalogRoutes(api *gin.RouterGroup, h Handlers) {
	c, f := h.Catalog, h.Factory
	authed := middleware.Authenticated(h.Auth)
	staff := middleware.AllowedTo(models.RoleAdmin, models.RoleManager)
	admin := middleware.AllowedTo(models.RoleAdmin)
	id := validators.ObjectIDParam("id")

	categories := api.Group("/categories")
	{
		categories.GET("", f.GetAll(c.Categories))
		categories.POST("", authed, staff, validators.Body(validators.CreateCategory), f.CreateOne(c.Categories))
		categories.GET("/:id", id, f.GetOne(c.Categories))
		categories.PUT("/:id", id, authed, staff, validators.Body(validators.UpdateCategory), f.UpdateOne(c.Categories))
		categories.DELETE("/:id", id, authed, admin, f.DeleteOne(c.Categories))

		categories.GET("/:id/subcategories", id, middleware.NestedFilter("id", "parentCategory"),
			f.GetAll(c.SubCategories, models.SubCategoryParent...))
		categories.POST("/:id/subcategories", id, authed, staff, middleware.SetParamToBody("id", "parentCategory"),
			validators.Body(validators.CreateSubCategory), f.CreateOne(c.SubCategories, models.SubCategoryParent...))
	}

	subcategories := api.Group("/subcategories")
	{
		subcategories.GET("", f.GetAll(c.SubCategories, models.SubCategoryParent...))
		subcategories.POST("", authed, staff, validators.Body(validators.CreateSubCategory),
			f.CreateOne(c.SubCategories, models.SubCategoryParent...))
		subcategories.GET("/:id", id, f.GetOne(c.SubCategories, models.SubCategoryParent...))
		subcategories.PUT("/:id", id, authed, staff, validators.Body(validators.UpdateSubCategory), f.UpdateOne(c.SubCategories))
		subcategories.DELETE("/:id", id, authed, admin, f.DeleteOne(c.SubCategories))
	}

	brands := api.Group("/brands")
	{
		brands.GET("", f.GetAll(c.Brands))
		brands.POST("", authed, staff, validators.Body(validators.CreateBrand), f.CreateOne(c.Brands))
		brands.GET("/:id", id, f.GetOne(c.Brands))
		brands.PUT("/:id", id, authed, staff, validators.Body(validators.UpdateBrand), f.UpdateOne(c.Brands))
		brands.DELETE("/:id", id, authed, admin, f.DeleteOne(c.Brands))
	}

	products := api.Group("/products")
	{
		products.GET("", f.GetAll(c.Products, models.ProductList...))
		products.POST("", authed, staff, validators.Body(validators.CreateProduct), f.CreateOne(c.Products))
		products.GET("/:id", id, f.GetOne(c.Products, models.ProductDetails...))
		products.PUT("/:id", id, authed, staff, validators.Body(validators.UpdateProduct), f.UpdateOne(c.Products))
		products.DELETE("/:id", id, authed, admin, f.DeleteOne(c.Products))
	}
}

func registerReviewRoutes(api *gin.RouterGroup, h Handlers) {
	c, f := h.Catalog, h.Factory
	authed := middleware.Authenticated(h.Auth)
	customer := middleware.AllowedTo(models.RoleUser)
	id := validators.ObjectIDParam("id")
	setUser := middleware.SetUserToBody("user")

	api.GET("/products/:id/reviews", id, middleware.NestedFilter("id", "product"),
		f.GetAll(c.Reviews, models.ReviewAuthor...))
	api.POST("/products/:id/reviews", id, authed, customer, setUser, middleware.SetParamToBody("id", "product"),
		validators.Body(validators.CreateReview), f.CreateOne(c.Reviews, models.ReviewAuthor...))

	reviews := api.Group("/reviews")
	{
		reviews.GET("", f.GetAll(c.Reviews, models.ReviewAuthor...))
		reviews.POST("", authed, customer, setUser, validators.Body(validators.CreateReview),
			f.CreateOne(c.Reviews, models.ReviewAuthor...))
		reviews.GET("/:id", id, f.GetOne(c.Reviews, models.ReviewAuthor...))
		reviews.PUT("/:id", id, authed, customer, middleware.OwnedBy(c.Reviews.Store(), "id", "user"),
			validators.Body(validators.UpdateReview), f.UpdateOne(c.Reviews))
		reviews.DELETE("/:id", id, authed,
			middleware.AllowedTo(models.RoleUser, models.RoleManager, models.RoleAdmin),
			middleware.OwnedBy(c.Reviews.Store(), "id", "user", models.RoleAdmin, models.RoleManager),
			f.DeleteOne(c.Reviews))
	}
}

func registerCouponRoutes(api *gin.RouterGroup, h Handlers) {
	c, f := h.Catalog, h.Factory
	id := validators.UUIDParam("id")

	coupons := api.Group("/coupons", middleware.Authenticated(h.Auth), middleware.AllowedTo(models.RoleAdmin, models.RoleManager))
	{
		coupons.GET("", f.GetAll(c.Coupons))
		coupons.POST("", validators.Body(validators.CreateCoupon), f.CreateOne(c.Coupons))
		coupons.GET("/:id", id, f.GetOne(c.Coupons))
		coupons.PUT("/:id", id, validators.Body(validators.UpdateCoupon), f.UpdateOne(c.Coupons))
		coupons.DELETE("/:id", id, f.DeleteOne(c.Coupons))
	}
}

func registerUserRoutes(api *gin.RouterGroup, h Handlers) {
	c, f := h.Catalog, h.Factory
	authed := middleware.Authenticated(h.Auth)
	id := validators.ObjectIDParam("id")

	auth := api.Group("/auth")
	{
		auth.POST("/signup", validators.Body(validators.Signup), h.Account.Signup)
		auth.POST("/login", validators.Body(validators.Login), h.Account.Login)
	}

	users := api.Group("/users", authed)
	{
		logged := users.Group("/logged")
		logged.GET("/me", h.Account.GetMe)
		logged.PUT("/me", validators.Body(validators.UpdateMe), h.Account.UpdateMe)
		logged.DELETE("/me", h.Account.DeleteMe)
		logged.PUT("/password", validators.Body(validators.ChangePassword), h.Account.ChangePassword)

		staff := users.Group("", middleware.AllowedTo(models.RoleAdmin, models.RoleManager))
		staff.GET("", f.GetAll(c.Users))
		staff.POST("", validators.Body(validators.CreateUser), f.CreateOne(c.Users))
		staff.GET("/byId/:id", id, f.GetOne(c.Users))
		staff.PUT("/byId/:id", id, validators.Body(validators.UpdateUser), f.UpdateOne(c.Users))
		staff.PUT("/resetPassword/:id", id, validators.Body(validators.ResetPassword), f.ResetPassword(c.Users))
		staff.DELETE("/byId/:id", id, middleware.AllowedTo(models.RoleAdmin), f.DeleteOne(c.Users))
	}
}

func registerShoppingRoutes(api *gin.RouterGroup, h Handlers) {
	c, f := h.Catalog, h.Factory
	authed := middleware.Authenticated(h.Auth)
	customer := middleware.AllowedTo(models.RoleUser)
	staff := middleware.AllowedTo(models.RoleAdmin, models.RoleManager)
	id := validators.ObjectIDParam("id")

	wishlist := api.Group("/wishlist", authed, customer)
	{
		wishlist.GET("", h.UserLists.Wishlist)
		wishlist.POST("", validators.Body(validators.Wishlist), h.UserLists.AddToWishlist)
		wishlist.DELETE("/:productId", validators.ObjectIDParam("productId"), h.UserLists.RemoveFromWishlist)
	}

	addresses := api.Group("/addresses", authed, customer)
	{
		addresses.GET("", h.UserLists.Addresses)
		addresses.POST("", validators.Body(validators.Address), h.UserLists.AddAddress)
		addresses.DELETE("/:addressId", validators.UUIDParam("addressId"), h.UserLists.RemoveAddress)
	}

	cart := api.Group("/cart", authed, customer)
	{
		cart.GET("", h.Cart.GetCart)
		cart.POST("", validators.Body(validators.AddToCart), h.Cart.AddProduct)
		cart.DELETE("", h.Cart.Clear)
		cart.PUT("/applyCoupon", validators.Body(validators.ApplyCoupon), h.Cart.ApplyCoupon)
		cart.PUT("/:itemId", validators.UUIDParam("itemId"), validators.Body(validators.UpdateCartItem), h.Cart.UpdateQuantity)
		cart.DELETE("/:itemId", validators.UUIDParam("itemId"), h.Cart.RemoveItem)
	}

	orders := api.Group("/order", authed)
	{
		orders.GET("", middleware.ScopeToUser("user", models.RoleUser), f.GetAll(c.Orders, models.OrderCustomer...))
		orders.GET("/:id", id, middleware.OwnedBy(c.Orders.Store(), "id", "user", models.RoleAdmin, models.RoleManager),
			f.GetOne(c.Orders, models.OrderCustomer...))
		orders.POST("/:id", validators.UUIDParam("id"), customer, h.Orders.CreateCashOrder)
		orders.PUT("/:id/pay", id, staff, h.Orders.MarkPaid)
		orders.PUT("/:id/deliver", id, staff, h.Orders.MarkDelivered)
	}

	uploads := api.Group("/uploads", authed, staff)
	uploads.POST("/presign", validators.Body(validators.Presign), h.Uploads.Presign)
}
