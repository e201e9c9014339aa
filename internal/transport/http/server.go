package http

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	appsvc "account-service/internal/app"
	"account-service/internal/bootstrap"
	"account-service/internal/cache"
	"account-service/internal/pkg/password"
	"account-service/internal/repository"
	"account-service/internal/transport/http/handler"
	"account-service/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.AccessLog(app.Logger), gin.Recovery())

	userRepo := repository.NewUserRepository(app.DB)
	hasher := password.NewHasher(bcrypt.DefaultCost)
	tokenCache := cache.NewTokenCache(app.Redis, app.Config.Redis.TokenCachePrefix)

	authService := appsvc.NewAuthService(
		userRepo,
		hasher,
		tokenCache,
		app.Config.Auth.JWTSecret,
		app.Config.TokenTTL(),
		app.Logger,
	)
	accountService := appsvc.NewAccountService(userRepo, hasher, app.Logger)
	notificationService := appsvc.NewNotificationService(app.Publisher, app.Logger)

	healthHandler := handler.NewHealthHandler(app)
	authHandler := handler.NewAuthHandler(authService)
	accountHandler := handler.NewAccountHandler(accountService)
	notificationHandler := handler.NewNotificationHandler(notificationService)

	credentialLimit := middleware.NewRateLimiter(app.Config.RateLimit.RPS, app.Config.RateLimit.Burst).Middleware()
	requireUser := middleware.AuthJWT(authService)

	router.GET("/healthz", healthHandler.Check)

	router.POST("/register", authHandler.Register)
	router.POST("/login", credentialLimit, authHandler.Login)
	router.POST("/logout", authHandler.Logout)
	router.POST("/token", credentialLimit, authHandler.Token)

	me := router.Group("/users/me")
	me.Use(requireUser)
	me.GET("/", authHandler.Me)
	me.GET("/items/", authHandler.MyItems)

	router.GET("/get_users", accountHandler.ListUsers)
	router.GET("/balance", accountHandler.Balance)
	router.PUT("/withdraw_balance", accountHandler.Withdraw)
	router.PUT("/update_profile", accountHandler.UpdateProfile)
	router.GET("/profile", accountHandler.Profile)
	router.POST("/change_password", accountHandler.ChangePassword)

	router.GET("/push/:device_token", notificationHandler.Push)

	return router
}
