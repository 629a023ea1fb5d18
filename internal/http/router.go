package http

import (
	"log/slog"

	"github.com/geocoder89/pricetracker/internal/config"
	"github.com/geocoder89/pricetracker/internal/domain/user"
	"github.com/geocoder89/pricetracker/internal/http/handlers"
	"github.com/geocoder89/pricetracker/internal/http/middlewares"
	"github.com/geocoder89/pricetracker/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps carries everything the router wires into handlers and middleware.
// Prom, RateStore, Checks and Gatherer are optional.
type Deps struct {
	Tokens      middlewares.TokenVerifier
	Principals  middlewares.PrincipalLoader
	Auth        handlers.Authenticator
	Users       handlers.UserManager
	Preferences handlers.PreferencesManager

	RateStore middlewares.WindowStore
	Prom      *observability.Prom
	Gatherer  prometheus.Gatherer
	Checks    map[string]handlers.PingFunc
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	authMW := middlewares.NewAuthMiddleware(deps.Tokens, deps.Principals, log, deps.Prom)

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(observability.ServiceName))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.RequestLogger(log))
	r.Use(authMW.Authenticate())

	// health
	h := handlers.NewHealthHandler(deps.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// auth
	limiter := middlewares.NewRateLimiter(cfg.RateLimitAuthRequests, cfg.RateLimitAuthWindow, deps.RateStore, log)
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Prom)

	authGroup := r.Group("/auth")
	if cfg.RateLimitAuthRequests > 0 {
		authGroup.Use(limiter.RateLimiterMiddleware("auth", middlewares.KeyByIP))
	}
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	// users
	usersHandler := handlers.NewUsersHandler(deps.Users)
	prefsHandler := handlers.NewPreferencesHandler(deps.Preferences)

	users := r.Group("/users", authMW.RequireAuth())
	users.GET("/me", usersHandler.Me)
	users.GET("", authMW.RequireRole(user.RoleAdmin), usersHandler.ListUsers)

	owned := users.Group("/:id", authMW.RequireSelfOrAdmin("id"))
	owned.GET("", usersHandler.GetUser)
	owned.PUT("", usersHandler.UpdateUser)
	owned.DELETE("", usersHandler.DeleteUser)
	owned.GET("/preferences", prefsHandler.GetPreferences)
	owned.PUT("/preferences", prefsHandler.UpdatePreferences)

	password := []gin.HandlerFunc{authMW.RequireSelf("id")}
	if cfg.RateLimitPasswordRequests > 0 {
		pwLimiter := middlewares.NewRateLimiter(cfg.RateLimitPasswordRequests, cfg.RateLimitPasswordWindow, deps.RateStore, log)
		password = append(password, pwLimiter.RateLimiterMiddleware("password", middlewares.KeyByUserOrIP))
	}
	users.PUT("/:id/password", append(password, usersHandler.ChangePassword)...)

	return r
}
