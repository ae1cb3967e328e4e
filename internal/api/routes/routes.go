package routes

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/api/handlers"
	"github.com/Wikid82/warden/internal/api/middleware"
	"github.com/Wikid82/warden/internal/config"
	"github.com/Wikid82/warden/internal/moderation"
	"github.com/Wikid82/warden/internal/services"
)

// commandBurst is the number of commands an actor may issue back to back
// before the sustained rate applies.
const commandBurst = 10

// Services are the long lived dependencies the routes share with the
// background jobs.
type Services struct {
	Members       *services.MemberService
	Rules         *services.AutoModService
	Secrets       *services.SecretService
	Notifications *services.NotificationService
	Executor      *moderation.Executor
	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Register wires up the versioned API.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config, svc Services) error {
	if svc.Members == nil || svc.Rules == nil || svc.Secrets == nil || svc.Notifications == nil || svc.Executor == nil {
		return errors.New("routes: every service must be provided")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("routes: jwt secret is empty")
	}
	gatherer := svc.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router.GET("/api/v1/health", handlers.HealthHandler(db))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	api.Use(middleware.Auth([]byte(cfg.Auth.JWTSecret)))

	commandHandler := handlers.NewCommandHandler(svc.Members, svc.Executor)
	api.POST("/commands",
		middleware.RateLimit(cfg.CommandRateLimit, commandBurst),
		middleware.InFlight(),
		commandHandler.Execute,
	)
	api.GET("/warnings/:actor", commandHandler.ListWarnings)
	api.DELETE("/warnings/:actor", middleware.InFlight(), commandHandler.ClearWarnings)
	api.DELETE("/warnings/:actor/:id", middleware.InFlight(), commandHandler.RemoveWarning)

	autoModHandler := handlers.NewAutoModHandler(svc.Members, svc.Rules)
	api.GET("/automod/rules", autoModHandler.List)
	api.PUT("/automod/rules", autoModHandler.Upsert)
	api.GET("/automod/rules/:threshold", autoModHandler.Get)
	api.DELETE("/automod/rules/:threshold", autoModHandler.Delete)

	secretHandler := handlers.NewSecretHandler(svc.Secrets)
	api.GET("/secrets/me", secretHandler.Get)
	api.PUT("/secrets/me", secretHandler.Put)
	api.DELETE("/secrets/me", secretHandler.Delete)

	memberHandler := handlers.NewMemberHandler(svc.Members)
	api.GET("/members", memberHandler.List)
	api.PUT("/members", memberHandler.Sync)

	notificationHandler := handlers.NewNotificationHandler(svc.Members, svc.Notifications)
	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
	api.POST("/notifications/:id/read", notificationHandler.MarkAsRead)

	providerHandler := handlers.NewNotificationProviderHandler(svc.Members, svc.Notifications)
	api.GET("/notifications/providers", providerHandler.List)
	api.POST("/notifications/providers", providerHandler.Create)
	api.PUT("/notifications/providers/:id", providerHandler.Update)
	api.DELETE("/notifications/providers/:id", providerHandler.Delete)
	api.POST("/notifications/providers/test", providerHandler.Test)

	return nil
}
