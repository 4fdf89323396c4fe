package router

import (
	"github.com/gin-gonic/gin"

	"github.com/forma22-agency/gh-dispatch-relay/internal/http/handler"
	"github.com/forma22-agency/gh-dispatch-relay/internal/http/middleware"
	"github.com/forma22-agency/gh-dispatch-relay/internal/service"
)

type RouterConfig struct {
	WebhookSecret string
	Ready         bool
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	healthHandler := handler.NewHealthHandler(cfg.Ready)
	router.GET("/", healthHandler.Root)
	router.GET("/healthz", healthHandler.Healthz)

	webhookHandler := handler.NewWebhookHandler(services.Relay())
	WebhookRouter(router.Group(""), webhookHandler, cfg.WebhookSecret)
}

func WebhookRouter(router *gin.RouterGroup, handler *handler.WebhookHandler, secret string) {
	router.POST("/webhook",
		middleware.DeliveryID(),
		middleware.RequireSharedSecret(secret),
		handler.Handle,
	)
}
