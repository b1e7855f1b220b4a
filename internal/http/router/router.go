package router

import (
	"github.com/gin-gonic/gin"

	"github.com/pawel-modine/AsanaBot/internal/http/handler"
	"github.com/pawel-modine/AsanaBot/internal/http/handler/webhook"
	"github.com/pawel-modine/AsanaBot/internal/http/middleware"
	"github.com/pawel-modine/AsanaBot/internal/service"
)

type RouterConfig struct {
	GitHubWebhookSecret string
	GitLabWebhookToken  string
	TraceHeaderName     string
	AdminAPIKey         string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	hooks := router.Group("/webhooks")
	if cfg.GitHubWebhookSecret != "" {
		gh := webhook.NewGitHubWebhookHandler(services.EventIngest(), cfg.GitHubWebhookSecret, cfg.TraceHeaderName)
		hooks.POST("/github", gh.HandleEvent)
	}
	if cfg.GitLabWebhookToken != "" {
		gl := webhook.NewGitLabWebhookHandler(services.EventIngest(), cfg.GitLabWebhookToken, cfg.TraceHeaderName)
		hooks.POST("/gitlab", gl.HandleEvent)
	}

	v1 := router.Group("/api/v1", middleware.RequireAdminAPIKey(cfg.AdminAPIKey))
	{
		DeliveryRouter(v1.Group("/deliveries"), handler.NewDeliveryHandler(services.Deliveries()))
	}
}
