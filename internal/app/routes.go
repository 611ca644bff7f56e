package app

import (
	"net/http"

	"github.com/tsukiblade/SimpleTaskManager/internal/config"
	"github.com/tsukiblade/SimpleTaskManager/internal/events"
	"github.com/tsukiblade/SimpleTaskManager/internal/handlers"
	"github.com/tsukiblade/SimpleTaskManager/internal/service"

	_ "github.com/tsukiblade/SimpleTaskManager/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, svc *service.TaskService, hub *events.Hub) {
	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(cfg))
	r.GET("/version", versionHandler(cfg))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	r.GET("/ws", handlers.Events(hub))

	registerTaskRoutes(r.Group("/tasks"), handlers.NewTaskHandler(svc))
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Task Store API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"store":   cfg.Store.Driver,
			"docs":    "/swagger/index.html",
			"spec":    "/swagger-doc.json",
			"health":  "/health",
			"api":     "/tasks/",
			"events":  "/ws",
		})
	}
}

func healthHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "env": cfg.App.Env})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerTaskRoutes(api *gin.RouterGroup, h *handlers.TaskHandler) {
	api.GET("/", h.List)
	api.POST("/", h.Create)
	api.GET("/:id", h.GetByID)
	api.PUT("/:id", h.Replace)
	api.DELETE("/:id", h.Delete)
	api.POST("/:id/complete", h.Complete)
}
