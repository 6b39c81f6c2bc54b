package api

import (
	"studiogear/internal/metrics"
	"studiogear/internal/storage"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/healthz", handler.HealthzHandler)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET(storage.ServePath+"/*key", handler.ImageHandler)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/gear", handler.ListGearHandler)
		apiGroup.GET("/gear/:id", handler.GetGearHandler)
		apiGroup.GET("/categories", handler.CategoriesHandler)
		apiGroup.GET("/projects", handler.ListProjectsHandler)
		apiGroup.GET("/projects/:id", handler.GetProjectHandler)
	}
}
