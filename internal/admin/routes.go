package admin

import (
	"studiogear/internal/auth"
	"studiogear/internal/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler, cfg config.AdminConfig) {
	adminGroup := router.Group("/admin")
	adminGroup.Use(auth.AdminAuthMiddleware(cfg.Password, cfg.Key))
	{
		adminGroup.GET("/quota", handler.QuotaHandler)

		gearGroup := adminGroup.Group("/gear")
		{
			gearGroup.POST("", handler.CreateGearHandler)
			gearGroup.POST("/bulk", handler.BulkImportHandler)
			gearGroup.PUT("/:id", handler.UpdateGearHandler)
			gearGroup.DELETE("/:id", handler.DeleteGearHandler)
			gearGroup.POST("/:id/images", handler.UploadImageHandler)
			gearGroup.POST("/:id/images/fetch", handler.FetchImagesHandler)
		}

		imagesGroup := adminGroup.Group("/images")
		{
			imagesGroup.POST("/fetch", handler.BatchFetchImagesHandler)
			imagesGroup.DELETE("/:id", handler.DeleteImageHandler)
			imagesGroup.PUT("/:id/primary", handler.SetPrimaryImageHandler)
		}

		projectsGroup := adminGroup.Group("/projects")
		{
			projectsGroup.POST("", handler.CreateProjectHandler)
			projectsGroup.PUT("/:id", handler.UpdateProjectHandler)
			projectsGroup.DELETE("/:id", handler.DeleteProjectHandler)
			projectsGroup.POST("/:id/gear", handler.AddProjectGearHandler)
			projectsGroup.DELETE("/:id/gear/:gearId", handler.RemoveProjectGearHandler)
		}
	}
}
