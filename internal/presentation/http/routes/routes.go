// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/application/container"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/presentation/http/handlers"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.RequestID())
	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	livefyreHandlers := handlers.NewLivefyreHandlers(container.LivefyreService, container.Logger, container.PerfTracker)
	userHandlers := handlers.NewUserHandlers(container.UserService, container.LivefyreService, container.Logger, container.PerfTracker)
	healthHandlers := handlers.NewHealthHandlers(container.Documents, container.Logger, container.PerfTracker)

	// Operational endpoints
	r.GET("/__gtg", healthHandlers.GTG)
	r.GET("/__health", healthHandlers.Health)

	v1 := r.Group("/v1")
	{
		livefyre := v1.Group("/livefyre")
		{
			livefyre.GET("/init", livefyreHandlers.Init)
			livefyre.GET("/metadata", livefyreHandlers.Metadata)
			livefyre.GET("/getcollectiondetails", livefyreHandlers.GetCollectionDetails)
		}

		user := v1.Group("/user")
		{
			user.GET("/getauth", userHandlers.GetAuth)
			user.GET("/getPseudonym", userHandlers.GetPseudonym)
			user.POST("/setPseudonym", userHandlers.SetPseudonym)
			user.POST("/emptyPseudonym", userHandlers.EmptyPseudonym)
			user.POST("/updateEmailPreferences", userHandlers.UpdateEmailPreferences)
			user.POST("/updateBasicInfo", userHandlers.UpdateBasicInfo)
		}
	}

	return r
}
