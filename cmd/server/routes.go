package main

import (
	"github.com/gin-gonic/gin"
	"github.com/k-lamby/taskTEST-sub000/internal/middleware"
	"github.com/k-lamby/taskTEST-sub000/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for the public auth routes
	authLimiter := middleware.NewRateLimiter(5, 10)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "tasktest"})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.PUT("/users/me/push-token", svc.authHandler.UpdatePushToken)

			// Projects
			protected.GET("/projects", svc.projectHandler.List)
			protected.POST("/projects", svc.projectHandler.Create)
			protected.GET("/projects/:id", svc.projectHandler.GetByID)
			protected.PUT("/projects/:id", svc.projectHandler.Update)
			protected.DELETE("/projects/:id", svc.projectHandler.Archive)
			protected.GET("/projects/:id/members", svc.projectHandler.Members)
			protected.GET("/projects/:id/tasks", svc.taskHandler.ListForProject)
			protected.POST("/projects/:id/messages", svc.activityHandler.PostMessage)

			// Tasks
			protected.POST("/tasks", svc.taskHandler.Add)
			protected.PUT("/tasks/:id", svc.taskHandler.Update)
			protected.POST("/tasks/:id/toggle", svc.taskHandler.Toggle)

			// Activity feed
			protected.GET("/activities", svc.activityHandler.Feed)
		}
	}
}
