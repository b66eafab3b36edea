package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/joblens/joblens/internal/api/handlers"
	"github.com/joblens/joblens/internal/api/middleware"
)

type Deps struct {
	Match       *handlers.MatchHandler
	Interaction *handlers.InteractionHandler
	Metrics     *handlers.MetricsHandler
	Profile     *handlers.ProfileHandler
	Admin       *handlers.AdminHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/api")
	auth.Use(middleware.JWTAuth())

	auth.POST("/match", d.Match.Find)
	auth.POST("/interaction", d.Interaction.Record)
	auth.GET("/metrics", d.Metrics.UserMetrics)

	auth.GET("/profile/me", d.Profile.Me)
	auth.PUT("/profile", d.Profile.Update)

	admin := auth.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.POST("/retrain", d.Admin.Retrain)
}
