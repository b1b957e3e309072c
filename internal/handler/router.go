// internal/handler/router.go
package handler

import (
	"net/http"
	"time"

	"studio-settlement/internal/domain"
	"studio-settlement/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterOptions struct {
	CORSOrigins []string
	// Telegram, when set, is mounted at POST /telegram.
	Telegram gin.HandlerFunc
}

func NewRouter(h *Handler, authMW *middleware.AuthMiddleware, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger(), gin.Recovery())

	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders:    []string{"Content-Disposition", middleware.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Telegram != nil {
		router.POST("/telegram", opts.Telegram)
	}

	router.POST("/api/v1/login", h.Login)

	admin := middleware.RequireRole(domain.RoleAdmin)
	v1 := router.Group("/api/v1")
	v1.Use(authMW.RequireAuth())
	{
		v1.GET("/me", h.Me)

		v1.GET("/calculator/rates", h.ListRates)
		v1.POST("/calculator/fees", h.CalculateFees)
		v1.POST("/calculator/settlement", h.CalculateSettlement)

		v1.GET("/members", h.ListMembers)
		v1.GET("/members/:id", h.GetMember)
		v1.POST("/members", admin, h.CreateMember)
		v1.PUT("/members/:id", admin, h.UpdateMember)
		v1.DELETE("/members/:id", admin, h.DeleteMember)

		v1.GET("/channels", h.ListChannels)
		v1.POST("/channels", admin, h.CreateChannel)
		v1.PUT("/channels/:id", admin, h.UpdateChannel)
		v1.DELETE("/channels/:id", admin, h.DeleteChannel)

		v1.GET("/contacts", h.ListContacts)
		v1.GET("/contacts/:id", h.GetContact)
		v1.POST("/contacts", h.CreateContact)
		v1.PUT("/contacts/:id", h.UpdateContact)
		v1.DELETE("/contacts/:id", h.DeleteContact)

		v1.GET("/projects", h.ListProjects)
		v1.GET("/projects/:id", h.GetProject)
		v1.GET("/projects/:id/preview", h.PreviewProject)
		v1.POST("/projects", h.CreateProject)
		v1.PUT("/projects/:id", h.UpdateProject)
		v1.DELETE("/projects/:id", h.DeleteProject)

		v1.GET("/feed", h.ListFeed)
		v1.POST("/feed", h.PostNote)

		v1.GET("/settlements", h.ListSettlements)
		v1.GET("/settlements/:month", h.GetSettlement)
		v1.GET("/settlements/:month/preview", h.PreviewSettlement)
		v1.GET("/settlements/:month/summary", h.SettlementSummary)
		v1.GET("/settlements/:month/export", h.ExportSettlement)
		v1.POST("/settlements/:month/generate", admin, h.GenerateSettlement)
		v1.POST("/settlements/:month/status", admin, h.SetSettlementStatus)
	}

	return router
}
