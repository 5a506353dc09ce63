package api

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/gin-gonic/gin"
)

//go:embed index.html
var templateFS embed.FS

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "index.html")))

	setupRoutes(r, handler)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler) {
	// Browser client; issues the token cookie
	r.GET("/", handler.Index)

	r.GET("/health", handler.GetHealth)

	// Every /api route requires the token cookie
	api := r.Group("/api")
	api.Use(tokenRequired())
	{
		api.POST("/feeds", handler.Subscribe)
		api.GET("/feeds", handler.ListFeeds)
		api.POST("/feeds/:id/refresh", handler.RefreshFeed)
		api.GET("/feeds/:id/articles", handler.ListArticles)
		api.POST("/feeds/:id/purge", handler.PurgeFeed)

		api.GET("/articles/starred", handler.ListStarred)
		api.POST("/articles/starred/read", handler.MarkAllStarredRead)
		api.POST("/articles/:id/read", handler.MarkRead)
		api.POST("/articles/:id/star", handler.ToggleStarred)
		api.POST("/articles/:id/content", handler.FetchContent)

		api.GET("/suggestions", handler.GetSuggestions)
	}

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}
