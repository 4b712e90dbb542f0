package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lsm-digest/internal/bootstrap"
	"lsm-digest/internal/logger"
	"lsm-digest/internal/transport/http/handler"
	"lsm-digest/internal/transport/http/middleware"
)

type routes struct {
	ginMode   string
	jwtSecret string
	log       logger.Logger
	metrics   http.Handler

	health   *handler.HealthHandler
	articles *handler.ArticleHandler
	agent    *handler.AgentHandler
	summary  *handler.SummaryHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	log := app.Logger.With(logger.String("component", "http"))
	return newEngine(routes{
		ginMode:   app.Config.App.GinMode,
		jwtSecret: app.Config.Auth.JWTSecret,
		log:       log,
		metrics:   app.Metrics.Handler(),
		health:    handler.NewHealthHandler(app),
		articles:  handler.NewArticleHandler(app.ArticleService, log),
		agent:     handler.NewAgentHandler(app.ChatService, log),
		summary:   handler.NewSummaryHandler(app.SummaryService, log),
	})
}

func newEngine(r routes) *gin.Engine {
	gin.SetMode(r.ginMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(r.log), gin.Recovery())

	router.GET("/", handler.Root)
	router.GET("/about", handler.About)
	if r.health != nil {
		router.GET("/healthz", r.health.Check)
	}
	if r.metrics != nil {
		router.GET("/metrics", gin.WrapH(r.metrics))
	}

	api := router.Group("/api")
	api.GET("/articles/:date", r.articles.Articles)
	api.GET("/titles/:key", r.articles.Titles)
	api.GET("/titles/:key/:date", r.articles.Titles)
	api.POST("/agent/:agent", r.agent.Chat)

	summary := api.Group("/lsm/summary/daily")
	summary.GET("", r.summary.Get)
	summary.POST("", middleware.AuthJWT(r.jwtSecret), r.summary.Create)
	summary.POST("/:agent", middleware.AuthJWT(r.jwtSecret), r.summary.Create)

	return router
}
