package handler

import (
	"github.com/gin-gonic/gin"

	"lsm-digest/internal/app"
	"lsm-digest/internal/logger"
	"lsm-digest/internal/transport/http/response"
)

type ArticleHandler struct {
	articleService *app.ArticleService
	log            logger.Logger
}

func NewArticleHandler(articleService *app.ArticleService, log logger.Logger) *ArticleHandler {
	return &ArticleHandler{articleService: articleService, log: log}
}

func (h *ArticleHandler) Articles(c *gin.Context) {
	articles, err := h.articleService.Articles(c.Request.Context(), c.Param("date"))
	if err != nil {
		writeError(c, h.log, err, "list articles failed")
		return
	}
	response.OK(c, gin.H{"articles": articles})
}

// Titles serves /titles/:date and /titles/:category/:date. Gin needs one
// wildcard name per segment, so the first segment arrives as "key".
func (h *ArticleHandler) Titles(c *gin.Context) {
	date, category := c.Param("date"), ""
	if date == "" {
		date = c.Param("key")
	} else {
		category = c.Param("key")
	}

	titles, err := h.articleService.Titles(c.Request.Context(), date, category)
	if err != nil {
		writeError(c, h.log, err, "list titles failed")
		return
	}
	response.OK(c, gin.H{"titles": titles})
}
