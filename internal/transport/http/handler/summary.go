package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lsm-digest/internal/app"
	"lsm-digest/internal/logger"
	"lsm-digest/internal/transport/http/response"
)

type SummaryHandler struct {
	summaryService *app.SummaryService
	log            logger.Logger
}

func NewSummaryHandler(summaryService *app.SummaryService, log logger.Logger) *SummaryHandler {
	return &SummaryHandler{summaryService: summaryService, log: log}
}

// Create handles POST /lsm/summary/daily[/:agent]?date=&limit=. Runs use the
// system identity; the path only picks the agent.
func (h *SummaryHandler) Create(c *gin.Context) {
	day, err := app.ParseDate(c.Query("date"))
	if err != nil {
		writeError(c, h.log, err, "")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "limit must be a non-negative integer")
			return
		}
	}

	result, err := h.summaryService.Summarize(c.Request.Context(), app.SummarizeInput{
		Day:       day,
		Limit:     limit,
		AgentName: c.Param("agent"),
	})
	if err != nil {
		writeError(c, h.log, err, "unexpected error while summarizing")
		return
	}

	response.OK(c, result)
}

// Get handles GET /lsm/summary/daily?date=.
func (h *SummaryHandler) Get(c *gin.Context) {
	day, err := app.ParseDate(c.Query("date"))
	if err != nil {
		writeError(c, h.log, err, "")
		return
	}

	doc, err := h.summaryService.Get(c.Request.Context(), day)
	if err != nil {
		writeError(c, h.log, err, "load daily summary failed")
		return
	}

	response.OK(c, doc)
}
