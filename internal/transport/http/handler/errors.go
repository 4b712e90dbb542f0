package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lsm-digest/internal/ai"
	"lsm-digest/internal/app"
	"lsm-digest/internal/logger"
	"lsm-digest/internal/transport/http/response"
)

// writeError maps service errors onto HTTP answers. Server-side failures are
// logged in full and answered with a generic message.
func writeError(c *gin.Context, log logger.Logger, err error, fallback string) {
	var (
		callErr     *ai.CallError
		unreachable *ai.UnreachableError
	)
	_ = c.Error(err)

	switch {
	case errors.Is(err, app.ErrInvalidDate):
		response.Error(c, http.StatusBadRequest, response.CodeInvalidDate, app.ErrInvalidDate.Error())
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrNoArticles):
		response.Error(c, http.StatusNotFound, response.CodeNoArticles, app.ErrNoArticles.Error())
	case errors.Is(err, app.ErrSummaryNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSummaryNotFound, app.ErrSummaryNotFound.Error())
	case errors.Is(err, app.ErrSummaryInProgress):
		response.Error(c, http.StatusConflict, response.CodeSummaryRunning, app.ErrSummaryInProgress.Error())
	case errors.Is(err, app.ErrPayloadTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, err.Error())
	case errors.Is(err, ai.ErrSessionUnavailable):
		log.Error(fallback, logger.Error(err))
		response.Error(c, http.StatusServiceUnavailable, response.CodeAgentUnavailable, "agent session unavailable")
	case errors.As(err, &unreachable):
		log.Error(fallback, logger.Error(err))
		response.Error(c, http.StatusServiceUnavailable, response.CodeAgentUnavailable, "agent runtime unreachable")
	case errors.As(err, &callErr) && callErr.SessionCall():
		log.Error(fallback, logger.Error(err))
		response.Error(c, http.StatusServiceUnavailable, response.CodeAgentUnavailable, "agent session unavailable")
	case errors.As(err, &callErr):
		log.Error(fallback, logger.Error(err))
		status := callErr.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		response.ErrorWithData(c, status, response.CodeAgentCallFailed, "agent call failed", gin.H{
			"upstream_status": callErr.StatusCode,
			"upstream_body":   callErr.Body,
		})
	case errors.Is(err, app.ErrAgentReplyInvalid), errors.Is(err, app.ErrUnresolvedArticle):
		log.Error(fallback, logger.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeAgentContract, "failed to parse agent response")
	default:
		log.Error(fallback, logger.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
