package response

import "github.com/gin-gonic/gin"

const (
	CodeOK               = 0
	CodeBadRequest       = 40000
	CodeInvalidDate      = 40001
	CodeUnauthorized     = 40100
	CodeNotFound         = 40400
	CodeNoArticles       = 40401
	CodeSummaryNotFound  = 40402
	CodeSummaryRunning   = 40900
	CodePayloadTooLarge  = 41300
	CodeInternalServer   = 50000
	CodeAgentContract    = 50001
	CodeAgentCallFailed  = 50200
	CodeAgentUnavailable = 50300
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// OK writes data as the whole body so clients keep seeing the plain
// {"articles": [...]} style payloads.
func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

// Raw passes an upstream JSON body through unchanged.
func Raw(c *gin.Context, status int, body []byte) {
	c.Data(status, "application/json; charset=utf-8", body)
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

func ErrorWithData(c *gin.Context, httpStatus, code int, message string, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}
