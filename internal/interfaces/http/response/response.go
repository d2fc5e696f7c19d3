package response

import (
	"github.com/gin-gonic/gin"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
)

// Envelope is the JSON shape every route answers with.
type Envelope struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Meta     interface{} `json:"meta,omitempty"`
	Error    string      `json:"error,omitempty"`
	Code     string      `json:"code,omitempty"`
	Redirect string      `json:"redirect,omitempty"`
}

// Success sends a success response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// SuccessWithMeta sends a success response carrying pagination or stats metadata
func SuccessWithMeta(c *gin.Context, status int, data, meta interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data, Meta: meta})
}

// Error sends an error response
func Error(c *gin.Context, err error) {
	appErr, ok := domainerrors.As(err)
	if !ok {
		// Default to Internal Server Error if not an AppError
		appErr = domainerrors.InternalError(err)
	}

	c.JSON(appErr.Status, Envelope{
		Success: false,
		Error:   appErr.Message,
		Code:    appErr.Code,
	})
}

// ErrorWithError sends an error response with a specific status, code and message
func ErrorWithError(c *gin.Context, status int, code string, message string) {
	c.JSON(status, Envelope{
		Success: false,
		Error:   message,
		Code:    code,
	})
}

// ErrorWithRedirect sends an error response that tells the client where to go next.
func ErrorWithRedirect(c *gin.Context, status int, message, redirect string) {
	c.JSON(status, Envelope{
		Success:  false,
		Error:    message,
		Code:     domainerrors.CodeUnauthorized,
		Redirect: redirect,
	})
}
