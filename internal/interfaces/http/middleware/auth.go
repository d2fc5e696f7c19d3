package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/interfaces/http/response"
	"finstack-p2p.backend/pkg/jwt"
	"finstack-p2p.backend/pkg/logger"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens
	BearerPrefix = "Bearer "
	// UserIDKey is the context key for user ID
	UserIDKey = "userId"
	// UserEmailKey is the context key for user email
	UserEmailKey = "userEmail"
	// UserRoleKey is the context key for user role
	UserRoleKey = "userRole"
	// TokenKey is the context key for the raw access token forwarded upstream
	TokenKey = "accessToken"
)

// Session cookies written by the frontend after login, in lookup order.
var SessionCookies = []string{"access_token", "accessToken"}

// BearerToken returns the access token from the Authorization header or, failing
// that, the session cookies. It returns "" when none is present.
func BearerToken(c *gin.Context) string {
	if h := c.GetHeader(AuthorizationHeader); strings.HasPrefix(h, BearerPrefix) {
		if tok := strings.TrimSpace(strings.TrimPrefix(h, BearerPrefix)); tok != "" {
			return tok
		}
	}
	for _, name := range SessionCookies {
		if v, err := c.Cookie(name); err == nil && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// ClearSessionCookies expires every session cookie on the client
func ClearSessionCookies(c *gin.Context) {
	for _, name := range SessionCookies {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// RequireToken only checks that an access token is present and stores it for
// the proxy routes; the backend validates it.
func RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			abortUnauthorized(c, "authentication required")
			return
		}
		c.Set(TokenKey, token)
		c.Next()
	}
}

// AuthMiddleware validates the access token locally and sets the user in context
func AuthMiddleware(jwtService *jwt.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			abortUnauthorized(c, "authentication required")
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			logger.Warn(c.Request.Context(), "access token rejected",
				zap.String("path", c.Request.URL.Path), zap.Error(err))
			msg := "invalid token"
			if errors.Is(err, jwt.ErrExpiredToken) {
				msg = "token has expired"
			}
			ClearSessionCookies(c)
			abortUnauthorized(c, msg)
			return
		}

		c.Set(UserIDKey, claims.SubjectID())
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRoleKey, claims.Role)
		c.Set(TokenKey, token)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	response.Error(c, domainerrors.Unauthorized(msg))
	c.Abort()
}

// GetUserID gets the user ID from context
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetToken gets the access token stored by the auth middleware
func GetToken(c *gin.Context) string {
	return c.GetString(TokenKey)
}

// GetUserRole gets the user role from context
func GetUserRole(c *gin.Context) (string, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	s, ok := role.(string)
	return s, ok
}
