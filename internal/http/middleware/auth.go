package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/xai-decision-backend/internal/platform/ctxutil"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

// ReviewerAuth guards employee routes with an HS256 bearer token. The sub
// claim becomes the reviewer recorded on reviews.
type ReviewerAuth struct {
	log    *logger.Logger
	secret []byte
}

func NewReviewerAuth(log *logger.Logger, secret string) *ReviewerAuth {
	return &ReviewerAuth{log: log.With("Middleware", "ReviewerAuth"), secret: []byte(secret)}
}

// Enabled is false when no secret is configured; employee routes are then
// open.
func (a *ReviewerAuth) Enabled() bool {
	return a != nil && len(a.secret) > 0
}

func (a *ReviewerAuth) RequireReviewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}
		tokenString := extractBearer(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		subject, err := a.Subject(tokenString)
		if err != nil {
			a.log.Debug("reviewer token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithReviewer(c.Request.Context(), subject))
		c.Next()
	}
}

// Subject validates the token and returns its sub claim.
func (a *ReviewerAuth) Subject(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errors.New("invalid token")
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

func extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
