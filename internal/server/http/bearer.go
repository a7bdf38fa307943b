package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mhmtalitas/parkmeter/internal/auth"
	"github.com/mhmtalitas/parkmeter/internal/model"
)

// BearerAuth verifies "Authorization: Bearer <JWT>" and installs the
// token subject into the request context as a verified principal.
func BearerAuth(signKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := principalFromHeader(c.GetHeader("Authorization"), signKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx := auth.WithPrincipal(c.Request.Context(), principal)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// principalFromHeader parses the bearer token, verifies HS256, and
// returns the subject as a principal.
func principalFromHeader(header string, signKey []byte) (model.Principal, error) {
	tok, err := bearerToken(header)
	if err != nil {
		return "", err
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return signKey, nil
	})
	if err != nil || !parsed.Valid {
		return "", errors.New("invalid token")
	}

	v := jwt.NewValidator(jwt.WithLeeway(30 * time.Second))
	if err := v.Validate(&claims); err != nil {
		return "", errors.New("token expired or not valid yet")
	}

	if claims.Subject == "" {
		return "", errors.New("empty subject")
	}
	return model.Principal(claims.Subject), nil
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		t := strings.TrimSpace(header[7:])
		if t != "" {
			return t, nil
		}
	}
	return "", errors.New("no bearer token")
}
