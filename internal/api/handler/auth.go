package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"campusmind/backend/internal/alias"
	"campusmind/backend/internal/models"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// identity is the anonymous id + alias carried by a token.
type identity struct {
	UserID string
	Alias  string
}

func (h *Handler) generateJWT(id identity) (string, error) {
	claims := jwt.MapClaims{
		"anon_id": id.UserID,
		"alias":   id.Alias,
		"exp":     time.Now().Add(time.Hour * 72).Unix(),
		"iss":     "campusmind-service",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.JWTSecret)
}

func (h *Handler) parseJWT(tokenString string) (identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return h.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return identity{}, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return identity{}, errors.New("invalid claims")
	}
	anonID, _ := claims["anon_id"].(string)
	aliasName, _ := claims["alias"].(string)
	if anonID == "" {
		return identity{}, errors.New("missing anon id")
	}
	return identity{UserID: anonID, Alias: aliasName}, nil
}

// GetAnonID mints an anonymous identity: a fresh UUID plus a generated alias,
// wrapped in a signed token.
func (h *Handler) GetAnonID(c *gin.Context) {
	id := identity{
		UserID: uuid.New().String(),
		Alias:  alias.Generate(),
	}

	if err := h.Storage.SaveUser(&models.User{ID: id.UserID, Alias: id.Alias}); err != nil {
		log.Printf("Failed to save anon user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create identity"})
		return
	}

	token, err := h.generateJWT(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "anon_id": id.UserID, "alias": id.Alias})
}

// bearerIdentity extracts and validates the bearer token on a request.
func (h *Handler) bearerIdentity(c *gin.Context) (identity, bool) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return identity{}, false
	}
	id, err := h.parseJWT(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return identity{}, false
	}
	return id, true
}

// requireAdmin gates moderation endpoints behind the ops token.
func (h *Handler) requireAdmin(c *gin.Context) bool {
	if h.AdminToken == "" || c.GetHeader("X-Admin-Token") != h.AdminToken {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return false
	}
	return true
}
