// Package middleware resolves the calling user for tracker requests. Tokens
// are issued and verified upstream; by the time a request reaches the
// tracker it carries the caller's public id in X-User-ID.
package middleware

import (
	"errors"
	"net/http"

	"task-ledger/internal/api/dto"
	"task-ledger/internal/core/ports"
	"task-ledger/internal/domain"
	"task-ledger/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderUserID = "X-User-ID"
	callerKey    = "caller"
)

// Caller loads the user named by X-User-ID and aborts with 401 when the
// header is missing, malformed, or names nobody.
func Caller(users ports.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(HeaderUserID))
		if err != nil {
			logging.Logger.Warnf("Event ID: CALLER_MISSING_HEADER, Description: %s missing or invalid for %s %s", HeaderUserID, c.Request.Method, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing or invalid " + HeaderUserID})
			return
		}

		user, err := users.FindByPublicID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				logging.Logger.Warnf("Event ID: CALLER_UNKNOWN, Description: No user %s for %s %s", id, c.Request.Method, c.Request.URL.Path)
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unknown user"})
				return
			}
			logging.Logger.WithError(err).Error("caller lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
			return
		}

		c.Set(callerKey, user)
		c.Next()
	}
}

// CallerFrom returns the user stored by Caller, or nil outside that middleware.
func CallerFrom(c *gin.Context) *domain.User {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}
