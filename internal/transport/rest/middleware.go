package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

const (
	// HeaderUserID и HeaderUserRole выставляет gateway после аутентификации.
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	actorContextKey = "actor"
)

// RequestLogger пишет access-log через logrus.
func RequestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if actor, ok := c.Get(actorContextKey); ok {
			entry = entry.WithField("actor_id", actor.(domain.Actor).ID)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("http request")
			return
		}
		entry.Debug("http request")
	}
}

// ActorRequired извлекает актора из заголовков gateway. Без идентификатора запрос отклоняется.
func ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if id == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthenticated", "missing "+HeaderUserID+" header")
			return
		}
		role := domain.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
		if role == "" {
			role = domain.RoleCustomer
		}
		if !role.Valid() {
			abortWithError(c, http.StatusBadRequest, "invalid_role", "unknown role "+string(role))
			return
		}
		c.Set(actorContextKey, domain.Actor{ID: id, Role: role})
		c.Next()
	}
}

// AdminRequired пропускает только администраторов.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentActor(c).IsAdmin() {
			abortWithError(c, http.StatusForbidden, "forbidden", domain.ErrForbidden.Error())
			return
		}
		c.Next()
	}
}

// CurrentActor возвращает актора, выставленного ActorRequired.
func CurrentActor(c *gin.Context) domain.Actor {
	val, ok := c.Get(actorContextKey)
	if !ok {
		return domain.Actor{}
	}
	actor, _ := val.(domain.Actor)
	return actor
}
