package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edrive/ride-hailing/internal/service/chat"
	"github.com/edrive/ride-hailing/internal/service/earnings"
	"github.com/edrive/ride-hailing/internal/service/matching"
	"github.com/edrive/ride-hailing/internal/service/notification"
	"github.com/edrive/ride-hailing/internal/service/onboarding"
	"github.com/edrive/ride-hailing/internal/service/places"
	"github.com/edrive/ride-hailing/internal/service/presence"
	"github.com/edrive/ride-hailing/internal/service/review"
	"github.com/edrive/ride-hailing/internal/service/support"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/pubsub"
	"github.com/edrive/ride-hailing/pkg/websocket"
)

// Services groups the application services the handlers call
type Services struct {
	Matching      *matching.Service
	Earnings      *earnings.Service
	Notifications *notification.Service
	Presence      *presence.Feed
	Chat          *chat.Relay
	Reviews       *review.Service
	Onboarding    *onboarding.Service
	Support       *support.Service
	Places        *places.Service
}

// Handlers holds all handler dependencies
type Handlers struct {
	Services
	Hub    *websocket.Hub
	Logger *logger.Logger

	// Heartbeat is the interval of keep-alive comments on SSE streams
	Heartbeat time.Duration
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, hub *websocket.Hub, log *logger.Logger) *Handlers {
	return &Handlers{
		Services:  services,
		Hub:       hub,
		Logger:    log,
		Heartbeat: 15 * time.Second,
	}
}

// respondError writes err as {"error", "code", "details"} with the status of
// its AppError. Anything that is not an AppError is an internal error.
func (h *Handlers) respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		appErr = apperrors.Internal("Internal server error", err)
	}
	if appErr.Status >= http.StatusInternalServerError {
		h.Logger.Error("Request failed",
			logger.String("path", c.FullPath()),
			logger.String("code", appErr.Code),
			logger.Err(err),
		)
	}

	body := gin.H{"error": appErr.Message, "code": appErr.Code}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.JSON(appErr.Status, body)
}

// bindJSON binds the body and answers 400 on failure
func (h *Handlers) bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"code":    "VALIDATION_ERROR",
			"details": err.Error(),
		})
		return false
	}
	return true
}

func wantsWatch(c *gin.Context) bool {
	watch, _ := strconv.ParseBool(c.Query("watch"))
	return watch
}

func queryLimit(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

// stream serves a subscription as Server-Sent Events. The snapshot goes out
// first as a "snapshot" event, then every live event under its own type.
// The subscription is released when the client goes away.
func (h *Handlers) stream(c *gin.Context, sub *pubsub.Subscription, snapshot interface{}) {
	defer sub.Unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("snapshot", snapshot)
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.Heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case <-heartbeat.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		case <-sub.Done():
			return false
		case <-c.Request.Context().Done():
			return false
		}
	})
}
