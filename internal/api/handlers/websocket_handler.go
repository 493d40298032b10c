package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/edrive/ride-hailing/internal/api/middleware"
	"github.com/edrive/ride-hailing/internal/auth"
	"github.com/edrive/ride-hailing/internal/service/chat"
	"github.com/edrive/ride-hailing/internal/service/matching"
	"github.com/edrive/ride-hailing/internal/service/notification"
	"github.com/edrive/ride-hailing/internal/service/presence"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/pubsub"
	"github.com/edrive/ride-hailing/pkg/websocket"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket handles GET /v1/ws
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Error("Failed to upgrade to WebSocket", logger.Err(err))
		return
	}

	client := websocket.NewClient(h.Hub, conn, middleware.CallerID(c), string(middleware.CallerRole(c)), h.Logger)
	h.Hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// TopicResolver maps WebSocket topics onto service subscriptions:
//
//	pending[:category]  approved drivers only
//	request:<id>        participants
//	offers:<id>         the passenger
//	location:<id>       trip participants
//	chat:<id>           trip participants
//	notifications       the caller's own inbox
type TopicResolver struct {
	Matching      *matching.Service
	Presence      *presence.Feed
	Chat          *chat.Relay
	Notifications *notification.Service
}

var errUnknownTopic = apperrors.BadRequest("Unknown topic", nil)

// Open implements websocket.Resolver
func (r *TopicResolver) Open(ctx context.Context, userID, role, topic string) (*pubsub.Subscription, interface{}, error) {
	name, arg := topic, ""
	if i := strings.IndexByte(topic, ':'); i >= 0 {
		name, arg = topic[:i], topic[i+1:]
	}

	var (
		sub      *pubsub.Subscription
		snapshot interface{}
		err      error
	)
	switch name {
	case "pending":
		if auth.Role(role) != auth.RoleDriver {
			return nil, nil, apperrors.Forbidden("Only drivers may follow pending requests", nil)
		}
		sub, snapshot, err = r.Matching.SubscribePending(ctx, userID, arg)
	case "request":
		sub, snapshot, err = r.Matching.SubscribeRequest(ctx, arg, matching.Viewer{
			UserID: userID,
			Admin:  auth.Role(role) == auth.RoleAdmin,
		})
	case "offers":
		sub, snapshot, err = r.Matching.SubscribeOffers(ctx, arg, userID)
	case "location":
		sub, snapshot, err = r.Presence.Subscribe(ctx, arg, userID)
	case "chat":
		sub, snapshot, err = r.Chat.Subscribe(ctx, arg, userID)
	case "notifications":
		sub = r.Notifications.Subscribe(ctx, userID)
		snapshot, err = r.Notifications.List(ctx, userID, 50)
		if err != nil {
			sub.Unsubscribe()
		}
	default:
		err = errUnknownTopic
	}
	if err != nil {
		return nil, nil, err
	}
	return sub, snapshot, nil
}
