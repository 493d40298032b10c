package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edrive/ride-hailing/internal/api/dto"
	"github.com/edrive/ride-hailing/internal/api/middleware"
	"github.com/edrive/ride-hailing/internal/service/presence"
)

// UpdateLocation handles POST /v1/trips/:id/location
func (h *Handlers) UpdateLocation(c *gin.Context) {
	var req dto.UpdateLocationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	ping, err := h.Presence.Ping(c.Request.Context(), presence.PingInput{
		TripID:   c.Param("id"),
		Identity: middleware.CallerID(c),
		Lat:      req.Lat,
		Lng:      req.Lng,
		Rotation: req.Rotation,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ping)
}

// GetLocation handles GET /v1/trips/:id/location
func (h *Handlers) GetLocation(c *gin.Context) {
	ctx := c.Request.Context()
	if wantsWatch(c) {
		sub, snapshot, err := h.Presence.Subscribe(ctx, c.Param("id"), middleware.CallerID(c))
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.stream(c, sub, snapshot)
		return
	}

	latest, err := h.Presence.Latest(ctx, c.Param("id"), middleware.CallerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": latest})
}

// SendMessage handles POST /v1/trips/:id/messages
func (h *Handlers) SendMessage(c *gin.Context) {
	var req dto.SendMessageRequest
	if !h.bindJSON(c, &req) {
		return
	}

	msg, err := h.Chat.Send(c.Request.Context(), c.Param("id"), middleware.CallerID(c), req.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// GetMessages handles GET /v1/trips/:id/messages
func (h *Handlers) GetMessages(c *gin.Context) {
	ctx := c.Request.Context()
	if wantsWatch(c) {
		sub, history, err := h.Chat.Subscribe(ctx, c.Param("id"), middleware.CallerID(c))
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.stream(c, sub, history)
		return
	}

	history, err := h.Chat.History(ctx, c.Param("id"), middleware.CallerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": history, "count": len(history)})
}

// BlockParticipant handles POST /v1/trips/:id/block
func (h *Handlers) BlockParticipant(c *gin.Context) {
	block, err := h.Chat.Block(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, block)
}

// ReportParticipant handles POST /v1/trips/:id/report
func (h *Handlers) ReportParticipant(c *gin.Context) {
	var req dto.ReportRequest
	if !h.bindJSON(c, &req) {
		return
	}

	report, err := h.Chat.Report(c.Request.Context(), c.Param("id"), middleware.CallerID(c), req.Reason, req.Details)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// CreateReview handles POST /v1/trips/:id/reviews
func (h *Handlers) CreateReview(c *gin.Context) {
	var req dto.CreateReviewRequest
	if !h.bindJSON(c, &req) {
		return
	}

	rv, err := h.Reviews.Create(c.Request.Context(), c.Param("id"), middleware.CallerID(c), req.Rating, req.Comment)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rv)
}

// GetRating handles GET /v1/users/:id/rating
func (h *Handlers) GetRating(c *gin.Context) {
	summary, err := h.Reviews.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
