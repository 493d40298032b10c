package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edrive/ride-hailing/internal/api/dto"
	"github.com/edrive/ride-hailing/internal/api/middleware"
	"github.com/edrive/ride-hailing/internal/auth"
	"github.com/edrive/ride-hailing/internal/domain/ride"
	"github.com/edrive/ride-hailing/internal/service/matching"
)

// CreateRequest handles POST /v1/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var req dto.CreateRideRequest
	if !h.bindJSON(c, &req) {
		return
	}

	name := req.PassengerName
	if name == "" {
		name = middleware.CallerName(c)
	}

	created, err := h.Matching.CreateRequest(c.Request.Context(), matching.CreateRequestInput{
		PassengerID:    middleware.CallerID(c),
		PassengerName:  name,
		Category:       req.Category,
		Pickup:         req.Pickup.ToLocation(),
		Destination:    req.Destination.ToLocation(),
		Fare:           req.Fare,
		Instructions:   req.Instructions,
		VoiceNote:      req.VoiceNote,
		ItemType:       req.ItemType,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateRideResponse{RequestID: created.ID, Status: string(created.Status)})
}

// GetRequest handles GET /v1/requests/:id. With watch=true the caller
// receives status changes as an SSE stream.
func (h *Handlers) GetRequest(c *gin.Context) {
	id := c.Param("id")
	viewer := viewerOf(c)
	if wantsWatch(c) {
		sub, snapshot, err := h.Matching.SubscribeRequest(c.Request.Context(), id, viewer)
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.stream(c, sub, snapshot)
		return
	}

	req, err := h.Matching.GetRequest(c.Request.Context(), id, viewer)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// ListRequests handles GET /v1/requests. Drivers asking for pending requests
// get the list filtered to what they may bid on; watch=true turns it into a
// live feed.
func (h *Handlers) ListRequests(c *gin.Context) {
	ctx := c.Request.Context()
	status := ride.Status(c.DefaultQuery("status", string(ride.StatusPending)))
	category := c.Query("category")

	if middleware.CallerRole(c) == auth.RoleDriver && status == ride.StatusPending {
		if wantsWatch(c) {
			sub, snapshot, err := h.Matching.SubscribePending(ctx, middleware.CallerID(c), category)
			if err != nil {
				h.respondError(c, err)
				return
			}
			h.stream(c, sub, snapshot)
			return
		}

		reqs, err := h.Matching.PendingForDriver(ctx, middleware.CallerID(c), category)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"requests": reqs, "count": len(reqs)})
		return
	}

	if middleware.CallerRole(c) != auth.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only drivers may browse pending requests", "code": "FORBIDDEN"})
		return
	}

	filter := ride.Filter{Status: status, Limit: queryLimit(c, 100)}
	if category != "" {
		parsed, err := ride.ParseCategory(category)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category", "code": "VALIDATION_ERROR"})
			return
		}
		filter.Category = parsed
	}
	reqs, err := h.Matching.ListRequests(ctx, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs, "count": len(reqs)})
}

// MyRequests handles GET /v1/requests/mine
func (h *Handlers) MyRequests(c *gin.Context) {
	reqs, err := h.Matching.MyRequests(c.Request.Context(), middleware.CallerID(c), queryLimit(c, 50))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs, "count": len(reqs)})
}

// CreateOffer handles POST /v1/requests/:id/offers
func (h *Handlers) CreateOffer(c *gin.Context) {
	var req dto.CreateOfferRequest
	if !h.bindJSON(c, &req) {
		return
	}

	o, err := h.Matching.CreateOffer(c.Request.Context(), c.Param("id"), middleware.CallerID(c), req.Fare)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CreateOfferResponse{OfferID: o.ID})
}

// ListOffers handles GET /v1/requests/:id/offers
func (h *Handlers) ListOffers(c *gin.Context) {
	ctx := c.Request.Context()
	if wantsWatch(c) {
		sub, snapshot, err := h.Matching.SubscribeOffers(ctx, c.Param("id"), middleware.CallerID(c))
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.stream(c, sub, snapshot)
		return
	}

	offers, err := h.Matching.ListOffers(ctx, c.Param("id"), middleware.CallerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers, "count": len(offers)})
}

// AcceptOffer handles POST /v1/requests/:id/accept
func (h *Handlers) AcceptOffer(c *gin.Context) {
	var req dto.AcceptOfferRequest
	if !h.bindJSON(c, &req) {
		return
	}

	accepted, err := h.Matching.Accept(c.Request.Context(), c.Param("id"), req.OfferID, middleware.CallerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accepted)
}

// StartTrip handles POST /v1/requests/:id/start
func (h *Handlers) StartTrip(c *gin.Context) {
	req, err := h.Matching.Start(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// CompleteTrip handles POST /v1/requests/:id/complete
func (h *Handlers) CompleteTrip(c *gin.Context) {
	req, err := h.Matching.Complete(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// CancelRequest handles POST /v1/requests/:id/cancel
func (h *Handlers) CancelRequest(c *gin.Context) {
	var req dto.CancelRequest
	if !h.bindJSON(c, &req) {
		return
	}

	cancelled, err := h.Matching.Cancel(c.Request.Context(), c.Param("id"), middleware.CallerID(c), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cancelled)
}

// CancelReasons handles GET /v1/cancel-reasons
func (h *Handlers) CancelReasons(c *gin.Context) {
	role := c.Query("role")
	if role == "" {
		role = string(middleware.CallerRole(c))
	}

	reasons := ride.PassengerCancelReasons
	if role == string(auth.RoleDriver) {
		reasons = ride.DriverCancelReasons
	}
	c.JSON(http.StatusOK, gin.H{"role": role, "reasons": reasons})
}

func viewerOf(c *gin.Context) matching.Viewer {
	return matching.Viewer{
		UserID: middleware.CallerID(c),
		Admin:  middleware.CallerRole(c) == auth.RoleAdmin,
	}
}
