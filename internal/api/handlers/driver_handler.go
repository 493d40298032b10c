package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edrive/ride-hailing/internal/api/dto"
	"github.com/edrive/ride-hailing/internal/api/middleware"
	"github.com/edrive/ride-hailing/internal/domain/driver"
	"github.com/edrive/ride-hailing/internal/service/onboarding"
)

// SubmitOnboarding handles POST /v1/drivers/onboarding
func (h *Handlers) SubmitOnboarding(c *gin.Context) {
	var req dto.OnboardingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	docs := make([]onboarding.DocumentInput, 0, len(req.Documents))
	for _, d := range req.Documents {
		docs = append(docs, onboarding.DocumentInput{
			Type:      driver.DocumentType(d.Type),
			Image:     d.Image,
			Reference: d.Reference,
		})
	}

	d, err := h.Onboarding.Submit(c.Request.Context(), onboarding.SubmitInput{
		DriverID:      middleware.CallerID(c),
		Name:          req.Name,
		Phone:         req.Phone,
		Category:      req.Category,
		VehicleModel:  req.VehicleModel,
		VehicleNumber: req.VehicleNumber,
		Documents:     docs,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// GetMyProfile handles GET /v1/drivers/me
func (h *Handlers) GetMyProfile(c *gin.Context) {
	d, err := h.Onboarding.Get(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GetEarnings handles GET /v1/drivers/me/earnings. With from and to it totals
// that range, otherwise it returns the today / week / lifetime summary.
func (h *Handlers) GetEarnings(c *gin.Context) {
	ctx := c.Request.Context()
	driverID := middleware.CallerID(c)

	fromParam, toParam := c.Query("from"), c.Query("to")
	if fromParam == "" && toParam == "" {
		summary, err := h.Earnings.Summarize(ctx, driverID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
		return
	}

	from, err := parseTime(fromParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from parameter", "code": "VALIDATION_ERROR"})
		return
	}
	to, err := parseTime(toParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to parameter", "code": "VALIDATION_ERROR"})
		return
	}

	r, err := h.Earnings.ForRange(ctx, driverID, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ListDrivers handles GET /v1/admin/drivers
func (h *Handlers) ListDrivers(c *gin.Context) {
	list, err := h.Onboarding.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drivers": list, "count": len(list)})
}

// UpdateDriverStatus handles PUT /v1/admin/drivers/:id/status
func (h *Handlers) UpdateDriverStatus(c *gin.Context) {
	var req dto.UpdateDriverStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	d, err := h.Onboarding.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// parseTime accepts RFC 3339 timestamps and plain dates
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
