package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edrive/ride-hailing/internal/api/dto"
	"github.com/edrive/ride-hailing/internal/api/middleware"
	"github.com/edrive/ride-hailing/internal/service/support"
)

// FileComplaint handles POST /v1/complaints
func (h *Handlers) FileComplaint(c *gin.Context) {
	var req dto.ComplaintRequest
	if !h.bindJSON(c, &req) {
		return
	}

	complaint, err := h.Support.File(c.Request.Context(), support.FileInput{
		ReporterID:   middleware.CallerID(c),
		ReporterName: middleware.CallerName(c),
		Subject:      req.Subject,
		Message:      req.Message,
		TargetName:   req.TargetName,
		TargetPhone:  req.TargetPhone,
		TargetEmail:  req.TargetEmail,
		ProofImage:   req.ProofImage,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"complaint_id": complaint.ID, "status": complaint.Status})
}

// ListPlaces handles GET /v1/places
func (h *Handlers) ListPlaces(c *gin.Context) {
	list, err := h.Places.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"places": list, "count": len(list)})
}
