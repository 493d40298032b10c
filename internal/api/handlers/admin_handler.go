package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edrive/ride-hailing/internal/api/dto"
	"github.com/edrive/ride-hailing/internal/service/places"
)

// DeleteRequest handles DELETE /v1/admin/requests/:id
func (h *Handlers) DeleteRequest(c *gin.Context) {
	if err := h.Matching.DeleteRequest(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListReports handles GET /v1/admin/reports
func (h *Handlers) ListReports(c *gin.Context) {
	reports, err := h.Chat.Reports(c.Request.Context(), queryLimit(c, 100))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// ListComplaints handles GET /v1/admin/complaints?status=
func (h *Handlers) ListComplaints(c *gin.Context) {
	complaints, err := h.Support.List(c.Request.Context(), c.Query("status"), queryLimit(c, 100))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": complaints, "count": len(complaints)})
}

// UpdateComplaintStatus handles PUT /v1/admin/complaints/:id/status
func (h *Handlers) UpdateComplaintStatus(c *gin.Context) {
	var req dto.UpdateComplaintStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	complaint, err := h.Support.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// CreatePlace handles POST /v1/admin/places
func (h *Handlers) CreatePlace(c *gin.Context) {
	var req dto.PlaceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.Places.Create(c.Request.Context(), placeInput(req))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// UpdatePlace handles PUT /v1/admin/places/:id
func (h *Handlers) UpdatePlace(c *gin.Context) {
	var req dto.PlaceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.Places.Update(c.Request.Context(), c.Param("id"), placeInput(req))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeletePlace handles DELETE /v1/admin/places/:id
func (h *Handlers) DeletePlace(c *gin.Context) {
	if err := h.Places.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func placeInput(req dto.PlaceRequest) places.Input {
	return places.Input{
		Name:     req.Name,
		Address:  req.Address,
		Category: req.Category,
		Lat:      req.Lat,
		Lng:      req.Lng,
	}
}
