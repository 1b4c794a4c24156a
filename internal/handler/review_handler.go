package handler

import (
	"net/http"

	domain "fieldserve/internal/core"
	"fieldserve/pkg/middleware"

	pbCore "github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cast"
)

type ReviewHandler struct {
	service domain.ReviewService
}

func NewReviewHandler(service domain.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// Create handles POST /api/bookings/{id}/review
func (h *ReviewHandler) Create(e *pbCore.RequestEvent) error {
	bookingID := e.Request.PathValue("id")
	if bookingID == "" {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "Missing booking ID"})
	}

	actor := middleware.ActorFrom(e)

	review, err := h.service.Create(
		e.Request.Context(),
		actor.UserID,
		bookingID,
		cast.ToInt(e.Request.FormValue("rating")),
		cast.ToInt(e.Request.FormValue("technician_rating")),
		e.Request.FormValue("comment"),
	)
	if err != nil {
		return writeError(e, err)
	}

	return e.JSON(http.StatusCreated, review)
}

// Update handles PATCH /api/reviews/{id}
// Only fields present in the body are touched.
func (h *ReviewHandler) Update(e *pbCore.RequestEvent) error {
	reviewID := e.Request.PathValue("id")
	if reviewID == "" {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "Missing review ID"})
	}

	var body struct {
		Rating           *int    `json:"rating" form:"rating"`
		TechnicianRating *int    `json:"technician_rating" form:"technician_rating"`
		Comment          *string `json:"comment" form:"comment"`
	}
	if err := e.BindBody(&body); err != nil {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	actor := middleware.ActorFrom(e)

	review, err := h.service.Update(e.Request.Context(), actor.UserID, reviewID, domain.ReviewPatch{
		Rating:           body.Rating,
		TechnicianRating: body.TechnicianRating,
		Comment:          body.Comment,
	})
	if err != nil {
		return writeError(e, err)
	}

	return e.JSON(http.StatusOK, review)
}

// Delete handles DELETE /api/reviews/{id} (admin only, enforced by the
// route group).
func (h *ReviewHandler) Delete(e *pbCore.RequestEvent) error {
	reviewID := e.Request.PathValue("id")
	if reviewID == "" {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "Missing review ID"})
	}

	if err := h.service.Delete(e.Request.Context(), reviewID); err != nil {
		return writeError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]string{"message": "Review deleted"})
}
