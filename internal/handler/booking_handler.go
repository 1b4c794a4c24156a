package handler

import (
	"net/http"
	"strings"

	domain "fieldserve/internal/core"
	"fieldserve/pkg/middleware"
	"fieldserve/pkg/sharelink"

	pbCore "github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cast"
)

type BookingHandler struct {
	service domain.BookingService
	signer  *sharelink.Signer
}

func NewBookingHandler(service domain.BookingService, signer *sharelink.Signer) *BookingHandler {
	return &BookingHandler{service: service, signer: signer}
}

// Create handles POST /api/bookings
func (h *BookingHandler) Create(e *pbCore.RequestEvent) error {
	actor := middleware.ActorFrom(e)
	if actor.Role == domain.RoleTechnician {
		return e.JSON(http.StatusForbidden, map[string]string{"error": "Technicians cannot create bookings"})
	}

	req := &domain.BookingRequest{
		CustomerID:     actor.UserID,
		CategoryID:     e.Request.FormValue("category_id"),
		ServiceID:      e.Request.FormValue("service_id"),
		ScheduledAt:    e.Request.FormValue("scheduled_at"),
		Notes:          e.Request.FormValue("notes"),
		Address:        e.Request.FormValue("address"),
		AddressDetails: e.Request.FormValue("address_details"),
		Lat:            cast.ToFloat64(e.Request.FormValue("lat")),
		Long:           cast.ToFloat64(e.Request.FormValue("long")),
	}

	// Admins book on behalf of a customer.
	if actor.Role == domain.RoleAdmin {
		req.CustomerID = e.Request.FormValue("customer_id")
	}

	booking, err := h.service.Create(e.Request.Context(), req)
	if err != nil {
		return writeError(e, err)
	}

	return e.JSON(http.StatusCreated, booking)
}

// Transition handles POST /api/bookings/{id}/transition
func (h *BookingHandler) Transition(e *pbCore.RequestEvent) error {
	bookingID := e.Request.PathValue("id")
	target := strings.TrimSpace(e.Request.FormValue("target"))
	if bookingID == "" || target == "" {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "Missing booking ID or target status"})
	}

	payload := &domain.TransitionPayload{
		TechnicianID:   e.Request.FormValue("technician_id"),
		Pin:            e.Request.FormValue("pin"),
		ExtraReason:    e.Request.FormValue("extra_reason"),
		TechnicianNote: e.Request.FormValue("technician_note"),
	}

	if raw := e.Request.FormValue("final_amount"); raw != "" {
		amount := cast.ToFloat64(raw)
		payload.FinalAmount = &amount
	}
	if files, err := e.FindUploadedFiles("proof_images"); err == nil {
		payload.ProofFiles = files
	}

	booking, err := h.service.Transition(
		e.Request.Context(),
		middleware.ActorFrom(e),
		bookingID,
		domain.Status(target),
		payload,
	)
	if err != nil {
		return writeError(e, err)
	}

	return e.JSON(http.StatusOK, booking)
}

// List handles GET /api/bookings
func (h *BookingHandler) List(e *pbCore.RequestEvent) error {
	bookings, err := h.service.List(middleware.ActorFrom(e))
	if err != nil {
		return writeError(e, err)
	}
	if bookings == nil {
		bookings = []*domain.Booking{}
	}
	return e.JSON(http.StatusOK, bookings)
}

// Get handles GET /api/bookings/{id}
func (h *BookingHandler) Get(e *pbCore.RequestEvent) error {
	bookingID := e.Request.PathValue("id")
	if bookingID == "" {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "Missing booking ID"})
	}

	booking, err := h.service.Get(middleware.ActorFrom(e), bookingID)
	if err != nil {
		return writeError(e, err)
	}

	return e.JSON(http.StatusOK, booking)
}

// Share handles POST /api/bookings/{id}/share
// Mints a signed link the customer can hand to a third party for a
// read-only view of the booking.
func (h *BookingHandler) Share(e *pbCore.RequestEvent) error {
	bookingID := e.Request.PathValue("id")
	if bookingID == "" {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "Missing booking ID"})
	}

	actor := middleware.ActorFrom(e)

	// Reuse the read path to enforce that only a participant (or admin)
	// can mint a link.
	booking, err := h.service.Get(actor, bookingID)
	if err != nil {
		return writeError(e, err)
	}
	if actor.Role == domain.RoleTechnician {
		return e.JSON(http.StatusForbidden, map[string]string{"error": "Only the customer or an admin can share a booking"})
	}

	token, err := h.signer.Sign(booking.ID, booking.CustomerID)
	if err != nil {
		return writeError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]string{
		"token": token,
		"url":   "/api/shared/" + token,
	})
}

// Shared handles GET /api/shared/{token}
// Public: the token itself is the capability.
func (h *BookingHandler) Shared(e *pbCore.RequestEvent) error {
	token := e.Request.PathValue("token")
	if token == "" {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "Missing share token"})
	}

	bookingID, customerID, err := h.signer.Parse(token)
	if err != nil {
		return e.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired share link"})
	}

	// Read as the customer the link was minted for, so the ownership
	// check still applies if the booking changed hands.
	booking, err := h.service.Get(domain.Actor{UserID: customerID, Role: domain.RoleCustomer}, bookingID)
	if err != nil {
		return writeError(e, err)
	}

	// Anyone holding the link can see the booking, so the pin stays out.
	booking.SecurityPin = ""
	return e.JSON(http.StatusOK, booking)
}
