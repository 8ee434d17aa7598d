package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/bike-service/internal/models"
	"github.com/ukydev/bike-service/internal/service"
)

// BookingHandler serves the customer booking routes and the mechanic routes.
type BookingHandler struct {
	engine *service.BookingEngine
	logger log.FieldLogger
}

// NewBookingHandler creates a booking handler
func NewBookingHandler(engine *service.BookingEngine, logger log.FieldLogger) *BookingHandler {
	return &BookingHandler{engine: engine, logger: logger}
}

// Create books a pickup for the caller
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	var req models.BookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.engine.Create(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Booking created successfully",
		"booking": booking,
	})
}

// ListMine lists the caller's own bookings
func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	bookings, err := h.engine.ListForOwner(r.Context(), caller)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// Update replaces the fields of a pending booking
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	var req models.BookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.engine.Update(r.Context(), caller, mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Booking updated successfully",
		"booking": booking,
	})
}

// Delete removes a pending booking
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.engine.Delete(r.Context(), caller, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Booking deleted successfully")
}

// ListAssigned lists the bookings assigned to the calling mechanic
func (h *BookingHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	bookings, err := h.engine.ListForMechanic(r.Context(), caller)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// UpdateStatus changes status, remarks or cost of a booking
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	var req models.StatusUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.engine.UpdateStatus(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Booking updated",
		"booking": booking,
	})
}
