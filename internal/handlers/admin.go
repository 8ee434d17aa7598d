package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/bike-service/internal/models"
	"github.com/ukydev/bike-service/internal/service"
)

// AdminHandler serves the administration routes. Role checks happen in the services.
type AdminHandler struct {
	engine   *service.BookingEngine
	registry *service.MechanicRegistry
	identity *service.IdentityService
	logger   log.FieldLogger
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(engine *service.BookingEngine, registry *service.MechanicRegistry, identity *service.IdentityService, logger log.FieldLogger) *AdminHandler {
	return &AdminHandler{engine: engine, registry: registry, identity: identity, logger: logger}
}

// ListBookings lists every booking
func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	bookings, err := h.engine.ListAll(r.Context(), caller)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// AssignMechanic assigns a mechanic profile to a booking
func (h *AdminHandler) AssignMechanic(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	var req models.AssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.engine.Assign(r.Context(), caller, req.BookingID, req.MechanicID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Mechanic assigned successfully to %s", booking.ID.Hex()),
		"booking": booking,
	})
}

// ListUsers lists every account
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	users, err := h.identity.ListUsers(r.Context(), caller)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateMechanic creates a mechanic account and profile
func (h *AdminHandler) CreateMechanic(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	var req service.CreateMechanicInput
	if !decodeJSON(w, r, &req) {
		return
	}

	mechanic, user, err := h.registry.CreateMechanic(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Mechanic created successfully",
		"mechanic": mechanic,
		"user":     user,
	})
}

// ListMechanics lists mechanic profiles, newest first
func (h *AdminHandler) ListMechanics(w http.ResponseWriter, r *http.Request) {
	mechanics, err := h.registry.ListMechanics(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mechanics)
}

// UpdateMechanic applies a partial update to a mechanic profile
func (h *AdminHandler) UpdateMechanic(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	var req models.MechanicUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	mechanic, err := h.registry.UpdateMechanic(r.Context(), caller, mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Mechanic updated successfully",
		"mechanic": mechanic,
	})
}

// DeleteMechanic removes a mechanic profile and its account
func (h *AdminHandler) DeleteMechanic(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.registry.DeleteMechanic(r.Context(), caller, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Mechanic deleted successfully")
}
