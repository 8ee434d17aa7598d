package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/bike-service/internal/models"
	"github.com/ukydev/bike-service/internal/service"
)

// AuthHandler handles account requests
type AuthHandler struct {
	identity           *service.IdentityService
	logger             log.FieldLogger
	allowRoleSelection bool
}

// NewAuthHandler creates a new authentication handler. Unless
// allowRoleSelection is set, self-registration always creates plain users.
func NewAuthHandler(identity *service.IdentityService, logger log.FieldLogger, allowRoleSelection bool) *AuthHandler {
	return &AuthHandler{
		identity:           identity,
		logger:             logger,
		allowRoleSelection: allowRoleSelection,
	}
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role := models.RoleUser
	if h.allowRoleSelection && req.Role != "" {
		role = req.Role
	}

	user, err := h.identity.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, user, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		status := statusFor(err)
		if service.IsAuthError(err) {
			status = http.StatusBadRequest
		}
		writeErrorStatus(w, r, h.logger, err, status)
		return
	}

	h.logger.WithField("user_id", user.ID.Hex()).Info("User logged in")
	writeJSON(w, http.StatusOK, models.LoginResponse{
		Message: "Login successful",
		Token:   token,
		User:    *user,
	})
}

// Me returns the current user's account
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.identity.GetByID(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile updates the current user's name, address and phone
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var req service.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.identity.UpdateProfile(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

// ChangePassword changes the current user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.identity.ChangePassword(r.Context(), caller, req.CurrentPassword, req.NewPassword); err != nil {
		status := statusFor(err)
		if service.IsAuthError(err) {
			status = http.StatusBadRequest
		}
		writeErrorStatus(w, r, h.logger, err, status)
		return
	}

	writeMessage(w, http.StatusOK, "Password changed successfully")
}

// Health reports that the server is up.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
