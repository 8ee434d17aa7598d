package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/bike-service/internal/middleware"
	"github.com/ukydev/bike-service/internal/models"
	"github.com/ukydev/bike-service/internal/service"
)

const maxBodyBytes = 1 << 20

var errNoIdentity = errors.New("identity missing from request context")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// statusFor maps a service error kind onto an HTTP status.
func statusFor(err error) int {
	switch {
	case service.IsValidationError(err), service.IsConflictError(err), service.IsBadStateError(err):
		return http.StatusBadRequest
	case service.IsAuthError(err):
		return http.StatusForbidden
	case service.IsNotFoundError(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the caller-facing message of err. Unexpected
// failures are logged with their cause and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger log.FieldLogger, err error) {
	writeErrorStatus(w, r, logger, err, statusFor(err))
}

func writeErrorStatus(w http.ResponseWriter, r *http.Request, logger log.FieldLogger, err error, status int) {
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(log.Fields{
			"request_id": middleware.GetRequestID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).Error("Request failed")
	}
	writeMessage(w, status, service.Message(err))
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}

// identity returns the caller resolved by the auth middleware.
func identity(w http.ResponseWriter, r *http.Request, logger log.FieldLogger) (models.Identity, bool) {
	caller, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		logger.WithError(errNoIdentity).WithField("path", r.URL.Path).Error("Route registered without authentication")
		writeMessage(w, http.StatusUnauthorized, "Invalid or missing token")
		return models.Identity{}, false
	}
	return caller, true
}
