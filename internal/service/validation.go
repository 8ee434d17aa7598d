package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ukydev/bike-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const msgAllFieldsRequired = "All fields are required"

var validate = validator.New(validator.WithRequiredStructEnabled())

// checkInput runs the struct tags of in and turns the first failure into a
// ValidationError.
func checkInput(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return unexpectedError("validate input", err)
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return validationError(msgAllFieldsRequired)
		}
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "email":
		return validationError("Invalid email format")
	case "min":
		return validationError(fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
	default:
		return validationError(fmt.Sprintf("Invalid %s", fe.Field()))
	}
}

// normalizeEmail is the canonical form under which emails are stored and compared.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseDate accepts a full timestamp or a calendar date; dates are taken as UTC midnight.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// callerID parses the identity's account id.
func callerID(caller models.Identity) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(caller.UserID)
	if err != nil {
		return primitive.NilObjectID, authError("Invalid or missing token")
	}
	return oid, nil
}

func requireAdmin(caller models.Identity) error {
	if !caller.IsAdmin() {
		return authError("Access denied")
	}
	return nil
}
