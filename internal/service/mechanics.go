package service

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/bike-service/internal/db"
	"github.com/ukydev/bike-service/internal/events"
	"github.com/ukydev/bike-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const msgMechanicNotFound = "Mechanic not found"

// CreateMechanicInput is the admin-supplied data for a new mechanic.
type CreateMechanicInput struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required"`
	Password       string `json:"password" validate:"required"`
	Specialization string `json:"specialization"`
	Experience     int    `json:"experience" validate:"gte=0"`
}

// MechanicRegistry manages mechanic profiles and their backing accounts.
type MechanicRegistry struct {
	mechanics db.MechanicCollection
	users     db.UserCollection
	accounts  *IdentityService
	events    events.Emitter
	logger    log.FieldLogger
}

// NewMechanicRegistry creates the registry. Accounts are created through the identity service.
func NewMechanicRegistry(mechanics db.MechanicCollection, users db.UserCollection, accounts *IdentityService, emitter events.Emitter, logger log.FieldLogger) *MechanicRegistry {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &MechanicRegistry{mechanics: mechanics, users: users, accounts: accounts, events: emitter, logger: logger}
}

// CreateMechanic creates the mechanic account and then its profile. When the
// profile cannot be stored the account is removed again.
func (r *MechanicRegistry) CreateMechanic(ctx context.Context, caller models.Identity, in CreateMechanicInput) (*models.Mechanic, *models.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, nil, err
	}
	in.Email = normalizeEmail(in.Email)
	if err := checkInput(in); err != nil {
		return nil, nil, err
	}
	if err := r.accounts.hasher.ValidatePassword(in.Password); err != nil {
		return nil, nil, validationError(err.Error())
	}

	if _, err := r.mechanics.FindMechanicByEmail(ctx, in.Email); err == nil {
		return nil, nil, conflictError("Email already exists")
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, nil, unexpectedError("look up mechanic email", err)
	}

	user, err := r.accounts.createAccount(ctx, in.Name, in.Email, in.Phone, in.Password, models.RoleMechanic)
	if err != nil {
		if IsConflictError(err) {
			return nil, nil, conflictError("Email already exists")
		}
		return nil, nil, err
	}

	specialization := strings.TrimSpace(in.Specialization)
	if specialization == "" {
		specialization = models.DefaultSpecialization
	}
	mechanic := models.Mechanic{
		ID:             primitive.NewObjectID(),
		Name:           in.Name,
		Email:          in.Email,
		Phone:          in.Phone,
		Specialization: specialization,
		Experience:     in.Experience,
		Status:         models.MechanicAvailable,
		UserID:         user.ID,
		CreatedAt:      time.Now().UTC(),
	}

	if err := r.mechanics.InsertMechanic(ctx, mechanic); err != nil {
		logger := r.logger.WithFields(log.Fields{"user_id": user.ID.Hex(), "email": in.Email})
		if delErr := r.users.DeleteUser(ctx, user.ID.Hex()); delErr != nil {
			logger.WithError(delErr).Error("Failed to remove mechanic account after profile insert failure")
		} else {
			logger.Warn("Removed mechanic account after profile insert failure")
		}
		if errors.Is(err, db.ErrDuplicate) {
			return nil, nil, conflictError("Email already exists")
		}
		return nil, nil, unexpectedError("insert mechanic", err)
	}

	r.logger.WithFields(log.Fields{
		"mechanic_id": mechanic.ID.Hex(),
		"user_id":     user.ID.Hex(),
	}).Info("Mechanic created")
	r.events.Emit(events.Event{Type: events.MechanicCreated, MechanicID: mechanic.ID.Hex(), ActorID: caller.UserID})

	return &mechanic, user, nil
}

// ListMechanics returns every profile, newest first.
func (r *MechanicRegistry) ListMechanics(ctx context.Context) ([]models.Mechanic, error) {
	mechanics, err := r.mechanics.FindMechanics(ctx)
	if err != nil {
		return nil, unexpectedError("list mechanics", err)
	}
	if mechanics == nil {
		mechanics = []models.Mechanic{}
	}
	return mechanics, nil
}

// UpdateMechanic applies a partial update to a profile. Admin only.
func (r *MechanicRegistry) UpdateMechanic(ctx context.Context, caller models.Identity, id string, update models.MechanicUpdate) (*models.Mechanic, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, validationError("Name cannot be empty")
	}
	if update.Status != nil && !models.IsValidMechanicStatus(*update.Status) {
		return nil, validationError("Invalid mechanic status")
	}
	if update.Experience != nil && *update.Experience < 0 {
		return nil, validationError("Experience cannot be negative")
	}

	if update.Empty() {
		mechanic, err := r.mechanics.FindMechanicByID(ctx, id)
		if err != nil {
			return nil, mechanicLookupError(err)
		}
		return mechanic, nil
	}

	mechanic, err := r.mechanics.UpdateMechanic(ctx, id, update)
	if err != nil {
		return nil, mechanicLookupError(err)
	}
	return mechanic, nil
}

// DeleteMechanic removes the account linked by email, then the profile.
// A failed call can be repeated to finish a partial deletion.
func (r *MechanicRegistry) DeleteMechanic(ctx context.Context, caller models.Identity, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	mechanic, err := r.mechanics.FindMechanicByID(ctx, id)
	if err != nil {
		return mechanicLookupError(err)
	}

	logger := r.logger.WithFields(log.Fields{"mechanic_id": id, "email": mechanic.Email})
	deleted, err := r.users.DeleteUserByEmail(ctx, mechanic.Email)
	if err != nil {
		return unexpectedError("delete mechanic account", err)
	}
	if deleted == 0 {
		logger.Warn("Mechanic account already absent")
	}

	if err := r.mechanics.DeleteMechanic(ctx, id); err != nil && !errors.Is(err, db.ErrNotFound) {
		logger.WithError(err).Error("Mechanic account deleted but profile removal failed")
		return unexpectedError("delete mechanic profile", err)
	}

	logger.Info("Mechanic deleted")
	r.events.Emit(events.Event{Type: events.MechanicDeleted, MechanicID: id, ActorID: caller.UserID})
	return nil
}

func mechanicLookupError(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return notFoundError(msgMechanicNotFound)
	}
	return unexpectedError("find mechanic", err)
}
