package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/bike-service/internal/db"
	"github.com/ukydev/bike-service/internal/events"
	"github.com/ukydev/bike-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	msgBookingNotFound = "Booking not found"
	msgNotAuthorized   = "Not authorized"
	msgSlotTaken       = "You already have a booking at this date/time"
)

// BookingEngine owns the booking lifecycle: Pending, Assigned, In Progress, Completed.
type BookingEngine struct {
	bookings  db.BookingCollection
	mechanics db.MechanicCollection
	users     db.UserCollection
	events    events.Emitter
	logger    log.FieldLogger
}

// NewBookingEngine creates the engine.
func NewBookingEngine(bookings db.BookingCollection, mechanics db.MechanicCollection, users db.UserCollection, emitter events.Emitter, logger log.FieldLogger) *BookingEngine {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &BookingEngine{bookings: bookings, mechanics: mechanics, users: users, events: emitter, logger: logger}
}

// bookingFields validates a request and converts it into the owner-editable
// part of a booking.
func bookingFields(in models.BookingRequest) (models.Booking, error) {
	if err := checkInput(in); err != nil {
		return models.Booking{}, err
	}
	serviceType := models.ServiceType(strings.TrimSpace(in.ServiceType))
	if !models.IsValidServiceType(serviceType) {
		return models.Booking{}, validationError("Invalid service type")
	}
	pickupDate, err := parseDate(in.PickupDate)
	if err != nil {
		return models.Booking{}, validationError("Invalid pickup date")
	}
	deliveryDate, err := parseDate(in.PreferredDate)
	if err != nil {
		return models.Booking{}, validationError("Invalid preferred date")
	}

	return models.Booking{
		BikeModel:          in.BikeModel,
		BikeBrand:          in.BikeBrand,
		RegistrationNumber: in.RegistrationNumber,
		ServiceType:        serviceType,
		PickupAddress:      in.PickupAddress,
		PickupDate:         pickupDate,
		PickupTime:         strings.TrimSpace(in.PickupTime),
		DeliveryDate:       deliveryDate,
		DeliveryTime:       strings.TrimSpace(in.PreferredTime),
	}, nil
}

// Create books a pickup for the caller. One booking per owner per pickup slot.
func (e *BookingEngine) Create(ctx context.Context, caller models.Identity, in models.BookingRequest) (*models.Booking, error) {
	owner, err := callerID(caller)
	if err != nil {
		return nil, err
	}
	booking, err := bookingFields(in)
	if err != nil {
		return nil, err
	}

	if _, err := e.bookings.FindBookingBySlot(ctx, owner, booking.PickupDate, booking.PickupTime); err == nil {
		return nil, conflictError(msgSlotTaken)
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, unexpectedError("look up booking slot", err)
	}

	now := time.Now().UTC()
	booking.ID = primitive.NewObjectID()
	booking.UserID = owner
	booking.Status = models.StatusPending
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if err := e.bookings.InsertBooking(ctx, booking); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, conflictError(msgSlotTaken)
		}
		return nil, unexpectedError("insert booking", err)
	}

	e.logger.WithFields(log.Fields{
		"booking_id": booking.ID.Hex(),
		"user_id":    caller.UserID,
		"bike":       describe(&booking),
	}).Info("Booking created")
	e.emit(events.BookingCreated, &booking, caller)
	return &booking, nil
}

// ListForOwner returns the caller's bookings, latest preferred date first,
// with owner and mechanic populated.
func (e *BookingEngine) ListForOwner(ctx context.Context, caller models.Identity) ([]models.BookingView, error) {
	owner, err := callerID(caller)
	if err != nil {
		return nil, err
	}
	bookings, err := e.bookings.FindBookings(ctx, models.BookingFilter{UserID: &owner, NewestDeliveryFirst: true})
	if err != nil {
		return nil, unexpectedError("list bookings", err)
	}
	return e.populate(ctx, bookings, true)
}

// ListAll returns every booking with owner and mechanic populated. Admin only.
func (e *BookingEngine) ListAll(ctx context.Context, caller models.Identity) ([]models.BookingView, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	bookings, err := e.bookings.FindBookings(ctx, models.BookingFilter{})
	if err != nil {
		return nil, unexpectedError("list bookings", err)
	}
	return e.populate(ctx, bookings, true)
}

// ListForMechanic returns the bookings assigned to the caller.
func (e *BookingEngine) ListForMechanic(ctx context.Context, caller models.Identity) ([]models.BookingView, error) {
	mechanic, err := callerID(caller)
	if err != nil {
		return nil, err
	}
	bookings, err := e.bookings.FindBookings(ctx, models.BookingFilter{AssignedMechanic: &mechanic})
	if err != nil {
		return nil, unexpectedError("list bookings", err)
	}
	return e.populate(ctx, bookings, true)
}

// Assign links a booking to the account behind a mechanic profile and moves
// it to Assigned. mechanicID is the profile id, not the account id.
func (e *BookingEngine) Assign(ctx context.Context, caller models.Identity, bookingID, mechanicID string) (*models.BookingView, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(bookingID) == "" || strings.TrimSpace(mechanicID) == "" {
		return nil, validationError("Booking ID and Mechanic ID are required")
	}

	mechanic, err := e.mechanics.FindMechanicByID(ctx, mechanicID)
	if err != nil {
		return nil, mechanicLookupError(err)
	}
	booking, err := e.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	account, err := e.users.FindUserByID(ctx, mechanic.UserID.Hex())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, notFoundError("Mechanic account not found")
		}
		return nil, unexpectedError("find mechanic account", err)
	}
	if account.Role != models.RoleMechanic {
		return nil, validationError("Linked account is not a mechanic")
	}

	accountID := account.ID
	booking.AssignedMechanic = &accountID
	booking.Status = models.StatusAssigned
	if err := e.bookings.UpdateBooking(ctx, bookingID, *booking); err != nil {
		return nil, e.updateError(err)
	}

	e.logger.WithFields(log.Fields{
		"booking_id":  bookingID,
		"mechanic_id": mechanicID,
		"account_id":  accountID.Hex(),
	}).Info("Mechanic assigned")
	e.emit(events.BookingAssigned, booking, caller)

	views, err := e.populate(ctx, []models.Booking{*booking}, true)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// UpdateStatus sets status, remarks and cost. Admins may update any booking,
// mechanics only the ones assigned to them.
func (e *BookingEngine) UpdateStatus(ctx context.Context, caller models.Identity, in models.StatusUpdate) (*models.Booking, error) {
	if caller.Role != models.RoleAdmin && caller.Role != models.RoleMechanic {
		return nil, authError(msgNotAuthorized)
	}
	if strings.TrimSpace(in.BookingID) == "" {
		return nil, validationError("Booking ID is required")
	}
	if in.Status != nil && !models.IsValidBookingStatus(*in.Status) {
		return nil, validationError("Invalid booking status")
	}
	if in.Cost != nil && *in.Cost < 0 {
		return nil, validationError("Cost cannot be negative")
	}

	booking, err := e.findBooking(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	if caller.Role == models.RoleMechanic &&
		(booking.AssignedMechanic == nil || booking.AssignedMechanic.Hex() != caller.UserID) {
		return nil, authError(msgNotAuthorized)
	}

	if in.Status != nil {
		booking.Status = *in.Status
	}
	if in.Remarks != nil {
		remarks := *in.Remarks
		booking.Remarks = &remarks
	}
	if in.Cost != nil {
		cost := *in.Cost
		booking.Cost = &cost
	}

	if err := e.bookings.UpdateBooking(ctx, in.BookingID, *booking); err != nil {
		return nil, e.updateError(err)
	}

	e.logger.WithFields(log.Fields{
		"booking_id": in.BookingID,
		"status":     booking.Status,
		"actor_id":   caller.UserID,
	}).Info("Booking status updated")
	e.emit(events.BookingStatusUpdated, booking, caller)
	return booking, nil
}

// Update replaces the bike, service and schedule fields of a pending booking. Owner only.
func (e *BookingEngine) Update(ctx context.Context, caller models.Identity, bookingID string, in models.BookingRequest) (*models.Booking, error) {
	booking, err := e.ownedBooking(ctx, caller, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.Editable() {
		return nil, badStateError("Cannot edit once assigned or in progress")
	}
	fields, err := bookingFields(in)
	if err != nil {
		return nil, err
	}

	if other, err := e.bookings.FindBookingBySlot(ctx, booking.UserID, fields.PickupDate, fields.PickupTime); err == nil {
		if other.ID != booking.ID {
			return nil, conflictError(msgSlotTaken)
		}
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, unexpectedError("look up booking slot", err)
	}

	booking.BikeModel = fields.BikeModel
	booking.BikeBrand = fields.BikeBrand
	booking.RegistrationNumber = fields.RegistrationNumber
	booking.ServiceType = fields.ServiceType
	booking.PickupAddress = fields.PickupAddress
	booking.PickupDate = fields.PickupDate
	booking.PickupTime = fields.PickupTime
	booking.DeliveryDate = fields.DeliveryDate
	booking.DeliveryTime = fields.DeliveryTime

	if err := e.bookings.UpdateBooking(ctx, bookingID, *booking); err != nil {
		return nil, e.updateError(err)
	}

	e.logger.WithField("booking_id", bookingID).Info("Booking updated")
	e.emit(events.BookingUpdated, booking, caller)
	return booking, nil
}

// Delete removes a pending booking. Owner only.
func (e *BookingEngine) Delete(ctx context.Context, caller models.Identity, bookingID string) error {
	booking, err := e.ownedBooking(ctx, caller, bookingID)
	if err != nil {
		return err
	}
	if !booking.Editable() {
		return badStateError("Cannot delete once assigned or in progress")
	}

	if err := e.bookings.DeleteBooking(ctx, bookingID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return notFoundError(msgBookingNotFound)
		}
		return unexpectedError("delete booking", err)
	}

	e.logger.WithField("booking_id", bookingID).Info("Booking deleted")
	e.emit(events.BookingDeleted, booking, caller)
	return nil
}

func (e *BookingEngine) findBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := e.bookings.FindBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, notFoundError(msgBookingNotFound)
		}
		return nil, unexpectedError("find booking", err)
	}
	return booking, nil
}

func (e *BookingEngine) ownedBooking(ctx context.Context, caller models.Identity, id string) (*models.Booking, error) {
	if _, err := callerID(caller); err != nil {
		return nil, err
	}
	booking, err := e.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID.Hex() != caller.UserID {
		return nil, authError(msgNotAuthorized)
	}
	return booking, nil
}

func (e *BookingEngine) updateError(err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return notFoundError(msgBookingNotFound)
	case errors.Is(err, db.ErrDuplicate):
		return conflictError(msgSlotTaken)
	default:
		return unexpectedError("update booking", err)
	}
}

// populate resolves owner (when withOwner is set) and assigned mechanic
// references. Accounts that no longer exist are referenced by id only.
func (e *BookingEngine) populate(ctx context.Context, bookings []models.Booking, withOwner bool) ([]models.BookingView, error) {
	views := make([]models.BookingView, len(bookings))
	if len(bookings) == 0 {
		return views, nil
	}

	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, b := range bookings {
		if withOwner {
			add(b.UserID)
		}
		if b.AssignedMechanic != nil {
			add(*b.AssignedMechanic)
		}
	}

	refs := make(map[primitive.ObjectID]*models.UserRef, len(ids))
	if len(ids) > 0 {
		users, err := e.users.FindUsersByIDs(ctx, ids)
		if err != nil {
			return nil, unexpectedError("populate bookings", err)
		}
		for i := range users {
			refs[users[i].ID] = users[i].Ref()
		}
	}
	ref := func(id primitive.ObjectID) *models.UserRef {
		if r, ok := refs[id]; ok {
			return r
		}
		return &models.UserRef{ID: id}
	}

	for i, b := range bookings {
		views[i] = models.BookingView{Booking: b}
		if withOwner {
			views[i].User = ref(b.UserID)
		}
		if b.AssignedMechanic != nil {
			views[i].AssignedMechanic = ref(*b.AssignedMechanic)
		}
	}
	return views, nil
}

func (e *BookingEngine) emit(t events.Type, b *models.Booking, caller models.Identity) {
	ev := events.Event{
		Type:      t,
		BookingID: b.ID.Hex(),
		ActorID:   caller.UserID,
		Status:    string(b.Status),
	}
	if b.AssignedMechanic != nil {
		ev.MechanicID = b.AssignedMechanic.Hex()
	}
	e.events.Emit(ev)
}

// describe names the bike for log lines.
func describe(b *models.Booking) string {
	return fmt.Sprintf("%s %s (%s)", b.BikeBrand, b.BikeModel, b.RegistrationNumber)
}
