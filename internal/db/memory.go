package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ukydev/bike-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps accounts, mechanic profiles and bookings in process memory.
// It implements UserCollection, MechanicCollection and BookingCollection with the
// same uniqueness rules as the Mongo indexes.
type MemoryStore struct {
	mu sync.RWMutex

	users     map[primitive.ObjectID]models.User
	mechanics map[primitive.ObjectID]models.Mechanic
	bookings  map[primitive.ObjectID]models.Booking
	order     map[primitive.ObjectID]uint64
	sequence  uint64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[primitive.ObjectID]models.User),
		mechanics: make(map[primitive.ObjectID]models.Mechanic),
		bookings:  make(map[primitive.ObjectID]models.Booking),
		order:     make(map[primitive.ObjectID]uint64),
	}
}

func (s *MemoryStore) track(id primitive.ObjectID) {
	s.sequence++
	s.order[id] = s.sequence
}

func memoryID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

// InsertUser stores a new account.
func (s *MemoryStore) InsertUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	s.users[user.ID] = user
	s.track(user.ID)
	return nil
}

// FindUserByID returns the account with id.
func (s *MemoryStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	oid, err := memoryID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// FindUserByEmail returns the account holding email.
func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// FindUsersByIDs returns the accounts among ids that exist, without password hashes.
func (s *MemoryStore) FindUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []models.User
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			user.PasswordHash = ""
			users = append(users, user)
		}
	}
	return users, nil
}

// FindUsers lists every account in insertion order, without password hashes.
func (s *MemoryStore) FindUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		user.PasswordHash = ""
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return s.order[users[i].ID] < s.order[users[j].ID]
	})
	return users, nil
}

// UpdateUser replaces the account with id.
func (s *MemoryStore) UpdateUser(_ context.Context, id string, user models.User) error {
	oid, err := memoryID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[oid]; !ok {
		return ErrNotFound
	}
	for otherID, other := range s.users {
		if otherID != oid && other.Email == user.Email {
			return ErrDuplicate
		}
	}
	user.ID = oid
	user.UpdatedAt = time.Now()
	s.users[oid] = user
	return nil
}

// DeleteUser removes the account with id.
func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	oid, err := memoryID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[oid]; !ok {
		return ErrNotFound
	}
	delete(s.users, oid)
	delete(s.order, oid)
	return nil
}

// DeleteUserByEmail removes the account holding email.
func (s *MemoryStore) DeleteUserByEmail(_ context.Context, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, user := range s.users {
		if user.Email == email {
			delete(s.users, id)
			delete(s.order, id)
			return 1, nil
		}
	}
	return 0, nil
}

// UpdateLastLogin stamps the account's last login time.
func (s *MemoryStore) UpdateLastLogin(_ context.Context, id string) error {
	oid, err := memoryID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[oid]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	user.LastLogin = &now
	user.UpdatedAt = now
	s.users[oid] = user
	return nil
}

// InsertMechanic stores a new mechanic profile.
func (s *MemoryStore) InsertMechanic(_ context.Context, mechanic models.Mechanic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.mechanics {
		if existing.Email == mechanic.Email {
			return ErrDuplicate
		}
	}
	if mechanic.ID.IsZero() {
		mechanic.ID = primitive.NewObjectID()
	}
	if mechanic.CreatedAt.IsZero() {
		mechanic.CreatedAt = time.Now()
	}
	s.mechanics[mechanic.ID] = mechanic
	s.track(mechanic.ID)
	return nil
}

// FindMechanicByID returns the profile with id.
func (s *MemoryStore) FindMechanicByID(_ context.Context, id string) (*models.Mechanic, error) {
	oid, err := memoryID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	mechanic, ok := s.mechanics[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return &mechanic, nil
}

// FindMechanicByEmail returns the profile holding email.
func (s *MemoryStore) FindMechanicByEmail(_ context.Context, email string) (*models.Mechanic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, mechanic := range s.mechanics {
		if mechanic.Email == email {
			m := mechanic
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

// FindMechanics lists profiles, newest first.
func (s *MemoryStore) FindMechanics(_ context.Context) ([]models.Mechanic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mechanics := make([]models.Mechanic, 0, len(s.mechanics))
	for _, mechanic := range s.mechanics {
		mechanics = append(mechanics, mechanic)
	}
	sort.Slice(mechanics, func(i, j int) bool {
		if !mechanics[i].CreatedAt.Equal(mechanics[j].CreatedAt) {
			return mechanics[i].CreatedAt.After(mechanics[j].CreatedAt)
		}
		return s.order[mechanics[i].ID] > s.order[mechanics[j].ID]
	})
	return mechanics, nil
}

// UpdateMechanic applies a partial update to the profile with id.
func (s *MemoryStore) UpdateMechanic(_ context.Context, id string, update models.MechanicUpdate) (*models.Mechanic, error) {
	oid, err := memoryID(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	mechanic, ok := s.mechanics[oid]
	if !ok {
		return nil, ErrNotFound
	}
	update.Apply(&mechanic)
	s.mechanics[oid] = mechanic
	return &mechanic, nil
}

// DeleteMechanic removes the profile with id.
func (s *MemoryStore) DeleteMechanic(_ context.Context, id string) error {
	oid, err := memoryID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mechanics[oid]; !ok {
		return ErrNotFound
	}
	delete(s.mechanics, oid)
	delete(s.order, oid)
	return nil
}

func sameSlot(a, b models.Booking) bool {
	return a.UserID == b.UserID && a.PickupDate.Equal(b.PickupDate) && a.PickupTime == b.PickupTime
}

// InsertBooking stores a new booking.
func (s *MemoryStore) InsertBooking(_ context.Context, booking models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.bookings {
		if sameSlot(existing, booking) {
			return ErrDuplicate
		}
	}
	if booking.ID.IsZero() {
		booking.ID = primitive.NewObjectID()
	}
	now := time.Now()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	s.bookings[booking.ID] = booking
	s.track(booking.ID)
	return nil
}

// FindBookingByID returns the booking with id.
func (s *MemoryStore) FindBookingByID(_ context.Context, id string) (*models.Booking, error) {
	oid, err := memoryID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return &booking, nil
}

// FindBookingBySlot returns the owner's booking at a pickup date and time.
func (s *MemoryStore) FindBookingBySlot(_ context.Context, userID primitive.ObjectID, pickupDate time.Time, pickupTime string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	probe := models.Booking{UserID: userID, PickupDate: pickupDate, PickupTime: pickupTime}
	for _, booking := range s.bookings {
		if sameSlot(booking, probe) {
			b := booking
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

// FindBookings lists bookings matching filter.
func (s *MemoryStore) FindBookings(_ context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bookings []models.Booking
	for _, booking := range s.bookings {
		if filter.UserID != nil && booking.UserID != *filter.UserID {
			continue
		}
		if filter.AssignedMechanic != nil &&
			(booking.AssignedMechanic == nil || *booking.AssignedMechanic != *filter.AssignedMechanic) {
			continue
		}
		bookings = append(bookings, booking)
	}

	sort.Slice(bookings, func(i, j int) bool {
		if filter.NewestDeliveryFirst && !bookings[i].DeliveryDate.Equal(bookings[j].DeliveryDate) {
			return bookings[i].DeliveryDate.After(bookings[j].DeliveryDate)
		}
		if filter.NewestDeliveryFirst {
			return s.order[bookings[i].ID] > s.order[bookings[j].ID]
		}
		return s.order[bookings[i].ID] < s.order[bookings[j].ID]
	})
	return bookings, nil
}

// UpdateBooking replaces the booking with id.
func (s *MemoryStore) UpdateBooking(_ context.Context, id string, booking models.Booking) error {
	oid, err := memoryID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[oid]; !ok {
		return ErrNotFound
	}
	booking.ID = oid
	for otherID, other := range s.bookings {
		if otherID != oid && sameSlot(other, booking) {
			return ErrDuplicate
		}
	}
	booking.UpdatedAt = time.Now()
	s.bookings[oid] = booking
	return nil
}

// DeleteBooking removes the booking with id.
func (s *MemoryStore) DeleteBooking(_ context.Context, id string) error {
	oid, err := memoryID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[oid]; !ok {
		return ErrNotFound
	}
	delete(s.bookings, oid)
	delete(s.order, oid)
	return nil
}
