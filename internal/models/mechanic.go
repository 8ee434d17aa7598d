package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MechanicStatus is the availability of a mechanic.
type MechanicStatus string

const (
	MechanicAvailable MechanicStatus = "Available"
	MechanicBusy      MechanicStatus = "Busy"
	MechanicInactive  MechanicStatus = "Inactive"
)

const DefaultSpecialization = "General Service"

// Mechanic is the operational profile of a mechanic, linked to one account.
type Mechanic struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	Phone          string             `bson:"phone" json:"phone"`
	Specialization string             `bson:"specialization" json:"specialization"`
	Experience     int                `bson:"experience" json:"experience"`
	Status         MechanicStatus     `bson:"status" json:"status"`
	UserID         primitive.ObjectID `bson:"user,omitempty" json:"user"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
}

// MechanicUpdate carries the fields an admin may change. Nil means unchanged.
type MechanicUpdate struct {
	Name           *string         `json:"name,omitempty" bson:"name,omitempty"`
	Phone          *string         `json:"phone,omitempty" bson:"phone,omitempty"`
	Specialization *string         `json:"specialization,omitempty" bson:"specialization,omitempty"`
	Experience     *int            `json:"experience,omitempty" bson:"experience,omitempty"`
	Status         *MechanicStatus `json:"status,omitempty" bson:"status,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u MechanicUpdate) Empty() bool {
	return u.Name == nil && u.Phone == nil && u.Specialization == nil && u.Experience == nil && u.Status == nil
}

// Apply copies the set fields onto m.
func (u MechanicUpdate) Apply(m *Mechanic) {
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Phone != nil {
		m.Phone = *u.Phone
	}
	if u.Specialization != nil {
		m.Specialization = *u.Specialization
	}
	if u.Experience != nil {
		m.Experience = *u.Experience
	}
	if u.Status != nil {
		m.Status = *u.Status
	}
}

// IsValidMechanicStatus checks if a mechanic status is valid
func IsValidMechanicStatus(s MechanicStatus) bool {
	switch s {
	case MechanicAvailable, MechanicBusy, MechanicInactive:
		return true
	default:
		return false
	}
}
