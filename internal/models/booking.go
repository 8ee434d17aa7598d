package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending    BookingStatus = "Pending"
	StatusAssigned   BookingStatus = "Assigned"
	StatusInProgress BookingStatus = "In Progress"
	StatusCompleted  BookingStatus = "Completed"
)

// ServiceType is the kind of work requested.
type ServiceType string

const (
	ServiceGeneral            ServiceType = "General Service"
	ServiceOilChange          ServiceType = "Oil Change"
	ServiceRepair             ServiceType = "Repair"
	ServiceBatteryReplacement ServiceType = "Battery Replacement"
	ServiceTyre               ServiceType = "Tyre Service"
)

// Booking represents a service pickup request.
// DeliveryDate and DeliveryTime hold the customer's preferred date and time.
type Booking struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	UserID             primitive.ObjectID  `bson:"user" json:"user"`
	BikeModel          string              `bson:"bike_model" json:"bikeModel"`
	BikeBrand          string              `bson:"bike_brand" json:"bikeBrand"`
	RegistrationNumber string              `bson:"registration_number" json:"registrationNumber"`
	ServiceType        ServiceType         `bson:"service_type" json:"serviceType"`
	PickupAddress      string              `bson:"pickup_address" json:"pickupAddress"`
	PickupDate         time.Time           `bson:"pickup_date" json:"pickupDate"`
	PickupTime         string              `bson:"pickup_time" json:"pickupTime"`
	DeliveryDate       time.Time           `bson:"delivery_date" json:"deliveryDate"`
	DeliveryTime       string              `bson:"delivery_time" json:"deliveryTime"`
	Status             BookingStatus       `bson:"status" json:"status"`
	AssignedMechanic   *primitive.ObjectID `bson:"assigned_mechanic,omitempty" json:"assignedMechanic,omitempty"`
	Remarks            *string             `bson:"remarks,omitempty" json:"remarks,omitempty"`
	Cost               *float64            `bson:"cost,omitempty" json:"cost,omitempty"`
	CreatedAt          time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updated_at" json:"updatedAt"`
}

// BookingView is a booking with its account references populated.
type BookingView struct {
	Booking          `bson:",inline"`
	User             *UserRef `bson:"-" json:"user,omitempty"`
	AssignedMechanic *UserRef `bson:"-" json:"assignedMechanic,omitempty"`
}

// BookingFilter selects bookings. Zero fields match everything.
type BookingFilter struct {
	UserID           *primitive.ObjectID
	AssignedMechanic *primitive.ObjectID
	// NewestDeliveryFirst orders by delivery (preferred) date descending.
	NewestDeliveryFirst bool
}

// BookingRequest is the owner-supplied field set for create and edit.
type BookingRequest struct {
	BikeModel          string `json:"bikeModel" validate:"required"`
	BikeBrand          string `json:"bikeBrand" validate:"required"`
	RegistrationNumber string `json:"registrationNumber" validate:"required"`
	ServiceType        string `json:"serviceType" validate:"required"`
	PickupAddress      string `json:"pickupAddress" validate:"required"`
	PickupDate         string `json:"pickupDate" validate:"required"`
	PickupTime         string `json:"pickupTime" validate:"required"`
	PreferredDate      string `json:"preferredDate" validate:"required"`
	PreferredTime      string `json:"preferredTime" validate:"required"`
}

// StatusUpdate carries the admin/mechanic editable fields. Nil means unchanged.
type StatusUpdate struct {
	BookingID string         `json:"bookingId"`
	Status    *BookingStatus `json:"status,omitempty"`
	Remarks   *string        `json:"remarks,omitempty"`
	Cost      *float64       `json:"cost,omitempty"`
}

// AssignRequest links a booking to a mechanic profile.
type AssignRequest struct {
	BookingID  string `json:"bookingId"`
	MechanicID string `json:"mechanicId"`
}

// IsValidServiceType checks if a service type is offered
func IsValidServiceType(s ServiceType) bool {
	switch s {
	case ServiceGeneral, ServiceOilChange, ServiceRepair, ServiceBatteryReplacement, ServiceTyre:
		return true
	default:
		return false
	}
}

// IsValidBookingStatus checks if a booking status is valid
func IsValidBookingStatus(s BookingStatus) bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

// Editable reports whether the owner may still change or delete the booking.
func (b *Booking) Editable() bool {
	return b.Status == StatusPending
}
