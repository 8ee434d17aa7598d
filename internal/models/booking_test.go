package models

import (
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIsValidServiceType(t *testing.T) {
	tests := []struct {
		st       ServiceType
		expected bool
	}{
		{ServiceGeneral, true},
		{ServiceOilChange, true},
		{ServiceRepair, true},
		{ServiceBatteryReplacement, true},
		{ServiceTyre, true},
		{"Paint Job", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidServiceType(tt.st); got != tt.expected {
			t.Errorf("IsValidServiceType(%q) = %v, want %v", tt.st, got, tt.expected)
		}
	}
}

func TestIsValidBookingStatus(t *testing.T) {
	for _, s := range []BookingStatus{StatusPending, StatusAssigned, StatusInProgress, StatusCompleted} {
		if !IsValidBookingStatus(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if IsValidBookingStatus("Cancelled") {
		t.Error("Cancelled is not a booking status")
	}
}

func TestBooking_Editable(t *testing.T) {
	b := &Booking{Status: StatusPending}
	if !b.Editable() {
		t.Error("pending booking should be editable")
	}
	for _, s := range []BookingStatus{StatusAssigned, StatusInProgress, StatusCompleted} {
		b.Status = s
		if b.Editable() {
			t.Errorf("%s booking should not be editable", s)
		}
	}
}

func TestBookingView_JSONPopulatesReferences(t *testing.T) {
	owner := primitive.NewObjectID()
	mech := primitive.NewObjectID()
	view := BookingView{
		Booking: Booking{
			ID:               primitive.NewObjectID(),
			UserID:           owner,
			Status:           StatusAssigned,
			AssignedMechanic: &mech,
		},
		User:             &UserRef{ID: owner, Name: "Owner", Email: "owner@example.com"},
		AssignedMechanic: &UserRef{ID: mech, Name: "Mech", Email: "mech@example.com"},
	}

	data, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	user, ok := raw["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected populated user object, got %T", raw["user"])
	}
	if user["email"] != "owner@example.com" {
		t.Errorf("unexpected user %v", user)
	}
	assigned, ok := raw["assignedMechanic"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected populated mechanic object, got %T", raw["assignedMechanic"])
	}
	if assigned["name"] != "Mech" {
		t.Errorf("unexpected mechanic %v", assigned)
	}
}

func TestMechanicUpdate_Apply(t *testing.T) {
	m := &Mechanic{Name: "Old", Phone: "1", Specialization: DefaultSpecialization, Status: MechanicAvailable}
	if !(MechanicUpdate{}).Empty() {
		t.Error("zero update should be empty")
	}

	name := "New"
	exp := 0
	busy := MechanicBusy
	u := MechanicUpdate{Name: &name, Experience: &exp, Status: &busy}
	if u.Empty() {
		t.Error("update should not be empty")
	}
	u.Apply(m)

	if m.Name != "New" || m.Phone != "1" || m.Experience != 0 || m.Status != MechanicBusy {
		t.Errorf("unexpected mechanic after apply: %+v", m)
	}
	if !IsValidMechanicStatus(MechanicInactive) || IsValidMechanicStatus("Retired") {
		t.Error("mechanic status validation mismatch")
	}
}
