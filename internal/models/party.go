package models

// Role is the role carried by an authenticated identity.
type Role string

const (
	RoleDoctor     Role = "doctor"
	RoleLaboratory Role = "laboratory"
	RolePharmacy   Role = "pharmacy"
	RolePatient    Role = "patient"
	RoleAdmin      Role = "admin"
)

// ProviderRoles are the roles that earn money and hold subscriptions.
var ProviderRoles = []Role{RoleDoctor, RoleLaboratory, RolePharmacy}

// IsProvider reports whether the role earns from bookings.
func (r Role) IsProvider() bool {
	switch r {
	case RoleDoctor, RoleLaboratory, RolePharmacy:
		return true
	}
	return false
}

// ParseRole returns the role for a raw string, or false for unknown roles.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleDoctor, RoleLaboratory, RolePharmacy, RolePatient, RoleAdmin:
		return r, true
	}
	return "", false
}

// BookingKind tags the booking that produced an earning.
type BookingKind string

const (
	BookingAppointment   BookingKind = "appointment"
	BookingLabOrder      BookingKind = "lab_order"
	BookingPharmacyOrder BookingKind = "pharmacy_order"
)

func (k BookingKind) Valid() bool {
	switch k {
	case BookingAppointment, BookingLabOrder, BookingPharmacyOrder:
		return true
	}
	return false
}

// ProviderRef identifies a provider account: a role tag plus an opaque id.
type ProviderRef struct {
	Role Role   `json:"role"`
	ID   string `json:"id"`
}

func (p ProviderRef) String() string {
	return string(p.Role) + ":" + p.ID
}

// BookingRef identifies a billable booking.
type BookingRef struct {
	Kind BookingKind `json:"kind"`
	ID   string      `json:"id"`
}

func (b BookingRef) String() string {
	return string(b.Kind) + ":" + b.ID
}

// Identity is the authenticated caller of an operation.
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// AsProvider returns the identity as a provider reference.
func (i Identity) AsProvider() ProviderRef {
	return ProviderRef{Role: i.Role, ID: i.ID}
}
