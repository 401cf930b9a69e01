// Package crm holds the persistent customer records the booking flow
// resolves against: contacts, service locations, and appointments.
package crm

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrContactNotFound     = errors.New("crm: contact not found")
	ErrLocationNotFound    = errors.New("crm: location not found")
	ErrAppointmentNotFound = errors.New("crm: appointment not found")
)

const (
	ContactStatusNewLead  = "new_lead"
	ContactStatusCustomer = "customer"

	AppointmentStatusScheduled = "scheduled"

	PriorityEmergency = "emergency"
	PriorityHigh      = "high"
	PriorityNormal    = "normal"
)

// Contact is a caller identity, matched by normalized phone within a
// company.
type Contact struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"` // normalized digits
	Email     string    `json:"email,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Location is a service address, matched by (address_line1, postal_code)
// within a company. Placeholder locations carry incomplete data rather
// than blocking a booking.
type Location struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	AddressLine1 string    `json:"address_line1"`
	AddressLine2 string    `json:"address_line2,omitempty"`
	City         string    `json:"city,omitempty"`
	State        string    `json:"state,omitempty"`
	PostalCode   string    `json:"postal_code"`
	Placeholder  bool      `json:"placeholder"`
	CreatedAt    time.Time `json:"created_at"`
}

// Appointment is a scheduled service visit. (company_id, call_id) is
// unique — the idempotency key that keeps one call from producing two
// appointments.
type Appointment struct {
	ID                 string    `json:"id"`
	CompanyID          string    `json:"company_id"`
	ContactID          string    `json:"contact_id"`
	LocationID         string    `json:"location_id"`
	CallID             string    `json:"call_id"`
	Trade              string    `json:"trade"`
	ServiceType        string    `json:"service_type,omitempty"`
	Status             string    `json:"status"`
	ScheduledDate      string    `json:"scheduled_date,omitempty"`
	TimeWindow         string    `json:"time_window,omitempty"`
	Priority           string    `json:"priority"`
	UrgencyScore       int       `json:"urgency_score"`
	BookingRuleApplied string    `json:"booking_rule_applied,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// NormalizePhone reduces a phone number to bare digits, dropping a US
// country-code prefix so +1 (555) 123-4567 and 5551234567 match.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	return digits
}
