package crm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the pgx surface the repository needs; satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides persistence for contacts, locations, and
// appointments.
type Repository struct {
	db Querier
}

// NewRepository creates a repository backed by a pgx pool (or mock).
func NewRepository(db Querier) *Repository {
	if db == nil {
		panic("crm: pgx pool required")
	}
	return &Repository{db: db}
}

// GetContactByPhone looks up a contact by normalized phone within a company.
func (r *Repository) GetContactByPhone(ctx context.Context, companyID, phone string) (*Contact, error) {
	query := `
		SELECT id, company_id, name, phone, email, status, created_at, updated_at
		FROM contacts
		WHERE company_id = $1 AND phone = $2
	`
	row := r.db.QueryRow(ctx, query, companyID, NormalizePhone(phone))
	var c Contact
	if err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Phone, &c.Email, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("crm: contact select: %w", err)
	}
	return &c, nil
}

// CreateContact inserts a new contact with new_lead status.
func (r *Repository) CreateContact(ctx context.Context, companyID, name, phone, email string) (*Contact, error) {
	id := uuid.New()
	query := `
		INSERT INTO contacts (id, company_id, name, phone, email, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	c := Contact{
		ID:        id.String(),
		CompanyID: companyID,
		Name:      name,
		Phone:     NormalizePhone(phone),
		Email:     email,
		Status:    ContactStatusNewLead,
	}
	if err := r.db.QueryRow(ctx, query, id, companyID, c.Name, c.Phone, c.Email, c.Status).
		Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("crm: contact insert: %w", err)
	}
	return &c, nil
}

// UpdateContact non-destructively refreshes a contact: empty incoming
// fields keep the stored values, and status only moves forward
// (new_lead -> customer), never back.
func (r *Repository) UpdateContact(ctx context.Context, c *Contact, name, email, status string) (*Contact, error) {
	if name != "" {
		c.Name = name
	}
	if email != "" {
		c.Email = email
	}
	if status == ContactStatusCustomer {
		c.Status = ContactStatusCustomer
	}

	query := `
		UPDATE contacts
		SET name = $3, email = $4, status = $5, updated_at = NOW()
		WHERE id = $1 AND company_id = $2
	`
	if _, err := r.db.Exec(ctx, query, c.ID, c.CompanyID, c.Name, c.Email, c.Status); err != nil {
		return nil, fmt.Errorf("crm: contact update: %w", err)
	}
	c.UpdatedAt = time.Now().UTC()
	return c, nil
}

// GetLocationByAddress looks up a location by (address_line1, postal_code)
// within a company.
func (r *Repository) GetLocationByAddress(ctx context.Context, companyID, addressLine1, postalCode string) (*Location, error) {
	query := `
		SELECT id, company_id, address_line1, address_line2, city, state, postal_code, placeholder, created_at
		FROM locations
		WHERE company_id = $1 AND address_line1 = $2 AND postal_code = $3
	`
	row := r.db.QueryRow(ctx, query, companyID, addressLine1, postalCode)
	var l Location
	if err := row.Scan(&l.ID, &l.CompanyID, &l.AddressLine1, &l.AddressLine2, &l.City, &l.State, &l.PostalCode, &l.Placeholder, &l.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("crm: location select: %w", err)
	}
	return &l, nil
}

// CreateLocation inserts a location row. Placeholder marks incomplete
// address data so it never blocks a booking.
func (r *Repository) CreateLocation(ctx context.Context, loc *Location) (*Location, error) {
	id := uuid.New()
	query := `
		INSERT INTO locations (id, company_id, address_line1, address_line2, city, state, postal_code, placeholder)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	loc.ID = id.String()
	if err := r.db.QueryRow(ctx, query, id, loc.CompanyID, loc.AddressLine1, loc.AddressLine2,
		loc.City, loc.State, loc.PostalCode, loc.Placeholder).Scan(&loc.CreatedAt); err != nil {
		return nil, fmt.Errorf("crm: location insert: %w", err)
	}
	return loc, nil
}

// GetAppointmentByCall looks up the appointment for (company_id, call_id),
// the idempotency key for booking.
func (r *Repository) GetAppointmentByCall(ctx context.Context, companyID, callID string) (*Appointment, error) {
	query := `
		SELECT id, company_id, contact_id, location_id, call_id, trade, service_type,
		       status, scheduled_date, time_window, priority, urgency_score, booking_rule_applied, created_at
		FROM appointments
		WHERE company_id = $1 AND call_id = $2
	`
	row := r.db.QueryRow(ctx, query, companyID, callID)
	var a Appointment
	if err := row.Scan(&a.ID, &a.CompanyID, &a.ContactID, &a.LocationID, &a.CallID, &a.Trade, &a.ServiceType,
		&a.Status, &a.ScheduledDate, &a.TimeWindow, &a.Priority, &a.UrgencyScore, &a.BookingRuleApplied, &a.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("crm: appointment select: %w", err)
	}
	return &a, nil
}

// CreateAppointment inserts a new appointment row.
func (r *Repository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	id := uuid.New()
	query := `
		INSERT INTO appointments (id, company_id, contact_id, location_id, call_id, trade, service_type,
		                          status, scheduled_date, time_window, priority, urgency_score, booking_rule_applied)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`
	a.ID = id.String()
	if a.Status == "" {
		a.Status = AppointmentStatusScheduled
	}
	if err := r.db.QueryRow(ctx, query, id, a.CompanyID, a.ContactID, a.LocationID, a.CallID, a.Trade, a.ServiceType,
		a.Status, a.ScheduledDate, a.TimeWindow, a.Priority, a.UrgencyScore, a.BookingRuleApplied).
		Scan(&a.CreatedAt); err != nil {
		return nil, fmt.Errorf("crm: appointment insert: %w", err)
	}
	return a, nil
}
