package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/tradeline-ai-platform/internal/callcontext"
	"github.com/wolfman30/tradeline-ai-platform/internal/company"
	"github.com/wolfman30/tradeline-ai-platform/internal/crm"
	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

// ErrBookingFailed indicates the datastore rejected the appointment; the
// engine escalates to a human rather than retrying silently.
var ErrBookingFailed = errors.New("booking: appointment creation failed")

// crmStore is the persistence surface the materializer needs; satisfied
// by *crm.Repository and by fakes in tests.
type crmStore interface {
	GetAppointmentByCall(ctx context.Context, companyID, callID string) (*crm.Appointment, error)
	CreateAppointment(ctx context.Context, a *crm.Appointment) (*crm.Appointment, error)
	GetContactByPhone(ctx context.Context, companyID, phone string) (*crm.Contact, error)
	CreateContact(ctx context.Context, companyID, name, phone, email string) (*crm.Contact, error)
	UpdateContact(ctx context.Context, c *crm.Contact, name, email, status string) (*crm.Contact, error)
	GetLocationByAddress(ctx context.Context, companyID, addressLine1, postalCode string) (*crm.Location, error)
	CreateLocation(ctx context.Context, loc *crm.Location) (*crm.Location, error)
}

// Materializer turns a booking-ready call context into a persisted
// appointment, exactly once per call.
type Materializer struct {
	store  crmStore
	logger *logging.Logger
	now    func() time.Time
}

// NewMaterializer creates an appointment materializer.
func NewMaterializer(store crmStore, logger *logging.Logger) *Materializer {
	if store == nil {
		panic("booking: crm store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Materializer{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Materialize resolves the contact and location and creates the
// appointment. Re-entrant: if an appointment already exists for
// (company, call), it is returned unchanged.
func (m *Materializer) Materialize(ctx context.Context, cfg *company.Config, cc *callcontext.Context, isEmergency bool) (*crm.Appointment, error) {
	existing, err := m.store.GetAppointmentByCall(ctx, cc.CompanyID, cc.CallID)
	if err == nil {
		m.logger.Info("appointment already exists for call, returning it",
			"call_id", cc.CallID, "appointment_id", existing.ID)
		return existing, nil
	}
	if !errors.Is(err, crm.ErrAppointmentNotFound) {
		return nil, fmt.Errorf("%w: idempotency lookup: %v", ErrBookingFailed, err)
	}

	contact, err := m.resolveContact(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("%w: contact: %v", ErrBookingFailed, err)
	}

	location, err := m.resolveLocation(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("%w: location: %v", ErrBookingFailed, err)
	}

	now := m.now()
	requestedDate := parsePreferredDate(cc.Extracted.Scheduling.PreferredDate)
	serviceType := cc.Extracted.Problem.Category
	priority, urgency := ScoreUrgency(cc.Extracted.Problem.Summary, serviceType, requestedDate, now, isEmergency)

	appt := &crm.Appointment{
		CompanyID:     cc.CompanyID,
		ContactID:     contact.ID,
		LocationID:    location.ID,
		CallID:        cc.CallID,
		Trade:         cc.Trade,
		ServiceType:   serviceType,
		Status:        crm.AppointmentStatusScheduled,
		ScheduledDate: cc.Extracted.Scheduling.PreferredDate,
		TimeWindow:    cc.Extracted.Scheduling.PreferredWindow,
		Priority:      priority,
		UrgencyScore:  urgency,
	}

	rule := SelectRule(cfg.BookingRules, RuleContext{
		Trade:         cc.Trade,
		ServiceType:   serviceType,
		Priority:      priority,
		RequestedDate: requestedDate,
		IsEmergency:   isEmergency,
	}, now)
	if rule != nil {
		appt.BookingRuleApplied = rule.ID
		if appt.TimeWindow == "" {
			appt.TimeWindow = rule.TimeWindow
		}
	}

	created, err := m.store.CreateAppointment(ctx, appt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBookingFailed, err)
	}

	m.logger.Info("appointment created",
		"call_id", cc.CallID,
		"appointment_id", created.ID,
		"priority", created.Priority,
		"urgency", created.UrgencyScore,
		"rule", created.BookingRuleApplied,
	)
	return created, nil
}

// resolveContact matches by normalized phone within the company, creating
// a new_lead on first sight and non-destructively refreshing on a match.
func (m *Materializer) resolveContact(ctx context.Context, cc *callcontext.Context) (*crm.Contact, error) {
	info := cc.Extracted.Contact
	existing, err := m.store.GetContactByPhone(ctx, cc.CompanyID, info.Phone)
	if err == nil {
		return m.store.UpdateContact(ctx, existing, info.Name, info.Email, crm.ContactStatusCustomer)
	}
	if !errors.Is(err, crm.ErrContactNotFound) {
		return nil, err
	}
	return m.store.CreateContact(ctx, cc.CompanyID, info.Name, info.Phone, info.Email)
}

// resolveLocation matches by (address_line1, postal_code). Incomplete
// address data produces a placeholder location rather than blocking the
// booking.
func (m *Materializer) resolveLocation(ctx context.Context, cc *callcontext.Context) (*crm.Location, error) {
	info := cc.Extracted.Location

	if info.AddressLine1 == "" || info.PostalCode == "" {
		return m.store.CreateLocation(ctx, &crm.Location{
			CompanyID:    cc.CompanyID,
			AddressLine1: info.AddressLine1,
			AddressLine2: info.AddressLine2,
			City:         info.City,
			State:        info.State,
			PostalCode:   info.PostalCode,
			Placeholder:  true,
		})
	}

	existing, err := m.store.GetLocationByAddress(ctx, cc.CompanyID, info.AddressLine1, info.PostalCode)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, crm.ErrLocationNotFound) {
		return nil, err
	}
	return m.store.CreateLocation(ctx, &crm.Location{
		CompanyID:    cc.CompanyID,
		AddressLine1: info.AddressLine1,
		AddressLine2: info.AddressLine2,
		City:         info.City,
		State:        info.State,
		PostalCode:   info.PostalCode,
	})
}

// parsePreferredDate accepts the date formats the extractor produces.
// Anything unparseable is treated as "no specific date".
func parsePreferredDate(s string) time.Time {
	for _, layout := range []string{"2006-01-02", "01/02/2006", "January 2, 2006", "January 2"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
