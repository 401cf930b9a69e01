package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wolfman30/tradeline-ai-platform/internal/callcontext"
	"github.com/wolfman30/tradeline-ai-platform/internal/company"
	"github.com/wolfman30/tradeline-ai-platform/internal/crm"
)

type fakeCRM struct {
	contacts     map[string]*crm.Contact // keyed by normalized phone
	appointments map[string]*crm.Appointment
	locations    []*crm.Location

	createAppointmentErr error
	createdAppointments  int
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{
		contacts:     make(map[string]*crm.Contact),
		appointments: make(map[string]*crm.Appointment),
	}
}

func (f *fakeCRM) GetAppointmentByCall(_ context.Context, companyID, callID string) (*crm.Appointment, error) {
	if a, ok := f.appointments[companyID+"/"+callID]; ok {
		return a, nil
	}
	return nil, crm.ErrAppointmentNotFound
}

func (f *fakeCRM) CreateAppointment(_ context.Context, a *crm.Appointment) (*crm.Appointment, error) {
	if f.createAppointmentErr != nil {
		return nil, f.createAppointmentErr
	}
	f.createdAppointments++
	a.ID = fmt.Sprintf("appt-%d", f.createdAppointments)
	f.appointments[a.CompanyID+"/"+a.CallID] = a
	return a, nil
}

func (f *fakeCRM) GetContactByPhone(_ context.Context, _, phone string) (*crm.Contact, error) {
	if c, ok := f.contacts[crm.NormalizePhone(phone)]; ok {
		return c, nil
	}
	return nil, crm.ErrContactNotFound
}

func (f *fakeCRM) CreateContact(_ context.Context, companyID, name, phone, email string) (*crm.Contact, error) {
	c := &crm.Contact{
		ID:        "contact-" + crm.NormalizePhone(phone),
		CompanyID: companyID,
		Name:      name,
		Phone:     crm.NormalizePhone(phone),
		Email:     email,
		Status:    crm.ContactStatusNewLead,
	}
	f.contacts[c.Phone] = c
	return c, nil
}

func (f *fakeCRM) UpdateContact(_ context.Context, c *crm.Contact, name, email, status string) (*crm.Contact, error) {
	if name != "" {
		c.Name = name
	}
	if email != "" {
		c.Email = email
	}
	if status == crm.ContactStatusCustomer {
		c.Status = crm.ContactStatusCustomer
	}
	return c, nil
}

func (f *fakeCRM) GetLocationByAddress(_ context.Context, companyID, addressLine1, postalCode string) (*crm.Location, error) {
	for _, l := range f.locations {
		if l.CompanyID == companyID && l.AddressLine1 == addressLine1 && l.PostalCode == postalCode {
			return l, nil
		}
	}
	return nil, crm.ErrLocationNotFound
}

func (f *fakeCRM) CreateLocation(_ context.Context, loc *crm.Location) (*crm.Location, error) {
	loc.ID = fmt.Sprintf("loc-%d", len(f.locations)+1)
	f.locations = append(f.locations, loc)
	return loc, nil
}

func bookableContext() *callcontext.Context {
	return &callcontext.Context{
		CallID:    "call-1",
		CompanyID: "co-1",
		Trade:     "hvac",
		Extracted: callcontext.Extracted{
			Contact:    callcontext.ContactInfo{Name: "Ray Delgado", Phone: "(303) 555-0142"},
			Location:   callcontext.LocationInfo{AddressLine1: "12 Oak St", PostalCode: "80014"},
			Problem:    callcontext.ProblemInfo{Summary: "furnace not heating", Category: "repair"},
			Scheduling: callcontext.SchedulingInfo{PreferredDate: "2026-09-03", PreferredWindow: "morning"},
		},
	}
}

func TestMaterializeCreatesAppointment(t *testing.T) {
	store := newFakeCRM()
	m := NewMaterializer(store, nil)
	m.now = func() time.Time { return time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC) }

	appt, err := m.Materialize(context.Background(), company.Defaulted("co-1"), bookableContext(), false)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if appt.ID == "" || appt.Status != crm.AppointmentStatusScheduled {
		t.Errorf("appointment = %+v", appt)
	}
	if appt.ContactID == "" || appt.LocationID == "" {
		t.Errorf("contact/location not resolved: %+v", appt)
	}

	contact := store.contacts["3035550142"]
	if contact == nil {
		t.Fatal("phone was not normalized on contact creation")
	}
	if contact.Status != crm.ContactStatusNewLead {
		t.Errorf("new caller status = %s, want new_lead", contact.Status)
	}
}

func TestMaterializeIdempotentPerCall(t *testing.T) {
	store := newFakeCRM()
	m := NewMaterializer(store, nil)

	cc := bookableContext()
	first, err := m.Materialize(context.Background(), company.Defaulted("co-1"), cc, false)
	if err != nil {
		t.Fatalf("first Materialize: %v", err)
	}
	second, err := m.Materialize(context.Background(), company.Defaulted("co-1"), cc, false)
	if err != nil {
		t.Fatalf("second Materialize: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("ids differ: %s vs %s", first.ID, second.ID)
	}
	if store.createdAppointments != 1 {
		t.Errorf("appointments created = %d, want exactly 1", store.createdAppointments)
	}
}

func TestMaterializePromotesExistingContact(t *testing.T) {
	store := newFakeCRM()
	store.contacts["3035550142"] = &crm.Contact{
		ID: "contact-old", CompanyID: "co-1", Name: "R. Delgado",
		Phone: "3035550142", Email: "ray@example.com", Status: crm.ContactStatusNewLead,
	}
	m := NewMaterializer(store, nil)

	cc := bookableContext()
	cc.Extracted.Contact.Email = "" // caller did not repeat their email

	appt, err := m.Materialize(context.Background(), company.Defaulted("co-1"), cc, false)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if appt.ContactID != "contact-old" {
		t.Errorf("matched wrong contact: %+v", appt)
	}

	contact := store.contacts["3035550142"]
	if contact.Status != crm.ContactStatusCustomer {
		t.Errorf("status = %s, want promoted to customer", contact.Status)
	}
	if contact.Email != "ray@example.com" {
		t.Errorf("email cleared on update: %q", contact.Email)
	}
	if contact.Name != "Ray Delgado" {
		t.Errorf("name not refreshed: %q", contact.Name)
	}
}

func TestMaterializePlaceholderLocationOnIncompleteAddress(t *testing.T) {
	store := newFakeCRM()
	m := NewMaterializer(store, nil)

	cc := bookableContext()
	cc.Extracted.Location.PostalCode = ""

	if _, err := m.Materialize(context.Background(), company.Defaulted("co-1"), cc, false); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(store.locations) != 1 || !store.locations[0].Placeholder {
		t.Errorf("locations = %+v, want one placeholder", store.locations)
	}
}

func TestMaterializeAppliesBookingRule(t *testing.T) {
	store := newFakeCRM()
	m := NewMaterializer(store, nil)
	m.now = func() time.Time { return time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC) }

	cfg := company.Defaulted("co-1")
	cfg.BookingRules = []company.BookingRule{
		{ID: "weekday-morning", Priority: "normal", DaysOfWeek: []string{"thu"}, WeekendAllowed: false, SameDayAllowed: true, TimeWindow: "8am-12pm"},
	}

	cc := bookableContext()
	cc.Extracted.Scheduling.PreferredWindow = ""

	appt, err := m.Materialize(context.Background(), cfg, cc, false)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if appt.BookingRuleApplied != "weekday-morning" {
		t.Errorf("rule applied = %q", appt.BookingRuleApplied)
	}
	if appt.TimeWindow != "8am-12pm" {
		t.Errorf("time window = %q, want rule default", appt.TimeWindow)
	}
}

func TestMaterializeWrapsStorageFailure(t *testing.T) {
	store := newFakeCRM()
	store.createAppointmentErr = errors.New("unique violation")
	m := NewMaterializer(store, nil)

	_, err := m.Materialize(context.Background(), company.Defaulted("co-1"), bookableContext(), false)
	if !errors.Is(err, ErrBookingFailed) {
		t.Fatalf("err = %v, want ErrBookingFailed", err)
	}
}
