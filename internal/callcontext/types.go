package callcontext

import "time"

// SchemaVersion is stamped into every serialized context. Bump it when the
// wire shape changes so stale cache entries from an older deploy are
// detectable instead of silently misread.
const SchemaVersion = 1

const (
	RoleCaller = "caller"
	RoleAgent  = "agent"
)

// ContactInfo is the caller's contact details gathered so far.
type ContactInfo struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// LocationInfo is the service address gathered so far.
type LocationInfo struct {
	AddressLine1 string `json:"address_line1,omitempty"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
}

// ProblemInfo describes the caller's service issue.
type ProblemInfo struct {
	Summary  string `json:"summary,omitempty"`
	Category string `json:"category,omitempty"`
	Urgency  string `json:"urgency,omitempty"`
}

// SchedulingInfo captures the caller's time preference.
type SchedulingInfo struct {
	PreferredDate   string `json:"preferred_date,omitempty"`
	PreferredWindow string `json:"preferred_window,omitempty"`
}

// AccessInfo holds property-access notes (gate codes, dogs, etc).
type AccessInfo struct {
	Notes string `json:"notes,omitempty"`
}

// Extracted is the accumulated structured state for a call. Sub-objects
// merge independently; a populated field is never cleared by a merge that
// omits it.
type Extracted struct {
	Contact    ContactInfo    `json:"contact"`
	Location   LocationInfo   `json:"location"`
	Problem    ProblemInfo    `json:"problem"`
	Scheduling SchedulingInfo `json:"scheduling"`
	Access     AccessInfo     `json:"access"`
}

// TranscriptEntry is a single utterance in the call transcript.
type TranscriptEntry struct {
	Role      string    `json:"role"` // "caller" or "agent"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// TierResolution is one audit entry for a resolver or orchestrator
// decision point.
type TierResolution struct {
	Tier       int       `json:"tier"`
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	Confidence float64   `json:"confidence"`
	SourceID   string    `json:"source_id,omitempty"`
	Reasoning  string    `json:"reasoning,omitempty"`
}

// Context is the cross-turn state for one active call. Exactly one logical
// context exists per call id; turns are assumed (not enforced) to run
// sequentially.
type Context struct {
	Schema    int    `json:"schema"`
	CallID    string `json:"call_id"`
	CompanyID string `json:"company_id"`
	Trade     string `json:"trade"`

	CurrentIntent string    `json:"current_intent,omitempty"`
	Extracted     Extracted `json:"extracted"`

	Transcript []TranscriptEntry `json:"transcript,omitempty"`
	TierTrace  []TierResolution  `json:"tier_trace,omitempty"`

	ReadyToBook   bool   `json:"ready_to_book"`
	AppointmentID string `json:"appointment_id,omitempty"`
	ConfigVersion string `json:"config_version,omitempty"`

	// Version increments on every save; used for an advisory concurrent
	// write check, not a lock.
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppendTranscript adds an utterance to the in-memory transcript.
func (c *Context) AppendTranscript(role, text string, at time.Time) {
	if text == "" {
		return
	}
	c.Transcript = append(c.Transcript, TranscriptEntry{
		Role:      role,
		Text:      text,
		Timestamp: at,
	})
}

// AddTierResolution records a decision-point audit entry.
func (c *Context) AddTierResolution(res TierResolution) {
	if res.Timestamp.IsZero() {
		res.Timestamp = time.Now().UTC()
	}
	c.TierTrace = append(c.TierTrace, res)
}

// BookingReady reports whether the five required fields for an appointment
// have all been captured: contact name, contact phone, service address,
// problem summary, and a time preference.
func (c *Context) BookingReady() bool {
	e := c.Extracted
	if e.Contact.Name == "" || e.Contact.Phone == "" {
		return false
	}
	if e.Location.AddressLine1 == "" || e.Location.PostalCode == "" {
		return false
	}
	if e.Problem.Summary == "" {
		return false
	}
	if e.Scheduling.PreferredDate == "" && e.Scheduling.PreferredWindow == "" {
		return false
	}
	return true
}
