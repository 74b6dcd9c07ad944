package leads

import (
	"time"
)

// Service identifies which offering the prospect is asking about.
type Service string

const (
	ServiceWeb            Service = "web"
	ServiceIA             Service = "ia"
	ServiceTransformation Service = "transformation"
	ServiceAudit          Service = "audit"
	ServiceOther          Service = "other"
)

// Budget is the declared project budget bracket.
type Budget string

const (
	BudgetLess5k   Budget = "less-5k"
	Budget5kTo10k  Budget = "5k-10k"
	Budget10kTo25k Budget = "10k-25k"
	Budget25kTo50k Budget = "25k-50k"
	BudgetMore50k  Budget = "more-50k"
	BudgetUndefined Budget = "not-defined"
)

// Timeline is the declared project start horizon.
type Timeline string

const (
	TimelineASAP     Timeline = "asap"
	TimelineOneMonth Timeline = "1-month"
	TimelineQuarter  Timeline = "1-3-months"
	TimelineSemester Timeline = "3-6-months"
	TimelineFlexible Timeline = "flexible"
)

// Status is the CRM lifecycle state of a lead, mutated only by admin actions.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQuoted    Status = "quoted"
	StatusClient    Status = "client"
	StatusClosed    Status = "closed"
)

// NoteType classifies a CRM note. Contact types (call, email, meeting)
// update the lead's last_contacted timestamp.
type NoteType string

const (
	NoteCall    NoteType = "call"
	NoteEmail   NoteType = "email"
	NoteMeeting NoteType = "meeting"
	NoteInfo    NoteType = "note"
)

// IsContact reports whether adding a note of this type counts as reaching
// out to the lead.
func (t NoteType) IsContact() bool {
	switch t {
	case NoteCall, NoteEmail, NoteMeeting:
		return true
	}
	return false
}

// Note is a dated CRM annotation on a lead.
type Note struct {
	ID      string    `json:"id"`
	LeadID  string    `json:"lead_id"`
	Date    time.Time `json:"date"`
	Type    NoteType  `json:"type"`
	Content string    `json:"content"`
	Author  string    `json:"author"`
}

// Lead is a stored contact-form submission tracked through the CRM lifecycle.
type Lead struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	Company       string     `json:"company,omitempty"`
	Service       Service    `json:"service"`
	Budget        Budget     `json:"budget"`
	Timeline      Timeline   `json:"timeline"`
	Message       string     `json:"message"`
	Newsletter    bool       `json:"newsletter"`
	Status        Status     `json:"status"`
	Notes         []Note     `json:"notes,omitempty"`
	LastContacted *time.Time `json:"last_contacted,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusNew, StatusContacted, StatusQuoted, StatusClient, StatusClosed:
		return true
	}
	return false
}

// ValidNoteType reports whether t is a known note type.
func ValidNoteType(t NoteType) bool {
	switch t {
	case NoteCall, NoteEmail, NoteMeeting, NoteInfo:
		return true
	}
	return false
}
