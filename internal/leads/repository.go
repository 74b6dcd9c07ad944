package leads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows a lead listing.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// NoteInput is the payload for appending a note to a lead.
type NoteInput struct {
	Type    NoteType
	Content string
	Author  string
}

// Repository defines the interface for lead storage
type Repository interface {
	Create(ctx context.Context, sub *ContactSubmission) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context, filter ListFilter) ([]*Lead, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	Delete(ctx context.Context, id string) error
	AddNote(ctx context.Context, leadID string, in NoteInput) (*Note, error)
	UpdateNote(ctx context.Context, leadID, noteID, content string) (*Note, error)
	DeleteNote(ctx context.Context, leadID, noteID string) error
}

// InMemoryRepository is a Repository backed by process memory, used in
// development and tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
	}
}

// Create stores the sanitized submission as a new lead with status "new".
func (r *InMemoryRepository) Create(ctx context.Context, sub *ContactSubmission) (*Lead, error) {
	lead := &Lead{
		ID:         uuid.NewString(),
		Name:       sub.Name,
		Email:      sub.Email,
		Phone:      sub.Phone,
		Company:    sub.Company,
		Service:    Service(sub.Service),
		Budget:     Budget(sub.Budget),
		Timeline:   Timeline(sub.Timeline),
		Message:    sub.Message,
		Newsletter: sub.Newsletter,
		Status:     StatusNew,
		CreatedAt:  time.Now().UTC(),
	}

	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.mu.Unlock()

	return cloneLead(lead), nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	return cloneLead(lead), nil
}

// List returns leads matching the filter, newest first.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Lead
	for _, l := range r.leads {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		out = append(out, cloneLead(l))
	}
	// Newest first; pagination is applied after the sort.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// UpdateStatus changes the lead lifecycle state.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	lead.Status = status
	return nil
}

// Delete removes the lead and its note history.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[id]; !ok {
		return ErrLeadNotFound
	}
	delete(r.leads, id)
	return nil
}

// AddNote appends a note; contact-type notes update last_contacted.
func (r *InMemoryRepository) AddNote(ctx context.Context, leadID string, in NoteInput) (*Note, error) {
	if !ValidNoteType(in.Type) {
		return nil, ErrInvalidNoteType
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[leadID]
	if !ok {
		return nil, ErrLeadNotFound
	}

	note := Note{
		ID:      uuid.NewString(),
		LeadID:  leadID,
		Date:    time.Now().UTC(),
		Type:    in.Type,
		Content: in.Content,
		Author:  in.Author,
	}
	lead.Notes = append(lead.Notes, note)
	if in.Type.IsContact() {
		ts := note.Date
		lead.LastContacted = &ts
	}
	return &note, nil
}

// UpdateNote edits a note's content in place.
func (r *InMemoryRepository) UpdateNote(ctx context.Context, leadID, noteID, content string) (*Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[leadID]
	if !ok {
		return nil, ErrLeadNotFound
	}
	for i := range lead.Notes {
		if lead.Notes[i].ID == noteID {
			lead.Notes[i].Content = content
			note := lead.Notes[i]
			return &note, nil
		}
	}
	return nil, ErrNoteNotFound
}

// DeleteNote removes a note from the lead.
func (r *InMemoryRepository) DeleteNote(ctx context.Context, leadID, noteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[leadID]
	if !ok {
		return ErrLeadNotFound
	}
	for i := range lead.Notes {
		if lead.Notes[i].ID == noteID {
			lead.Notes = append(lead.Notes[:i], lead.Notes[i+1:]...)
			return nil
		}
	}
	return ErrNoteNotFound
}

func cloneLead(l *Lead) *Lead {
	cp := *l
	if l.Notes != nil {
		cp.Notes = append([]Note(nil), l.Notes...)
	}
	if l.LastContacted != nil {
		ts := *l.LastContacted
		cp.LastContacted = &ts
	}
	return &cp
}
