package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithQuerier(q querier) *PostgresRepository {
	if q == nil {
		panic("leads: querier required")
	}
	return &PostgresRepository{pool: q}
}

// Create inserts the sanitized submission as a new row with status "new".
func (r *PostgresRepository) Create(ctx context.Context, sub *ContactSubmission) (*Lead, error) {
	id := uuid.New()
	query := `
		INSERT INTO leads (id, name, email, phone, company, service, budget, timeline, message, newsletter, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		sub.Name,
		sub.Email,
		sub.Phone,
		sub.Company,
		sub.Service,
		sub.Budget,
		sub.Timeline,
		sub.Message,
		sub.Newsletter,
		StatusNew,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}

	return &Lead{
		ID:         id.String(),
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
		CreatedAt:  createdAt,
	}, nil
}

const leadColumns = `id, name, email, phone, company, service, budget, timeline, message, newsletter, status, last_contacted, created_at`

// GetByID fetches a lead and its note history.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	lead, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}

	notesQuery := `
		SELECT id, lead_id, date, type, content, author
		FROM lead_notes
		WHERE lead_id = $1
		ORDER BY date ASC
	`
	rows, err := r.pool.Query(ctx, notesQuery, id)
	if err != nil {
		return nil, fmt.Errorf("leads: select notes failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.LeadID, &n.Date, &n.Type, &n.Content, &n.Author); err != nil {
			return nil, fmt.Errorf("leads: scan note failed: %w", err)
		}
		lead.Notes = append(lead.Notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: notes rows: %w", err)
	}
	return lead, nil
}

// List returns leads newest first, optionally filtered by status.
// Notes are not loaded here; the listing only needs scoreable fields.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + leadColumns + ` FROM leads`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, filter.Status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list rows: %w", err)
	}
	return out, nil
}

// UpdateStatus changes the lead lifecycle state.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}
	ct, err := r.pool.Exec(ctx, `UPDATE leads SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("leads: update status failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// Delete removes the lead; lead_notes rows cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("leads: delete failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// AddNote appends a note in a transaction; contact-type notes also bump
// the lead's last_contacted.
func (r *PostgresRepository) AddNote(ctx context.Context, leadID string, in NoteInput) (*Note, error) {
	if !ValidNoteType(in.Type) {
		return nil, ErrInvalidNoteType
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("leads: begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	note := Note{
		ID:      uuid.NewString(),
		LeadID:  leadID,
		Type:    in.Type,
		Content: in.Content,
		Author:  in.Author,
	}
	insert := `
		INSERT INTO lead_notes (id, lead_id, type, content, author)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING date
	`
	if err := tx.QueryRow(ctx, insert, note.ID, leadID, note.Type, note.Content, note.Author).Scan(&note.Date); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: insert note failed: %w", err)
	}

	if in.Type.IsContact() {
		if _, err := tx.Exec(ctx, `UPDATE leads SET last_contacted = $1 WHERE id = $2`, note.Date, leadID); err != nil {
			return nil, fmt.Errorf("leads: touch last_contacted failed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("leads: commit failed: %w", err)
	}
	return &note, nil
}

// UpdateNote edits a note's content.
func (r *PostgresRepository) UpdateNote(ctx context.Context, leadID, noteID, content string) (*Note, error) {
	query := `
		UPDATE lead_notes SET content = $1
		WHERE id = $2 AND lead_id = $3
		RETURNING id, lead_id, date, type, content, author
	`
	var n Note
	if err := r.pool.QueryRow(ctx, query, content, noteID, leadID).Scan(
		&n.ID, &n.LeadID, &n.Date, &n.Type, &n.Content, &n.Author,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("leads: update note failed: %w", err)
	}
	return &n, nil
}

// DeleteNote removes a note from the lead.
func (r *PostgresRepository) DeleteNote(ctx context.Context, leadID, noteID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM lead_notes WHERE id = $1 AND lead_id = $2`, noteID, leadID)
	if err != nil {
		return fmt.Errorf("leads: delete note failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	if err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Company,
		&lead.Service,
		&lead.Budget,
		&lead.Timeline,
		&lead.Message,
		&lead.Newsletter,
		&lead.Status,
		&lead.LastContacted,
		&lead.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &lead, nil
}
