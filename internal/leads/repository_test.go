package leads

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCreateAndGet(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	sub := validSubmission()
	lead, err := repo.Create(ctx, &sub)
	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, StatusNew, lead.Status)
	assert.Equal(t, Budget10kTo25k, lead.Budget)
	assert.False(t, lead.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, lead.ID, got.ID)
	assert.Nil(t, got.LastContacted)
}

func TestInMemoryGetMissing(t *testing.T) {
	repo := NewInMemoryRepository()
	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestInMemoryListFiltersByStatus(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	sub := validSubmission()
	a, err := repo.Create(ctx, &sub)
	require.NoError(t, err)
	_, err = repo.Create(ctx, &sub)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, a.ID, StatusContacted))

	contacted, err := repo.List(ctx, ListFilter{Status: StatusContacted})
	require.NoError(t, err)
	require.Len(t, contacted, 1)
	assert.Equal(t, a.ID, contacted[0].ID)

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestInMemoryUpdateStatusValidation(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	sub := validSubmission()
	lead, err := repo.Create(ctx, &sub)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, lead.ID, Status("bogus")), ErrInvalidStatus)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", StatusQuoted), ErrLeadNotFound)
	assert.NoError(t, repo.UpdateStatus(ctx, lead.ID, StatusQuoted))
}

func TestInMemoryNotesLifecycle(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	sub := validSubmission()
	lead, err := repo.Create(ctx, &sub)
	require.NoError(t, err)

	// A plain note does not count as contact.
	info, err := repo.AddNote(ctx, lead.ID, NoteInput{Type: NoteInfo, Content: "reviewed website", Author: "claire"})
	require.NoError(t, err)
	got, err := repo.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastContacted)

	// A call note updates last_contacted.
	call, err := repo.AddNote(ctx, lead.ID, NoteInput{Type: NoteCall, Content: "called back", Author: "claire"})
	require.NoError(t, err)
	got, err = repo.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastContacted)
	assert.Equal(t, call.Date, *got.LastContacted)
	assert.Len(t, got.Notes, 2)

	// Edit and delete.
	updated, err := repo.UpdateNote(ctx, lead.ID, info.ID, "reviewed website and socials")
	require.NoError(t, err)
	assert.Equal(t, "reviewed website and socials", updated.Content)

	require.NoError(t, repo.DeleteNote(ctx, lead.ID, info.ID))
	got, err = repo.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Len(t, got.Notes, 1)

	assert.ErrorIs(t, repo.DeleteNote(ctx, lead.ID, info.ID), ErrNoteNotFound)
}

func TestInMemoryAddNoteRejectsUnknownType(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	sub := validSubmission()
	lead, err := repo.Create(ctx, &sub)
	require.NoError(t, err)

	_, err = repo.AddNote(ctx, lead.ID, NoteInput{Type: NoteType("fax"), Content: "x"})
	assert.ErrorIs(t, err, ErrInvalidNoteType)
}

func TestInMemoryDeleteCascadesNotes(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	sub := validSubmission()
	lead, err := repo.Create(ctx, &sub)
	require.NoError(t, err)
	_, err = repo.AddNote(ctx, lead.ID, NoteInput{Type: NoteInfo, Content: "x"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, lead.ID))
	_, err = repo.GetByID(ctx, lead.ID)
	assert.ErrorIs(t, err, ErrLeadNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, lead.ID), ErrLeadNotFound)
}
