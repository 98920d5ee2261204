package db_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/havenchat/haven/internal/db"
	"github.com/havenchat/haven/internal/models"
)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGetConversation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// Timestamps deliberately out of insertion order.
	msgs := []models.Message{
		{Role: models.RoleUser, Content: "third", Timestamp: 3000},
		{Role: models.RoleAssistant, Content: "first", Timestamp: 1000},
		{Role: models.RoleUser, Content: "second", Timestamp: 2000},
	}

	conv, err := store.CreateConversation(ctx, "user-1", "", "a summary", msgs)
	require.NoError(t, err)
	require.NotZero(t, conv.ID)
	require.Equal(t, "New Conversation", conv.Title)
	require.Empty(t, conv.Messages)

	got, err := store.GetConversation(ctx, "user-1", conv.ID)
	require.NoError(t, err)
	require.Equal(t, "a summary", got.Summary)
	require.Len(t, got.Messages, 3)
	require.Equal(t, []string{"first", "second", "third"},
		[]string{got.Messages[0].Content, got.Messages[1].Content, got.Messages[2].Content})
	for i := 1; i < len(got.Messages); i++ {
		require.LessOrEqual(t, got.Messages[i-1].Timestamp, got.Messages[i].Timestamp)
	}
}

func TestGetConversationOwnership(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	conv, err := store.CreateConversation(ctx, "owner", "mine", "", nil)
	require.NoError(t, err)

	_, err = store.GetConversation(ctx, "someone-else", conv.ID)
	require.ErrorIs(t, err, db.ErrNotFound)

	_, err = store.GetConversation(ctx, "owner", conv.ID+999)
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestCreateConversationDefaultsTimestamps(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	conv, err := store.CreateConversation(ctx, "user-1", "t", "", []models.Message{
		{Role: models.RoleUser, Content: "no timestamp"},
	})
	require.NoError(t, err)

	got, err := store.GetConversation(ctx, "user-1", conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	require.NotZero(t, got.Messages[0].Timestamp)
}

func TestCreateConversationInvalidRoleRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.CreateConversation(ctx, "user-1", "bad", "", []models.Message{
		{Role: models.RoleUser, Content: "ok", Timestamp: 1},
		{Role: "system", Content: "rejected by check constraint", Timestamp: 2},
	})
	require.Error(t, err)

	// The conversation row must not survive the failed message insert.
	list, err := store.ListConversations(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestListConversations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		_, err := store.CreateConversation(ctx, "user-a", fmt.Sprintf("conv %d", i), "",
			[]models.Message{{Role: models.RoleUser, Content: "hi", Timestamp: int64(i + 1)}})
		require.NoError(t, err)
	}
	_, err := store.CreateConversation(ctx, "user-b", "other", "", nil)
	require.NoError(t, err)

	list, err := store.ListConversations(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, conv := range list {
		require.Equal(t, "user-a", conv.UserID)
		require.Equal(t, 1, conv.MessageCount)
	}
	for i := 1; i < len(list); i++ {
		require.False(t, list[i].UpdatedAt.After(list[i-1].UpdatedAt),
			"expected conversations ordered by updated_at descending")
	}
}

func TestListConversationsCap(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 55; i++ {
		_, err := store.CreateConversation(ctx, "busy", fmt.Sprintf("conv %d", i), "", nil)
		require.NoError(t, err)
	}

	list, err := store.ListConversations(ctx, "busy")
	require.NoError(t, err)
	require.Len(t, list, 50)
}

func TestRenameConversation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	conv, err := store.CreateConversation(ctx, "user-1", "before", "", nil)
	require.NoError(t, err)

	renamed, err := store.RenameConversation(ctx, conv.ID, "after")
	require.NoError(t, err)
	require.Equal(t, "after", renamed.Title)
	require.Equal(t, conv.ID, renamed.ID)

	_, err = store.RenameConversation(ctx, conv.ID+999, "nope")
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestDeleteConversationIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	conv, err := store.CreateConversation(ctx, "user-1", "doomed", "",
		[]models.Message{{Role: models.RoleUser, Content: "bye", Timestamp: 1}})
	require.NoError(t, err)

	require.NoError(t, store.DeleteConversation(ctx, conv.ID))
	_, err = store.GetConversation(ctx, "user-1", conv.ID)
	require.ErrorIs(t, err, db.ErrNotFound)

	// Already gone; still no error.
	require.NoError(t, store.DeleteConversation(ctx, conv.ID))
	require.NoError(t, store.DeleteConversation(ctx, 123456))
}

func TestCrisisContactSeedAndLookup(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	us, err := store.GetCrisisContact(ctx, "US")
	require.NoError(t, err)
	require.NotNil(t, us)
	require.Equal(t, "United States", us.CountryName)
	require.NotNil(t, us.PhoneNumber)
	require.Equal(t, "988", *us.PhoneNumber)
	require.NotNil(t, us.SMSNumber)
	require.Equal(t, "741741", *us.SMSNumber)
	require.True(t, us.IsActive)

	uk, err := store.GetCrisisContact(ctx, "UK")
	require.NoError(t, err)
	require.Equal(t, "Samaritans", uk.Description)
	require.Nil(t, uk.SMSNumber)

	// A second lookup must not seed again.
	again, err := store.GetCrisisContact(ctx, "US")
	require.NoError(t, err)
	require.Equal(t, us.ID, again.ID)
}

func TestCrisisContactDefaultsAndFallback(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// Empty code defaults to the fallback country.
	def, err := store.GetCrisisContact(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "US", def.CountryCode)

	// Unknown code falls back to the US row.
	unknown, err := store.GetCrisisContact(ctx, "ZZ")
	require.NoError(t, err)
	require.Equal(t, "US", unknown.CountryCode)
}

func TestCreateCrisisContact(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.CreateCrisisContact(ctx, &models.CrisisContact{
		CountryCode: "NZ",
		CountryName: "New Zealand",
		PhoneNumber: models.StringPtr("1737"),
		Description: "Need to Talk?",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.True(t, created.IsActive)

	got, err := store.GetCrisisContact(ctx, "NZ")
	require.NoError(t, err)
	require.Equal(t, "New Zealand", got.CountryName)
	require.Nil(t, got.SMSNumber)
}
