package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.New(&database.Config{Driver: "sqlite", FilePath: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, domain.Models()...))
	return db
}

func createUser(t *testing.T, repo *GormUserRepository, username, fullName string) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		FullName:     fullName,
		PasswordHash: "hash",
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))

	alice := createUser(t, repo, "alice", "Alice Liddell")
	bob := createUser(t, repo, "bob", "Bob Builder")
	assert.NotEmpty(t, alice.ID)
	assert.False(t, alice.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", got.FullName)

	got, err = repo.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = repo.Create(ctx, &domain.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrUsernameExists)

	users, err := repo.GetByIDs(ctx, []string{alice.ID, bob.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	found, err := repo.SearchByName(ctx, "LIDD", nil, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, alice.ID, found[0].ID)

	found, err = repo.SearchByName(ctx, "", []string{alice.ID}, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, bob.ID, found[0].ID)
}

func TestChatRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormChatRepository(newTestDB(t))

	group := &domain.Chat{Name: "team", IsGroupChat: true, GroupAdmin: "a", Members: []string{"a", "b", "c"}}
	require.NoError(t, repo.Create(ctx, group))
	direct := &domain.Chat{Name: "a-d", Members: []string{"a", "d"}}
	require.NoError(t, repo.Create(ctx, direct))

	got, err := repo.GetByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got.Members)
	assert.True(t, got.IsGroupChat)

	chats, err := repo.ListByMember(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, chats, 2)

	chats, err = repo.ListByMember(ctx, "d")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, direct.ID, chats[0].ID)

	groups, err := repo.ListGroupsByAdmin(ctx, "a")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, group.ID, groups[0].ID)

	got.Name = "renamed"
	got.GroupAdmin = "b"
	got.Members = []string{"b", "c", "e"}
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.GetByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, "b", got.GroupAdmin)
	assert.Equal(t, []string{"b", "c", "e"}, got.Members)

	assert.ErrorIs(t, repo.Update(ctx, &domain.Chat{ID: "missing"}), ErrChatNotFound)

	require.NoError(t, repo.Delete(ctx, group.ID))
	_, err = repo.GetByID(ctx, group.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)
	chats, err = repo.ListByMember(ctx, "e")
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestMessageRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormMessageRepository(newTestDB(t))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		msg := &domain.Message{
			Content:   fmt.Sprintf("m%d", i),
			SenderID:  "a",
			ChatID:    "c1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, msg))
		assert.NotEmpty(t, msg.ID)
	}
	withFile := &domain.Message{
		SenderID:    "b",
		ChatID:      "c1",
		Attachments: []domain.Attachment{{PublicID: "attachments/c1/x.png", URL: "/uploads/attachments/c1/x.png"}},
		CreatedAt:   base.Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, withFile))
	require.NoError(t, repo.Create(ctx, &domain.Message{Content: "other", SenderID: "a", ChatID: "c2"}))

	page, total, err := repo.ListByChat(ctx, "c1", 0, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 6, total)
	require.Len(t, page, 3)
	assert.Equal(t, withFile.ID, page[0].ID)
	assert.Equal(t, "m4", page[1].Content)
	assert.Equal(t, "m3", page[2].Content)
	assert.Empty(t, page[1].Attachments)

	attachments, err := repo.ListAttachmentsByChat(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, withFile.Attachments, attachments)

	require.NoError(t, repo.DeleteByChat(ctx, "c1"))
	_, total, err = repo.ListByChat(ctx, "c1", 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestRequestRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormRequestRepository(newTestDB(t))

	req := &domain.FriendRequest{SenderID: "a", ReceiverID: "b"}
	require.NoError(t, repo.Create(ctx, req))
	assert.Equal(t, domain.RequestPending, req.Status)

	got, err := repo.FindBetween(ctx, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	_, err = repo.FindBetween(ctx, "a", "c")
	assert.ErrorIs(t, err, ErrRequestNotFound)

	pending, err := repo.ListPendingForReceiver(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, repo.Delete(ctx, req.ID))
	assert.ErrorIs(t, repo.Delete(ctx, req.ID), ErrRequestNotFound)
	_, err = repo.GetByID(ctx, req.ID)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}
