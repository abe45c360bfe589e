package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-chat/internal/bridge"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/pkg/database"
	"github.com/weiawesome/wes-io-chat/pkg/jwt"
	"github.com/weiawesome/wes-io-chat/pkg/storage"
)

type emitted struct {
	Event   string
	UserIDs []string
	Data    interface{}
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recordingEmitter) Emit(event string, userIDs []string, data interface{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{Event: event, UserIDs: userIDs, Data: data})
	return len(userIDs)
}

func (r *recordingEmitter) take() []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

type fixture struct {
	users    *repository.GormUserRepository
	chats    *repository.GormChatRepository
	messages *repository.GormMessageRepository
	requests *repository.GormRequestRepository
	store    *storage.LocalStorage
	emitter  *recordingEmitter
	userSvc  UserService
	chatSvc  ChatService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(&database.Config{Driver: "sqlite", FilePath: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, domain.Models()...))

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir(), PublicURL: "/uploads"})
	require.NoError(t, err)

	tokens, err := jwt.NewManager("test-secret", time.Hour, "test")
	require.NoError(t, err)

	f := &fixture{
		users:    repository.NewGormUserRepository(db),
		chats:    repository.NewGormChatRepository(db),
		messages: repository.NewGormMessageRepository(db),
		requests: repository.NewGormRequestRepository(db),
		store:    store,
		emitter:  &recordingEmitter{},
	}
	f.userSvc = NewUserService(f.users, f.chats, f.requests, tokens, store, time.Hour, f.emitter)
	f.chatSvc = NewChatService(f.users, f.chats, f.messages, bridge.New(f.messages, nil), store, time.Hour, f.emitter)
	return f
}

func (f *fixture) user(t *testing.T, name string) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:     strings.ToLower(name),
		Email:        strings.ToLower(name) + "@example.com",
		FullName:     name,
		PasswordHash: "x",
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) direct(t *testing.T, a, b *domain.User) *domain.Chat {
	t.Helper()
	c := &domain.Chat{Name: a.FullName + "-" + b.FullName, Members: []string{a.ID, b.ID}}
	require.NoError(t, f.chats.Create(context.Background(), c))
	return c
}

func (f *fixture) group(t *testing.T, admin *domain.User, others ...*domain.User) *domain.Chat {
	t.Helper()
	ids := make([]string, len(others))
	for i, u := range others {
		ids[i] = u.ID
	}
	c, err := f.chatSvc.CreateGroup(context.Background(), admin.ID, &domain.NewGroupRequest{Name: "Team", Members: ids})
	require.NoError(t, err)
	f.emitter.take()
	return c
}

func eventNames(events []emitted) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Event
	}
	return out
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	avatar := &Upload{Name: "me.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")}
	user, token, err := f.userSvc.Signup(ctx, &domain.SignupRequest{
		FullName: "Alice", Username: "alice", Email: "alice@example.com", Password: "secret1",
	}, avatar)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, strings.HasPrefix(user.Avatar.PublicID, "avatars/"))
	assert.True(t, strings.HasSuffix(user.Avatar.PublicID, ".png"))
	assert.Equal(t, "/uploads/"+user.Avatar.PublicID, user.Avatar.URL)

	ok, err := f.store.Exists(ctx, user.Avatar.PublicID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, _, err = f.userSvc.Signup(ctx, &domain.SignupRequest{
		FullName: "Other", Username: "alice", Email: "other@example.com", Password: "secret1",
	}, nil)
	assert.ErrorIs(t, err, repository.ErrUsernameExists)

	got, token, err := f.userSvc.Login(ctx, &domain.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEmpty(t, token)

	_, _, err = f.userSvc.Login(ctx, &domain.LoginRequest{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.userSvc.Login(ctx, &domain.LoginRequest{Username: "nobody", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestFriendRequestFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, bob := f.user(t, "Alice"), f.user(t, "Bob")

	assert.ErrorIs(t, f.userSvc.SendRequest(ctx, alice.ID, alice.ID), ErrSelfRequest)

	require.NoError(t, f.userSvc.SendRequest(ctx, alice.ID, bob.ID))
	events := f.emitter.take()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventNewRequest, events[0].Event)
	assert.Equal(t, []string{bob.ID}, events[0].UserIDs)
	assert.Equal(t, domain.FriendRequestEvent{Sender: alice.AsSender(), Message: "sent you a friend request"}, events[0].Data)

	assert.ErrorIs(t, f.userSvc.SendRequest(ctx, bob.ID, alice.ID), ErrRequestExists)

	notes, err := f.userSvc.Notifications(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, alice.ID, notes[0].Sender.ID)

	_, err = f.userSvc.AnswerRequest(ctx, alice.ID, notes[0].ID, true)
	assert.ErrorIs(t, err, ErrForbidden)

	chat, err := f.userSvc.AnswerRequest(ctx, bob.ID, notes[0].ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Alice-Bob", chat.Name)
	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, chat.Members)

	events = f.emitter.take()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventRefetchChats, events[0].Event)

	notes, err = f.userSvc.Notifications(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, notes)

	friends, err := f.userSvc.Friends(ctx, alice.ID, "")
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, bob.ID, friends[0].ID)
}

func TestRejectRequestDeletesIt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, bob := f.user(t, "Alice"), f.user(t, "Bob")

	require.NoError(t, f.userSvc.SendRequest(ctx, alice.ID, bob.ID))
	notes, err := f.userSvc.Notifications(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	chat, err := f.userSvc.AnswerRequest(ctx, bob.ID, notes[0].ID, false)
	require.NoError(t, err)
	assert.Nil(t, chat)

	_, err = f.requests.GetByID(ctx, notes[0].ID)
	assert.ErrorIs(t, err, repository.ErrRequestNotFound)
}

func TestSearchExcludesSelfAndFriends(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	anna := f.user(t, "Anna")
	f.user(t, "Andy")
	f.direct(t, alice, anna)

	found, err := f.userSvc.Search(ctx, alice.ID, "an")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Andy", found[0].FullName)
}

func TestFriendsExcludesChatMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, b, c, d := f.user(t, "A"), f.user(t, "B"), f.user(t, "C"), f.user(t, "D")
	f.direct(t, a, b)
	f.direct(t, a, c)
	f.direct(t, a, d)
	g := f.group(t, a, b, c)

	friends, err := f.userSvc.Friends(ctx, a.ID, g.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, d.ID, friends[0].ID)
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, b, c := f.user(t, "A"), f.user(t, "B"), f.user(t, "C")

	_, err := f.chatSvc.CreateGroup(ctx, a.ID, &domain.NewGroupRequest{Name: "Solo", Members: []string{b.ID, a.ID}})
	assert.ErrorIs(t, err, ErrTooFewMembers)

	_, err = f.chatSvc.CreateGroup(ctx, a.ID, &domain.NewGroupRequest{Name: "Ghosts", Members: []string{b.ID, "ghost"}})
	assert.ErrorIs(t, err, ErrInvalidMembers)

	chat, err := f.chatSvc.CreateGroup(ctx, a.ID, &domain.NewGroupRequest{Name: "Team", Members: []string{b.ID, c.ID}})
	require.NoError(t, err)
	assert.Equal(t, a.ID, chat.GroupAdmin)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, chat.Members)

	events := f.emitter.take()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventAlert, events[0].Event)
	assert.Equal(t, "Welcome to Team group", events[0].Data)
	assert.Equal(t, chat.Members, events[0].UserIDs)
	assert.Equal(t, domain.EventRefetchChats, events[1].Event)
	assert.Equal(t, []string{b.ID, c.ID}, events[1].UserIDs)

	groups, err := f.chatSvc.MyGroups(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Members, 2)
	assert.Len(t, groups[0].Avatars, 2)
}

func TestMyChatsNamesDirectChatsAfterPeer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, b := f.user(t, "A"), f.user(t, "B")
	f.direct(t, a, b)

	chats, err := f.chatSvc.MyChats(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "B", chats[0].Name)
	require.Len(t, chats[0].Members, 1)
	assert.Equal(t, b.ID, chats[0].Members[0].ID)
}

func TestGroupMembership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, b, c, d := f.user(t, "A"), f.user(t, "B"), f.user(t, "C"), f.user(t, "D")
	g := f.group(t, a, b, c)

	_, err := f.chatSvc.AddMembers(ctx, b.ID, &domain.AddMembersRequest{ChatID: g.ID, Members: []string{d.ID}})
	assert.ErrorIs(t, err, ErrForbidden)

	chat, err := f.chatSvc.AddMembers(ctx, a.ID, &domain.AddMembersRequest{ChatID: g.ID, Members: []string{d.ID, b.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID, d.ID}, chat.Members)
	events := f.emitter.take()
	assert.Equal(t, []string{domain.EventAlert, domain.EventRefetchChats}, eventNames(events))
	assert.Equal(t, "D have been added in the group", events[0].Data)

	chat, err = f.chatSvc.RemoveMember(ctx, a.ID, &domain.RemoveMemberRequest{ChatID: g.ID, UserID: d.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, chat.Members)
	events = f.emitter.take()
	require.Len(t, events, 2)
	assert.Equal(t, chat.Members, events[0].UserIDs)
	assert.Contains(t, events[1].UserIDs, d.ID)

	_, err = f.chatSvc.RemoveMember(ctx, a.ID, &domain.RemoveMemberRequest{ChatID: g.ID, UserID: c.ID})
	assert.ErrorIs(t, err, ErrTooFewMembers)

	assert.ErrorIs(t, f.chatSvc.LeaveGroup(ctx, b.ID, g.ID), ErrTooFewMembers)
}

func TestAdminLeavingHandsOverGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, b, c, d := f.user(t, "A"), f.user(t, "B"), f.user(t, "C"), f.user(t, "D")
	g := f.group(t, a, b, c, d)

	require.NoError(t, f.chatSvc.LeaveGroup(ctx, a.ID, g.ID))

	chat, err := f.chats.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, chat.GroupAdmin)
	assert.Equal(t, []string{b.ID, c.ID, d.ID}, chat.Members)

	events := f.emitter.take()
	require.Len(t, events, 2)
	assert.Equal(t, domain.ChatAlert{ChatID: g.ID, Message: "User A has left the group"}, events[0].Data)
}

func TestRenameRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, b, c := f.user(t, "A"), f.user(t, "B"), f.user(t, "C")
	g := f.group(t, a, b, c)

	_, err := f.chatSvc.Rename(ctx, b.ID, g.ID, "Nope")
	assert.ErrorIs(t, err, ErrForbidden)

	chat, err := f.chatSvc.Rename(ctx, a.ID, g.ID, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", chat.Name)

	direct := f.direct(t, a, b)
	_, err = f.chatSvc.Rename(ctx, a.ID, direct.ID, "x")
	assert.ErrorIs(t, err, ErrNotGroup)
}

func TestSendAttachmentsAndHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, b, c := f.user(t, "A"), f.user(t, "B"), f.user(t, "C")
	chat := f.direct(t, a, b)

	_, err := f.chatSvc.SendAttachments(ctx, a.ID, chat.ID, nil)
	assert.ErrorIs(t, err, ErrFileCount)

	files := []Upload{{Name: "x.txt", ContentType: "text/plain", Size: 1, Body: strings.NewReader("x")}}
	_, err = f.chatSvc.SendAttachments(ctx, c.ID, chat.ID, files)
	assert.ErrorIs(t, err, ErrNotMember)

	files = []Upload{
		{Name: "x.txt", ContentType: "text/plain", Size: 1, Body: strings.NewReader("x")},
		{Name: "y.jpg", ContentType: "image/jpeg", Size: 1, Body: strings.NewReader("y")},
	}
	msg, err := f.chatSvc.SendAttachments(ctx, a.ID, chat.ID, files)
	require.NoError(t, err)
	require.Len(t, msg.Attachments, 2)
	assert.True(t, strings.HasPrefix(msg.Attachments[0].PublicID, "attachments/"+chat.ID+"/"))

	events := f.emitter.take()
	assert.Equal(t, []string{domain.EventNewMessage, domain.EventNewMessageAlert}, eventNames(events))
	assert.Equal(t, chat.Members, events[0].UserIDs)

	for i := 0; i < 22; i++ {
		require.NoError(t, f.messages.Create(ctx, &domain.Message{Content: fmt.Sprintf("m%02d", i), SenderID: b.ID, ChatID: chat.ID}))
		time.Sleep(time.Millisecond)
	}

	page, err := f.chatSvc.Messages(ctx, a.ID, chat.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Messages, 20)
	assert.Equal(t, "m02", page.Messages[0].Content)
	assert.Equal(t, "m21", page.Messages[19].Content)
	assert.Equal(t, "B", page.Messages[19].Sender.FullName)

	page, err = f.chatSvc.Messages(ctx, a.ID, chat.ID, 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
	assert.Len(t, page.Messages[0].Attachments, 2)

	_, err = f.chatSvc.Messages(ctx, c.ID, chat.ID, 1)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestDeleteChatRemovesAttachments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, b, c := f.user(t, "A"), f.user(t, "B"), f.user(t, "C")
	chat := f.direct(t, a, b)

	msg, err := f.chatSvc.SendAttachments(ctx, a.ID, chat.ID, []Upload{{Name: "x.txt", Size: 1, Body: strings.NewReader("x")}})
	require.NoError(t, err)
	f.emitter.take()

	assert.ErrorIs(t, f.chatSvc.Delete(ctx, c.ID, chat.ID), ErrForbidden)
	require.NoError(t, f.chatSvc.Delete(ctx, b.ID, chat.ID))

	ok, err := f.store.Exists(ctx, msg.Attachments[0].PublicID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.chats.GetByID(ctx, chat.ID)
	assert.ErrorIs(t, err, repository.ErrChatNotFound)

	events := f.emitter.take()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventRefetchChats, events[0].Event)
}
