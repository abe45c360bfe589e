package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/weiawesome/wes-io-chat/internal/audit"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/storage"
)

const (
	pageSize        = 20
	minGroupMembers = 3
	maxGroupMembers = 100
	maxAttachments  = 5
	maxGroupAvatars = 3
)

type chatServiceImpl struct {
	users     repository.UserRepository
	chats     repository.ChatRepository
	messages  repository.MessageRepository
	persister Persister
	storage   storage.Storage
	urlExpiry time.Duration
	emitter   Emitter
}

func NewChatService(
	users repository.UserRepository,
	chats repository.ChatRepository,
	messages repository.MessageRepository,
	persister Persister,
	store storage.Storage,
	urlExpiry time.Duration,
	emitter Emitter,
) ChatService {
	return &chatServiceImpl{
		users:     users,
		chats:     chats,
		messages:  messages,
		persister: persister,
		storage:   store,
		urlExpiry: urlExpiry,
		emitter:   emitter,
	}
}

func (s *chatServiceImpl) CreateGroup(ctx context.Context, userID string, req *domain.NewGroupRequest) (*domain.Chat, error) {
	others := dedupe(req.Members, userID)
	if len(others) < minGroupMembers-1 {
		return nil, ErrTooFewMembers
	}
	if len(others)+1 > maxGroupMembers {
		return nil, ErrMemberLimit
	}
	if err := s.requireUsers(ctx, others); err != nil {
		return nil, err
	}

	chat := &domain.Chat{
		Name:        req.Name,
		IsGroupChat: true,
		GroupAdmin:  userID,
		Members:     append([]string{userID}, others...),
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, err
	}

	s.emitter.Emit(domain.EventAlert, chat.Members, fmt.Sprintf("Welcome to %s group", chat.Name))
	s.emitter.Emit(domain.EventRefetchChats, others, nil)
	audit.LogWithTarget(ctx, audit.ActionGroupCreated, userID, chat.ID, "group created")
	return chat, nil
}

func (s *chatServiceImpl) MyChats(ctx context.Context, userID string) ([]domain.ChatView, error) {
	chats, err := s.chats.ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, userID, chats)
}

func (s *chatServiceImpl) MyGroups(ctx context.Context, userID string) ([]domain.ChatView, error) {
	chats, err := s.chats.ListGroupsByAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, userID, chats)
}

func (s *chatServiceImpl) AddMembers(ctx context.Context, userID string, req *domain.AddMembersRequest) (*domain.Chat, error) {
	chat, err := s.adminGroup(ctx, userID, req.ChatID)
	if err != nil {
		return nil, err
	}

	var added []string
	for _, id := range dedupe(req.Members, "") {
		if !chat.HasMember(id) {
			added = append(added, id)
		}
	}
	if len(added) == 0 {
		return nil, ErrInvalidMembers
	}
	if len(chat.Members)+len(added) > maxGroupMembers {
		return nil, ErrMemberLimit
	}

	users, err := lookupUsers(ctx, s.users, added)
	if err != nil {
		return nil, err
	}
	if len(users) != len(added) {
		return nil, ErrInvalidMembers
	}

	chat.Members = append(chat.Members, added...)
	if err := s.chats.Update(ctx, chat); err != nil {
		return nil, err
	}

	names := make([]string, len(added))
	for i, id := range added {
		names[i] = users[id].FullName
	}
	s.emitter.Emit(domain.EventAlert, chat.Members, fmt.Sprintf("%s have been added in the group", strings.Join(names, ", ")))
	s.emitter.Emit(domain.EventRefetchChats, chat.Members, nil)
	audit.LogWithDetail(ctx, audit.ActionGroupChanged, userID, "added="+strings.Join(added, ","), "members added")
	return chat, nil
}

func (s *chatServiceImpl) RemoveMember(ctx context.Context, userID string, req *domain.RemoveMemberRequest) (*domain.Chat, error) {
	chat, err := s.adminGroup(ctx, userID, req.ChatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(req.UserID) || req.UserID == chat.GroupAdmin {
		return nil, ErrInvalidMembers
	}
	if len(chat.Members) <= minGroupMembers {
		return nil, ErrTooFewMembers
	}

	removed, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	previous := chat.Members
	chat.Members = chat.MembersExcept(req.UserID)
	if err := s.chats.Update(ctx, chat); err != nil {
		return nil, err
	}

	s.emitter.Emit(domain.EventAlert, chat.Members, fmt.Sprintf("%s has been removed from the group", removed.FullName))
	s.emitter.Emit(domain.EventRefetchChats, previous, nil)
	audit.LogWithDetail(ctx, audit.ActionGroupChanged, userID, "removed="+req.UserID, "member removed")
	return chat, nil
}

// LeaveGroup removes userID from a group, handing admin to the first
// remaining member when the admin leaves.
func (s *chatServiceImpl) LeaveGroup(ctx context.Context, userID, chatID string) error {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsGroupChat {
		return ErrNotGroup
	}
	if !chat.HasMember(userID) {
		return ErrNotMember
	}

	remaining := chat.MembersExcept(userID)
	if len(remaining) < minGroupMembers {
		return ErrTooFewMembers
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	chat.Members = remaining
	if chat.GroupAdmin == userID {
		chat.GroupAdmin = remaining[0]
	}
	if err := s.chats.Update(ctx, chat); err != nil {
		return err
	}

	s.emitter.Emit(domain.EventAlert, remaining, domain.ChatAlert{
		ChatID:  chat.ID,
		Message: fmt.Sprintf("User %s has left the group", user.FullName),
	})
	s.emitter.Emit(domain.EventRefetchChats, remaining, nil)
	audit.LogWithDetail(ctx, audit.ActionGroupChanged, userID, "left="+chat.ID, "member left")
	return nil
}

// SendAttachments stores files as one message and delivers it to the chat.
func (s *chatServiceImpl) SendAttachments(ctx context.Context, userID, chatID string, files []Upload) (*domain.RealtimeMessage, error) {
	if len(files) < 1 || len(files) > maxAttachments {
		return nil, ErrFileCount
	}

	chat, err := s.memberChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	sender, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	attachments := make([]domain.Attachment, 0, len(files))
	for i := range files {
		key := fmt.Sprintf("attachments/%s/%s%s", chatID, uuid.New().String(), filepath.Ext(files[i].Name))
		att, err := upload(ctx, s.storage, key, &files[i], s.urlExpiry)
		if err != nil {
			s.discard(ctx, attachments)
			return nil, err
		}
		attachments = append(attachments, att)
	}

	msg := &domain.RealtimeMessage{
		ID:          uuid.New().String(),
		Attachments: attachments,
		Sender:      sender.AsSender(),
		ChatID:      chatID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.persister.Persist(ctx, msg.Durable()); err != nil {
		s.discard(ctx, attachments)
		return nil, err
	}

	s.emitter.Emit(domain.EventNewMessage, chat.Members, domain.NewMessageEvent{ChatID: chatID, Message: msg})
	s.emitter.Emit(domain.EventNewMessageAlert, chat.Members, domain.ChatRef{ChatID: chatID})
	audit.LogWithDetail(ctx, audit.ActionSendFiles, userID, fmt.Sprintf("chat=%s files=%d", chatID, len(files)), "attachments sent")
	return msg, nil
}

// Messages returns one page of history, newest page first and oldest
// message first within the page.
func (s *chatServiceImpl) Messages(ctx context.Context, userID, chatID string, page int) (*domain.MessagePage, error) {
	if _, err := s.memberChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	msgs, total, err := s.messages.ListByChat(ctx, chatID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.SenderID)
	}
	senders, err := lookupUsers(ctx, s.users, dedupe(ids, ""))
	if err != nil {
		return nil, err
	}

	views := make([]domain.MessageView, len(msgs))
	for i, m := range msgs {
		sender := domain.Sender{ID: m.SenderID}
		if u, ok := senders[m.SenderID]; ok {
			sender = u.AsSender()
		}
		views[len(msgs)-1-i] = domain.MessageView{
			ID:          m.ID,
			Content:     m.Content,
			Attachments: m.Attachments,
			Sender:      sender,
			ChatID:      m.ChatID,
			CreatedAt:   m.CreatedAt,
		}
	}

	return &domain.MessagePage{
		Messages:   views,
		TotalPages: int((total + pageSize - 1) / pageSize),
	}, nil
}

func (s *chatServiceImpl) Details(ctx context.Context, userID, chatID string) (*domain.ChatView, error) {
	chat, err := s.memberChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, "", []*domain.Chat{chat})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *chatServiceImpl) Rename(ctx context.Context, userID, chatID, name string) (*domain.Chat, error) {
	chat, err := s.adminGroup(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	chat.Name = name
	if err := s.chats.Update(ctx, chat); err != nil {
		return nil, err
	}

	s.emitter.Emit(domain.EventRefetchChats, chat.Members, nil)
	audit.LogWithDetail(ctx, audit.ActionGroupChanged, userID, "renamed="+chat.ID, "group renamed")
	return chat, nil
}

// Delete removes a chat with its messages and stored attachments. Groups may
// only be deleted by their admin.
func (s *chatServiceImpl) Delete(ctx context.Context, userID, chatID string) error {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.IsGroupChat && chat.GroupAdmin != userID {
		return ErrForbidden
	}
	if !chat.IsGroupChat && !chat.HasMember(userID) {
		return ErrForbidden
	}

	attachments, err := s.messages.ListAttachmentsByChat(ctx, chatID)
	if err != nil {
		return err
	}
	s.discard(ctx, attachments)

	if err := s.messages.DeleteByChat(ctx, chatID); err != nil {
		return err
	}
	if err := s.chats.Delete(ctx, chatID); err != nil {
		return err
	}

	s.emitter.Emit(domain.EventRefetchChats, chat.Members, nil)
	audit.LogWithTarget(ctx, audit.ActionChatDeleted, userID, chatID, "chat deleted")
	return nil
}

func (s *chatServiceImpl) memberChat(ctx context.Context, userID, chatID string) (*domain.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(userID) {
		return nil, ErrNotMember
	}
	return chat, nil
}

func (s *chatServiceImpl) adminGroup(ctx context.Context, userID, chatID string) (*domain.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroupChat {
		return nil, ErrNotGroup
	}
	if chat.GroupAdmin != userID {
		return nil, ErrForbidden
	}
	return chat, nil
}

func (s *chatServiceImpl) requireUsers(ctx context.Context, ids []string) error {
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(users) != len(ids) {
		return ErrInvalidMembers
	}
	return nil
}

// discard deletes stored blobs, logging failures.
func (s *chatServiceImpl) discard(ctx context.Context, attachments []domain.Attachment) {
	for _, a := range attachments {
		if err := s.storage.Delete(ctx, a.PublicID); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str("key", a.PublicID).Msg("failed to delete attachment")
		}
	}
}

// views resolves member profiles. Direct chats take the name and avatar of
// the member other than viewer; a blank viewer keeps every member.
func (s *chatServiceImpl) views(ctx context.Context, viewer string, chats []*domain.Chat) ([]domain.ChatView, error) {
	var ids []string
	for _, c := range chats {
		ids = append(ids, c.Members...)
	}
	users, err := lookupUsers(ctx, s.users, dedupe(ids, ""))
	if err != nil {
		return nil, err
	}

	out := make([]domain.ChatView, len(chats))
	for i, c := range chats {
		v := domain.ChatView{
			ID:          c.ID,
			Name:        c.Name,
			IsGroupChat: c.IsGroupChat,
			GroupAdmin:  c.GroupAdmin,
			Avatars:     []string{},
			Members:     []domain.UserSummary{},
		}
		for _, id := range c.Members {
			u, ok := users[id]
			if !ok || id == viewer {
				continue
			}
			v.Members = append(v.Members, u.Summary())
			if !c.IsGroupChat && viewer != "" {
				v.Name = u.FullName
			}
			if len(v.Avatars) < maxGroupAvatars && (c.IsGroupChat || viewer != "") {
				v.Avatars = append(v.Avatars, u.Avatar.URL)
			}
		}
		out[i] = v
	}
	return out, nil
}

// dedupe drops duplicates and skip, keeping first occurrences in order.
func dedupe(ids []string, skip string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == skip {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
