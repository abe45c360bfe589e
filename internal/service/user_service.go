package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/weiawesome/wes-io-chat/internal/audit"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/storage"
)

const searchLimit = 50

// userServiceImpl implements UserService.
type userServiceImpl struct {
	users     repository.UserRepository
	chats     repository.ChatRepository
	requests  repository.RequestRepository
	tokens    TokenIssuer
	storage   storage.Storage
	urlExpiry time.Duration
	emitter   Emitter
}

// NewUserService creates a new user service.
func NewUserService(
	users repository.UserRepository,
	chats repository.ChatRepository,
	requests repository.RequestRepository,
	tokens TokenIssuer,
	store storage.Storage,
	urlExpiry time.Duration,
	emitter Emitter,
) UserService {
	return &userServiceImpl{
		users:     users,
		chats:     chats,
		requests:  requests,
		tokens:    tokens,
		storage:   store,
		urlExpiry: urlExpiry,
		emitter:   emitter,
	}
}

// Signup creates an account and returns it with a session token.
func (s *userServiceImpl) Signup(ctx context.Context, req *domain.SignupRequest, avatar *Upload) (*domain.User, string, error) {
	l := log.Ctx(ctx)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		l.Error().Err(err).Msg("failed to hash password")
		return nil, "", err
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(hashedPassword),
	}

	if avatar != nil {
		att, err := upload(ctx, s.storage, fmt.Sprintf("avatars/%s%s", uuid.New().String(), filepath.Ext(avatar.Name)), avatar, s.urlExpiry)
		if err != nil {
			return nil, "", err
		}
		user.Avatar = att
	}

	if err := s.users.Create(ctx, user); err != nil {
		if user.Avatar.PublicID != "" {
			if derr := s.storage.Delete(ctx, user.Avatar.PublicID); derr != nil {
				l.Warn().Err(derr).Str("key", user.Avatar.PublicID).Msg("failed to remove orphaned avatar")
			}
		}
		return nil, "", err
	}

	token, _, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, "", err
	}

	audit.Log(ctx, audit.ActionSignup, user.ID, "user signed up")
	return user, token, nil
}

func (s *userServiceImpl) Login(ctx context.Context, req *domain.LoginRequest) (*domain.User, string, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			audit.LogWithDetail(ctx, audit.ActionLoginFailed, "", req.Username, "unknown username")
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		audit.LogWithDetail(ctx, audit.ActionLoginFailed, user.ID, req.Username, "wrong password")
		return nil, "", ErrInvalidCredentials
	}

	token, _, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, "", err
	}

	audit.Log(ctx, audit.ActionLogin, user.ID, "user logged in")
	return user, token, nil
}

func (s *userServiceImpl) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Search finds users by name who do not already share a direct chat with
// userID.
func (s *userServiceImpl) Search(ctx context.Context, userID, name string) ([]domain.UserSummary, error) {
	friends, err := s.directContacts(ctx, userID)
	if err != nil {
		return nil, err
	}

	users, err := s.users.SearchByName(ctx, name, append(friends, userID), searchLimit)
	if err != nil {
		return nil, err
	}
	return summaries(users), nil
}

func (s *userServiceImpl) SendRequest(ctx context.Context, userID, receiverID string) error {
	if userID == receiverID {
		return ErrSelfRequest
	}

	sender, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, receiverID); err != nil {
		return err
	}

	_, err = s.requests.FindBetween(ctx, userID, receiverID)
	if err == nil {
		return ErrRequestExists
	}
	if !errors.Is(err, repository.ErrRequestNotFound) {
		return err
	}

	if err := s.requests.Create(ctx, &domain.FriendRequest{SenderID: userID, ReceiverID: receiverID}); err != nil {
		return err
	}

	s.emitter.Emit(domain.EventNewRequest, []string{receiverID}, domain.FriendRequestEvent{
		Sender:  sender.AsSender(),
		Message: "sent you a friend request",
	})
	audit.LogWithTarget(ctx, audit.ActionFriendRequest, userID, receiverID, "friend request sent")
	return nil
}

func (s *userServiceImpl) AnswerRequest(ctx context.Context, userID, requestID string, accept bool) (*domain.Chat, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ReceiverID != userID {
		return nil, ErrForbidden
	}

	if !accept {
		if err := s.requests.Delete(ctx, req.ID); err != nil {
			return nil, err
		}
		audit.LogWithDetail(ctx, audit.ActionFriendAnswer, userID, domain.RequestRejected, "friend request rejected")
		return nil, nil
	}

	users, err := s.lookup(ctx, []string{req.SenderID, req.ReceiverID})
	if err != nil {
		return nil, err
	}

	chat := &domain.Chat{
		Name:    fmt.Sprintf("%s-%s", users[req.SenderID].FullName, users[req.ReceiverID].FullName),
		Members: []string{req.SenderID, req.ReceiverID},
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, err
	}
	if err := s.requests.Delete(ctx, req.ID); err != nil {
		return nil, err
	}

	s.emitter.Emit(domain.EventRefetchChats, chat.Members, nil)
	audit.LogWithDetail(ctx, audit.ActionFriendAnswer, userID, domain.RequestAccepted, "friend request accepted")
	return chat, nil
}

func (s *userServiceImpl) Notifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	reqs, err := s.requests.ListPendingForReceiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.SenderID
	}
	users, err := s.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Notification, 0, len(reqs))
	for _, r := range reqs {
		sender, ok := users[r.SenderID]
		if !ok {
			continue
		}
		out = append(out, domain.Notification{ID: r.ID, Sender: sender.Summary()})
	}
	return out, nil
}

// Friends lists the other members of userID's direct chats, skipping users
// already in chatID when it is set.
func (s *userServiceImpl) Friends(ctx context.Context, userID, chatID string) ([]domain.UserSummary, error) {
	friends, err := s.directContacts(ctx, userID)
	if err != nil {
		return nil, err
	}

	if chatID != "" {
		chat, err := s.chats.GetByID(ctx, chatID)
		if err != nil {
			return nil, err
		}
		kept := friends[:0]
		for _, id := range friends {
			if !chat.HasMember(id) {
				kept = append(kept, id)
			}
		}
		friends = kept
	}

	users, err := s.lookup(ctx, friends)
	if err != nil {
		return nil, err
	}

	out := make([]domain.UserSummary, 0, len(friends))
	for _, id := range friends {
		if u, ok := users[id]; ok {
			out = append(out, u.Summary())
		}
	}
	return out, nil
}

// directContacts returns the other member of each direct chat of userID.
func (s *userServiceImpl) directContacts(ctx context.Context, userID string) ([]string, error) {
	chats, err := s.chats.ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []string
	for _, c := range chats {
		if c.IsGroupChat {
			continue
		}
		for _, m := range c.MembersExcept(userID) {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *userServiceImpl) lookup(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	return lookupUsers(ctx, s.users, ids)
}

func lookupUsers(ctx context.Context, repo repository.UserRepository, ids []string) (map[string]*domain.User, error) {
	users, err := repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*domain.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func summaries(users []*domain.User) []domain.UserSummary {
	out := make([]domain.UserSummary, len(users))
	for i, u := range users {
		out[i] = u.Summary()
	}
	return out
}

// upload writes f under key and returns it as an attachment.
func upload(ctx context.Context, store storage.Storage, key string, f *Upload, expiry time.Duration) (domain.Attachment, error) {
	if err := store.Write(ctx, key, f.Body, f.Size, f.ContentType); err != nil {
		return domain.Attachment{}, fmt.Errorf("failed to store %s: %w", f.Name, err)
	}
	url, err := store.GetURL(ctx, key, expiry)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("failed to get url for %s: %w", key, err)
	}
	return domain.Attachment{PublicID: key, URL: url}, nil
}
