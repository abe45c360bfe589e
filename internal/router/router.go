package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/weiawesome/wes-io-chat/internal/audit"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/hub"
	"github.com/weiawesome/wes-io-chat/pkg/log"
)

// Authenticator resolves a handshake credential to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// Persister durably stores a message after it was broadcast.
type Persister interface {
	Persist(ctx context.Context, msg *domain.Message) error
}

type handlerFunc func(ctx context.Context, c *hub.Client, data json.RawMessage) error

// Router drives each connection through authentication, inbound event
// dispatch and disconnect.
type Router struct {
	hub       *hub.Hub
	auth      Authenticator
	persister Persister
	handlers  map[string]handlerFunc
	now       func() time.Time
}

func New(h *hub.Hub, auth Authenticator, persister Persister) *Router {
	r := &Router{
		hub:       h,
		auth:      auth,
		persister: persister,
		now:       time.Now,
	}
	r.handlers = map[string]handlerFunc{
		domain.EventNewMessage:  r.handleNewMessage,
		domain.EventStartTyping: r.typingHandler(domain.EventStartTyping),
		domain.EventStopTyping:  r.typingHandler(domain.EventStopTyping),
		domain.EventChatJoined:  r.handleChatJoined,
		domain.EventChatLeft:    r.handleChatLeft,
	}
	return r
}

// Authenticate verifies the handshake token. Failures wrap
// domain.ErrAuthFailure.
func (r *Router) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	user, err := r.auth.Authenticate(ctx, token)
	if err != nil {
		audit.LogWithDetail(ctx, audit.ActionAuthFailed, "", err.Error(), "websocket handshake rejected")
		if !errors.Is(err, domain.ErrAuthFailure) {
			err = fmt.Errorf("%w: %v", domain.ErrAuthFailure, err)
		}
		return nil, err
	}
	return user, nil
}

// Attach binds user to the connection and makes it addressable.
func (r *Router) Attach(ctx context.Context, c *hub.Client, user *domain.User) error {
	if !c.Session.Authenticate(user) {
		return fmt.Errorf("connection %s is %s", c.ID, c.Session.State())
	}
	r.hub.Register(user.ID, c)
	audit.Log(ctx, audit.ActionConnect, user.ID, "websocket connected")
	return nil
}

// Handle decodes one inbound frame and dispatches it. Frames that fail are
// logged and dropped; nothing is reported back to the sender.
func (r *Router) Handle(ctx context.Context, c *hub.Client, raw []byte) {
	l := log.Ctx(ctx)

	if !c.Session.IsAuthenticated() {
		l.Warn().Msg("dropping frame on unauthenticated connection")
		return
	}

	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		l.Warn().Err(fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)).Msg("dropping frame")
		return
	}

	handler, ok := r.handlers[env.Event]
	if !ok {
		l.Debug().Str(log.FieldEvent, env.Event).Msg("ignoring unknown event")
		return
	}

	if err := handler(ctx, c, env.Data); err != nil {
		evt := l.Error()
		if errors.Is(err, domain.ErrMalformedEvent) {
			evt = l.Warn()
		}
		evt.Err(err).Str(log.FieldEvent, env.Event).Msg("event handling failed")
	}
}

// Detach closes the session and, when the connection is still the user's
// current one, clears its registry and presence entries.
func (r *Router) Detach(ctx context.Context, c *hub.Client) {
	userID := c.UserID()
	if !c.Session.Close() || userID == "" {
		return
	}

	released := r.hub.Disconnect(userID, c)
	audit.LogWithDetail(ctx, audit.ActionDisconnect, userID, fmt.Sprintf("released=%t", released), "websocket disconnected")
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", domain.ErrMalformedEvent)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	return nil
}

func (r *Router) handleNewMessage(ctx context.Context, c *hub.Client, data json.RawMessage) error {
	var p domain.NewMessagePayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if len(p.Members) == 0 {
		return fmt.Errorf("%w: please provide members", domain.ErrMalformedEvent)
	}
	if p.ChatID == "" {
		return fmt.Errorf("%w: missing chatId", domain.ErrMalformedEvent)
	}

	sender := c.Session.User()
	msg := &domain.RealtimeMessage{
		ID:        uuid.NewString(),
		Content:   p.Message,
		Sender:    sender.AsSender(),
		ChatID:    p.ChatID,
		CreatedAt: r.now().UTC(),
	}

	n := r.hub.Emit(domain.EventNewMessage, p.Members, domain.NewMessageEvent{ChatID: p.ChatID, Message: msg})
	r.hub.Emit(domain.EventNewMessageAlert, p.Members, domain.ChatRef{ChatID: p.ChatID})

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldChatID, p.ChatID).Int(log.FieldTargets, n).Msg("message broadcast")

	if err := r.persister.Persist(context.WithoutCancel(ctx), msg.Durable()); err != nil {
		return err
	}
	audit.LogWithTarget(ctx, audit.ActionSendMessage, sender.ID, p.ChatID, "message sent")
	return nil
}

func (r *Router) typingHandler(event string) handlerFunc {
	return func(ctx context.Context, c *hub.Client, data json.RawMessage) error {
		var p domain.TypingPayload
		if err := decode(data, &p); err != nil {
			return err
		}
		r.hub.EmitExcept(event, p.Members, domain.ChatRef{ChatID: p.ChatID}, c)
		return nil
	}
}

func (r *Router) handleChatJoined(ctx context.Context, c *hub.Client, data json.RawMessage) error {
	userID, members, err := presencePayload(c, data)
	if err != nil {
		return err
	}
	r.hub.Join(userID, members)
	return nil
}

func (r *Router) handleChatLeft(ctx context.Context, c *hub.Client, data json.RawMessage) error {
	userID, members, err := presencePayload(c, data)
	if err != nil {
		return err
	}
	r.hub.Leave(userID, members)
	return nil
}

// presencePayload returns the connection's own user. A payload naming a
// different user is rejected.
func presencePayload(c *hub.Client, data json.RawMessage) (string, []string, error) {
	var p domain.PresencePayload
	if err := decode(data, &p); err != nil {
		return "", nil, err
	}
	userID := c.UserID()
	if p.UserID != "" && p.UserID != userID {
		return "", nil, fmt.Errorf("%w: userId %s does not match connection", domain.ErrMalformedEvent, p.UserID)
	}
	return userID, p.Members, nil
}
