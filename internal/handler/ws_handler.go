package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-chat/internal/config"
	"github.com/weiawesome/wes-io-chat/internal/hub"
	"github.com/weiawesome/wes-io-chat/internal/router"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
	"github.com/weiawesome/wes-io-chat/pkg/response"
)

type WSHandler struct {
	router     *router.Router
	wsCfg      config.WebSocketConfig
	cookieName string
	upgrader   websocket.Upgrader
}

func NewWSHandler(r *router.Router, wsCfg config.WebSocketConfig, cookieName string, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		router:     r,
		wsCfg:      wsCfg,
		cookieName: cookieName,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker allows requests without an Origin header, origins listed in
// allowed, and any origin when allowed contains "*".
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	_, wildcard := set["*"]

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HandleWebSocket authenticates the handshake, upgrades the connection and
// starts its pumps.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	token := middleware.TokenFromRequest(c.Request, h.cookieName)
	user, err := h.router.Authenticate(ctx, token)
	if err != nil {
		l.Warn().Err(err).Msg("websocket handshake rejected")
		response.Unauthorized(c, "please login to access this route")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), conn, h.wsCfg)
	connCtx := log.WithConnection(context.WithoutCancel(ctx), client.ID, user.ID)

	if err := h.router.Attach(connCtx, client, user); err != nil {
		l.Error().Err(err).Msg("failed to attach connection")
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(
		func(cl *hub.Client, msg []byte) { h.router.Handle(connCtx, cl, msg) },
		func(cl *hub.Client) { h.router.Detach(connCtx, cl) },
	)
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}
