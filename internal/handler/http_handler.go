package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/internal/service"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
	"github.com/weiawesome/wes-io-chat/pkg/response"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name       string
	MaxAge     time.Duration
	Production bool
}

// Stats reports live connection counts for the health check.
type Stats interface {
	ConnectedCount() int
	Online() []string
}

// Handler handles the REST API.
type Handler struct {
	users          service.UserService
	chats          service.ChatService
	authMiddleware *middleware.AuthMiddleware
	cookie         CookieConfig
	stats          Stats
}

func NewHandler(
	users service.UserService,
	chats service.ChatService,
	authMiddleware *middleware.AuthMiddleware,
	cookie CookieConfig,
	stats Stats,
) *Handler {
	if cookie.Name == "" {
		cookie.Name = middleware.DefaultCookieName
	}
	return &Handler{
		users:          users,
		chats:          chats,
		authMiddleware: authMiddleware,
		cookie:         cookie,
		stats:          stats,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.POST("/signup", h.Signup)
			users.POST("/login", h.Login)
		}

		authed := users.Group("")
		authed.Use(h.authMiddleware.RequireAuth())
		{
			authed.POST("/logout", h.Logout)
			authed.GET("/profile", h.Profile)
			authed.GET("/search", h.Search)
			authed.PUT("/send-request", h.SendRequest)
			authed.PUT("/accept-request", h.AcceptRequest)
			authed.GET("/notifications", h.Notifications)
			authed.GET("/friends", h.Friends)
		}

		chats := api.Group("/chats")
		chats.Use(h.authMiddleware.RequireAuth())
		{
			chats.POST("/new/group", h.NewGroup)
			chats.GET("/my-chats", h.MyChats)
			chats.GET("/my-groups", h.MyGroups)
			chats.PUT("/add-members", h.AddMembers)
			chats.PUT("/remove-member", h.RemoveMember)
			chats.DELETE("/leave-group/:id", h.LeaveGroup)
			chats.POST("/messages", h.SendAttachments)
			chats.GET("/messages/:id", h.Messages)
			chats.GET("/:id", h.ChatDetails)
			chats.PUT("/:id", h.RenameGroup)
			chats.DELETE("/:id", h.DeleteChat)
		}
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": h.stats.ConnectedCount(),
		"online":      len(h.stats.Online()),
	})
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	if h.cookie.Production {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(h.cookie.Name, token, maxAge, "/", "", h.cookie.Production, true)
}

func (h *Handler) Signup(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.SignupRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid signup request")
		response.BadRequest(c, err.Error())
		return
	}

	var avatar *service.Upload
	if fh, err := c.FormFile("avatar"); err == nil {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, "unreadable avatar")
			return
		}
		defer f.Close()
		avatar = toUpload(fh, f)
	}

	user, token, err := h.users.Signup(ctx, &req, avatar)
	if err != nil {
		h.fail(c, err, "failed to sign up")
		return
	}

	h.setSessionCookie(c, token, int(h.cookie.MaxAge.Seconds()))
	c.JSON(http.StatusCreated, response.Response{Success: true, Message: "User created", Data: user})
}

func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid login request")
		response.BadRequest(c, err.Error())
		return
	}

	user, token, err := h.users.Login(ctx, &req)
	if err != nil {
		h.fail(c, err, "failed to login")
		return
	}

	h.setSessionCookie(c, token, int(h.cookie.MaxAge.Seconds()))
	c.JSON(http.StatusOK, response.Response{Success: true, Message: "Welcome back, " + user.FullName, Data: user})
}

func (h *Handler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	response.Message(c, http.StatusOK, "Logged out successfully")
}

func (h *Handler) Profile(c *gin.Context) {
	user, err := h.users.Profile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.fail(c, err, "failed to get profile")
		return
	}
	response.Success(c, user)
}

func (h *Handler) Search(c *gin.Context) {
	users, err := h.users.Search(c.Request.Context(), middleware.GetUserID(c), c.Query("name"))
	if err != nil {
		h.fail(c, err, "failed to search users")
		return
	}
	response.Success(c, users)
}

func (h *Handler) SendRequest(c *gin.Context) {
	var req domain.SendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.users.SendRequest(c.Request.Context(), middleware.GetUserID(c), req.UserID); err != nil {
		h.fail(c, err, "failed to send request")
		return
	}
	response.Message(c, http.StatusOK, "Friend Request Sent")
}

func (h *Handler) AcceptRequest(c *gin.Context) {
	var req domain.AcceptRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	chat, err := h.users.AnswerRequest(c.Request.Context(), middleware.GetUserID(c), req.RequestID, *req.Accept)
	if err != nil {
		h.fail(c, err, "failed to answer request")
		return
	}
	if chat == nil {
		response.Message(c, http.StatusOK, "Friend Request Rejected")
		return
	}
	c.JSON(http.StatusOK, response.Response{Success: true, Message: "Friend Request Accepted", Data: chat})
}

func (h *Handler) Notifications(c *gin.Context) {
	notes, err := h.users.Notifications(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.fail(c, err, "failed to get notifications")
		return
	}
	response.Success(c, notes)
}

func (h *Handler) Friends(c *gin.Context) {
	friends, err := h.users.Friends(c.Request.Context(), middleware.GetUserID(c), c.Query("chatId"))
	if err != nil {
		h.fail(c, err, "failed to get friends")
		return
	}
	response.Success(c, friends)
}

func (h *Handler) NewGroup(c *gin.Context) {
	var req domain.NewGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	chat, err := h.chats.CreateGroup(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		h.fail(c, err, "failed to create group")
		return
	}
	response.Created(c, chat)
}

func (h *Handler) MyChats(c *gin.Context) {
	chats, err := h.chats.MyChats(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.fail(c, err, "failed to list chats")
		return
	}
	response.Success(c, chats)
}

func (h *Handler) MyGroups(c *gin.Context) {
	groups, err := h.chats.MyGroups(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.fail(c, err, "failed to list groups")
		return
	}
	response.Success(c, groups)
}

func (h *Handler) AddMembers(c *gin.Context) {
	var req domain.AddMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	chat, err := h.chats.AddMembers(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		h.fail(c, err, "failed to add members")
		return
	}
	response.Success(c, chat)
}

func (h *Handler) RemoveMember(c *gin.Context) {
	var req domain.RemoveMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	chat, err := h.chats.RemoveMember(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		h.fail(c, err, "failed to remove member")
		return
	}
	response.Success(c, chat)
}

func (h *Handler) LeaveGroup(c *gin.Context) {
	if err := h.chats.LeaveGroup(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		h.fail(c, err, "failed to leave group")
		return
	}
	response.Message(c, http.StatusOK, "Left the group successfully")
}

func (h *Handler) SendAttachments(c *gin.Context) {
	chatID := c.PostForm("chatId")
	if chatID == "" {
		response.BadRequest(c, "please provide chatId")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "expected a multipart form")
		return
	}

	headers := form.File["files"]
	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, "unreadable file "+fh.Filename)
			return
		}
		defer f.Close()
		uploads = append(uploads, *toUpload(fh, f))
	}

	msg, err := h.chats.SendAttachments(c.Request.Context(), middleware.GetUserID(c), chatID, uploads)
	if err != nil {
		h.fail(c, err, "failed to send attachments")
		return
	}
	response.Success(c, msg)
}

func (h *Handler) Messages(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		response.BadRequest(c, "invalid page")
		return
	}

	result, err := h.chats.Messages(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), page)
	if err != nil {
		h.fail(c, err, "failed to get messages")
		return
	}
	response.Success(c, result)
}

func (h *Handler) ChatDetails(c *gin.Context) {
	view, err := h.chats.Details(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to get chat")
		return
	}
	response.Success(c, view)
}

func (h *Handler) RenameGroup(c *gin.Context) {
	var req domain.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	chat, err := h.chats.Rename(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.Name)
	if err != nil {
		h.fail(c, err, "failed to rename group")
		return
	}
	response.Success(c, chat)
}

func (h *Handler) DeleteChat(c *gin.Context) {
	if err := h.chats.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		h.fail(c, err, "failed to delete chat")
		return
	}
	response.Message(c, http.StatusOK, "Chat deleted successfully")
}

// fail maps service and repository errors to responses. Unknown errors are
// logged and reported as 500 with msg.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrChatNotFound),
		errors.Is(err, repository.ErrRequestNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, repository.ErrEmailExists),
		errors.Is(err, repository.ErrUsernameExists),
		errors.Is(err, service.ErrRequestExists):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotMember):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrSelfRequest),
		errors.Is(err, service.ErrNotGroup),
		errors.Is(err, service.ErrInvalidMembers),
		errors.Is(err, service.ErrTooFewMembers),
		errors.Is(err, service.ErrMemberLimit),
		errors.Is(err, service.ErrFileCount):
		response.BadRequest(c, err.Error())
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg(msg)
		c.Error(err)
		response.InternalError(c, msg)
	}
}

func toUpload(fh *multipart.FileHeader, f multipart.File) *service.Upload {
	return &service.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}
}
