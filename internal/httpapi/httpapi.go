// Package httpapi exposes the engine over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/gin-gonic/gin"
)

const identityKey = "gosession.identity"

// Service is the engine surface the handlers need.
type Service interface {
	Login(ctx context.Context, username, password, clientIP, userAgent string) (string, error)
	Authenticate(ctx context.Context, token string) (*goSession.Identity, error)
	Logout(ctx context.Context, token string)
	ListActiveSessions(ctx context.Context, userID string) ([]goSession.SessionInfo, error)
	ForceLogoutAll(ctx context.Context, userID string) error
}

// Options carries optional collaborators.
type Options struct {
	// Metrics, when set, is served at GET /metrics.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Handler holds the HTTP handlers.
type Handler struct {
	svc     Service
	clients *middleware.ClientResolver
	metrics http.Handler
	logger  *slog.Logger
}

// NewHandler returns a Handler. A nil clients resolver trusts no proxy headers.
func NewHandler(svc Service, clients *middleware.ClientResolver, opts Options) *Handler {
	if clients == nil {
		clients = &middleware.ClientResolver{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		svc:     svc,
		clients: clients,
		metrics: opts.Metrics,
		logger:  opts.Logger.With("component", "httpapi"),
	}
}

// Register wires every route onto r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/login", h.Login)
		// logout never fails, so it is not behind the guard
		authRoutes.POST("/logout", h.Logout)
		authRoutes.GET("/me", h.RequireIdentity(), h.Me)
	}

	admin := r.Group("/admin", h.RequireIdentity(), h.RequireAdmin())
	{
		admin.GET("/users/:id/sessions", h.ListSessions)
		admin.POST("/users/:id/logout-all", h.LogoutAll)
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type identityResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Admin     bool      `json:"admin"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sessionResponse struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
	IP           string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
}

// Health is GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "gosession",
	})
}

// Login is POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "username and password are required",
		})
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.Username, req.Password,
		h.clients.IP(c.Request), middleware.UserAgent(c.Request))
	if err != nil {
		h.loginError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handler) loginError(c *gin.Context, err error) {
	var locked *goSession.LockedError
	switch {
	case errors.As(err, &locked):
		c.JSON(http.StatusLocked, gin.H{
			"code":              "ACCOUNT_LOCKED",
			"message":           locked.Error(),
			"remaining_minutes": locked.RemainingMinutes(),
		})
	case errors.Is(err, goSession.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "INVALID_CREDENTIALS",
			"message": "invalid username or password",
		})
	case errors.Is(err, goSession.ErrAccountUnverified):
		c.JSON(http.StatusForbidden, gin.H{
			"code":    "ACCOUNT_UNVERIFIED",
			"message": "verify your e-mail address before logging in",
		})
	default:
		h.internalError(c, "login failed", err)
	}
}

// Logout is POST /auth/logout. It answers 204 whatever the token.
func (h *Handler) Logout(c *gin.Context) {
	if token, ok := middleware.BearerToken(c.GetHeader("Authorization")); ok {
		h.svc.Logout(c.Request.Context(), token)
	}
	c.Status(http.StatusNoContent)
}

// Me is GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	id := identityFrom(c)
	c.JSON(http.StatusOK, identityResponse{
		UserID:    id.UserID,
		Username:  id.Username,
		Email:     id.Email,
		Admin:     id.Admin,
		SessionID: id.SessionID,
		ExpiresAt: id.ExpiresAt,
	})
}

// ListSessions is GET /admin/users/:id/sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	userID := c.Param("id")
	sessions, err := h.svc.ListActiveSessions(c.Request.Context(), userID)
	if err != nil {
		h.internalError(c, "list sessions failed", err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:           s.ID,
			CreatedAt:    s.CreatedAt,
			LastActivity: s.LastActivity,
			ExpiresAt:    s.ExpiresAt,
			IP:           s.IP,
			UserAgent:    s.UserAgent,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":  userID,
		"sessions": out,
	})
}

// LogoutAll is POST /admin/users/:id/logout-all.
func (h *Handler) LogoutAll(c *gin.Context) {
	if err := h.svc.ForceLogoutAll(c.Request.Context(), c.Param("id")); err != nil {
		h.internalError(c, "force logout failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RequireIdentity authenticates the bearer token. Every token problem is the
// same 401.
func (h *Handler) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := middleware.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}

		id, err := h.svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, goSession.ErrStoreUnavailable) {
				h.internalError(c, "authenticate failed", err)
				c.Abort()
				return
			}
			abortUnauthorized(c)
			return
		}

		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(goSession.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequireAdmin must follow RequireIdentity.
func (h *Handler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := identityFrom(c)
		if id == nil {
			abortUnauthorized(c)
			return
		}
		if !id.Admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "FORBIDDEN",
				"message": "administrator access required",
			})
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) *goSession.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*goSession.Identity)
	return id
}

func abortUnauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    "UNAUTHORIZED",
		"message": "authentication required",
	})
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "err", err)
	if errors.Is(err, goSession.ErrStoreUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "SERVICE_UNAVAILABLE",
			"message": "try again later",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL",
		"message": "internal error",
	})
}
