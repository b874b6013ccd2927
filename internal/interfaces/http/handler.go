package http

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wecom-relay/internal/usecases"
)

// callbackTimeout bounds the whole pipeline behind one inbound callback,
// completion call included, so every request resolves deterministically.
const callbackTimeout = 60 * time.Second

type Handler struct {
	relay      *usecases.RelayService
	membership *usecases.MembershipUsecase
}

func NewHandler(relay *usecases.RelayService, membership *usecases.MembershipUsecase) *Handler {
	return &Handler{
		relay:      relay,
		membership: membership,
	}
}

func SetupRoutes(r *gin.Engine, relay *usecases.RelayService, membership *usecases.MembershipUsecase, auth *usecases.AuthUsecase, middleware *Middleware) {
	h := NewHandler(relay, membership)

	// Apply Security Middleware
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(1 << 20)) // 1MB max request size

	// Public Routes
	r.GET("/", h.Index)
	r.POST("/receiveWechat", h.ReceiveWechat)

	// Public Auth Routes
	authGroup := r.Group("/api/auth")
	authGroup.Use(middleware.RateLimitPerClient(5, 10))
	{
		authGroup.POST("/login", func(c *gin.Context) {
			var loginReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&loginReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			token, err := auth.Login(loginReq.Username, loginReq.Password)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
		})
	}

	// Admin-only membership management
	admin := r.Group("/")
	admin.Use(middleware.AuthRequired())
	admin.Use(middleware.AdminRequired())
	{
		admin.POST("/setMembershipLevel", h.SetMembershipLevel)
	}
}

func (h *Handler) Index(c *gin.Context) {
	c.String(http.StatusOK, "wecom-relay")
}

// ReceiveWechat handles the platform's encrypted callback. An empty body
// means either an accepted message (reply goes out-of-band) or a silently
// dropped unauthenticated callback; quota-denied senders get an encrypted
// passive reply instead.
func (h *Handler) ReceiveWechat(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), callbackTimeout)
	defer cancel()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error reading request body")
		return
	}

	reply, err := h.relay.ProcessCallback(ctx,
		c.Query("timestamp"), c.Query("nonce"), c.Query("msg_signature"), body)
	if err != nil {
		log.Printf("callback processing failed: %v", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if reply == nil {
		c.String(http.StatusOK, "")
		return
	}
	c.Data(http.StatusOK, "application/xml", reply)
}
