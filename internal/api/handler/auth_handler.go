package handler

import (
	"net/http"

	"grimoire/internal/api/dto"
	"grimoire/internal/api/middleware"
	"grimoire/internal/api/service"
	"grimoire/internal/config"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
	development bool
}

func NewAuthHandler(authService service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		development: cfg.IsDevelopment(),
	}
}

func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, limiter *middleware.RateLimiter) {
	rg.POST("/signup", limiter.Handle(), h.Signup)
	rg.POST("/login", limiter.Handle(), h.Login)
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// nothing about the created account is echoed back
	if _, err := h.authService.Signup(c.Request.Context(), req.Email, req.Password); err != nil {
		respondError(c, err, h.development)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user created"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, h.development)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		UserID: user.ID,
		Token:  token,
	})
}
