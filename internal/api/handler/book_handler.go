package handler

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"grimoire/internal/api/dto"
	"grimoire/internal/api/middleware"
	"grimoire/internal/api/service"
	"grimoire/internal/config"

	"github.com/gin-gonic/gin"
)

const requestTimeout = 5 * time.Second

type BookHandler struct {
	svc         service.BookService
	baseURL     string
	development bool
}

func NewBookHandler(svc service.BookService, cfg *config.Config) *BookHandler {
	return &BookHandler{
		svc:         svc,
		baseURL:     strings.TrimRight(cfg.PublicBaseURL, "/"),
		development: cfg.IsDevelopment(),
	}
}

func (h *BookHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	// Public routes
	rg.GET("", h.List)
	rg.GET("/bestrating", h.BestRated)
	rg.GET("/:book_id", h.Get)

	// Authenticated routes
	rg.POST("", authMW, h.Create)
	rg.PUT("/:book_id", authMW, h.Update)
	rg.DELETE("/:book_id", authMW, h.Delete)
	rg.POST("/:book_id/rating", authMW, h.Rate)
}

func (h *BookHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	books, err := h.svc.GetAll(ctx)
	if err != nil {
		respondError(c, err, h.development)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelsToBookResponses(books, h.baseURL))
}

func (h *BookHandler) BestRated(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	books, err := h.svc.BestRated(ctx)
	if err != nil {
		respondError(c, err, h.development)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelsToBookResponses(books, h.baseURL))
}

func (h *BookHandler) Get(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	book, err := h.svc.GetByID(ctx, id)
	if err != nil {
		respondError(c, err, h.development)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToBookResponse(*book, h.baseURL))
}

func (h *BookHandler) Create(c *gin.Context) {
	payload, image, ok := h.bookForm(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	book, err := h.svc.Create(ctx, middleware.UserID(c), payload.ToInput(), image)
	if err != nil {
		respondError(c, err, h.development)
		return
	}
	c.JSON(http.StatusCreated, dto.FromModelToBookResponse(*book, h.baseURL))
}

func (h *BookHandler) Update(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}

	var payload dto.BookPayload
	var image *multipart.FileHeader

	// With a new cover the request is multipart like Create; without one
	// the book document is the request body itself.
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		p, img, formOK := h.bookForm(c)
		if !formOK {
			return
		}
		payload, image = p, img
	} else if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	book, err := h.svc.Update(ctx, id, middleware.UserID(c), payload.ToInput(), image)
	if err != nil {
		respondError(c, err, h.development)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToBookResponse(*book, h.baseURL))
}

func (h *BookHandler) Delete(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.svc.Delete(ctx, id, middleware.UserID(c)); err != nil {
		respondError(c, err, h.development)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "book deleted"})
}

func (h *BookHandler) Rate(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}

	var req dto.CreateRatingDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	book, err := h.svc.Rate(ctx, id, middleware.UserID(c), req.Grade)
	if err != nil {
		respondError(c, err, h.development)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToBookResponse(*book, h.baseURL))
}

// bookForm extracts the "book" JSON form field and the optional "image"
// file from a multipart request.
func (h *BookHandler) bookForm(c *gin.Context) (dto.BookPayload, *multipart.FileHeader, bool) {
	var payload dto.BookPayload

	raw := c.PostForm("book")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing book form field"})
		return payload, nil, false
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book payload"})
		return payload, nil, false
	}

	image, err := c.FormFile("image")
	if err != nil {
		// absent file: the service decides whether that is acceptable
		image = nil
	}
	return payload, image, true
}

func bookID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("book_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
