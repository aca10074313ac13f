package review

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/accessmap/gateway/internal/models"
	"github.com/accessmap/gateway/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 50
	MaxTextLength    = 2000
)

var (
	ErrPlaceIDRequired = errors.New("place_id is required")
	ErrTextRequired    = errors.New("text is required")
	ErrTextTooLong     = fmt.Errorf("text must be at most %d characters", MaxTextLength)
)

// Store persists reviews. Reviews are append-only.
type Store interface {
	CreateReview(ctx context.Context, review *models.ReviewModel) error
	QueryReviews(ctx context.Context, placeID string, limit int) ([]models.ReviewModel, error)
}

type CreateReviewDTO struct {
	PlaceID string `json:"place_id" binding:"required"`
	Text    string `json:"text"     binding:"required"`
}

type Service struct{ store Store }

func NewService(store Store) *Service { return &Service{store: store} }

// Create validates and stores a review. The creation time is always assigned
// by the server.
func (s *Service) Create(ctx context.Context, dto *CreateReviewDTO) (*models.ReviewModel, error) {
	placeID := strings.TrimSpace(dto.PlaceID)
	text := strings.TrimSpace(dto.Text)
	if placeID == "" {
		return nil, ErrPlaceIDRequired
	}
	if text == "" {
		return nil, ErrTextRequired
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return nil, ErrTextTooLong
	}

	r := &models.ReviewModel{PlaceID: placeID, Text: text}
	if err := s.store.CreateReview(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// List returns the newest reviews of a place.
func (s *Service) List(ctx context.Context, placeID string, limit int) ([]models.ReviewModel, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, ErrPlaceIDRequired
	}
	if limit < 1 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	rows, err := s.store.QueryReviews(ctx, placeID, limit)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.ReviewModel{}
	}
	return rows, nil
}

type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/reviews")
	g.GET("", h.list)
	g.POST("", h.create)
}

// POST /api/reviews
func (h *Handler) create(c *gin.Context) {
	var dto CreateReviewDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	r, err := h.svc.Create(c.Request.Context(), &dto)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, r)
}

// GET /api/reviews?place_id=...&limit=...
func (h *Handler) list(c *gin.Context) {
	limit := parseIntOr(c.Query("limit"), DefaultListLimit)
	rows, err := h.svc.List(c.Request.Context(), c.Query("place_id"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, rows)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPlaceIDRequired), errors.Is(err, ErrTextRequired), errors.Is(err, ErrTextTooLong):
		response.BadRequest(c, err.Error())
	default:
		h.log.Error("review request failed", zap.Error(err))
		response.InternalError(c, err)
	}
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}
