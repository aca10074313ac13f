package summary

import (
	"errors"

	"github.com/accessmap/gateway/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	mgr *Manager
	log *zap.Logger
}

func NewHandler(mgr *Manager, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{mgr: mgr, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/summary", h.getSummary)
}

// GET /api/summary?place_id=...
func (h *Handler) getSummary(c *gin.Context) {
	res, err := h.mgr.GetSummary(c.Request.Context(), c.Query("place_id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			response.BadRequest(c, err.Error())
		case IsDependencyError(err):
			h.log.Error("place summary failed", zap.String("place_id", c.Query("place_id")), zap.Error(err))
			response.BadGateway(c, err)
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, res)
}
