package places

import (
	"errors"

	"github.com/accessmap/gateway/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

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
	rg.GET("/places", h.search)
	rg.GET("/directions", h.directions)
}

// GET /api/places?query=...
func (h *Handler) search(c *gin.Context) {
	places, err := h.svc.Search(c.Request.Context(), c.Query("query"))
	if err != nil {
		h.fail(c, "place search failed", err)
		return
	}
	response.OK(c, places)
}

// GET /api/directions?origin=...&destination=...&waypoint=...
func (h *Handler) directions(c *gin.Context) {
	route, err := h.svc.Directions(c.Request.Context(), c.Query("origin"), c.Query("destination"), c.Query("waypoint"))
	if err != nil {
		h.fail(c, "directions failed", err)
		return
	}
	response.OK(c, route)
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, ErrQueryRequired), errors.Is(err, ErrEndpointsRequired):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNoRoute):
		response.NotFoundMsg(c, err.Error())
	case errors.Is(err, ErrNotConfigured):
		response.ServiceUnavailable(c, err.Error())
	default:
		h.log.Error(msg, zap.Error(err))
		response.InternalError(c, err)
	}
}
