package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"negaboku/internal/domain"
	"negaboku/internal/service"
)

// RelationshipHandler expone los casos de uso de relaciones.
type RelationshipHandler struct {
	logger *zap.Logger
	svc    *service.RelationshipService
}

func NewRelationshipHandler(logger *zap.Logger, svc *service.RelationshipService) *RelationshipHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelationshipHandler{logger: logger, svc: svc}
}

// GetRelationship maneja GET /relationships?source=&target=.
func (h *RelationshipHandler) GetRelationship(c *gin.Context) {
	source, target, ok := h.parsePair(c, c.Query("source"), c.Query("target"))
	if !ok {
		return
	}
	view, err := h.svc.GetRelationship(c.Request.Context(), source, target)
	if err != nil {
		h.fail(c, "get relationship failed", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetPartyRelationships maneja GET /party/relationships?members=a,b,c.
func (h *RelationshipHandler) GetPartyRelationships(c *gin.Context) {
	members, ok := h.parseMembers(c, strings.Split(c.Query("members"), ","))
	if !ok {
		return
	}
	flat, err := h.svc.PartyRelationships(c.Request.Context(), members)
	if err != nil {
		h.fail(c, "party relationships failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members, "relationships": flat})
}

// ModifyRelationship maneja POST /relationships/modify.
func (h *RelationshipHandler) ModifyRelationship(c *gin.Context) {
	var req struct {
		Source string `json:"source" binding:"required"`
		Target string `json:"target" binding:"required"`
		Delta  int    `json:"delta"`
		Reason string `json:"reason"`
		Mutual bool   `json:"mutual"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid modify relationship request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	source, target, ok := h.parsePair(c, req.Source, req.Target)
	if !ok {
		return
	}

	var (
		res service.MutationResult
		err error
	)
	if req.Mutual {
		res, err = h.svc.ModifyMutualRelationship(c.Request.Context(), source, target, req.Delta, req.Reason)
	} else {
		res, err = h.svc.ModifyRelationship(c.Request.Context(), source, target, req.Delta, req.Reason)
	}
	if err != nil {
		h.fail(c, "modify relationship failed", err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse(res))
}

// PostBattleEvent maneja POST /battle-events.
func (h *RelationshipHandler) PostBattleEvent(c *gin.Context) {
	var req struct {
		Kind   string `json:"kind" binding:"required"`
		Source string `json:"source" binding:"required"`
		Target string `json:"target" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid battle event request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	kind, err := domain.ParseBattleEventType(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	source, target, ok := h.parsePair(c, req.Source, req.Target)
	if !ok {
		return
	}

	res, err := h.svc.HandleBattleEvent(c.Request.Context(), kind, source, target)
	if err != nil {
		h.fail(c, "battle event failed", err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse(res))
}

// AnalyzeParty maneja POST /party/analysis.
func (h *RelationshipHandler) AnalyzeParty(c *gin.Context) {
	var req struct {
		Members []string `json:"members" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid party analysis request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	members, ok := h.parseMembers(c, req.Members)
	if !ok {
		return
	}
	analysis, err := h.svc.AnalyzeParty(c.Request.Context(), members)
	if err != nil {
		h.fail(c, "party analysis failed", err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// GetCharacterEvents maneja GET /characters/:id/events?limit=.
func (h *RelationshipHandler) GetCharacterEvents(c *gin.Context) {
	id, err := domain.NewCharacterID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
	}

	events, err := h.svc.EventHistory(c.Request.Context(), id, limit)
	if err != nil {
		h.fail(c, "event history failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"character": id, "events": eventsResponse(events)})
}

func (h *RelationshipHandler) parsePair(c *gin.Context, rawSource, rawTarget string) (domain.CharacterID, domain.CharacterID, bool) {
	source, err := domain.NewCharacterID(rawSource)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid source"})
		return domain.CharacterID{}, domain.CharacterID{}, false
	}
	target, err := domain.NewCharacterID(rawTarget)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target"})
		return domain.CharacterID{}, domain.CharacterID{}, false
	}
	return source, target, true
}

func (h *RelationshipHandler) parseMembers(c *gin.Context, raw []string) ([]domain.CharacterID, bool) {
	members, err := domain.ParseCharacterIDs(raw)
	if err != nil || len(members) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid members"})
		return nil, false
	}
	return members, true
}

// fail traduce errores del servicio a codigos HTTP.
func (h *RelationshipHandler) fail(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrSelfRelationship):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEventHistoryDisabled):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func mutationResponse(res service.MutationResult) gin.H {
	return gin.H{
		"forward": res.Forward,
		"reverse": res.Reverse,
		"events":  eventsResponse(res.Events),
	}
}

func eventsResponse(events []domain.DomainEvent) []gin.H {
	out := make([]gin.H, 0, len(events))
	for _, e := range events {
		out = append(out, gin.H{"kind": e.Kind(), "event": e})
	}
	return out
}
