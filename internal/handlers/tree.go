package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tedgoddard/Stanford/internal/archive"
	"github.com/tedgoddard/Stanford/internal/cache"
	"github.com/tedgoddard/Stanford/internal/eventbus"
	"github.com/tedgoddard/Stanford/internal/middleware"
	"github.com/tedgoddard/Stanford/internal/parse"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/tedgoddard/Stanford/internal/handlers")

// Parser runs parse requests. *parse.Engine implements it.
type Parser interface {
	Parse(ctx context.Context, req parse.Request) (*parse.Response, error)
	ParseSimple(ctx context.Context, text string) (*parse.Simple, error)
}

// Archive stores full responses. *archive.Store implements it.
type Archive interface {
	Save(ctx context.Context, req parse.Request, resp *parse.Response, requestID string) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*archive.Record, error)
}

// TreeOptions carries the optional collaborators of TreeHandler. Nil
// fields are skipped.
type TreeOptions struct {
	Cache   *cache.Cache
	Archive Archive
	Events  *eventbus.Notifier
}

// TreeHandler serves the parse endpoints.
type TreeHandler struct {
	engine  Parser
	cache   *cache.Cache
	archive Archive
	events  *eventbus.Notifier
	logger  *zap.Logger
}

// NewTreeHandler creates a new parse handler
func NewTreeHandler(engine Parser, opts TreeOptions, logger *zap.Logger) *TreeHandler {
	return &TreeHandler{
		engine:  engine,
		cache:   opts.Cache,
		archive: opts.Archive,
		events:  opts.Events,
		logger:  logger,
	}
}

// ParseRequest is the body of POST /tree/ and POST /api/v1/parse.
type ParseRequest struct {
	Text    string   `json:"text" example:"The dog runs."`
	PosTags []string `json:"posTags,omitempty" example:"NN,VB"`
}

// ArchivedResponse is a full parse response with the id it was archived under.
type ArchivedResponse struct {
	*parse.Response
	ParseID string `json:"parse_id,omitempty"`
}

// Simple returns the PCFG tree and dependencies for the path text.
//
// @Summary Minimal parse
// @Tags parse
// @Produce json
// @Param text path string true "sentence to parse"
// @Success 200 {object} parse.Simple
// @Failure 400 {object} middleware.APIError
// @Failure 422 {object} middleware.APIError
// @Failure 503 {object} middleware.APIError
// @Router /tree/{text} [get]
func (h *TreeHandler) Simple(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "Tree.Simple")
	defer span.End()

	resp, err := h.engine.ParseSimple(ctx, c.Param("text"))
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Full runs every strategy and returns the arbitrated response.
//
// @Summary Full parse
// @Tags parse
// @Accept json
// @Produce json
// @Param request body ParseRequest true "text and optional tag overrides"
// @Success 200 {object} parse.Response
// @Failure 400 {object} middleware.APIError
// @Failure 422 {object} middleware.APIError
// @Failure 503 {object} middleware.APIError
// @Router /tree/ [post]
func (h *TreeHandler) Full(c *gin.Context) {
	resp, _, ok := h.run(c, false)
	if ok {
		c.JSON(http.StatusOK, resp)
	}
}

// ParseV1 is Full with archiving.
//
// @Summary Full parse, archived
// @Tags parse
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body ParseRequest true "text and optional tag overrides"
// @Success 200 {object} ArchivedResponse
// @Failure 400 {object} middleware.APIError
// @Failure 401 {object} middleware.APIError
// @Failure 422 {object} middleware.APIError
// @Failure 429 {object} middleware.APIError
// @Failure 503 {object} middleware.APIError
// @Router /api/v1/parse [post]
func (h *TreeHandler) ParseV1(c *gin.Context) {
	resp, parseID, ok := h.run(c, true)
	if ok {
		c.JSON(http.StatusOK, ArchivedResponse{Response: resp, ParseID: parseID})
	}
}

func (h *TreeHandler) run(c *gin.Context, archived bool) (*parse.Response, string, bool) {
	ctx, span := tracer.Start(c.Request.Context(), "Tree.Full")
	defer span.End()

	var body ParseRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.RespondErrorWithDetails(c, http.StatusBadRequest, middleware.ErrCodeBadRequest,
			"request body must be {\"text\": string, \"posTags\": [string]}", err.Error())
		return nil, "", false
	}
	req := parse.Request{Text: body.Text, Overrides: parse.TagOverrides(body.PosTags)}
	span.SetAttributes(attribute.Int("parse.text_length", len(req.Text)), attribute.Int("parse.pos_tags", len(req.Overrides)))

	resp, cached := h.cache.Get(ctx, req)
	if !cached {
		var err error
		resp, err = h.engine.Parse(ctx, req)
		if err != nil {
			span.RecordError(err)
			h.respondError(c, err)
			return nil, "", false
		}
		if resp.Complete {
			if err := h.cache.Put(ctx, req, resp); err != nil {
				h.logger.Warn("failed to cache parse", zap.Error(err))
			}
		}
	}
	span.SetAttributes(attribute.Bool("parse.cached", cached))

	var parseID string
	if archived && h.archive != nil {
		id, err := h.archive.Save(ctx, req, resp, middleware.GetRequestID(c))
		if err != nil {
			h.logger.Error("failed to archive parse", zap.Error(err))
		} else {
			parseID = id.String()
		}
	}

	strategies := make([]string, len(resp.Alternates))
	for i, alt := range resp.Alternates {
		strategies[i] = alt.Strategy
	}
	h.events.ParseCompleted(eventbus.ParseCompleted{
		ParseID:    parseID,
		RequestID:  middleware.GetRequestID(c),
		Text:       req.Text,
		Strategy:   resp.Strategy,
		Strategies: strategies,
		Overlay:    req.Overrides.Active(),
		Cached:     cached,
	})
	return resp, parseID, true
}

// GetParse returns an archived parse.
//
// @Summary Archived parse
// @Tags parse
// @Produce json
// @Security Bearer
// @Param id path string true "parse id"
// @Success 200 {object} archive.Record
// @Failure 400 {object} middleware.APIError
// @Failure 404 {object} middleware.APIError
// @Router /api/v1/parses/{id} [get]
func (h *TreeHandler) GetParse(c *gin.Context) {
	if h.archive == nil {
		middleware.NotFound(c, "parse archive is not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.BadRequest(c, "invalid parse id")
		return
	}

	rec, err := h.archive.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			middleware.NotFound(c, "parse not found")
			return
		}
		h.logger.Error("failed to load parse", zap.String("id", id.String()), zap.Error(err))
		middleware.InternalError(c, "failed to load parse")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *TreeHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, parse.ErrInvalidRequest):
		middleware.BadRequest(c, err.Error())
	case errors.Is(err, parse.ErrModelsUnavailable):
		h.logger.Error("models unavailable", zap.Error(err))
		middleware.ModelUnavailable(c)
	case errors.Is(err, parse.ErrAllStrategiesFailed), errors.Is(err, parse.ErrNoCanonicalTree):
		h.logger.Warn("no parse produced", zap.Error(err))
		middleware.NoParse(c, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		middleware.RespondError(c, http.StatusGatewayTimeout, middleware.ErrCodeInternalError, "parse did not finish in time")
	default:
		h.logger.Error("parse failed", zap.Error(err))
		middleware.InternalError(c, "parse failed")
	}
}
