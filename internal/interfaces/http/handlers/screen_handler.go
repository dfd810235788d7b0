package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ligandscreen/internal/application/screening"
	"github.com/turtacn/ligandscreen/internal/domain/annotation"
	"github.com/turtacn/ligandscreen/internal/domain/molecule"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/internal/interfaces/http/middleware"
	"github.com/turtacn/ligandscreen/pkg/errors"
	dto "github.com/turtacn/ligandscreen/pkg/types/screening"
)

// ScreenHandlerConfig bounds request sizes.
type ScreenHandlerConfig struct {
	MaxQueries  int
	MaxBodySize int64
}

// ScreenHandler serves the screening endpoints.
type ScreenHandler struct {
	svc      *screening.Service
	resolver *annotation.Resolver
	cfg      ScreenHandlerConfig
	logger   logging.Logger
	startAt  time.Time
}

// NewScreenHandler creates a ScreenHandler.  resolver may be nil, in which
// case annotation stats are reported as zero.
func NewScreenHandler(svc *screening.Service, resolver *annotation.Resolver, cfg ScreenHandlerConfig, logger logging.Logger) *ScreenHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ScreenHandler{svc: svc, resolver: resolver, cfg: cfg, logger: logger, startAt: time.Now()}
}

// RegisterRoutes mounts the handler under r, usually the /api/v1 group.
func (h *ScreenHandler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/screen", h.Screen)
	r.GET("/screen", h.ScreenOne)
	r.GET("/corpus", h.Corpus)
	r.GET("/stats", h.Stats)
}

// Screen handles POST /screen.
func (h *ScreenHandler) Screen(c *gin.Context) {
	if h.cfg.MaxBodySize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxBodySize)
	}
	var req dto.ScreenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, errors.ErrCodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(h.cfg.MaxQueries); err != nil {
		writeAppError(c, err)
		return
	}

	inputs := make([]molecule.QueryInput, len(req.Queries))
	for i, q := range req.Queries {
		inputs[i] = toQueryInput(q)
	}
	results, err := h.svc.ScreenBatch(c.Request.Context(), inputs)
	if err != nil {
		h.screenFailed(c, err)
		return
	}

	resp := dto.ScreenResponse{Results: make([]dto.Result, len(results)), RequestID: middleware.GetRequestID(c)}
	for i, r := range results {
		resp.Results[i] = ToResult(r)
	}
	c.JSON(http.StatusOK, resp)
}

// ScreenOne handles GET /screen?smiles=...&name=...
func (h *ScreenHandler) ScreenOne(c *gin.Context) {
	smiles := strings.TrimSpace(c.Query("smiles"))
	if smiles == "" {
		writeError(c, http.StatusBadRequest, errors.ErrCodeBadRequest, "smiles query parameter is required")
		return
	}
	in := toQueryInput(dto.Query{
		Source:   c.Query("source"),
		Name:     c.Query("name"),
		Category: c.Query("category"),
		SMILES:   smiles,
	})
	res, err := h.svc.Screen(c.Request.Context(), in)
	if err != nil {
		h.screenFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ScreenResponse{Results: []dto.Result{ToResult(res)}, RequestID: middleware.GetRequestID(c)})
}

// Corpus handles GET /corpus.
func (h *ScreenHandler) Corpus(c *gin.Context) {
	ix := h.svc.Engine().Index()
	st := ix.Stats()
	c.JSON(http.StatusOK, dto.CorpusResponse{
		Source:          ix.Source(),
		Records:         ix.Len(),
		Seen:            st.Seen,
		Valid:           st.Valid,
		Invalid:         st.Invalid,
		FingerprintBits: ix.FingerprintBits(),
	})
}

// Stats handles GET /stats.
func (h *ScreenHandler) Stats(c *gin.Context) {
	es := h.svc.Engine().Stats().Snapshot()
	resp := dto.StatsResponse{
		Engine: dto.EngineStats{
			QueriesSeen:    es.QueriesSeen,
			QueriesValid:   es.QueriesValid,
			QueriesInvalid: es.QueriesInvalid,
			QueriesMatched: es.QueriesMatched,
			Comparisons:    es.Comparisons,
			Escalations:    es.Escalations,
			Fallbacks:      es.Fallbacks,
			EmptyCorpus:    es.EmptyCorpus,
			CachedQueries:  es.CachedQueries,
		},
		CachedResults: h.svc.CachedResults(),
		UptimeSeconds: time.Since(h.startAt).Seconds(),
	}
	if h.resolver != nil {
		rs := h.resolver.Stats()
		resp.Annotation = dto.AnnotationStats{
			Requested:         rs.Requested,
			CacheHits:         rs.CacheHits,
			StoreHits:         rs.StoreHits,
			PrimaryCalls:      rs.PrimaryCalls,
			PrimaryFailures:   rs.PrimaryFailures,
			SecondaryCalls:    rs.SecondaryCalls,
			SecondaryFailures: rs.SecondaryFailures,
			Resolved:          rs.Resolved,
			Unavailable:       rs.Unavailable,
			CachedEntries:     h.resolver.Cache().Len(),
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ScreenHandler) screenFailed(c *gin.Context, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusGatewayTimeout, errors.ErrCodeTimeout, "screening timed out")
	case errors.Is(err, context.Canceled):
		// The client is gone; nothing useful can be written.
		c.Abort()
	default:
		h.logger.Error("screening failed", logging.Err(err), logging.String("request_id", middleware.GetRequestID(c)))
		writeAppError(c, errors.Wrap(err, errors.ErrCodeScreeningFailed, "screening failed"))
	}
}

func toQueryInput(q dto.Query) molecule.QueryInput {
	return molecule.QueryInput{
		Source:   strings.TrimSpace(q.Source),
		Name:     strings.TrimSpace(q.Name),
		Category: strings.TrimSpace(q.Category),
		Encoding: strings.TrimSpace(q.SMILES),
	}
}

// ToResult converts an engine result into its API form.
func ToResult(r *screening.Result) dto.Result {
	out := dto.Result{
		Index: r.Index,
		Query: dto.Query{
			Source:   r.Query.Source,
			Name:     r.Query.Name,
			Category: r.Query.Category,
			SMILES:   r.Query.Encoding,
		},
		Outcome:              string(r.Outcome),
		Matches:              make([]dto.Match, len(r.Matches)),
		CandidatesAboveFloor: r.AboveFloor,
		Tier1Candidates:      r.Tier1,
		Tier2Candidates:      r.Tier2,
		Escalated:            r.Escalated,
		Comparisons:          r.Comparisons,
		ElapsedMS:            float64(r.Elapsed) / float64(time.Millisecond),
		Error:                r.Error,
	}
	for i, m := range r.Matches {
		out.Matches[i] = dto.Match{
			Rank:            m.Rank,
			PDBID:           m.Identifier,
			Score:           m.Score,
			LigandName:      m.Name,
			SMILES:          m.Encoding,
			MolecularWeight: m.MolecularWeight,
			Status:          m.Status,
			CorpusPosition:  m.Position,
			Annotation: dto.Annotation{
				Organisms: m.Annotation.Organisms,
				IsTarget:  m.Annotation.IsTarget,
				Origin:    string(m.Annotation.Origin),
			},
		}
	}
	return out
}

//Personal.AI order the ending
