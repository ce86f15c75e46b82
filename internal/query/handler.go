package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"frameworks/lookout/internal/consult"
	"frameworks/lookout/internal/metering"
	"frameworks/lookout/pkg/logging"
	"frameworks/lookout/pkg/search"
)

// Mode selects the response shape for a query request.
type Mode int

const (
	ModeDecision Mode = iota
	ModeComplete
	ModeSummarize
)

func (m Mode) String() string {
	switch m {
	case ModeDecision:
		return "decide"
	case ModeComplete:
		return "complete"
	case ModeSummarize:
		return "summarize"
	default:
		return "unknown"
	}
}

// Consultant classifies queries and summarizes search results. The
// consultation engine is the production implementation.
type Consultant interface {
	Consult(ctx context.Context, query string) (consult.Verdict, error)
	Summarize(ctx context.Context, prompt string) (string, error)
}

// QueryHandler turns classification verdicts into the three response
// flavors. It is the sole place where failures become HTTP status + body.
type QueryHandler struct {
	Engine     Consultant
	Defaults   search.Defaults
	Restricted bool
	Usage      *metering.Publisher
	Logger     logging.Logger
}

func NewQueryHandler(engine Consultant, defaults search.Defaults, restricted bool, usage *metering.Publisher, logger logging.Logger) *QueryHandler {
	return &QueryHandler{
		Engine:     engine,
		Defaults:   defaults,
		Restricted: restricted,
		Usage:      usage,
		Logger:     logger,
	}
}

// RegisterRoutes attaches the query routes plus the echo liveness probe
// and the 501 fallback for unrecognized paths.
func RegisterRoutes(router *gin.Engine, handler *QueryHandler) {
	router.POST("/query/decide", handler.HandleDecide)
	router.POST("/query/complete", handler.HandleComplete)
	router.POST("/query/summarize", handler.HandleSummarize)
	router.GET("/echo", func(c *gin.Context) {
		c.String(http.StatusOK, "echo test")
	})
	router.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotImplemented, "501 Not Implemented")
	})
}

func (h *QueryHandler) HandleDecide(c *gin.Context)    { h.handle(c, ModeDecision) }
func (h *QueryHandler) HandleComplete(c *gin.Context)  { h.handle(c, ModeComplete) }
func (h *QueryHandler) HandleSummarize(c *gin.Context) { h.handle(c, ModeSummarize) }

func (h *QueryHandler) handle(c *gin.Context, mode Mode) {
	startedAt := time.Now()

	var (
		backendLabel string
		decision     bool
		resultCount  int
	)
	defer func() {
		if err := h.Usage.PublishQueryEvent(metering.QueryEvent{
			Mode:        mode.String(),
			Backend:     backendLabel,
			Decision:    decision,
			ResultCount: resultCount,
			DurationMs:  time.Since(startedAt).Milliseconds(),
			Status:      c.Writer.Status(),
		}); err != nil {
			h.Logger.WithError(err).Warn("Failed to publish query usage event")
		}
	}()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error while converting request body into bytes: %s\n", err.Error())
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		c.String(http.StatusInternalServerError, "Error while converting request body into json object: %s", err.Error())
		return
	}

	rawValue, present := payload["search_config"]
	if !present {
		c.String(http.StatusBadRequest, "Unable to extract search_config object from request.\n")
		return
	}
	// A non-object search_config behaves like an empty one.
	rawConfig, _ := rawValue.(map[string]any)

	backendName, _ := payload["backend"].(string)
	backend := search.ParseBackend(backendName)

	if h.Restricted {
		if backend == search.BackendLocal {
			c.String(http.StatusBadRequest, "The \"local_search_server\" backend is not available on this server.\n")
			return
		}
		if mode == ModeSummarize {
			c.String(http.StatusBadRequest, "Summary generation endpoint is not available on this server.\n")
			return
		}
	}

	cfg, err := search.BuildConfig(backend, rawConfig, h.Defaults)
	if err != nil {
		c.String(http.StatusBadRequest, "Unknown backend mentioned.\nUsage: tavily, bing, local_search_server.\n")
		return
	}
	backendLabel = backend.String()

	rawQuery, present := payload["query"]
	if !present {
		c.String(http.StatusBadRequest, "No query received.\n")
		return
	}
	query, ok := rawQuery.(string)
	if !ok {
		c.String(http.StatusInternalServerError, "The query supplied is not a String.\n")
		return
	}

	verdict, err := h.Engine.Consult(c.Request.Context(), query)
	if err != nil {
		h.Logger.WithError(err).Error("Consultation failed")
		c.String(http.StatusInternalServerError, "Error while generating response from LLM.\n")
		return
	}
	decision = verdict.NeedsSearch

	if mode == ModeDecision {
		// The query field is the literal string "null" when the verdict
		// carries no search query.
		queryField := "null"
		if verdict.NeedsSearch {
			queryField = verdict.SearchQuery
		}
		c.JSON(http.StatusOK, gin.H{"decision": verdict.NeedsSearch, "query": queryField})
		return
	}

	if !verdict.NeedsSearch {
		c.JSON(http.StatusOK, gin.H{"decision": false, "query": nil})
		return
	}

	input, err := cfg.BuildInput(rawConfig, verdict.SearchQuery)
	if err != nil {
		var credErr *search.CredentialError
		if errors.As(err, &credErr) {
			c.String(http.StatusBadRequest, credentialMessage(credErr))
		} else {
			c.String(http.StatusInternalServerError, "Failed to perform internet search: %s", err.Error())
		}
		return
	}

	switch mode {
	case ModeComplete:
		output, err := cfg.Execute(c.Request.Context(), input)
		if err != nil {
			searchesTotal.WithLabelValues(backendLabel, "error").Inc()
			h.Logger.WithError(err).Error("Internet search failed")
			c.String(http.StatusInternalServerError, "Failed to perform internet search: %s", err.Error())
			return
		}
		searchesTotal.WithLabelValues(backendLabel, "ok").Inc()
		resultCount = len(output.Results)
		c.JSON(http.StatusOK, gin.H{"decision": true, "results": output.Results})
	case ModeSummarize:
		summary, err := cfg.Summarize(c.Request.Context(), input, h.Engine)
		if err != nil {
			searchesTotal.WithLabelValues(backendLabel, "error").Inc()
			h.Logger.WithError(err).Error("Internet search failed")
			c.String(http.StatusInternalServerError, "Failed to perform internet search: %s", err.Error())
			return
		}
		searchesTotal.WithLabelValues(backendLabel, "ok").Inc()
		c.JSON(http.StatusOK, gin.H{"decision": true, "results": summary})
	}
}

// credentialMessage renders the client-facing diagnostic for a credential
// failure. The wording is part of the API surface.
func credentialMessage(err *search.CredentialError) string {
	if err.Malformed {
		return fmt.Sprintf("Invalid %s API key supplied.\n", err.Provider)
	}
	return fmt.Sprintf("no %s API key supplied.\n", err.Provider)
}
