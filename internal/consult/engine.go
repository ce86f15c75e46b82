package consult

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"frameworks/lookout/pkg/llm"
	"frameworks/lookout/pkg/logging"
)

// ErrAttemptsExhausted reports that every classification attempt produced an
// unusable completion.
var ErrAttemptsExhausted = errors.New("consultation attempts exhausted")

const searchRequiredTool = "search_required"

const classifierPrompt = `You are an intent classification model. Your goal is to determine whether a given user query can only be answered with additional information from a google search. Use the search_required tool call for this.

Instructions:

For each query, assign an appropriate intent:
'true' if the query would typically need real-time data, specific information retrieval, or content that is not likely to be pre-known. Generate the search term for the query.
'false' if the query can be answered based on general knowledge, static facts, or content that can be reasonably assumed to be within the model's scope.`

// Verdict is the outcome of one intent consultation. SearchQuery is
// populated only when NeedsSearch is true.
type Verdict struct {
	NeedsSearch bool
	SearchQuery string
}

// Config configures the consultation engine.
type Config struct {
	Provider    llm.Provider
	Model       string
	MaxTokens   int
	MaxAttempts int
	Backoff     time.Duration
	Logger      logging.Logger
}

// Engine decides whether a query needs an internet search by forcing the
// chat-completion provider through the search_required tool call.
type Engine struct {
	provider    llm.Provider
	model       string
	maxTokens   int
	maxAttempts int
	backoff     time.Duration
	logger      logging.Logger
}

// NewEngine creates a consultation engine backed by the given provider.
func NewEngine(cfg Config) *Engine {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Engine{
		provider:    cfg.Provider,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      cfg.Logger,
	}
}

// Consult classifies the query with one single-turn completion. Invalid
// verdicts are retried with exponential backoff up to the attempt bound;
// provider failures are final immediately.
func (e *Engine) Consult(ctx context.Context, query string) (Verdict, error) {
	req := llm.Request{
		Model: e.model,
		Messages: []llm.Message{
			{Role: "system", Content: classifierPrompt},
			{Role: "user", Content: query},
		},
		Tools: []llm.Tool{{
			Name:        searchRequiredTool,
			Description: "Use to search the internet to answer a query.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"search_required": map[string]interface{}{
						"type":        "boolean",
						"description": "Whether an internet search is required to answer the query.",
					},
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The query to search if search is required.",
					},
				},
				"required": []string{"search_required"},
			},
		}},
		ToolChoice: &llm.ToolChoice{Name: searchRequiredTool},
		MaxTokens:  e.maxTokens,
		N:          1,
	}

	start := time.Now()
	verdict, err := e.consult(ctx, req)
	consultDuration.Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		consultationsTotal.WithLabelValues("error").Inc()
	case verdict.NeedsSearch:
		consultationsTotal.WithLabelValues("search").Inc()
	default:
		consultationsTotal.WithLabelValues("no_search").Inc()
	}
	return verdict, err
}

func (e *Engine) consult(ctx context.Context, req llm.Request) (Verdict, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if attempt > 1 {
			consultRetriesTotal.Inc()
			delay := e.backoff << (attempt - 2)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Verdict{}, ctx.Err()
			}
		}

		completion, err := e.provider.Complete(ctx, req)
		if err != nil {
			// Transport and inference failures are final. The provider
			// layer carries its own transport retry.
			return Verdict{}, err
		}

		verdict, parseErr := parseVerdict(completion)
		if parseErr == nil {
			return verdict, nil
		}
		lastErr = parseErr
		if e.logger != nil {
			e.logger.WithFields(logging.Fields{
				"attempt": attempt,
				"error":   parseErr.Error(),
			}).Warn("Consultation produced an invalid verdict")
		}
	}
	return Verdict{}, fmt.Errorf("%w: %v", ErrAttemptsExhausted, lastErr)
}

// Summarize runs a plain completion over the prepared prompt and returns the
// trimmed text. It is the summarizer behind the summarize response flavor.
func (e *Engine) Summarize(ctx context.Context, prompt string) (string, error) {
	completion, err := e.provider.Complete(ctx, llm.Request{
		Model: e.model,
		Messages: []llm.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("completion carried no choices")
	}
	return strings.TrimSpace(completion.Choices[0].Content), nil
}

func parseVerdict(completion *llm.Completion) (Verdict, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return Verdict{}, errors.New("completion carried no choices")
	}
	choice := completion.Choices[0]
	if choice.FinishReason != llm.FinishToolCalls {
		return Verdict{}, fmt.Errorf("completion finished with %q, want tool calls", choice.FinishReason)
	}
	if len(choice.ToolCalls) == 0 {
		return Verdict{}, errors.New("completion carried no tool calls")
	}
	call := choice.ToolCalls[0]
	if call.Name != searchRequiredTool {
		return Verdict{}, fmt.Errorf("unexpected tool call %q", call.Name)
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return Verdict{}, fmt.Errorf("tool call arguments are not valid JSON: %v", err)
	}
	required, ok := args["search_required"].(bool)
	if !ok {
		return Verdict{}, errors.New("search_required argument is not a boolean")
	}
	if !required {
		return Verdict{}, nil
	}
	searchQuery, ok := args["query"].(string)
	if !ok {
		return Verdict{}, errors.New("query argument is not a string")
	}
	return Verdict{NeedsSearch: true, SearchQuery: searchQuery}, nil
}
