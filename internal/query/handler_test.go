package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"frameworks/lookout/internal/consult"
	"frameworks/lookout/pkg/logging"
	"frameworks/lookout/pkg/search"
)

type stubEngine struct {
	verdict      consult.Verdict
	consultErr   error
	summary      string
	summarizeErr error

	consulted []string
	prompts   []string
}

func (s *stubEngine) Consult(_ context.Context, query string) (consult.Verdict, error) {
	s.consulted = append(s.consulted, query)
	if s.consultErr != nil {
		return consult.Verdict{}, s.consultErr
	}
	return s.verdict, nil
}

func (s *stubEngine) Summarize(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.summarizeErr != nil {
		return "", s.summarizeErr
	}
	return s.summary, nil
}

func testDefaults() search.Defaults {
	return search.Defaults{
		MaxResults:       5,
		SizeLimit:        400,
		TavilyEndpoint:   "https://api.tavily.com/search",
		BingEndpoint:     "https://api.bing.microsoft.com/v7.0/search",
		LocalEndpoint:    "https://localhost:3000/search",
		SummaryPrompt:    "Summarize the findings.",
		SummarizeCtxSize: 4096,
	}
}

func newTestRouter(engine Consultant, defaults search.Defaults, restricted bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router, NewQueryHandler(engine, defaults, restricted, nil, logging.NewLogger()))
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestDecideSearchRequired(t *testing.T) {
	errCh := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errCh <- errors.New("decision requests must never reach the search provider")
	}))
	defer srv.Close()

	defaults := testDefaults()
	defaults.TavilyEndpoint = srv.URL
	engine := &stubEngine{verdict: consult.Verdict{NeedsSearch: true, SearchQuery: "fed rate decision"}}
	router := newTestRouter(engine, defaults, false)

	w := postJSON(router, "/query/decide", `{"query": "what did the fed decide?", "backend": "tavily", "search_config": {"api_key": "tvly-key"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"decision":true,"query":"fed rate decision"}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if len(engine.consulted) != 1 || engine.consulted[0] != "what did the fed decide?" {
		t.Errorf("engine should see the raw query, got %v", engine.consulted)
	}
	select {
	case err := <-errCh:
		t.Fatal(err)
	default:
	}
}

func TestDecideNoSearch(t *testing.T) {
	engine := &stubEngine{verdict: consult.Verdict{NeedsSearch: false}}
	router := newTestRouter(engine, testDefaults(), false)

	w := postJSON(router, "/query/decide", `{"query": "what color is the sky?", "backend": "bing", "search_config": {"api_key": "bing-key"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"decision":false,"query":"null"}` {
		t.Errorf("no-search decisions carry the literal string null, got %s", w.Body.String())
	}
}

func TestMissingSearchConfig(t *testing.T) {
	engine := &stubEngine{}
	router := newTestRouter(engine, testDefaults(), false)

	w := postJSON(router, "/query/decide", `{"query": "anything", "backend": "tavily"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w.Body.String() != "Unable to extract search_config object from request.\n" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
	if len(engine.consulted) != 0 {
		t.Error("invalid requests must not reach the engine")
	}
}

func TestUnknownBackend(t *testing.T) {
	engine := &stubEngine{}
	router := newTestRouter(engine, testDefaults(), false)

	for _, backend := range []string{"google", "", "Tavily"} {
		w := postJSON(router, "/query/complete", fmt.Sprintf(`{"query": "anything", "backend": %q, "search_config": {}}`, backend))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("backend %q: expected 400, got %d", backend, w.Code)
		}
		if w.Body.String() != "Unknown backend mentioned.\nUsage: tavily, bing, local_search_server.\n" {
			t.Errorf("backend %q: unexpected body %q", backend, w.Body.String())
		}
	}
	if len(engine.consulted) != 0 {
		t.Error("unknown backends must not reach the engine")
	}
}

func TestMissingQuery(t *testing.T) {
	router := newTestRouter(&stubEngine{}, testDefaults(), false)

	w := postJSON(router, "/query/decide", `{"backend": "tavily", "search_config": {}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w.Body.String() != "No query received.\n" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestNonStringQuery(t *testing.T) {
	router := newTestRouter(&stubEngine{}, testDefaults(), false)

	w := postJSON(router, "/query/decide", `{"query": 42, "backend": "tavily", "search_config": {}}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if w.Body.String() != "The query supplied is not a String.\n" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestUndecodableBody(t *testing.T) {
	router := newTestRouter(&stubEngine{}, testDefaults(), false)

	w := postJSON(router, "/query/decide", `{`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "Error while converting request body into json object:") {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestConsultFailure(t *testing.T) {
	engine := &stubEngine{consultErr: errors.New("provider unreachable")}
	router := newTestRouter(engine, testDefaults(), false)

	w := postJSON(router, "/query/complete", `{"query": "anything", "backend": "tavily", "search_config": {"api_key": "k"}}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if w.Body.String() != "Error while generating response from LLM.\n" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestCompleteNoSearch(t *testing.T) {
	engine := &stubEngine{verdict: consult.Verdict{NeedsSearch: false}}
	router := newTestRouter(engine, testDefaults(), false)

	// No api_key: a no-search verdict must not require credentials.
	w := postJSON(router, "/query/complete", `{"query": "what color is the sky?", "backend": "tavily", "search_config": {}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"decision":false,"query":null}` {
		t.Errorf("expected a JSON null query, got %s", w.Body.String())
	}
}

func TestCompleteSearch(t *testing.T) {
	errCh := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		switch {
		case r.Method != http.MethodPost:
			errCh <- fmt.Errorf("unexpected method %s", r.Method)
		case json.Unmarshal(body, &payload) != nil:
			errCh <- fmt.Errorf("undecodable search request %q", body)
		case payload["api_key"] != "tvly-key":
			errCh <- fmt.Errorf("unexpected api_key %v", payload["api_key"])
		case payload["query"] != "fed rate decision":
			errCh <- fmt.Errorf("unexpected query %v", payload["query"])
		case payload["max_results"] != float64(5):
			errCh <- fmt.Errorf("max_results not clamped: %v", payload["max_results"])
		default:
			errCh <- nil
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results": [{"title": "Reuters", "url": "https://reuters.com/fed", "content": "The Fed held rates steady."}]}`)
	}))
	defer srv.Close()

	defaults := testDefaults()
	defaults.TavilyEndpoint = srv.URL
	engine := &stubEngine{verdict: consult.Verdict{NeedsSearch: true, SearchQuery: "fed rate decision"}}
	router := newTestRouter(engine, defaults, false)

	w := postJSON(router, "/query/complete", `{"query": "what did the fed decide?", "backend": "tavily", "search_config": {"api_key": "tvly-key", "max_search_results": 50}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Decision bool            `json:"decision"`
		Results  []search.Result `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Decision {
		t.Error("expected decision true")
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	result := resp.Results[0]
	if result.URL != "https://reuters.com/fed" || result.SiteName != "Reuters" || result.TextContent != "The Fed held rates steady." {
		t.Errorf("unexpected result %+v", result)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatal(err)
		}
	default:
		t.Fatal("search server was never called")
	}
}

func TestCompleteMissingTavilyKey(t *testing.T) {
	errCh := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errCh <- errors.New("credential failures must not reach the search provider")
	}))
	defer srv.Close()

	defaults := testDefaults()
	defaults.TavilyEndpoint = srv.URL
	engine := &stubEngine{verdict: consult.Verdict{NeedsSearch: true, SearchQuery: "anything"}}
	router := newTestRouter(engine, defaults, false)

	w := postJSON(router, "/query/complete", `{"query": "anything", "backend": "tavily", "search_config": {}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w.Body.String() != "no Tavily API key supplied.\n" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
	select {
	case err := <-errCh:
		t.Fatal(err)
	default:
	}
}

func TestCompleteMalformedBingKey(t *testing.T) {
	engine := &stubEngine{verdict: consult.Verdict{NeedsSearch: true, SearchQuery: "anything"}}
	router := newTestRouter(engine, testDefaults(), false)

	w := postJSON(router, "/query/complete", `{"query": "anything", "backend": "bing", "search_config": {"api_key": 7}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w.Body.String() != "Invalid Bing API key supplied.\n" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestCompleteSearchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	defaults := testDefaults()
	defaults.TavilyEndpoint = srv.URL
	engine := &stubEngine{verdict: consult.Verdict{NeedsSearch: true, SearchQuery: "anything"}}
	router := newTestRouter(engine, defaults, false)

	w := postJSON(router, "/query/complete", `{"query": "anything", "backend": "tavily", "search_config": {"api_key": "k"}}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "Failed to perform internet search: ") {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestCompleteLocalEndpointOverride(t *testing.T) {
	errCh := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		switch {
		case json.Unmarshal(body, &payload) != nil:
			errCh <- fmt.Errorf("undecodable search request %q", body)
		case payload["term"] != "air quality berlin":
			errCh <- fmt.Errorf("unexpected term %v", payload["term"])
		case payload["engine"] != "google":
			errCh <- fmt.Errorf("unexpected engine %v", payload["engine"])
		default:
			errCh <- nil
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"webPages": {"value": [{"name": "Umweltbundesamt", "url": "https://uba.de", "snippet": "Moderate."}]}}`)
	}))
	defer srv.Close()

	engine := &stubEngine{verdict: consult.Verdict{NeedsSearch: true, SearchQuery: "air quality berlin"}}
	router := newTestRouter(engine, testDefaults(), false)

	body := fmt.Sprintf(`{"query": "how is the air in berlin?", "backend": "local_search_server", "search_config": {"endpoint": %q}}`, srv.URL)
	w := postJSON(router, "/query/complete", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatal(err)
		}
	default:
		t.Fatal("local search server was never called")
	}
}

func TestSummarizeSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results": [{"title": "Reuters", "url": "https://reuters.com/fed", "content": "The Fed held rates steady."}]}`)
	}))
	defer srv.Close()

	defaults := testDefaults()
	defaults.TavilyEndpoint = srv.URL
	engine := &stubEngine{
		verdict: consult.Verdict{NeedsSearch: true, SearchQuery: "fed rate decision"},
		summary: "The Fed left rates unchanged.",
	}
	router := newTestRouter(engine, defaults, false)

	w := postJSON(router, "/query/summarize", `{"query": "what did the fed decide?", "backend": "tavily", "search_config": {"api_key": "tvly-key"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"decision":true,"results":"The Fed left rates unchanged."}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}

	if len(engine.prompts) != 1 {
		t.Fatalf("expected one summarizer call, got %d", len(engine.prompts))
	}
	prompt := engine.prompts[0]
	if !strings.HasPrefix(prompt, "Summarize the findings.") {
		t.Errorf("prompt should open with the summary instructions, got %q", prompt)
	}
	if !strings.Contains(prompt, "Reuters") || !strings.Contains(prompt, "The Fed held rates steady.") {
		t.Errorf("prompt should fold in the search results, got %q", prompt)
	}
}

func TestSummarizeNoSearch(t *testing.T) {
	engine := &stubEngine{verdict: consult.Verdict{NeedsSearch: false}}
	router := newTestRouter(engine, testDefaults(), false)

	w := postJSON(router, "/query/summarize", `{"query": "what color is the sky?", "backend": "tavily", "search_config": {"api_key": "k"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"decision":false,"query":null}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if len(engine.prompts) != 0 {
		t.Error("no-search verdicts must not invoke the summarizer")
	}
}

func TestRestrictedLocalBackend(t *testing.T) {
	engine := &stubEngine{}
	router := newTestRouter(engine, testDefaults(), true)

	w := postJSON(router, "/query/complete", `{"query": "anything", "backend": "local_search_server", "search_config": {}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "local_search_server") {
		t.Errorf("unexpected body %q", w.Body.String())
	}
	if len(engine.consulted) != 0 {
		t.Error("restricted requests must not reach the engine")
	}
}

func TestRestrictedSummarize(t *testing.T) {
	engine := &stubEngine{}
	router := newTestRouter(engine, testDefaults(), true)

	w := postJSON(router, "/query/summarize", `{"query": "anything", "backend": "tavily", "search_config": {"api_key": "k"}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(engine.consulted) != 0 {
		t.Error("restricted requests must not reach the engine")
	}
}

func TestRestrictedModeAllowsRemoteBackends(t *testing.T) {
	engine := &stubEngine{verdict: consult.Verdict{NeedsSearch: false}}
	router := newTestRouter(engine, testDefaults(), true)

	w := postJSON(router, "/query/complete", `{"query": "what color is the sky?", "backend": "tavily", "search_config": {"api_key": "k"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestEcho(t *testing.T) {
	router := newTestRouter(&stubEngine{}, testDefaults(), false)

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/echo", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "echo test" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestUnrecognizedRoute(t *testing.T) {
	router := newTestRouter(&stubEngine{}, testDefaults(), false)

	for _, probe := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/unknown"},
		{http.MethodPost, "/query/other"},
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequestWithContext(context.Background(), probe.method, probe.path, nil)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusNotImplemented {
			t.Fatalf("%s %s: expected 501, got %d", probe.method, probe.path, w.Code)
		}
		if w.Body.String() != "501 Not Implemented" {
			t.Errorf("%s %s: unexpected body %q", probe.method, probe.path, w.Body.String())
		}
	}
}
