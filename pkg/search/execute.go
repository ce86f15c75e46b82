package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Result is a single normalized search hit.
type Result struct {
	URL         string `json:"url"`
	SiteName    string `json:"site_name"`
	TextContent string `json:"text_content"`
}

// Output is the normalized outcome of one executed search.
type Output struct {
	Results []Result `json:"results"`
}

var searchClient = &http.Client{Timeout: 15 * time.Second}

// Execute performs the single network call described by the config and
// normalizes the provider's response. POST payloads are marshaled as
// JSON; GET payloads are encoded as query parameters. Each result's
// text is truncated to the per-result size cap.
func (c *ExecutionConfig) Execute(ctx context.Context, input Input) (*Output, error) {
	req, err := c.newRequest(ctx, input)
	if err != nil {
		return nil, err
	}
	for key, value := range c.Headers {
		req.Header.Set(key, value)
	}

	resp, err := searchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.Engine, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%s request failed with status %d", c.Engine, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", c.Engine, err)
	}
	results, err := c.Parse(body)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].TextContent = truncateRunes(results[i].TextContent, c.SizeLimit)
	}
	return &Output{Results: results}, nil
}

func (c *ExecutionConfig) newRequest(ctx context.Context, input Input) (*http.Request, error) {
	if c.Method == http.MethodGet {
		values, err := queryValues(input)
		if err != nil {
			return nil, err
		}
		endpoint, err := url.Parse(c.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse %s endpoint: %w", c.Engine, err)
		}
		endpoint.RawQuery = values.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("create %s request: %w", c.Engine, err)
		}
		return req, nil
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", c.Engine, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", c.Engine, err)
	}
	return req, nil
}

// queryValues flattens a payload into URL query parameters for the
// providers that take GET requests.
func queryValues(input Input) (url.Values, error) {
	switch in := input.(type) {
	case *BingInput:
		values := url.Values{}
		values.Set("count", strconv.Itoa(in.Count))
		values.Set("q", in.Query)
		values.Set("responseFilter", in.ResponseFilter)
		return values, nil
	default:
		return nil, fmt.Errorf("backend %s does not encode as query parameters", in.backendTag())
	}
}

// truncateRunes cuts s at limit runes without splitting a character.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
