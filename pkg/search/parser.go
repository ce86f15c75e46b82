package search

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResponseParser normalizes one provider's raw response body. Parsers
// are plain funcs referenced from the execution config, so a deployment
// can plug its own in front of a custom proxy.
type ResponseParser func(body []byte) ([]Result, error)

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// ParseTavilyResults normalizes a Tavily search response.
func ParseTavilyResults(body []byte) ([]Result, error) {
	var decoded tavilyResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}
	results := make([]Result, 0, len(decoded.Results))
	for _, item := range decoded.Results {
		results = append(results, Result{
			URL:         item.URL,
			SiteName:    item.Title,
			TextContent: strings.TrimSpace(item.Content),
		})
	}
	return results, nil
}

type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

// ParseBingResults normalizes a Bing Web Search response. The local
// search proxy replies in the same shape and shares this parser.
func ParseBingResults(body []byte) ([]Result, error) {
	var decoded bingResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode bing response: %w", err)
	}
	results := make([]Result, 0, len(decoded.WebPages.Value))
	for _, item := range decoded.WebPages.Value {
		results = append(results, Result{
			URL:         item.URL,
			SiteName:    item.Name,
			TextContent: strings.TrimSpace(item.Snippet),
		})
	}
	return results, nil
}
