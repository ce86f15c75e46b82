package search

import "fmt"

// Input is a provider-specific search payload. The concrete set is
// closed; Execute dispatches on the variants exhaustively.
type Input interface {
	backendTag() Backend
}

// TavilyInput is the JSON body for the Tavily search API. The key rides
// in the body rather than a header.
type TavilyInput struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeImages     bool   `json:"include_images"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

func (*TavilyInput) backendTag() Backend { return BackendTavily }

// BingInput carries the query parameters for the Bing Web Search API.
// The key travels in the Ocp-Apim-Subscription-Key header instead.
type BingInput struct {
	Count          int    `json:"count"`
	Query          string `json:"q"`
	ResponseFilter string `json:"responseFilter"`
}

func (*BingInput) backendTag() Backend { return BackendBing }

// LocalInput is the JSON body for a self-hosted search proxy. No key.
type LocalInput struct {
	Term             string `json:"term"`
	Engine           string `json:"engine"`
	MaxSearchResults int    `json:"maxSearchResults"`
}

func (*LocalInput) backendTag() Backend { return BackendLocal }

// CredentialError reports a missing or wrong-typed provider credential
// in the client's search_config. Both shapes are caller-attributable.
type CredentialError struct {
	Provider  string
	Malformed bool
}

func (e *CredentialError) Error() string {
	if e.Malformed {
		return fmt.Sprintf("invalid %s API key supplied", e.Provider)
	}
	return fmt.Sprintf("no %s API key supplied", e.Provider)
}

// BuildInput assembles the backend payload for query, validating
// credentials on the way. Bing's key is installed into the config
// headers; Tavily's goes into the body; the local backend needs none.
func (c *ExecutionConfig) BuildInput(rawConfig map[string]any, query string) (Input, error) {
	switch c.Backend {
	case BackendTavily:
		key, err := credentialFrom(rawConfig, "Tavily")
		if err != nil {
			return nil, err
		}
		return &TavilyInput{
			APIKey:      key,
			Query:       query,
			SearchDepth: "advanced",
			MaxResults:  c.MaxResults,
		}, nil
	case BackendBing:
		key, err := credentialFrom(rawConfig, "Bing")
		if err != nil {
			return nil, err
		}
		c.Headers["Ocp-Apim-Subscription-Key"] = key
		return &BingInput{
			Count:          c.MaxResults,
			Query:          query,
			ResponseFilter: "Webpages",
		}, nil
	case BackendLocal:
		return &LocalInput{
			Term:             query,
			Engine:           c.Engine,
			MaxSearchResults: c.MaxResults,
		}, nil
	default:
		return nil, ErrUnknownBackend
	}
}

func credentialFrom(rawConfig map[string]any, provider string) (string, error) {
	raw, ok := rawConfig["api_key"]
	if !ok {
		return "", &CredentialError{Provider: provider}
	}
	key, ok := raw.(string)
	if !ok {
		return "", &CredentialError{Provider: provider, Malformed: true}
	}
	return key, nil
}
