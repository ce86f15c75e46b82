package search

import (
	"context"
	"fmt"
	"strings"
)

// Summarizer condenses prepared search context into prose. The
// consultation engine's plain-completion path implements it.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

const defaultSummaryPrompt = `Summarize the following web search results into a concise answer (3-5 sentences).
Focus on: concrete facts, figures, and dates found in the results.
Do NOT include URLs, source citations, or commentary about the search itself. Output only the summary.`

// Summarize executes the search, folds the results into a context block
// bounded by the summarize context size, and hands the assembled prompt
// to the summarizer.
func (c *ExecutionConfig) Summarize(ctx context.Context, input Input, summarizer Summarizer) (string, error) {
	output, err := c.Execute(ctx, input)
	if err != nil {
		return "", err
	}

	block := truncateRunes(formatResults(output.Results), c.SummarizeCtxSize)
	prompt := c.SummaryPrompt + "\n\n" + block
	summary, err := summarizer.Summarize(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("summarize search results: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

func formatResults(results []Result) string {
	var b strings.Builder
	b.WriteString("Web search results:\n")
	for i, result := range results {
		fmt.Fprintf(&b, "%d. %s\nURL: %s\nSnippet: %s\n\n", i+1, result.SiteName, result.URL, result.TextContent)
	}
	return strings.TrimSpace(b.String())
}
