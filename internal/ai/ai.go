// Package ai suggests frame titles for slides that have none, using Gemini.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gnemet/slidetex/internal/config"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const maxTitleRunes = 80

// Usage counts tokens spent by a Client.
type Usage struct {
	Calls            int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

func (u *Usage) add(o Usage) {
	u.Calls += o.Calls
	u.PromptTokens += o.PromptTokens
	u.CompletionTokens += o.CompletionTokens
	u.TotalTokens += o.TotalTokens
}

type generator interface {
	generate(ctx context.Context, prompt string) (string, Usage, error)
	close() error
}

// Client asks a language model for slide titles. It is safe for concurrent use.
type Client struct {
	gen      generator
	provider string
	model    string

	mu    sync.Mutex
	usage Usage
}

// NewClient connects to the provider described by p.
func NewClient(ctx context.Context, p config.ProviderSettings) (*Client, error) {
	if p.Key == "" {
		return nil, errors.New("missing AI provider key")
	}
	switch p.Driver {
	case "", "gemini":
	default:
		return nil, fmt.Errorf("unsupported AI driver %q", p.Driver)
	}
	model := p.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.Key))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	gm := client.GenerativeModel(model)
	gm.SetTemperature(0.2)
	gm.SetCandidateCount(1)

	return &Client{gen: &gemini{client: client, model: gm}, provider: "gemini", model: model}, nil
}

func (c *Client) Provider() string { return c.provider }
func (c *Client) Model() string    { return c.model }

// SuggestTitle returns a short title for the given slide body text.
func (c *Client) SuggestTitle(ctx context.Context, text string) (string, error) {
	out, usage, err := c.gen.generate(ctx, titlePrompt(text))
	c.mu.Lock()
	c.usage.add(usage)
	c.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("suggest title: %w", err)
	}
	title := CleanTitle(out)
	if title == "" {
		return "", errors.New("suggest title: empty response")
	}
	return title, nil
}

// DrainUsage returns the usage accumulated since the previous call.
func (c *Client) DrainUsage() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := c.usage
	c.usage = Usage{}
	return u
}

func (c *Client) Close() error {
	return c.gen.close()
}

func titlePrompt(text string) string {
	return "Write a concise title (at most 8 words) for a presentation slide with the following content. " +
		"Reply with the title only, no quotes and no punctuation at the end.\n\n" + text
}

// CleanTitle reduces a model reply to a single line title.
func CleanTitle(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "#*- ")
		line = strings.TrimRight(line, "*. ")
		line = strings.Trim(line, "\"'`")
		line = strings.TrimPrefix(line, "Title: ")
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxTitleRunes {
			line = strings.TrimSpace(string([]rune(line)[:maxTitleRunes]))
		}
		return line
	}
	return ""
}

type gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func (g *gemini) generate(ctx context.Context, prompt string) (string, Usage, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", Usage{Calls: 1}, err
	}
	return responseText(resp), responseUsage(resp), nil
}

func (g *gemini) close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func responseUsage(resp *genai.GenerateContentResponse) Usage {
	u := Usage{Calls: 1}
	if resp != nil && resp.UsageMetadata != nil {
		u.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		u.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return u
}
