package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client  *openai.Client
	httpc   *http.Client
	apiKey  string
	baseURL string
	model   string
}

type headerTransport struct {
	rt      http.RoundTripper
	headers http.Header
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone request to avoid mutating the original
	cl := req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			cl.Header.Add(k, v)
		}
	}
	return t.rt.RoundTrip(cl)
}

func NewOpenAI(apiKey, baseURL, model, referrer, title string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	httpc := &http.Client{}
	// Inject optional headers (useful for OpenRouter)
	if referrer != "" || title != "" {
		h := http.Header{}
		if referrer != "" {
			h.Set("HTTP-Referer", referrer)
		}
		if title != "" {
			h.Set("X-Title", title)
		}
		base := http.DefaultTransport
		httpc = &http.Client{Transport: headerTransport{rt: base, headers: h}}
		config.HTTPClient = httpc
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(config),
		httpc:   httpc,
		apiKey:  apiKey,
		baseURL: config.BaseURL,
		model:   model,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, system, user string, opts Options) (string, error) {
	if opts.WebSearch != nil {
		return c.completeWithSearch(ctx, system, user, opts)
	}

	var msgs []openai.ChatCompletionMessage
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Wire shapes for the search-grounded path. Built by hand because the
// request carries web_search_options, which the typed client does not cover.
type searchMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type searchChatReq struct {
	Model            string      `json:"model"`
	Messages         []searchMsg `json:"messages"`
	MaxTokens        int         `json:"max_tokens,omitempty"`
	WebSearchOptions struct {
		UserLocation struct {
			Type        string `json:"type"`
			Approximate struct {
				City    string `json:"city,omitempty"`
				Region  string `json:"region,omitempty"`
				Country string `json:"country,omitempty"`
			} `json:"approximate"`
		} `json:"user_location"`
	} `json:"web_search_options"`
}

type searchChatResp struct {
	Choices []struct {
		Message searchMsg `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) completeWithSearch(ctx context.Context, system, user string, opts Options) (string, error) {
	reqBody := searchChatReq{Model: c.model, MaxTokens: opts.MaxTokens}
	if system != "" {
		reqBody.Messages = append(reqBody.Messages, searchMsg{Role: "system", Content: system})
	}
	reqBody.Messages = append(reqBody.Messages, searchMsg{Role: "user", Content: user})
	reqBody.WebSearchOptions.UserLocation.Type = "approximate"
	reqBody.WebSearchOptions.UserLocation.Approximate.City = opts.WebSearch.City
	reqBody.WebSearchOptions.UserLocation.Approximate.Region = opts.WebSearch.Region
	reqBody.WebSearchOptions.UserLocation.Approximate.Country = opts.WebSearch.Country

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(c.baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return "", fmt.Errorf("search completion returned %d: %s", resp.StatusCode, string(body))
	}
	var out searchChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode search completion: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("search completion error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("search completion returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
