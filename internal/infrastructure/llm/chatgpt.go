package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsMatcher/internal/config"
	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/ports"
	"NewsMatcher/internal/retry"
)

const keywordTrimSet = " -1234567890."

// ChatGPTClient implements ports.Analyzer backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
	retry        retry.RetryConfig
}

var _ ports.Analyzer = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		retry: retry.RetryConfig{
			MaxAttempts: 3,
			Delay:       2 * time.Second,
			Backoff:     true,
			Retryable:   retry.TransientStatus,
		},
	}
}

// Configured reports whether the client has enough settings to make calls.
func (c *ChatGPTClient) Configured() bool {
	return c != nil && c.apiKey != "" && c.endpoint != "" && c.model != ""
}

// Analyze runs the summary, prediction and keyword prompts over the articles.
func (c *ChatGPTClient) Analyze(ctx context.Context, ticker string, window domain.Window, articles []domain.ReportArticle) (domain.Analysis, error) {
	if !c.Configured() {
		return domain.Analysis{}, fmt.Errorf("chatgpt client misconfigured")
	}

	joined := joinArticles(articles)
	from := window.From.UTC().Format("2006-01-02")
	to := window.LastDay().UTC().Format("2006-01-02")

	summary, err := c.complete(ctx, summaryPrompt(ticker, from, to, joined))
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("summary prompt: %w", err)
	}
	prediction, err := c.complete(ctx, predictionPrompt(ticker, joined))
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("prediction prompt: %w", err)
	}
	keywords, err := c.complete(ctx, keywordsPrompt(ticker, joined))
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("keywords prompt: %w", err)
	}

	return domain.Analysis{
		Summary:    strings.TrimSpace(summary),
		Prediction: normalizePrediction(prediction),
		Keywords:   ParseKeywordList(keywords),
	}, nil
}

// complete sends one prompt, retrying throttled or unavailable upstreams with
// a growing delay.
func (c *ChatGPTClient) complete(ctx context.Context, prompt string) (string, error) {
	var content string
	err := retry.WithRetry(ctx, c.retry, func() error {
		out, err := c.send(ctx, prompt)
		if err != nil {
			return err
		}
		content = out
		return nil
	})
	return content, err
}

func (c *ChatGPTClient) send(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send prompt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chatgpt error: %w", &retry.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(payload))})
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chatgpt returned no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

// ParseKeywordList turns a numbered or bulleted list into at most ten keywords.
func ParseKeywordList(text string) []string {
	keywords := make([]string, 0, domain.MaxKeywords)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kw := strings.TrimSpace(strings.Trim(line, keywordTrimSet))
		if kw == "" {
			continue
		}
		keywords = append(keywords, kw)
		if len(keywords) == domain.MaxKeywords {
			break
		}
	}
	return keywords
}

func normalizePrediction(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(lower, "increase"):
		return "increase"
	case strings.Contains(lower, "decrease"):
		return "decrease"
	}
	return strings.Trim(lower, " .!\"'")
}

func joinArticles(articles []domain.ReportArticle) string {
	lines := make([]string, 0, len(articles))
	for i, a := range articles {
		lines = append(lines, fmt.Sprintf("%d. %s - %s", i+1, a.Title, a.Content))
	}
	return strings.Join(lines, "\n")
}

func summaryPrompt(ticker, from, to, articles string) string {
	return fmt.Sprintf(`You are analyzing several news articles about the company %[1]s from %[2]s to %[3]s.

Write a short summary (3-4 sentences) that clearly explains what is happening with %[1]s
and how these events might connect to the company's stock. Use simple, everyday language
so that someone who knows nothing about finance can understand.

Avoid financial or technical terms when possible. If you must use one, add a short plain-English
explanation. Focus on what is happening in the real world, why people might be excited or worried,
and what that means for %[1]s as a company.

Articles:
%[4]s`, ticker, from, to, articles)
}

func predictionPrompt(ticker, articles string) string {
	return fmt.Sprintf(`You are analyzing recent news articles about the stock %s. Do NOT use or assume any knowledge of the stock's actual price movement.

Based ONLY on the tone, language, and overall context of these articles, predict whether the stock should
logically increase or decrease in value if investors were reacting purely to this news.
Respond with ONLY one word: "increase" or "decrease".

Articles:
%s`, ticker, articles)
}

func keywordsPrompt(ticker, articles string) string {
	return fmt.Sprintf(`Extract 10 important keywords or short phrases that best represent the main themes of the following articles about %s.
They should highlight the key factors influencing the stock during this time and carry a positive or negative connotation.

Return the result as a numbered list of 10 concise keywords or phrases.

Articles:
%s`, ticker, articles)
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a financial news analyst. Answer concisely."
	}
	return prompt
}
