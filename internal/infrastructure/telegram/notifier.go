package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends detection notices to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Configured reports whether both token and chat are set.
func (n *Notifier) Configured() bool {
	return n != nil && n.botToken != "" && n.chatID != ""
}

// PublishMatch posts a short notice describing a positive detection.
func (n *Notifier) PublishMatch(ctx context.Context, match domain.MatchArtifact, decision domain.SimilarityDecision) error {
	return n.send(ctx, FormatMatch(match, decision))
}

// FormatMatch renders the Markdown notice for a detection.
func FormatMatch(match domain.MatchArtifact, decision domain.SimilarityDecision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s news repeats a prior window*\n", match.Ticker)
	if match.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", match.Company)
	}
	if match.StartDate != "" || match.EndDate != "" {
		fmt.Fprintf(&b, "Window: %s .. %s\n", match.StartDate, match.EndDate)
	}
	fmt.Fprintf(&b, "Keyword Jaccard: %.3f\nSummary cosine: %.3f", decision.KeywordJaccard, decision.SummaryCosine)
	return b.String()
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if !n.Configured() || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}
