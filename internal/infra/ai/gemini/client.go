package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	domai "github.com/bryanwahyu/lifeline-triage/internal/domain/ai"
)

// Client talks to a Gemini analysis gateway. The gateway either wraps the
// model output in a generated_text string (often fenced markdown) or returns
// the analysis JSON directly; Envelope makes that contract explicit instead
// of guessing from text matching.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Envelope is the versioned gateway response shape.
type Envelope struct {
	GeneratedText string `json:"generated_text"`
}

// Analyze posts transcript text to the gateway and returns the extracted
// AnalysisResult JSON string.
func (c *Client) Analyze(ctx context.Context, transcript string) (string, error) {
	payload, err := json.Marshal(map[string]string{"text": transcript})
	if err != nil {
		return "", err
	}

	var body []byte
	var permanent bool
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.BaseURL+"/gemini-analyze-text", bytes.NewReader(payload))
		if err != nil {
			permanent = true
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		b, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusTooManyRequests {
			permanent = true
			return backoff.Permanent(fmt.Errorf("%w: %s", domai.ErrQuotaExceeded, errorDetail(b, resp.StatusCode)))
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("gateway error: %s", errorDetail(b, resp.StatusCode))
		}
		if resp.StatusCode >= 400 {
			permanent = true
			return backoff.Permanent(fmt.Errorf("gateway rejected request: %s", errorDetail(b, resp.StatusCode)))
		}
		body = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 25 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if permanent {
			return "", err
		}
		// retries exhausted on network/5xx failures
		return "", fmt.Errorf("%w: %v", domai.ErrBackendUnavailable, err)
	}

	return ParseEnvelope(body)
}

// ParseEnvelope extracts the AnalysisResult JSON out of a gateway response.
// generated_text takes precedence when present; otherwise the body itself is
// treated as the result object.
func ParseEnvelope(body []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err == nil && env.GeneratedText != "" {
		return extractJSON(env.GeneratedText)
	}
	return extractJSON(string(body))
}

// extractJSON strips code fences and returns the outermost JSON object in s.
func extractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in gateway response")
	}
	return s[start : end+1], nil
}

// errorDetail pulls the detail message out of a JSON error body, falling
// back to a generic status message.
func errorDetail(body []byte, status int) string {
	var e struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed with status %d", status)
}
