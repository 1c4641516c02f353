// internal/adapters/gemini/client.go
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"pricedrop/internal/adapters/observability"
	"pricedrop/internal/domain"
)

type Client struct {
	base  string
	model string
	hc    *http.Client
	key   string
	rl    *rate.Limiter
}

func New(base, key, model string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if rps <= 0 {
		rps = 5
	}
	// per-call deadlines come from ctx; this only guards against a hung connection
	hc := &http.Client{Timeout: 90 * time.Second}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		model: model,
		hc:    hc,
		key:   key,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- wire types ----

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type tool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type generateReq struct {
	Contents []content `json:"contents"`
	Tools    []tool    `json:"tools,omitempty"`
}

type generateResp struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

var (
	ErrEmptyResponse = errors.New("gemini: empty response")
	ErrUnauthorized  = errors.New("gemini: unauthorized")
	ErrRateLimited   = errors.New("gemini: rate limited")
)

// Generate sends one prompt (plus optional attachment and search tool) and returns
// the text of the first candidate. There are no retries.
func (c *Client) Generate(ctx context.Context, in domain.InferenceRequest) (string, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return "", err
	}

	parts := []part{{Text: in.Prompt}}
	if in.Attachment != nil {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: in.Attachment.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(in.Attachment.Data),
		}})
	}
	payload := generateReq{Contents: []content{{Role: "user", Parts: parts}}}
	if in.WebSearch {
		payload.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := "generate"
	if in.WebSearch {
		endpoint = "generate_search"
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", c.base, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", c.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "pricedrop/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("gemini", endpoint, 0, time.Since(start))
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("gemini", endpoint, resp.StatusCode, time.Since(start))

	switch resp.StatusCode {
	case http.StatusOK:
		var out generateResp
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("gemini: decode: %w", err)
		}
		return firstText(out)

	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrUnauthorized

	case http.StatusTooManyRequests:
		return "", ErrRateLimited

	default:
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("gemini: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
}

func firstText(r generateResp) (string, error) {
	if len(r.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
