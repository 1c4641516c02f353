package gemini_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pricedrop/internal/adapters/gemini"
	"pricedrop/internal/domain"
)

func reply(w http.ResponseWriter, texts ...string) {
	parts := make([]map[string]any, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, map[string]any{"text": t})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{map[string]any{
			"content":      map[string]any{"role": "model", "parts": parts},
			"finishReason": "STOP",
		}},
	})
}

func TestClient_Generate_SearchRequestShape(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1beta/models/test-model:generateContent" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		var body struct {
			Contents []struct {
				Parts []map[string]any `json:"parts"`
			} `json:"contents"`
			Tools []map[string]any `json:"tools"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(body.Tools) != 1 || body.Tools[0]["google_search"] == nil {
			t.Errorf("expected google_search tool, got %+v", body.Tools)
		}
		if len(body.Contents) != 1 || body.Contents[0].Parts[0]["text"] != "find offers" {
			t.Errorf("unexpected contents %+v", body.Contents)
		}
		reply(w, `{"site":"Agoda",`, `"price":3000}`)
	}))
	defer ts.Close()

	cl, err := gemini.New(ts.URL+"/v1beta/", "test-key", "test-model", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := cl.Generate(ctx, domain.InferenceRequest{Prompt: "find offers", WebSearch: true})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != `{"site":"Agoda","price":3000}` {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestClient_Generate_Attachment(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Contents []struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MIMEType string `json:"mime_type"`
						Data     string `json:"data"`
					} `json:"inline_data"`
				} `json:"parts"`
			} `json:"contents"`
			Tools []any `json:"tools"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Tools) != 0 {
			t.Errorf("search tool sent without web search")
		}
		parts := body.Contents[0].Parts
		if len(parts) != 2 || parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "application/pdf" {
			t.Errorf("unexpected parts %+v", parts)
		} else if raw, _ := base64.StdEncoding.DecodeString(parts[1].InlineData.Data); string(raw) != "%PDF" {
			t.Errorf("unexpected attachment data %q", raw)
		}
		reply(w, "{}")
	}))
	defer ts.Close()

	cl, _ := gemini.New(ts.URL, "k", "", 100)
	_, err := cl.Generate(context.Background(), domain.InferenceRequest{
		Prompt:     "extract",
		Attachment: &domain.Attachment{MIMEType: "application/pdf", Data: []byte("%PDF")},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestClient_Generate_Errors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(403) }, gemini.ErrUnauthorized},
		{"rate limited", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(429) }, gemini.ErrRateLimited},
		{"no candidates", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"candidates":[]}`)) }, gemini.ErrEmptyResponse},
		{"blank text", func(w http.ResponseWriter, r *http.Request) { reply(w, "  ") }, gemini.ErrEmptyResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(tc.handler)
			defer ts.Close()
			cl, _ := gemini.New(ts.URL, "k", "m", 100)
			_, err := cl.Generate(context.Background(), domain.InferenceRequest{Prompt: "x"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestClient_Generate_ServerErrorNotRetried(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(500)
		_, _ = w.Write([]byte("internal"))
	}))
	defer ts.Close()

	cl, _ := gemini.New(ts.URL, "k", "m", 100)
	_, err := cl.Generate(context.Background(), domain.InferenceRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected status error, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected a single call, got %d", hits)
	}
}

func TestClient_Generate_HonorsContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	cl, _ := gemini.New(ts.URL, "k", "m", 100)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := cl.Generate(ctx, domain.InferenceRequest{Prompt: "x"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := gemini.New("http://x", "", "m", 1); err == nil {
		t.Fatalf("expected error")
	}
}
