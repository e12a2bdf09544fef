package ttt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rbright/dictate/internal/domain"
	"github.com/rbright/dictate/internal/errs"
)

// Config points the adapter at an HTTP text-enhancement endpoint. No
// client library in the corpus speaks to an arbitrary LLM completion
// endpoint, so this adapter is a thin net/http POST — see DESIGN.md for
// why this one component stays on the standard library.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

type enhanceRequest struct {
	Text string `json:"text"`
}

type enhanceResponse struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

// HTTPAdapter is the Port implementation that delegates to an HTTP
// text-enhancement endpoint.
type HTTPAdapter struct {
	cfg    Config
	client *http.Client
}

// New constructs an HTTPAdapter from cfg.
func New(cfg Config) *HTTPAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPAdapter{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// Enhance implements Port.
func (a *HTTPAdapter) Enhance(ctx context.Context, text string) (domain.Note, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Note{}, errs.ErrEmptyTranscript
	}

	body, err := json.Marshal(enhanceRequest{Text: text})
	if err != nil {
		return domain.Note{}, fmt.Errorf("%w: encode request: %v", errs.ErrEnhanceFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Note{}, fmt.Errorf("%w: build request: %v", errs.ErrEnhanceFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.Note{}, fmt.Errorf("%w: %v", errs.ErrEnhanceFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return domain.Note{}, fmt.Errorf("%w: status %d: %s", errs.ErrEnhanceFailed, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed enhanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.Note{}, fmt.Errorf("%w: decode response: %v", errs.ErrEnhanceFailed, err)
	}

	if err := domain.ValidateTags(parsed.Tags); err != nil {
		return domain.Note{}, err
	}

	return domain.Note{
		Title:     parsed.Title,
		Body:      parsed.Body,
		Tags:      parsed.Tags,
		CreatedAt: time.Now(),
	}, nil
}
