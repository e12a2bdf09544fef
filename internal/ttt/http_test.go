package ttt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/dictate/internal/errs"
)

func TestEnhanceRejectsEmptyText(t *testing.T) {
	adapter := New(Config{Endpoint: "http://127.0.0.1:0"})
	_, err := adapter.Enhance(context.Background(), "   ")
	require.ErrorIs(t, err, errs.ErrEmptyTranscript)
}

func TestEnhanceParsesSuccessfulResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req enhanceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "raw transcript", req.Text)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(enhanceResponse{
			Title: "Meeting notes",
			Body:  "We discussed...",
			Tags:  []string{"meeting", "notes", "follow-up"},
		})
	}))
	defer server.Close()

	adapter := New(Config{Endpoint: server.URL})
	note, err := adapter.Enhance(context.Background(), "raw transcript")
	require.NoError(t, err)
	require.Equal(t, "Meeting notes", note.Title)
	require.Len(t, note.Tags, 3)
}

func TestEnhanceRejectsTooFewTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(enhanceResponse{Title: "t", Body: "b", Tags: []string{"one"}})
	}))
	defer server.Close()

	adapter := New(Config{Endpoint: server.URL})
	_, err := adapter.Enhance(context.Background(), "raw transcript")
	require.ErrorIs(t, err, errs.ErrEnhanceFailed)
}

func TestEnhanceSurfacesNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	adapter := New(Config{Endpoint: server.URL})
	_, err := adapter.Enhance(context.Background(), "raw transcript")
	require.ErrorIs(t, err, errs.ErrEnhanceFailed)
	require.Contains(t, err.Error(), "boom")
}
