package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEmbeddingService_EmbedBatch(t *testing.T) {
	var gotPath string
	var gotReq jinaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		// Results come back out of order to exercise index-based reassembly
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"embedding":[0.4,0.5],"index":1},{"embedding":[0.1,0.2],"index":0}]}`))
	}))
	defer server.Close()

	svc := NewEmbeddingService(&EmbeddingConfig{
		Model:      "test-embed",
		APIKey:     "k",
		BaseURL:    server.URL,
		Dimensions: 2,
	})

	got, err := svc.EmbedBatch(context.Background(), []string{"first caption", "second caption"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/embeddings" {
		t.Errorf("expected /embeddings path, got %s", gotPath)
	}
	if gotReq.Task != "retrieval.passage" {
		t.Errorf("expected retrieval.passage task, got %s", gotReq.Task)
	}
	if gotReq.Dimensions != 2 {
		t.Errorf("expected dimensions 2, got %d", gotReq.Dimensions)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(got))
	}
	if got[0][0] != 0.1 || got[0][1] != 0.2 {
		t.Errorf("first embedding not reordered by index: %v", got[0])
	}
	if got[1][0] != 0.4 || got[1][1] != 0.5 {
		t.Errorf("second embedding not reordered by index: %v", got[1])
	}
}

func TestEmbeddingService_EmbedBatchEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty batch")
	}))
	defer server.Close()

	svc := NewEmbeddingService(&EmbeddingConfig{Model: "m", APIKey: "k", BaseURL: server.URL})

	got, err := svc.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no embeddings, got %d", len(got))
	}
}

func TestEmbeddingService_EmbedBatchCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"embedding":[0.1],"index":0}]}`))
	}))
	defer server.Close()

	svc := NewEmbeddingService(&EmbeddingConfig{Model: "m", APIKey: "k", BaseURL: server.URL})

	_, err := svc.EmbedBatch(context.Background(), []string{"one", "two"})
	if err == nil {
		t.Fatal("expected error for embedding count mismatch")
	}
	if !strings.Contains(err.Error(), "unexpected number of embeddings") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEmbeddingService_EmbedBatchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer server.Close()

	svc := NewEmbeddingService(&EmbeddingConfig{Model: "m", APIKey: "bad", BaseURL: server.URL})

	_, err := svc.EmbedBatch(context.Background(), []string{"text"})
	if err == nil {
		t.Fatal("expected error from the API")
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestEmbeddingService_EmbedQuery(t *testing.T) {
	var gotReq jinaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"embedding":[0.9,0.8],"index":0}]}`))
	}))
	defer server.Close()

	svc := NewEmbeddingService(&EmbeddingConfig{Model: "m", APIKey: "k", BaseURL: server.URL})

	got, err := svc.EmbedQuery(context.Background(), "a woman with red hair")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotReq.Task != "retrieval.query" {
		t.Errorf("expected retrieval.query task, got %s", gotReq.Task)
	}
	if len(got) != 2 || got[0] != 0.9 {
		t.Errorf("unexpected embedding: %v", got)
	}
}
