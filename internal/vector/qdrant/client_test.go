package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-copilot/internal/vector"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:    srv.URL,
		Collection: "qa_pairs",
		VectorSize: 4,
		Timeout:    time.Second,
	}, zerolog.Nop())
}

func TestSearch(t *testing.T) {
	var gotReq searchRequest
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/qa_pairs/points/search" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		resp := map[string]any{
			"result": []map[string]any{
				{
					"id":    "qa-1",
					"score": 0.91,
					"payload": map[string]any{
						"user_id":  "user-1",
						"question": "Tell me about yourself",
						"answer":   "I am a backend engineer.",
						"type":     "behavioral",
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))

	results, err := c.Search(context.Background(), []float32{0.1, 0.2, 0.3, 0.4}, "user-1", 0.5, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ID != "qa-1" || results[0].Score != 0.91 {
		t.Errorf("result = %+v", results[0])
	}
	if results[0].Item.Answer != "I am a backend engineer." {
		t.Errorf("payload answer = %q", results[0].Item.Answer)
	}

	if gotReq.Limit != 5 || gotReq.ScoreThreshold != 0.5 {
		t.Errorf("request limit/threshold = %d/%v", gotReq.Limit, gotReq.ScoreThreshold)
	}
	if gotReq.Filter == nil || len(gotReq.Filter.Must) != 1 || gotReq.Filter.Must[0].Match.Value != "user-1" {
		t.Errorf("request filter = %+v", gotReq.Filter)
	}
}

func TestSearch_NoUserFilter(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Filter != nil {
			t.Errorf("filter sent for empty user: %+v", req.Filter)
		}
		json.NewEncoder(w).Encode(map[string]any{"result": []any{}})
	}))

	if _, err := c.Search(context.Background(), []float32{1}, "", 0.5, 5); err != nil {
		t.Fatalf("Search: %v", err)
	}
}

func TestSearch_ServerError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))

	if _, err := c.Search(context.Background(), []float32{1}, "user-1", 0.5, 5); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestUpsert(t *testing.T) {
	var gotBody struct {
		Points []struct {
			ID      string       `json:"id"`
			Vector  []float32    `json:"vector"`
			Payload pointPayload `json:"payload"`
		} `json:"points"`
	}
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/collections/qa_pairs/points" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))

	err := c.Upsert(context.Background(), []vector.Point{{
		ID:     "qa-1",
		Vector: []float32{0.1, 0.2},
		UserID: "user-1",
	}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(gotBody.Points) != 1 || gotBody.Points[0].Payload.UserID != "user-1" {
		t.Errorf("upsert body = %+v", gotBody)
	}
}

func TestEnsure_CreatesMissingCollection(t *testing.T) {
	var created bool
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			http.Error(w, "not found", http.StatusNotFound)
		case http.MethodPut:
			created = true
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]any{"result": true})
		}
	}))

	if err := c.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !created {
		t.Error("collection not created")
	}
}

func TestEnsure_ExistingCollection(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected %s request for existing collection", r.Method)
		}
		json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{}})
	}))

	if err := c.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
}
