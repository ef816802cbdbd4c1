// Package qdrant implements the vector store against the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-copilot/internal/models"
	"ai-interview-copilot/internal/vector"
)

// Config holds connection settings for a Qdrant instance.
type Config struct {
	BaseURL    string
	APIKey     string
	Collection string
	VectorSize int
	Timeout    time.Duration
}

// Client talks to Qdrant over its HTTP API. It is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

// New creates a Qdrant client. The collection is not created until Ensure
// is called.
func New(cfg Config, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// Ensure creates the collection when missing. Existing collections are left
// untouched, including ones with a different vector size.
func (c *Client) Ensure(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/collections/"+c.cfg.Collection, nil)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if status == http.StatusOK {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     c.cfg.VectorSize,
			"distance": "Cosine",
		},
	}
	status, raw, err := c.do(ctx, http.MethodPut, "/collections/"+c.cfg.Collection, body)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("create collection: status %d: %s", status, raw)
	}

	c.log.Info().Str("collection", c.cfg.Collection).Int("vectorSize", c.cfg.VectorSize).Msg("Created vector collection")
	return nil
}

type searchRequest struct {
	Vector         []float32     `json:"vector"`
	Filter         *searchFilter `json:"filter,omitempty"`
	Limit          int           `json:"limit"`
	ScoreThreshold float64       `json:"score_threshold,omitempty"`
	WithPayload    bool          `json:"with_payload"`
}

type searchFilter struct {
	Must []fieldMatch `json:"must"`
}

type fieldMatch struct {
	Key   string     `json:"key"`
	Match matchValue `json:"match"`
}

type matchValue struct {
	Value string `json:"value"`
}

type searchResponse struct {
	Result []struct {
		ID      pointID      `json:"id"`
		Score   float64      `json:"score"`
		Payload pointPayload `json:"payload"`
	} `json:"result"`
}

// pointID accepts both representations Qdrant uses for point IDs, UUID
// strings and unsigned integers.
type pointID string

func (p *pointID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = pointID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("point id: %w", err)
	}
	*p = pointID(n.String())
	return nil
}

type pointPayload struct {
	UserID     string   `json:"user_id"`
	Question   string   `json:"question"`
	Variations []string `json:"variations,omitempty"`
	Answer     string   `json:"answer"`
	Type       string   `json:"type,omitempty"`
}

// Search implements vector.Store.
func (c *Client) Search(ctx context.Context, vec []float32, userID string, threshold float64, limit int) ([]vector.Result, error) {
	req := searchRequest{
		Vector:         vec,
		Limit:          limit,
		ScoreThreshold: threshold,
		WithPayload:    true,
	}
	if userID != "" {
		req.Filter = &searchFilter{
			Must: []fieldMatch{{Key: "user_id", Match: matchValue{Value: userID}}},
		}
	}

	status, raw, err := c.do(ctx, http.MethodPost, "/collections/"+c.cfg.Collection+"/points/search", req)
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("search points: status %d: %s", status, raw)
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]vector.Result, 0, len(resp.Result))
	for _, hit := range resp.Result {
		results = append(results, vector.Result{
			ID:    string(hit.ID),
			Score: hit.Score,
			Item: models.KnowledgeItem{
				ID:         string(hit.ID),
				Question:   hit.Payload.Question,
				Variations: hit.Payload.Variations,
				Answer:     hit.Payload.Answer,
				Type:       models.QuestionType(hit.Payload.Type),
			},
		})
	}
	return results, nil
}

// Upsert implements vector.Store.
func (c *Client) Upsert(ctx context.Context, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	type qdrantPoint struct {
		ID      string       `json:"id"`
		Vector  []float32    `json:"vector"`
		Payload pointPayload `json:"payload"`
	}
	body := struct {
		Points []qdrantPoint `json:"points"`
	}{Points: make([]qdrantPoint, 0, len(points))}

	for _, p := range points {
		body.Points = append(body.Points, qdrantPoint{
			ID:     p.ID,
			Vector: p.Vector,
			Payload: pointPayload{
				UserID:     p.UserID,
				Question:   p.Item.Question,
				Variations: p.Item.Variations,
				Answer:     p.Item.Answer,
				Type:       string(p.Item.Type),
			},
		})
	}

	status, raw, err := c.do(ctx, http.MethodPut, "/collections/"+c.cfg.Collection+"/points?wait=true", body)
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("upsert points: status %d: %s", status, raw)
	}
	return nil
}

// Delete implements vector.Store.
func (c *Client) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	body := map[string]any{"points": ids}
	status, raw, err := c.do(ctx, http.MethodPost, "/collections/"+c.cfg.Collection+"/points/delete?wait=true", body)
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("delete points: status %d: %s", status, raw)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}
