// Package store loads per-user interview profiles from the persistent
// knowledge service.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ai-interview-copilot/internal/models"
)

// ProfileLoader fetches a user's interview profile at session start. A
// missing profile is returned as (nil, nil); sessions run fine without one.
type ProfileLoader interface {
	LoadProfile(ctx context.Context, userID string) (*models.InterviewProfile, error)
}

// HTTPLoader fetches profiles from the knowledge service REST API.
type HTTPLoader struct {
	baseURL string
	http    *http.Client
}

// NewHTTPLoader builds a loader against baseURL, e.g.
// "http://knowledge-service:8000".
func NewHTTPLoader(baseURL string, timeout time.Duration) *HTTPLoader {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPLoader{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (l *HTTPLoader) LoadProfile(ctx context.Context, userID string) (*models.InterviewProfile, error) {
	endpoint := l.baseURL + "/api/profiles/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("load profile: status %d", resp.StatusCode)
	}

	var profile models.InterviewProfile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}

// StaticLoader serves a fixed profile, for tests and local development.
type StaticLoader struct {
	Profile *models.InterviewProfile
}

func (s *StaticLoader) LoadProfile(ctx context.Context, userID string) (*models.InterviewProfile, error) {
	return s.Profile, nil
}
