package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/grid"
)

// API is the server surface the renderer depends on. APIClient implements it.
type API interface {
	FetchBox(ctx context.Context, box grid.Box) ([]domain.Pixel, error)
	Place(ctx context.Context, x, y int, color string) (*PlaceResponse, error)
}

type PlaceResponse struct {
	Success       bool  `json:"success"`
	CooldownUntil int64 `json:"cooldownUntil"`
}

// PlaceError is a refused placement as reported by the server.
type PlaceError struct {
	Status int
	Reason string
	WaitMs int64
}

func (e *PlaceError) Error() string {
	if e.WaitMs > 0 {
		return fmt.Sprintf("place refused (%d): %s, wait %dms", e.Status, e.Reason, e.WaitMs)
	}
	return fmt.Sprintf("place refused (%d): %s", e.Status, e.Reason)
}

// ErrOutOfBounds is returned by Click for positions off the board. No request is made.
var ErrOutOfBounds = errors.New("position is outside the board")

// APIClient talks to the JSON API over HTTP.
type APIClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchBox returns the painted cells of one box. The box must respect the server's size caps.
func (c *APIClient) FetchBox(ctx context.Context, box grid.Box) ([]domain.Pixel, error) {
	q := url.Values{}
	q.Set("left", strconv.Itoa(box.Left))
	q.Set("top", strconv.Itoa(box.Top))
	q.Set("right", strconv.Itoa(box.Right))
	q.Set("bottom", strconv.Itoa(box.Bottom))
	q.Set("limit", strconv.Itoa(grid.MaxBoxPixels))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/pixels/box?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("fetch box %d,%d-%d,%d: status %d %s", box.Left, box.Top, box.Right, box.Bottom, resp.StatusCode, body.Error)
	}

	var pixels []domain.Pixel
	if err := json.NewDecoder(resp.Body).Decode(&pixels); err != nil {
		return nil, fmt.Errorf("decode box: %w", err)
	}
	return pixels, nil
}

// Place submits one placement. Refusals come back as *PlaceError.
func (c *APIClient) Place(ctx context.Context, x, y int, color string) (*PlaceResponse, error) {
	payload, err := json.Marshal(map[string]any{"x": x, "y": y, "color": color})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/pixels/place", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Success       bool   `json:"success"`
		CooldownUntil int64  `json:"cooldownUntil"`
		Error         string `json:"error"`
		WaitMs        int64  `json:"waitMs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("decode place: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !body.Success {
		reason := body.Error
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return nil, &PlaceError{Status: resp.StatusCode, Reason: reason, WaitMs: body.WaitMs}
	}
	return &PlaceResponse{Success: true, CooldownUntil: body.CooldownUntil}, nil
}
