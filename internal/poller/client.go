// Package poller keeps a scene registry in step with the entity lists served
// over HTTP.
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Faultbox/scape/internal/scene"
	"github.com/Faultbox/scape/pkg/glb"
)

// maxBody caps how much of a response is read.
const maxBody = 32 << 20

// Client talks to the scene server's REST API.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
}

// NewClient creates a client for the server at baseURL. timeout bounds each
// request; zero means no per-request deadline beyond the caller's context.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	return &Client{
		base:    u,
		http:    &http.Client{},
		timeout: timeout,
	}, nil
}

// EntityPath returns the list endpoint for kind.
func EntityPath(kind scene.Kind) string {
	switch kind {
	case scene.KindDevice:
		return "/api/devices"
	case scene.KindParticipant:
		return "/api/participants"
	default:
		return "/api/" + url.PathEscape(string(kind)) + "s"
	}
}

// FetchEntities downloads and normalizes the list for kind. Bad records are
// dropped by the decoder.
func (c *Client) FetchEntities(ctx context.Context, kind scene.Kind, decode func([]byte, scene.Kind) ([]scene.Entity, error)) ([]scene.Entity, error) {
	body, err := c.get(ctx, EntityPath(kind))
	if err != nil {
		return nil, err
	}
	return decode(body, kind)
}

// FetchModel downloads the processed mesh summary for room.
func (c *Client) FetchModel(ctx context.Context, room string) (*glb.ProcessedGLB, error) {
	body, err := c.get(ctx, "/api/rooms/"+url.PathEscape(room)+"/model")
	if err != nil {
		return nil, err
	}
	var model glb.ProcessedGLB
	if err := json.Unmarshal(body, &model); err != nil {
		return nil, fmt.Errorf("decoding model for %s: %w", room, err)
	}
	return &model, nil
}

// StatusError is a non-2xx response.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: %d %s", e.Path, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("GET %s: %d %s: %s", e.Path, e.Status, http.StatusText(e.Status), e.Body)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String()+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, &StatusError{Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
