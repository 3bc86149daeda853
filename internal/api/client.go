// internal/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cargotrack/routeplay/internal/parser"
	"github.com/cargotrack/routeplay/pkg/core"
)

// ErrNotFound is returned when the dashboard does not know a shipment.
var ErrNotFound = errors.New("shipment not found")

const maxBodySize = 4 << 20

// Client handles communication with the planning dashboard.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the dashboard is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// FetchRoute downloads the resolved route document of a shipment.
func (c *Client) FetchRoute(ctx context.Context, key core.ShipmentKey) ([]byte, error) {
	u := fmt.Sprintf("%s/Planejamento/API/Rota/%s/%s/%s", c.baseURL,
		url.PathEscape(key.Branch), url.PathEscape(key.Series), url.PathEscape(key.Number))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	default:
		return nil, fmt.Errorf("route request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read route: %w", err)
	}
	return body, nil
}

type saveResponse struct {
	Success bool            `json:"sucesso"`
	ID      json.RawMessage `json:"id_planejamento"`
	Message string          `json:"msg"`
}

// SavePlan posts a confirmed plan and returns the id the dashboard gave it.
func (c *Client) SavePlan(ctx context.Context, plan parser.Plan) (string, error) {
	body, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("failed to encode plan: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Planejamento/API/Salvar", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("save request failed: %w", err)
	}
	defer resp.Body.Close()

	var out saveResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&out); err != nil {
		return "", fmt.Errorf("save returned status %d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		return "", fmt.Errorf("save returned status %d: %s", resp.StatusCode, out.Message)
	}
	return strings.Trim(string(out.ID), `"`), nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}
