package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type setResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTPCatalogClient reads card sets from the external catalog service.
type HTTPCatalogClient struct {
	Address string
	client  *http.Client
}

func NewHTTPCatalogClient(address string, timeout time.Duration) *HTTPCatalogClient {
	return &HTTPCatalogClient{
		Address: address,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPCatalogClient) GetAllSets(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/sets", c.Address), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	response, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: get sets: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog: read sets: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("catalog: get sets: %s", errResp.Error)
		}
		return nil, fmt.Errorf("catalog: get sets: unexpected status %d", response.StatusCode)
	}

	var sets []setResponse
	if err := json.Unmarshal(body, &sets); err != nil {
		return nil, fmt.Errorf("catalog: decode sets: %w", err)
	}

	out := make(map[string]string, len(sets))
	for _, s := range sets {
		out[s.ID] = s.Name
	}
	return out, nil
}

// StaticCatalog serves a fixed set table, e.g. from configuration.
type StaticCatalog map[string]string

func (c StaticCatalog) GetAllSets(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(c))
	for id, name := range c {
		out[id] = name
	}
	return out, nil
}
