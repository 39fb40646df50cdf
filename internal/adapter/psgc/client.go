// Package psgc loads the administrative geography reference from the
// Philippine Standard Geographic Code API and caches it locally.
package psgc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Unit is one administrative unit as the PSGC API returns it.
type Unit struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Client fetches administrative units from the PSGC API.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient creates a PSGC API client with retry on transient failures.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, logger: logger}
}

// Municipalities lists the cities and municipalities of a province.
func (c *Client) Municipalities(ctx context.Context, provinceCode string) ([]Unit, error) {
	return c.getUnits(ctx, fmt.Sprintf("/provinces/%s/cities-municipalities/", provinceCode))
}

// Barangays lists the barangays of a city or municipality.
func (c *Client) Barangays(ctx context.Context, municipalityCode string) ([]Unit, error) {
	return c.getUnits(ctx, fmt.Sprintf("/cities-municipalities/%s/barangays/", municipalityCode))
}

func (c *Client) getUnits(ctx context.Context, path string) ([]Unit, error) {
	var units []Unit

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&units).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("psgc request %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("psgc API error: status %d for %s", resp.StatusCode(), path)
	}

	return units, nil
}
