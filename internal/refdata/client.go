package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// ClientConfig describes how the HTTP reference data client is initialised.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client fetches reference data from the JSON endpoints of a data service:
// /api/parcels, /api/machines and /api/products/{type}.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a Client for the data service rooted at cfg.BaseURL.
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("refdata: base url must not be empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("refdata: parse base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Parcels implements Fetcher.
func (c *Client) Parcels(ctx context.Context) ([]Parcel, error) {
	var parcels []Parcel
	if err := c.getJSON(ctx, "/api/parcels", &parcels); err != nil {
		return nil, err
	}
	for _, parcel := range parcels {
		if parcel.ID == 0 {
			return nil, fmt.Errorf("%w: parcel without id", ErrUnavailable)
		}
	}
	return parcels, nil
}

// Machines implements Fetcher.
func (c *Client) Machines(ctx context.Context) ([]Machine, error) {
	var machines []Machine
	if err := c.getJSON(ctx, "/api/machines", &machines); err != nil {
		return nil, err
	}
	for _, machine := range machines {
		if machine.ID == 0 {
			return nil, fmt.Errorf("%w: machine without id", ErrUnavailable)
		}
	}
	return machines, nil
}

// Products implements Fetcher.
func (c *Client) Products(ctx context.Context, treatmentType string) ([]Product, error) {
	treatmentType = strings.TrimSpace(treatmentType)
	if treatmentType == "" {
		return nil, errors.New("refdata: treatment type must not be empty")
	}

	var products []Product
	if err := c.getJSON(ctx, "/api/products/"+url.PathEscape(treatmentType), &products); err != nil {
		return nil, err
	}
	for i := range products {
		if err := products[i].Resolve(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return products, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("refdata: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: call %s: %v", ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s returned status %s", ErrUnavailable, path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, path, err)
	}
	return nil
}
