// Package tinypng compresses PNG and JPEG images with the TinyPNG web API.
package tinypng

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultEndpoint = "https://api.tinify.com/shrink"

var ErrNoKey = errors.New("no TinyPNG API key")

type Client struct {
	Key      string
	Endpoint string
	HTTP     *http.Client
}

func New(key string) *Client {
	return &Client{
		Key:      key,
		Endpoint: DefaultEndpoint,
		HTTP:     &http.Client{Timeout: 2 * time.Minute},
	}
}

// APIError is the error document returned by the API.
type APIError struct {
	Status  int    `json:"-"`
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tinypng %d %s: %s", e.Status, e.Kind, e.Message)
}

// Shrink uploads img and downloads the compressed image.
func (c *Client) Shrink(ctx context.Context, img []byte) ([]byte, error) {
	if c.Key == "" {
		return nil, ErrNoKey
	}
	ep := c.Endpoint
	if ep == "" {
		ep = DefaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep, bytes.NewReader(img))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth("api", c.Key)
	resp, err := c.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp)
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return nil, errors.New("tinypng: response without location")
	}
	u, err := resp.Request.URL.Parse(loc)
	if err != nil {
		return nil, fmt.Errorf("tinypng location: %w", err)
	}
	if req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil); err != nil {
		return nil, err
	}
	req.SetBasicAuth("api", c.Key)
	out, err := c.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	if out.StatusCode != http.StatusOK {
		return nil, apiError(out)
	}
	return io.ReadAll(out.Body)
}

func (c *Client) client() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func apiError(resp *http.Response) error {
	e := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if json.Unmarshal(data, e) != nil || e.Kind == "" {
		e.Kind = http.StatusText(resp.StatusCode)
		e.Message = string(bytes.TrimSpace(data))
	}
	return e
}
