package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// client wraps http.Client with the service routes.
type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{base: base, http: &http.Client{Timeout: timeout}}
}

func (c *client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, data, err
}

func (c *client) health(ctx context.Context) error {
	code, _, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("healthz returned %d", code)
	}
	return nil
}

// submit returns the HTTP status of a POST /compositions.
func (c *client) submit(ctx context.Context, r Request) (int, Ack, error) {
	code, data, err := c.do(ctx, http.MethodPost, "/compositions", r)
	if err != nil {
		return 0, Ack{}, err
	}
	var ack Ack
	if code == http.StatusOK || code == http.StatusAccepted {
		if err := json.Unmarshal(data, &ack); err != nil {
			return code, Ack{}, fmt.Errorf("decode ack: %w", err)
		}
	}
	return code, ack, nil
}

func (c *client) get(ctx context.Context, id string) (Composition, error) {
	code, data, err := c.do(ctx, http.MethodGet, "/compositions/"+url.PathEscape(id), nil)
	if err != nil {
		return Composition{}, err
	}
	if code != http.StatusOK {
		return Composition{}, fmt.Errorf("get %s returned %d", id, code)
	}
	var out Composition
	if err := json.Unmarshal(data, &out); err != nil {
		return Composition{}, fmt.Errorf("decode %s: %w", id, err)
	}
	return out, nil
}

func (c *client) top(ctx context.Context, n int) ([]Composition, error) {
	code, data, err := c.do(ctx, http.MethodGet, "/compositions?limit="+strconv.Itoa(n), nil)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("top %d returned %d", n, code)
	}
	var out []Composition
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode top: %w", err)
	}
	return out, nil
}
