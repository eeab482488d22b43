package gitea

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"forgedeck/internal/forge"
)

type params map[string]any

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) get(ctx context.Context, path string, q params, out any) error {
	return c.request(ctx, http.MethodGet, path, q, nil, out)
}

func (c *client) getRaw(ctx context.Context, path string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", forge.Errorf(forge.ErrNetwork, "request %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", forge.Errorf(forge.ErrNetwork, "read %s: %v", path, err)
	}
	if resp.StatusCode >= 400 {
		return "", statusError(resp.StatusCode, body)
	}
	return string(body), nil
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	return c.request(ctx, method, path, nil, body, out)
}

func (c *client) request(ctx context.Context, method, path string, q params, body, out any) error {
	req, err := c.newRequest(ctx, method, path, q, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return forge.Errorf(forge.ErrNetwork, "request %s: %v", path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return forge.Errorf(forge.ErrNetwork, "read %s: %v", path, err)
	}
	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return forge.Errorf(forge.ErrNetwork, "decode %s: %v", path, err)
	}
	return nil
}

func (c *client) newRequest(ctx context.Context, method, path string, q params, body any) (*http.Request, error) {
	u := c.base + path
	if len(q) > 0 {
		vals := url.Values{}
		for k, v := range q {
			vals.Set(k, fmt.Sprint(v))
		}
		u += "?" + vals.Encode()
	}
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, forge.Errorf(forge.ErrNetwork, "encode body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, forge.Errorf(forge.ErrNetwork, "build request: %v", err)
	}
	req.Header.Set("Authorization", "token "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func statusError(code int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		msg = payload.Message
	}
	if len(msg) > 140 {
		msg = msg[:140]
	}
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return forge.Errorf(forge.ErrAuth, "authentication failed: %s", msg)
	case http.StatusNotFound:
		return forge.Errorf(forge.ErrNotFound, "not found: %s", msg)
	case http.StatusTooManyRequests:
		return forge.Errorf(forge.ErrRateLimited, "rate limited: %s", msg)
	default:
		return forge.Errorf(forge.ErrNetwork, "http %d: %s", code, msg)
	}
}
