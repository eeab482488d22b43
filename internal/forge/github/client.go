package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"forgedeck/internal/forge"
)

type params map[string]any

// client is a thin authenticated JSON client over one API base URL.
type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) get(ctx context.Context, path string, q params, out any) error {
	return c.request(ctx, http.MethodGet, path, q, "", nil, out)
}

// getRaw fetches a non-JSON representation selected via the Accept header.
func (c *client) getRaw(ctx context.Context, path, accept string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", accept)
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
		return "", statusError(resp, body)
	}
	return string(body), nil
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	return c.request(ctx, method, path, nil, "", body, out)
}

func (c *client) request(ctx context.Context, method, path string, q params, accept string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, q, body)
	if err != nil {
		return err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
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
		return statusError(resp, raw)
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
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// statusError translates an HTTP failure into a typed forge error.
func statusError(resp *http.Response, body []byte) error {
	msg := apiMessage(body)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return forge.Errorf(forge.ErrAuth, "authentication failed: %s", msg)
	case http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != "" {
			return rateLimited(resp, msg)
		}
		return forge.Errorf(forge.ErrAuth, "forbidden: %s", msg)
	case http.StatusNotFound:
		return forge.Errorf(forge.ErrNotFound, "not found: %s", msg)
	case http.StatusTooManyRequests:
		return rateLimited(resp, msg)
	default:
		return forge.Errorf(forge.ErrNetwork, "http %d: %s", resp.StatusCode, msg)
	}
}

func rateLimited(resp *http.Response, msg string) error {
	err := forge.Errorf(forge.ErrRateLimited, "rate limited: %s", msg)
	if after := resp.Header.Get("Retry-After"); after != "" {
		if secs, perr := strconv.Atoi(after); perr == nil {
			err.RetryAfter = time.Duration(secs) * time.Second
		}
	} else if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if at, perr := strconv.ParseInt(reset, 10, 64); perr == nil {
			if wait := time.Until(time.Unix(at, 0)); wait > 0 {
				err.RetryAfter = wait
			}
		}
	}
	return err
}

func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 140 {
		s = s[:140]
	}
	if s == "" {
		s = "no response body"
	}
	return s
}

func splitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}
