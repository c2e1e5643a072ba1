// Package ipresolver looks up the caller-visible public IP recorded in
// signature metadata. The lookup is best effort: callers fall back to a
// placeholder when the service is slow or unreachable.
package ipresolver

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultLookupURL = "https://api.ipify.org"

	defaultTimeout = 2 * time.Second
	maxBodyBytes   = 64
)

type Resolver struct {
	url    string
	client *http.Client
}

type Option func(*Resolver)

func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

func New(url string, opts ...Option) *Resolver {
	if strings.TrimSpace(url) == "" {
		url = DefaultLookupURL
	}
	r := &Resolver{
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.New("ip lookup failed")
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	addr := strings.TrimSpace(string(body))
	if net.ParseIP(addr) == nil {
		return "", errors.New("ip lookup returned a non-address")
	}
	return addr, nil
}
