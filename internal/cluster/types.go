package cluster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// Well-known paths and contributions shared by every node in the cluster.
const (
	HelloFromNodePath = "/helloFromNode"
	LocalGreeting     = "Hello World!"
	RequestIDHeader   = "X-Request-ID"
)

// maxBodyBytes caps the size of a peer's greeting. Larger bodies are rejected
// rather than cut.
const maxBodyBytes = 1 << 20

var (
	ErrInvalidAddress = errors.New("invalid peer address")
	ErrBadStatus      = errors.New("unexpected status")
	ErrNotText        = errors.New("response is not text")
	ErrTooLarge       = errors.New("response too large")
)

// PeerAddress is one named slot in the peer list. An empty Addr means no peer
// is configured for the slot on this request.
type PeerAddress struct {
	Slot string `json:"slot" yaml:"slot"`
	Addr string `json:"addr" yaml:"addr"`
}

func (p PeerAddress) Present() bool { return p.Addr != "" }

// Endpoint resolves path against the peer's base address. The path replaces
// whatever path the base carries.
func (p PeerAddress) Endpoint(path string) (string, error) {
	base, err := url.Parse(p.Addr)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidAddress, p.Addr, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", fmt.Errorf("%w %q: scheme must be http or https", ErrInvalidAddress, p.Addr)
	}
	if base.Host == "" {
		return "", fmt.Errorf("%w %q: missing host", ErrInvalidAddress, p.Addr)
	}
	return base.ResolveReference(&url.URL{Path: path}).String(), nil
}

type NodeInfo struct {
	Name      string        `json:"node_name"`
	Peers     []PeerSummary `json:"peers"`
	PeerCount int           `json:"peer_count"`
}

type PeerSummary struct {
	Slot    string `json:"slot"`
	Addr    string `json:"addr,omitempty"`
	Present bool   `json:"present"`
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// GetText fetches url and returns its body as a string. Anything other than a
// 2xx response carrying UTF-8 text is an error.
func GetText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")
	if id := RequestIDFrom(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: http %s: %d", ErrBadStatus, url, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || !strings.HasPrefix(mt, "text/") {
			return "", fmt.Errorf("%w: content type %q", ErrNotText, ct)
		}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return "", err
	}
	if len(body) > maxBodyBytes {
		return "", fmt.Errorf("%w: body exceeds %d bytes", ErrTooLarge, maxBodyBytes)
	}
	if !utf8.Valid(body) {
		return "", fmt.Errorf("%w: invalid utf-8", ErrNotText)
	}
	return string(body), nil
}

type requestIDKey struct{}

// WithRequestID returns a context that forwards id on outbound peer calls.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
