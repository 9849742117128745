package transport

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nullmass/padoracle/pkg/oracle"
)

// HTTPConfig describes an HTTP oracle: the candidate is hex-encoded
// into a URL built from the template and the verdict is decided by
// substring, matching services that answer something like
// "invalid padding" in the response body.
type HTTPConfig struct {
	// URLTemplate must contain one %s verb for the hex candidate,
	// e.g. "http://host:8080/decrypt?ciphertext=%s".
	URLTemplate string

	ValidMarker   string
	InvalidMarker string

	Timeout time.Duration
	Client  *http.Client
}

// HTTPTransport queries the oracle over independent HTTP requests, so
// it safely serves concurrent queries.
type HTTPTransport struct {
	config HTTPConfig
	client *http.Client
}

func NewHTTP(config HTTPConfig) (*HTTPTransport, error) {
	if !strings.Contains(config.URLTemplate, "%s") {
		return nil, fmt.Errorf("transport: URL template must contain %%s")
	}
	if config.ValidMarker == "" && config.InvalidMarker == "" {
		return nil, fmt.Errorf("transport: at least one response marker must be configured")
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	return &HTTPTransport{config: config, client: client}, nil
}

func (t *HTTPTransport) SupportsConcurrency() bool { return true }

func (t *HTTPTransport) Query(ctx context.Context, candidate []byte) (bool, error) {
	url := fmt.Sprintf(t.config.URLTemplate, hex.EncodeToString(candidate))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, &oracle.TransportError{Op: "build request", Err: err}
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return false, &oracle.TransportError{Op: "http get", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, &oracle.TransportError{Op: "read body", Err: err}
	}

	// Marker check first: some services encode the verdict in the body
	// with a fixed 200, others use the status code alone.
	s := string(body)
	if t.config.InvalidMarker != "" && strings.Contains(s, t.config.InvalidMarker) {
		return false, nil
	}
	if t.config.ValidMarker != "" {
		if strings.Contains(s, t.config.ValidMarker) {
			return true, nil
		}
		if t.config.InvalidMarker != "" {
			return false, &oracle.TransportError{
				Op:  "classify response",
				Err: fmt.Errorf("no marker in %d-byte body (status %d)", len(body), resp.StatusCode),
			}
		}
		return false, nil
	}
	return resp.StatusCode < 400, nil
}
