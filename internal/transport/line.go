// Package transport contains oracle adapters for the wire formats CTF
// services actually speak: a line-oriented hex protocol over TCP and an
// HTTP query-parameter variant, plus the retry policy both share. The
// adapters map whatever the service prints to the three-way outcome the
// engine cares about: valid, invalid, or transport failure.
package transport

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/nullmass/padoracle/pkg/oracle"
)

// LineConfig describes a line-oriented TCP oracle: connect, read a
// banner, then repeatedly send hex-encoded ciphertext followed by a
// newline and classify the response by substring.
type LineConfig struct {
	Addr string

	// ValidMarker and InvalidMarker are the response substrings that
	// decide the verdict. A response containing neither within the
	// query timeout is a malformed-response transport failure.
	ValidMarker   string
	InvalidMarker string

	// CiphertextPattern optionally extracts the challenge ciphertext
	// from the banner; it must contain one capture group matching hex.
	CiphertextPattern string

	DialTimeout  time.Duration
	QueryTimeout time.Duration

	Logger *slog.Logger
}

// LineTransport is a single-connection adapter. One query is in flight
// at a time; the engine treats it as strictly sequential.
type LineTransport struct {
	config LineConfig
	banner []byte

	mu   sync.Mutex
	conn net.Conn
	br   *bufio.Reader
}

// DialLine connects to the oracle and consumes the banner up to the
// first prompt or until the dial timeout lapses.
func DialLine(config LineConfig) (*LineTransport, error) {
	if config.ValidMarker == "" || config.InvalidMarker == "" {
		return nil, fmt.Errorf("transport: valid and invalid markers must be configured")
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 20 * time.Second
	}
	if config.QueryTimeout == 0 {
		config.QueryTimeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	t := &LineTransport{config: config}
	if err := t.connect(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *LineTransport) connect() error {
	conn, err := net.DialTimeout("tcp", t.config.Addr, t.config.DialTimeout)
	if err != nil {
		return &oracle.TransportError{Op: "dial " + t.config.Addr, Err: err}
	}
	t.conn = conn
	t.br = bufio.NewReader(conn)

	banner, err := t.readBanner()
	if err != nil {
		conn.Close()
		t.conn = nil
		return err
	}
	t.banner = banner
	t.config.Logger.Debug("connected to oracle", "addr", t.config.Addr, "banner_bytes", len(banner))
	return nil
}

// readBanner reads until the service stops talking (prompt reached or
// short read timeout). Services print free-form text here, so there is
// no framing to rely on.
func (t *LineTransport) readBanner() ([]byte, error) {
	var banner []byte
	buf := make([]byte, 4096)
	deadline := time.Now().Add(t.config.DialTimeout)
	for {
		t.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, err := t.br.Read(buf)
		banner = append(banner, buf[:n]...)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() && len(banner) > 0 {
				return banner, nil
			}
			if time.Now().After(deadline) {
				return nil, &oracle.TransportError{Op: "read banner", Err: err}
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return nil, &oracle.TransportError{Op: "read banner", Err: err}
		}
		if strings.HasSuffix(string(banner), "> ") {
			return banner, nil
		}
	}
}

// Banner returns the raw text the service printed on connect.
func (t *LineTransport) Banner() []byte { return t.banner }

// Ciphertext extracts the challenge ciphertext from the banner using
// the configured pattern.
func (t *LineTransport) Ciphertext() ([]byte, error) {
	if t.config.CiphertextPattern == "" {
		return nil, fmt.Errorf("transport: no ciphertext pattern configured")
	}
	re, err := regexp.Compile(t.config.CiphertextPattern)
	if err != nil {
		return nil, fmt.Errorf("transport: bad ciphertext pattern: %w", err)
	}
	m := re.FindSubmatch(t.banner)
	if len(m) < 2 {
		return nil, fmt.Errorf("transport: ciphertext pattern did not match banner")
	}
	ct, err := hex.DecodeString(string(m[1]))
	if err != nil {
		return nil, fmt.Errorf("transport: decoding banner ciphertext: %w", err)
	}
	return ct, nil
}

// Query sends the candidate and reads until a marker decides the
// verdict. Any network failure closes the connection; the next query
// reconnects, so a retry layer on top gets a fresh socket.
func (t *LineTransport) Query(ctx context.Context, candidate []byte) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		if err := t.connect(); err != nil {
			return false, err
		}
	}

	deadline := time.Now().Add(t.config.QueryTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	t.conn.SetDeadline(deadline)

	if _, err := t.conn.Write([]byte(hex.EncodeToString(candidate) + "\n")); err != nil {
		return false, t.fail("write", err)
	}

	var resp []byte
	buf := make([]byte, 1024)
	for {
		if ctx.Err() != nil {
			return false, &oracle.TransportError{Op: "query", Err: ctx.Err()}
		}
		n, err := t.br.Read(buf)
		resp = append(resp, buf[:n]...)
		// Invalid first: services love marker pairs like
		// "Valid Padding"/"Invalid Padding" where one contains the
		// other.
		if strings.Contains(string(resp), t.config.InvalidMarker) {
			return false, nil
		}
		if strings.Contains(string(resp), t.config.ValidMarker) {
			return true, nil
		}
		if err != nil {
			return false, t.fail("read", err)
		}
	}
}

// fail tears down the connection and wraps the error so the retry layer
// recognizes it.
func (t *LineTransport) fail(op string, err error) error {
	t.conn.Close()
	t.conn = nil
	t.br = nil
	t.config.Logger.Warn("oracle connection lost", "op", op, "err", err)
	return &oracle.TransportError{Op: op, Err: err}
}

// Close shuts the connection down.
func (t *LineTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.br = nil
	return err
}
