// Package transcript records every oracle query of an attack to an
// xz-compressed log file. A full attack issues tens of thousands of
// queries; the transcript makes post-mortems of misbehaving oracles
// possible without re-running the attack.
package transcript

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/nullmass/padoracle/pkg/oracle"
)

type Writer struct {
	mu      sync.Mutex
	file    *os.File
	xz      *xz.Writer
	bw      *bufio.Writer
	records uint64
}

// New creates (or truncates) an xz-compressed transcript at path.
func New(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("transcript: %w", err)
	}
	xzw, err := xz.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("transcript: %w", err)
	}
	return &Writer{
		file: f,
		xz:   xzw,
		bw:   bufio.NewWriterSize(xzw, 64*1024),
	}, nil
}

// Record appends one query outcome. Lines are tab-separated:
// RFC3339 time, hex candidate, verdict (valid/invalid/error), duration,
// and the error text when there is one.
func (w *Writer) Record(candidate []byte, verdict bool, d time.Duration, qerr error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bw == nil {
		return
	}

	outcome := "invalid"
	detail := ""
	switch {
	case qerr != nil:
		outcome = "error"
		detail = "\t" + qerr.Error()
	case verdict:
		outcome = "valid"
	}
	fmt.Fprintf(w.bw, "%s\t%s\t%s\t%s%s\n",
		time.Now().Format(time.RFC3339Nano),
		hex.EncodeToString(candidate),
		outcome, d, detail)
	w.records++
}

// Records returns the number of lines written so far.
func (w *Writer) Records() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

// Close flushes and finalizes the xz stream. The file is only a valid
// xz container after Close.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bw == nil {
		return nil
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("transcript: flush: %w", err)
	}
	w.bw = nil
	if err := w.xz.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("transcript: close xz stream: %w", err)
	}
	return w.file.Close()
}

type recordingTransport struct {
	writer *Writer
	next   oracle.Transport
}

// Wrap returns a transport that records every query passing through.
func (w *Writer) Wrap(next oracle.Transport) oracle.Transport {
	return &recordingTransport{writer: w, next: next}
}

func (t *recordingTransport) Query(ctx context.Context, candidate []byte) (bool, error) {
	start := time.Now()
	verdict, err := t.next.Query(ctx, candidate)
	t.writer.Record(candidate, verdict, time.Since(start), err)
	return verdict, err
}

func (t *recordingTransport) SupportsConcurrency() bool {
	ct, ok := t.next.(oracle.ConcurrentTransport)
	return ok && ct.SupportsConcurrency()
}
