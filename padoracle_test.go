package padoracle

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nullmass/padoracle/pkg/oracle"
	"github.com/nullmass/padoracle/pkg/pkcs7"
)

var (
	testKey = []byte("YELLOW SUBMARINE")
	testIV  = []byte("0123456789abcdef")
)

func quietConfig() Config {
	return Config{
		Logger:         slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		RetryBaseDelay: time.Millisecond,
	}
}

func encrypt(t *testing.T, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(testKey)
	if err != nil {
		t.Fatalf("creating cipher: %v", err)
	}
	padded := pkcs7.Pad(plaintext)
	out := make([]byte, 16+len(padded))
	copy(out, testIV)
	cipher.NewCBCEncrypter(block, testIV).CryptBlocks(out[16:], padded)
	return out
}

// referenceOracle decrypts for real and answers only the padding
// question, optionally timing out every n-th query once.
type referenceOracle struct {
	block     cipher.Block
	calls     atomic.Uint64
	failEvery uint64
}

func newReferenceOracle(t *testing.T) *referenceOracle {
	t.Helper()
	block, err := aes.NewCipher(testKey)
	if err != nil {
		t.Fatalf("creating cipher: %v", err)
	}
	return &referenceOracle{block: block}
}

func (o *referenceOracle) Query(_ context.Context, candidate []byte) (bool, error) {
	n := o.calls.Add(1)
	if o.failEvery > 0 && n%o.failEvery == 0 {
		return false, &oracle.TransportError{Op: "query", Err: errors.New("injected timeout")}
	}
	plain := make([]byte, len(candidate)-16)
	cipher.NewCBCDecrypter(o.block, candidate[:16]).CryptBlocks(plain, candidate[16:])
	return pkcs7.Valid(plain), nil
}

func TestDecryptYellowSubmarine(t *testing.T) {
	engine, err := New(quietConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ct := encrypt(t, []byte("YELLOW SUBMARINE"))
	res, err := engine.Decrypt(context.Background(), ct, newReferenceOracle(t))
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}

	if !res.PaddingVerified {
		t.Error("expected padding to verify")
	}
	if len(res.Unresolved) != 0 {
		t.Errorf("expected no unresolved bytes, got %v", res.Unresolved)
	}
	if string(res.Plaintext) != "YELLOW SUBMARINE" {
		t.Errorf("got %q", res.Plaintext)
	}
	if res.Queries == 0 {
		t.Error("expected a nonzero query count")
	}
}

func TestDecryptSurvivesFlakyTransport(t *testing.T) {
	engine, err := New(Config{
		Logger:         slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		RetryAttempts:  3,
		RetryBaseDelay: time.Microsecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	o := newReferenceOracle(t)
	o.failEvery = 7 // transient: the retried query lands on a later call

	ct := encrypt(t, []byte("flaky channels should not change answers"))
	res, err := engine.Decrypt(context.Background(), ct, o)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !res.PaddingVerified {
		t.Error("expected padding to verify")
	}
	if string(res.Plaintext) != "flaky channels should not change answers" {
		t.Errorf("got %q", res.Plaintext)
	}
}

func TestDecryptRejectsBadLength(t *testing.T) {
	engine, err := New(quietConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, ct := range [][]byte{nil, make([]byte, 15), make([]byte, 16), make([]byte, 33)} {
		o := newReferenceOracle(t)
		if _, err := engine.Decrypt(context.Background(), ct, o); !errors.Is(err, oracle.ErrInvalidLength) {
			t.Errorf("len %d: expected ErrInvalidLength, got %v", len(ct), err)
		}
		if o.calls.Load() != 0 {
			t.Errorf("len %d: oracle queried before validation", len(ct))
		}
	}
}

func TestDecryptWithCacheAndTranscript(t *testing.T) {
	dir := t.TempDir()
	config := quietConfig()
	config.InMemoryCache = true
	config.TranscriptPath = filepath.Join(dir, "attack.log.xz")

	engine, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ct := encrypt(t, []byte("cache me"))
	res, err := engine.Decrypt(context.Background(), ct, newReferenceOracle(t))
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(res.Plaintext) != "cache me" {
		t.Errorf("got %q", res.Plaintext)
	}
}

func TestCacheMakesReattackCheap(t *testing.T) {
	config := quietConfig()
	config.CachePath = t.TempDir()

	ct := encrypt(t, []byte("resume me"))

	engine, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first := newReferenceOracle(t)
	if _, err := engine.Decrypt(context.Background(), ct, first); err != nil {
		t.Fatalf("first Decrypt: %v", err)
	}

	// Same cache directory: the re-attack must hit the oracle far less.
	second := newReferenceOracle(t)
	res, err := engine.Decrypt(context.Background(), ct, second)
	if err != nil {
		t.Fatalf("second Decrypt: %v", err)
	}
	if string(res.Plaintext) != "resume me" {
		t.Errorf("got %q", res.Plaintext)
	}
	if second.calls.Load() != 0 {
		t.Errorf("expected full replay from cache, oracle saw %d queries", second.calls.Load())
	}
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{CachePath: "/tmp/x", InMemoryCache: true})
	if err == nil {
		t.Fatal("expected config error")
	}
}

func TestForgeRoundTrip(t *testing.T) {
	engine, err := New(quietConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	want := []byte("forged confession")
	forged, err := engine.Forge(context.Background(), want, newReferenceOracle(t))
	if err != nil {
		t.Fatalf("Forge: %v", err)
	}

	block, err := aes.NewCipher(testKey)
	if err != nil {
		t.Fatalf("creating cipher: %v", err)
	}
	plain := make([]byte, len(forged)-16)
	cipher.NewCBCDecrypter(block, forged[:16]).CryptBlocks(plain, forged[16:])
	got, err := pkcs7.Unpad(plain)
	if err != nil {
		t.Fatalf("forged ciphertext has bad padding: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}
