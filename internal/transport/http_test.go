package transport

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := hex.DecodeString(r.URL.Query().Get("ciphertext"))
		if err != nil || len(raw) == 0 || raw[len(raw)-1] != 0x01 {
			fmt.Fprint(w, "invalid padding")
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	tr, err := NewHTTP(HTTPConfig{
		URLTemplate:   srv.URL + "/decrypt?ciphertext=%s",
		ValidMarker:   "ok",
		InvalidMarker: "invalid padding",
	})
	require.NoError(t, err)
	assert.True(t, tr.SupportsConcurrency())

	valid := make([]byte, 32)
	valid[31] = 0x01
	verdict, err := tr.Query(context.Background(), valid)
	require.NoError(t, err)
	assert.True(t, verdict)

	verdict, err = tr.Query(context.Background(), make([]byte, 32))
	require.NoError(t, err)
	assert.False(t, verdict)
}

func TestHTTPTransportConnectionRefused(t *testing.T) {
	tr, err := NewHTTP(HTTPConfig{
		URLTemplate:   "http://127.0.0.1:1/decrypt?ciphertext=%s",
		ValidMarker:   "ok",
		InvalidMarker: "invalid padding",
	})
	require.NoError(t, err)

	_, err = tr.Query(context.Background(), make([]byte, 32))
	require.Error(t, err)
}

func TestNewHTTPValidation(t *testing.T) {
	_, err := NewHTTP(HTTPConfig{URLTemplate: "http://x/%s"})
	assert.Error(t, err)

	_, err = NewHTTP(HTTPConfig{ValidMarker: "ok"})
	assert.Error(t, err)
}
