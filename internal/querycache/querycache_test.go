package querycache

import (
	"context"
	"io"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func openMem(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(Config{InMemory: true, Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutGet(t *testing.T) {
	c := openMem(t)

	key := []byte("candidate-bytes-0123456789abcdef")
	_, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(key, true))
	verdict, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, verdict)

	require.NoError(t, c.Put(key, false))
	verdict, ok, err = c.Get(key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, verdict)

	hits, misses := c.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(Config{Path: dir, Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, c.Put([]byte("persisted"), true))
	require.NoError(t, c.Close())

	c, err = Open(Config{Path: dir, Logger: quietLogger()})
	require.NoError(t, err)
	defer c.Close()

	verdict, ok, err := c.Get([]byte("persisted"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, verdict)
}

type countingTransport struct {
	calls atomic.Uint64
}

func (c *countingTransport) Query(_ context.Context, candidate []byte) (bool, error) {
	c.calls.Add(1)
	return candidate[len(candidate)-1] == 0x01, nil
}

func TestWrapAvoidsRepeatQueries(t *testing.T) {
	c := openMem(t)
	inner := &countingTransport{}
	tr := c.Wrap(inner)

	candidate := make([]byte, 32)
	candidate[31] = 0x01

	for i := 0; i < 5; i++ {
		verdict, err := tr.Query(context.Background(), candidate)
		require.NoError(t, err)
		assert.True(t, verdict)
	}
	assert.Equal(t, uint64(1), inner.calls.Load())
}
