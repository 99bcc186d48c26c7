package perf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunModes(t *testing.T) {
	for _, mode := range []string{"cpu", "heap", "allocs", "block", "mutex"} {
		t.Run(mode, func(t *testing.T) {
			dir := t.TempDir()
			called := 0
			require.NoError(t, Run(func() error { called++; return nil }, mode, dir))
			assert.Equal(t, 1, called)
			_, err := os.Stat(filepath.Join(dir, mode+".pprof"))
			assert.NoError(t, err)
		})
	}
}

func TestRunPassThrough(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")
	assert.ErrorIs(t, Run(func() error { return boom }, "", dir), boom)
	assert.ErrorIs(t, Run(func() error { return boom }, "heap", dir), boom)

	_, err := os.Stat(filepath.Join(dir, "heap.pprof"))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, Run(func() error { return nil }, "trace", dir))
}
