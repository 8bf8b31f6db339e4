package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/evelog/pkg/plugin"
)

func TestInit_Defaults(t *testing.T) {
	s := NewSink().(*Sink)
	require.NoError(t, s.Init(nil))
	assert.Equal(t, "eve.json", s.config.Filename)
	assert.Equal(t, "eve.json", s.config.Path())
}

func TestConfig_Path(t *testing.T) {
	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{Filename: "eve.json", Dir: "/var/log/evelog"}, "/var/log/evelog/eve.json"},
		{Config{Filename: "/tmp/x.json", Dir: "/var/log/evelog"}, "/tmp/x.json"},
		{Config{Filename: "-", Dir: "/var/log/evelog"}, "-"},
		{Config{Filename: "eve.json"}, "eve.json"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cfg.Path())
	}
}

func TestInit_Invalid(t *testing.T) {
	s := NewSink()
	assert.Error(t, s.Init(map[string]any{"max_backups": -1}))
	assert.Error(t, s.Init(map[string]any{"bogus": true}))
}

func TestSink_WriteAndRotate(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	var s plugin.Sink = NewSink()
	require.NoError(t, s.Init(map[string]any{"dir": filepath.Join(dir, "logs"), "filename": "eve.json"}))
	require.NoError(t, s.Start(ctx))

	path := filepath.Join(dir, "logs", "eve.json")
	_, err := os.Stat(path)
	require.NoError(t, err, "file is created at start")

	require.NoError(t, s.Write(ctx, []byte("{\"a\":1}\n")))
	require.NoError(t, s.Write(ctx, []byte("{\"a\":2}\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"a\":2}\n", string(data))

	r, ok := s.(plugin.Rotator)
	require.True(t, ok)
	require.NoError(t, r.Rotate())
	require.NoError(t, s.Write(ctx, []byte("{\"a\":3}\n")))

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":3}\n", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	backups := 0
	for _, e := range entries {
		if e.Name() != "eve.json" && strings.HasPrefix(e.Name(), "eve-") {
			backups++
		}
	}
	assert.Equal(t, 1, backups)

	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, uint64(3), s.(*Sink).writtenCount.Load())
}
