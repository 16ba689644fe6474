package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestInit_FansOut(t *testing.T) {
	restoreDefault(t)
	var a, b bytes.Buffer

	_, err := Init(slog.LevelInfo, FormatJSON, &a, &b)
	require.NoError(t, err)

	New("engine").Info("cycle", "pair", `["Earth","Fire"]`)
	New("engine").Debug("hidden")

	for _, buf := range []*bytes.Buffer{&a, &b} {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "cycle", rec["msg"])
		assert.Equal(t, "engine", rec["component"])
		assert.Equal(t, `["Earth","Fire"]`, rec["pair"])
	}
}

func TestSetLevel(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer

	_, err := Init(slog.LevelWarn, FormatText, &buf)
	require.NoError(t, err)
	slog.Info("quiet")
	assert.Empty(t, buf.String())

	SetLevel(slog.LevelDebug)
	slog.Debug("loud")
	assert.Contains(t, buf.String(), "msg=loud")
}

func TestInit_BadFormat(t *testing.T) {
	restoreDefault(t)
	_, err := Init(slog.LevelInfo, "xml", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "craftloop.log")

	f, err := OpenFile(path)
	require.NoError(t, err)
	_, err = f.WriteString("one\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = OpenFile(path)
	require.NoError(t, err)
	_, err = f.WriteString("two\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
}
