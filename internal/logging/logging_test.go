package logging

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

func TestSetupTruncatesAndTees(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backend-2026-02-03.log")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

	prevOut, prevFlags := log.Writer(), log.Flags()
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})

	f, err := Setup(dir, day)
	require.NoError(t, err)
	log.Printf("INFO: server started")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
	assert.Contains(t, string(data), "INFO: server started")
}

func TestFrontendSink(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFrontendSink(dir, day)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "frontend-2026-02-03.log"), sink.Path())

	require.NoError(t, sink.Write(FrontendEntry{Timestamp: "2026-02-03T10:00:00Z", Level: "warn", Message: "socket closed"}))
	require.NoError(t, sink.Write(FrontendEntry{Message: "no level"}))

	data, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[2026-02-03T10:00:00Z] [FRONTEND] [WARN] socket closed\n")
	assert.Contains(t, string(data), "[FRONTEND] [INFO] no level\n")

	// A new sink starts the day's file over.
	_, err = NewFrontendSink(dir, day)
	require.NoError(t, err)
	data, err = os.ReadFile(sink.Path())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestFrontendSinkKeepsEntriesOnOneLine(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFrontendSink(dir, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	forged := "ok\n[2026-02-03T10:00:01Z] [FRONTEND] [ERROR] admin logged in\r\n"
	require.NoError(t, sink.Write(FrontendEntry{Timestamp: "2026-02-03T10:00:00Z", Level: "info\nx", Message: forged}))

	data, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, `[2026-02-03T10:00:00Z] [FRONTEND] [INFO\nX] ok\n[2026-02-03T10:00:01Z] [FRONTEND] [ERROR] admin logged in\r\n`, lines[0])
}
