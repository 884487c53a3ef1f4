package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, "info"},
		{1, "debug"},
		{2, "trace"},
		{5, "trace"},
	}
	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.count); got != tt.want {
			t.Errorf("LevelFromVerbosity(%d) = %q, want %q", tt.count, got, tt.want)
		}
	}
}

func TestApplyWritesLogFile(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	path := filepath.Join(t.TempDir(), "logs", "dataroute.log")
	Apply("debug", nil, path)

	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("global level = %v, want debug", zerolog.GlobalLevel())
	}

	log.Info().Str("schema", "users").Msg("written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("log file is empty")
	}
}

func TestFilePathForDB(t *testing.T) {
	if got := FilePathForDB(""); got != DefaultLogFilePath {
		t.Errorf("FilePathForDB(\"\") = %q", got)
	}
	if got := FilePathForDB(":memory:"); got != DefaultLogFilePath {
		t.Errorf("FilePathForDB(:memory:) = %q", got)
	}
	got := FilePathForDB("/var/lib/dataroute/data.db")
	if want := filepath.Join("/var/lib/dataroute", DefaultLogFilePath); got != want {
		t.Errorf("FilePathForDB = %q, want %q", got, want)
	}
}
