package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/saviobatista/uav-deconfliction/internal/config"
	"github.com/saviobatista/uav-deconfliction/internal/log"
	"github.com/saviobatista/uav-deconfliction/internal/storage"
	"github.com/saviobatista/uav-deconfliction/internal/testutils"
	"github.com/saviobatista/uav-deconfliction/internal/types"
)

type failingWriter struct{}

func (failingWriter) WriteReport(*types.CheckReport) error {
	return errors.New("disk full")
}

func TestHandleReport(t *testing.T) {
	dir := t.TempDir()
	store := storage.New(dir, nil)
	if err := store.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	handler := handleReport(store, nil)
	handler(testutils.MockCheckReport("c1"))
	handler(testutils.MockCheckReport("c2", types.ConflictRecord{MissionID: "drone_3", Severity: types.SeverityCritical}))

	if err := store.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	f, err := os.Open(store.Filename(time.Now()))
	if err != nil {
		t.Fatalf("Failed to open report file: %v", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r types.CheckReport
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("Invalid JSON line %q: %v", scanner.Text(), err)
		}
		ids = append(ids, r.CheckID)
	}
	if strings.Join(ids, ",") != "c1,c2" {
		t.Errorf("Expected reports c1,c2 in order, got %v", ids)
	}
}

func TestHandleReport_WriteError(t *testing.T) {
	var buf strings.Builder
	logger := log.NewWithWriter(&buf, "info")

	handleReport(failingWriter{}, logger)(testutils.MockCheckReport("c1"))

	if !strings.Contains(buf.String(), "disk full") {
		t.Errorf("Expected the write error to be logged, got %q", buf.String())
	}
}

func TestRunLogger_Errors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	tests := []struct {
		name string
		cfg  *config.Config
		want string
	}{
		{
			name: "output dir not creatable",
			cfg:  &config.Config{OutputDir: filepath.Join(file, "logs"), NATSURL: "nats://127.0.0.1:1"},
			want: "failed to start storage",
		},
		{
			name: "nats unreachable",
			cfg:  &config.Config{OutputDir: t.TempDir(), NATSURL: "nats://127.0.0.1:1"},
			want: "failed to create NATS client",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runLogger(context.Background(), tt.cfg, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
