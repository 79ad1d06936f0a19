package storage

import (
	"AirTrafficStory/src/config"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerWritesAndNotifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	sub := logger.Subscribe()
	logger.Info("snapshot v1 loaded")

	select {
	case msg := <-sub:
		if !strings.Contains(msg, "INFO: snapshot v1 loaded") {
			t.Errorf("subscriber got %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive log entry")
	}

	logger.Unsubscribe(sub)
	if _, ok := <-sub; ok {
		t.Error("channel should be closed after Unsubscribe")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "snapshot v1 loaded") {
		t.Errorf("log file content = %q", data)
	}
}

func TestLoggerLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	logger.SetLevel(WARNING)
	logger.Debug("hidden")
	logger.Warning("shown")

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "shown") {
		t.Errorf("level filter failed: %q", data)
	}
	if ParseLevel("warn") != WARNING || ParseLevel("bogus") != INFO {
		t.Error("ParseLevel mismatch")
	}
}

func TestLoggerPrint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	logger.Print(`"GET /health HTTP/1.1" - 200`, "\n")
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `INFO: "GET /health HTTP/1.1" - 200`+"\n") || strings.Contains(string(data), "\n\n") {
		t.Errorf("log = %q", data)
	}

	var nilLogger *Logger
	nilLogger.Print("ignored")
}

func TestLoggerRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	for i := 0; i < 20; i++ {
		logger.Info("rotation filler line")
	}

	cfg := &config.Config{LogMaxSize: "1 * 64"}
	if err := logger.CheckRotate(cfg); err != nil {
		t.Fatal(err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "app.*.log"))
	if len(matches) != 1 {
		t.Fatalf("rotated files = %v", matches)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("new log file size = %d", info.Size())
	}
}

func TestNilLogger(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
	if err := logger.Close(); err != nil {
		t.Error(err)
	}
}

func TestEval(t *testing.T) {
	if got := eval("10 * 1024 * 1024"); got != 10*1024*1024 {
		t.Errorf("eval = %d", got)
	}
	if got := eval("2048"); got != 2048 {
		t.Errorf("eval = %d", got)
	}
}
