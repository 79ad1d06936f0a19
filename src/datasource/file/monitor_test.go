package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsTableFile(t *testing.T) {
	for name, want := range map[string]bool{
		"apt.csv":      true,
		"CIE.XLSX":     true,
		"~$cie.xlsx":   false,
		".apt.csv.tmp": false,
		"notes.txt":    false,
	} {
		if got := IsTableFile(name); got != want {
			t.Errorf("IsTableFile(%q) = %v", name, got)
		}
	}
}

func TestFileMonitorDebounce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "APT", "processed")
	m, err := NewFileMonitor(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	m.SetDebounce(100 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	go m.Watch(ctx, func(path string) { changed <- path })

	path := filepath.Join(dir, "apt.csv")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("annee;mois;apt\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0644)

	select {
	case got := <-changed:
		if got != path {
			t.Errorf("changed = %s, want %s", got, path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}

	select {
	case extra := <-changed:
		t.Errorf("burst should be coalesced, got extra notification %s", extra)
	case <-time.After(400 * time.Millisecond):
	}
}
