package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", "  None "} {
		st, err := Open(Config{Driver: driver}, zerolog.Nop())
		if err != nil {
			t.Fatalf("Open(%q): %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) = %v, want nil store", driver, st)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "journal", "deliveries.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	now := time.Now().Truncate(time.Millisecond)
	entries := []Entry{
		{At: now.Add(-2 * time.Minute), Host: "web01", Sink: "telegram", Subject: "Memory snapshot [from web01]", OK: true, TookMS: 120},
		{At: now.Add(-time.Minute), Host: "web01", Sink: "telegram", Subject: "Memory snapshot [from web01]", OK: false, Error: "timeout", TookMS: 10000},
		{At: now, Host: "web01", Sink: "file", Subject: "Memory snapshot [from web01]", OK: true, TookMS: 2},
	}
	for _, e := range entries {
		if err := st.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := st.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d entries", len(got))
	}
	if got[0].Error != "timeout" || got[0].OK {
		t.Fatalf("got[0] = %+v", got[0])
	}
	if got[1].Sink != "file" || !got[1].OK {
		t.Fatalf("got[1] = %+v", got[1])
	}

	all, err := st.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent(0): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Recent(0) returned %d entries, want all 3", len(all))
	}
}

func TestFileStoreDefaultsTimestamp(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "deliveries.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Append(context.Background(), Entry{Host: "h", Sink: "log", OK: true}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, err := st.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if got[0].At.IsZero() {
		t.Fatal("Append did not default the timestamp")
	}
}

func TestFileStoreSkipsCorruptLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "deliveries.jsonl")
	content := `{"at":"2026-02-03T10:00:00Z","host":"a","sink":"log","subject":"s","ok":true,"took_ms":1}` + "\n" +
		`{"at":"2026-02-03T10:01:00Z","host":` + "\n" + // torn write
		`{"at":"2026-02-03T10:02:00Z","host":"b","sink":"log","subject":"s","ok":true,"took_ms":1}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	st, err := Open(Config{Driver: "file", Path: path}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := st.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2 valid ones", len(got))
	}
	if got[0].Host != "a" || got[1].Host != "b" {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestFileStoreCompaction(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "deliveries.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	fs := st.(*fileStore)
	ctx := context.Background()

	// Force the threshold without writing ten thousand real entries.
	for i := 0; i < 10; i++ {
		if err := fs.Append(ctx, Entry{Host: "h", Sink: "log", OK: true}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	fs.mu.Lock()
	err = fs.compactLocked()
	fs.mu.Unlock()
	if err != nil {
		t.Fatalf("compact: %v", err)
	}

	got, err := st.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("compaction lost entries: %d", len(got))
	}
}
