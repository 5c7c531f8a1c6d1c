package db

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFold(t *testing.T) {
	if Fold("MUSIC") != Fold("music") {
		t.Fatalf("expected ASCII case folding")
	}
	if Fold("ÇA") != Fold("ça") {
		t.Fatalf("expected non-ASCII case folding")
	}
}

func TestTimeRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 123456000, time.UTC)
	got := ParseTime(FormatTime(ts))
	if !got.Equal(ts) {
		t.Fatalf("expected %v, got %v", ts, got)
	}
	if FormatTime(ts) >= FormatTime(ts.Add(time.Microsecond)) {
		t.Fatalf("expected formatted times to sort lexically")
	}
}

func TestInitDBIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate_test.sqlite")
	for i := 0; i < 2; i++ {
		conn, err := InitDB(path, MigrationFiles, "migrations")
		if err != nil {
			t.Fatalf("init db (run %d): %v", i+1, err)
		}

		var n int
		if err := conn.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'room_participants'`).Scan(&n); err != nil {
			t.Fatalf("inspect schema: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected room_participants table, got %d", n)
		}

		var fold string
		if err := conn.QueryRow(`SELECT casefold('ÀB')`).Scan(&fold); err != nil {
			t.Fatalf("casefold: %v", err)
		}
		if fold != "àb" {
			t.Fatalf("expected casefold to be registered, got %q", fold)
		}
		CloseDB(conn)
	}
}
