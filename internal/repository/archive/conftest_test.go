package archive

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

// seedRecord is a row inserted into a test archive.
type seedRecord struct {
	id          string
	title       string
	publishedAt time.Time
	summary     string
	subtitles   any // string or nil
}

// newTestArchive creates a SQLite archive file with the given rows and
// returns a repo bound to it.
func newTestArchive(t *testing.T, channelID string, seeds []seedRecord) *Repo {
	t.Helper()

	path := filepath.Join(t.TempDir(), channelID+".db")

	w, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open writable db: %v", err)
	}
	defer w.Close()

	_, err = w.Exec(`
		CREATE TABLE videos (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			published_at INTEGER NOT NULL,
			summary      TEXT NOT NULL,
			subtitles    TEXT
		)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}

	for _, s := range seeds {
		_, err = w.Exec(
			"INSERT INTO videos (id, title, published_at, summary, subtitles) VALUES (?, ?, ?, ?, ?)",
			s.id, s.title, s.publishedAt.Unix(), s.summary, s.subtitles,
		)
		if err != nil {
			t.Fatalf("insert %s: %v", s.id, err)
		}
	}

	repo, err := Open(channelID, path, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func day(n int) time.Time {
	return time.Date(2025, 1, n, 0, 0, 0, 0, time.UTC)
}
