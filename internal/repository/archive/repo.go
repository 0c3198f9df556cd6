// Package archive provides read-only access to one channel's ingested
// video records. A Repo is bound to exactly one channel's SQLite file at
// construction; no request-time parameter can redirect it to another
// channel's store.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kailas-cloud/tubeask/internal/domain"
)

// Expected schema, owned by the ingestion pipeline:
//
//	CREATE TABLE videos (
//	    id           TEXT PRIMARY KEY,
//	    title        TEXT NOT NULL,
//	    published_at INTEGER NOT NULL,  -- unix seconds
//	    summary      TEXT NOT NULL,
//	    subtitles    TEXT
//	);

// Repo reads one channel's archive. Safe for concurrent use; the
// database/sql pool serializes SQLite access as needed.
type Repo struct {
	channelID string
	db        *sql.DB
	logger    *zap.Logger
}

// Open binds a repo to a single channel's SQLite archive.
// The file is opened read-only; ingestion writes through a separate path.
func Open(channelID, storePath string, logger *zap.Logger) (*Repo, error) {
	dsn := "file:" + storePath + "?mode=ro&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", storePath, domain.ErrStoreUnavailable)
	}
	// sql.Open is lazy; touch the file so a missing or unreadable archive
	// fails here, not on the first query.
	var one int
	if err := sqlDB.QueryRow("SELECT 1").Scan(&one); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open archive %s: %w", storePath, domain.ErrStoreUnavailable)
	}
	return &Repo{channelID: channelID, db: sqlDB, logger: logger}, nil
}

// ChannelID returns the channel this repo is bound to.
func (r *Repo) ChannelID() string { return r.channelID }

// Close closes the underlying database handle.
func (r *Repo) Close() error {
	return r.db.Close()
}

// Ping checks that the archive file is readable.
func (r *Repo) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping archive %s: %w", r.channelID, domain.ErrStoreUnavailable)
	}
	return nil
}

// FetchCandidates returns records whose title, summary, or subtitles contain
// any of the query terms, newest first, up to limit. With no terms it falls
// back to the newest records. Malformed rows are logged and skipped.
func (r *Repo) FetchCandidates(ctx context.Context, terms []string, limit int) ([]domain.ContentRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, title, published_at, summary, COALESCE(subtitles, '')
		FROM videos`
	args := make([]any, 0, len(terms)*3+1)

	if len(terms) > 0 {
		conds := make([]string, 0, len(terms))
		for _, term := range terms {
			pattern := "%" + escapeLike(term) + "%"
			conds = append(conds,
				`(title LIKE ? ESCAPE '\' OR summary LIKE ? ESCAPE '\' OR subtitles LIKE ? ESCAPE '\')`)
			args = append(args, pattern, pattern, pattern)
		}
		query += " WHERE " + strings.Join(conds, " OR ")
	}

	query += " ORDER BY published_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

// Latest returns the n most recently published records.
func (r *Repo) Latest(ctx context.Context, n int) ([]domain.ContentRecord, error) {
	if n <= 0 {
		n = 10
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, published_at, summary, COALESCE(subtitles, '')
		FROM videos
		ORDER BY published_at DESC, id
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query latest: %w: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

// Count returns the number of records in the archive.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return count, nil
}

// scanRecords converts rows to records, skipping rows that fail to decode.
func (r *Repo) scanRecords(rows *sql.Rows) ([]domain.ContentRecord, error) {
	var records []domain.ContentRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanRecord(rows, r.channelID)
		if err != nil {
			r.logger.Warn("Skipping malformed archive record",
				zap.String("channel", r.channelID), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w: %v", domain.ErrStoreUnavailable, err)
	}

	return records, nil
}

func scanRecord(rows *sql.Rows, channelID string) (domain.ContentRecord, error) {
	var (
		rec         domain.ContentRecord
		publishedAt int64
	)
	if err := rows.Scan(&rec.ID, &rec.Title, &publishedAt, &rec.Summary, &rec.Subtitles); err != nil {
		return domain.ContentRecord{}, domain.NewRecordDecode(rec.ID, err)
	}
	if rec.ID == "" {
		return domain.ContentRecord{}, domain.NewRecordDecode("", fmt.Errorf("empty record id"))
	}

	// The repo is bound 1:1 to a channel store, so the channel id is
	// stamped here rather than trusted from row data.
	rec.ChannelID = channelID
	rec.PublishedAt = time.Unix(publishedAt, 0).UTC()
	return rec, nil
}

// escapeLike escapes LIKE wildcards in a user-supplied term.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
