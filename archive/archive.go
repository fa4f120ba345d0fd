// Package archive records every post that produced a control group.
// Posts scroll out of the virtualized feed and are gone; the archive
// is the durable trace of what was detected, with the post body kept
// as markdown so it stays greppable.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/hazyhaar/worldlens/dbopen"
	"github.com/hazyhaar/worldlens/feed"
	"github.com/hazyhaar/worldlens/wref"
)

const schema = `
CREATE TABLE IF NOT EXISTS detections (
	id          TEXT PRIMARY KEY,
	post_id     TEXT NOT NULL,
	ref_kind    TEXT NOT NULL,
	ref_value   TEXT NOT NULL,
	body_md     TEXT NOT NULL,
	detected_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_detections_post ON detections(post_id);
`

// Schema is exported for test database setup.
const Schema = schema

// Detection is one archived row.
type Detection struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	Ref        wref.Ref  `json:"ref"`
	BodyMD     string    `json:"body_md"`
	DetectedAt time.Time `json:"detected_at"`
}

// Store persists detections in SQLite.
type Store struct {
	db     *sql.DB
	conv   *converter.Converter
	newID  func() string
	now    func() time.Time
	logger *slog.Logger
}

// Open opens (or creates) the archive database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	return NewStore(db, logger), nil
}

// NewStore wraps an existing database handle. The schema must already
// be applied (dbopen.WithSchema(Schema) in tests).
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db: db,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
		newID:  func() string { return uuid.NewString() },
		now:    time.Now,
		logger: logger,
	}
}

// Record stores one detection. The post subtree is serialised and
// converted to markdown; when conversion fails the raw text survives
// as the body.
func (s *Store) Record(ctx context.Context, postID string, post *html.Node, ref wref.Ref) error {
	body := s.renderMarkdown(post)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO detections (id, post_id, ref_kind, ref_value, body_md, detected_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.newID(), postID, string(ref.Kind), ref.Value, body, s.now().Unix())
	if err != nil {
		return fmt.Errorf("archive: record %s: %w", postID, err)
	}
	return nil
}

// Recent returns the latest detections, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Detection, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, post_id, ref_kind, ref_value, body_md, detected_at
		 FROM detections ORDER BY detected_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: recent: %w", err)
	}
	defer rows.Close()

	var out []Detection
	for rows.Next() {
		var d Detection
		var kind string
		var at int64
		if err := rows.Scan(&d.ID, &d.PostID, &kind, &d.Ref.Value, &d.BodyMD, &at); err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		d.Ref.Kind = wref.Kind(kind)
		d.DetectedAt = time.Unix(at, 0)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Func adapts the store to the pipeline's archive callback. Archiving
// is best-effort: a failed insert is logged, never propagated into the
// scan.
func (s *Store) Func() feed.ArchiveFunc {
	return func(ctx context.Context, postID string, post *html.Node, ref wref.Ref) {
		if err := s.Record(ctx, postID, post, ref); err != nil {
			s.logger.Warn("archive: record failed", "post", postID, "error", err)
		}
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) renderMarkdown(post *html.Node) string {
	if post == nil {
		return ""
	}
	var sb strings.Builder
	if err := html.Render(&sb, post); err != nil {
		s.logger.Warn("archive: render post failed", "error", err)
		return ""
	}
	md, err := s.conv.ConvertString(sb.String())
	if err != nil || strings.TrimSpace(md) == "" {
		return feed.Normalize(post)
	}
	return strings.TrimSpace(md)
}
