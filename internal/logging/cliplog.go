package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
)

// timeLayout matches store.TimeLayout; fixed width keeps created_at sortable.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region log-clip
// LogClip writes one clip call to the clip_log table.
func LogClip(db *sql.DB, entry ClipLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	proposed, err := json.Marshal(entry.Proposed)
	if err != nil {
		return fmt.Errorf("marshal proposed: %w", err)
	}
	clamped, err := json.Marshal(entry.Result.ClampedAction)
	if err != nil {
		return fmt.Errorf("marshal clamped: %w", err)
	}
	stats, err := json.Marshal(entry.Result.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	var context string
	if len(entry.Context) > 0 {
		b, err := json.Marshal(entry.Context)
		if err != nil {
			return fmt.Errorf("marshal context: %w", err)
		}
		context = string(b)
	}

	_, err = db.Exec(
		`INSERT INTO clip_log (record_id, profile_version_id, profile_hash, proposed_json, context_json, clamped_json, stats_json, is_safe, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RecordID,
		nullIfEmpty(entry.ProfileVersionID),
		nullIfEmpty(entry.ProfileHash),
		string(proposed),
		nullIfEmpty(context),
		string(clamped),
		string(stats),
		entry.Result.IsSafe,
		entry.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("log clip: %w", err)
	}
	return nil
}

// #endregion log-clip

// #region list-clips
// ClipFilter narrows ListClips. Zero values match everything.
type ClipFilter struct {
	Limit      int
	UnsafeOnly bool
}

// ListClips returns logged clip calls, newest first.
func ListClips(db *sql.DB, filter ClipFilter) ([]ClipLogEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	query := `SELECT record_id, profile_version_id, profile_hash, proposed_json, context_json, clamped_json, stats_json, is_safe, created_at
		 FROM clip_log`
	if filter.UnsafeOnly {
		query += ` WHERE is_safe = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	var entries []ClipLogEntry
	for rows.Next() {
		var e ClipLogEntry
		var versionID, hash, context sql.NullString
		var proposed, clamped, stats, created string
		if err := rows.Scan(&e.RecordID, &versionID, &hash, &proposed, &context, &clamped, &stats, &e.Result.IsSafe, &created); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		e.ProfileVersionID = versionID.String
		e.ProfileHash = hash.String
		if err := json.Unmarshal([]byte(proposed), &e.Proposed); err != nil {
			return nil, fmt.Errorf("decode proposed %s: %w", e.RecordID, err)
		}
		if context.Valid {
			if err := json.Unmarshal([]byte(context.String), &e.Context); err != nil {
				return nil, fmt.Errorf("decode context %s: %w", e.RecordID, err)
			}
		}
		if err := json.Unmarshal([]byte(clamped), &e.Result.ClampedAction); err != nil {
			return nil, fmt.Errorf("decode clamped %s: %w", e.RecordID, err)
		}
		var st []safety.ClipStats
		if err := json.Unmarshal([]byte(stats), &st); err != nil {
			return nil, fmt.Errorf("decode stats %s: %w", e.RecordID, err)
		}
		e.Result.Stats = st
		e.CreatedAt, _ = time.Parse(timeLayout, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list-clips

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
