package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/config"
)

// TimeLayout is a fixed-width RFC 3339 layout so created_at sorts as text.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNoActiveProfile is returned by GetActive before any profile is committed.
var ErrNoActiveProfile = errors.New("no active profile")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS profile_versions (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	name          TEXT NOT NULL,
	hash          TEXT NOT NULL,
	profile_json  TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES profile_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_profile (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES profile_versions(version_id)
);

CREATE TABLE IF NOT EXISTS clip_log (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id          TEXT NOT NULL UNIQUE,
	profile_version_id TEXT,
	profile_hash       TEXT,
	proposed_json      TEXT NOT NULL,
	context_json       TEXT,
	clamped_json       TEXT NOT NULL,
	stats_json         TEXT NOT NULL,
	is_safe            INTEGER NOT NULL,
	created_at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_clip_log_created ON clip_log(created_at);
`

// #endregion schema

// #region store-struct
// Store keeps versioned bounds profiles and the clip log in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations. Pragmas travel in the
// DSN so every pooled connection gets them; writes are serialized on a single
// connection and busy_timeout covers other processes on the same file.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func dsn(dbPath string) string {
	return "file:" + dbPath +
		"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region commit-profile
// CommitProfile stores p as a new version, parented on the current active
// version if any, and makes it active.
func (s *Store) CommitProfile(p *config.Profile, hash string) (ProfileVersion, error) {
	if err := p.Validate(); err != nil {
		return ProfileVersion{}, fmt.Errorf("commit profile: %w", err)
	}
	profJSON, err := json.Marshal(p)
	if err != nil {
		return ProfileVersion{}, fmt.Errorf("marshal profile: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return ProfileVersion{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullString
	err = tx.QueryRow(`SELECT version_id FROM active_profile WHERE id = 1`).Scan(&parent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ProfileVersion{}, fmt.Errorf("get active: %w", err)
	}

	v := ProfileVersion{
		VersionID: uuid.New().String(),
		ParentID:  parent.String,
		Hash:      hash,
		Profile:   *p,
		CreatedAt: time.Now().UTC(),
		Active:    true,
	}

	_, err = tx.Exec(
		`INSERT INTO profile_versions (version_id, parent_id, name, hash, profile_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		v.VersionID, nullIfEmpty(v.ParentID), p.Name, hash, string(profJSON), v.CreatedAt.Format(TimeLayout),
	)
	if err != nil {
		return ProfileVersion{}, fmt.Errorf("insert version: %w", err)
	}

	if err := setActive(tx, v.VersionID); err != nil {
		return ProfileVersion{}, err
	}
	if err := tx.Commit(); err != nil {
		return ProfileVersion{}, fmt.Errorf("commit: %w", err)
	}
	return v, nil
}

// #endregion commit-profile

// #region activate
// Activate points the active profile at an existing version (rollback).
func (s *Store) Activate(versionID string) error {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM profile_versions WHERE version_id = ?`, versionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s not found", versionID)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err := setActive(tx, versionID); err != nil {
		return err
	}
	return tx.Commit()
}

func setActive(tx *sql.Tx, versionID string) error {
	_, err := tx.Exec(
		`INSERT INTO active_profile (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		versionID,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// #endregion activate

// #region get
// GetActive reads the active profile version.
func (s *Store) GetActive() (ProfileVersion, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_profile WHERE id = 1`).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return ProfileVersion{}, ErrNoActiveProfile
	}
	if err != nil {
		return ProfileVersion{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}

// GetVersion retrieves a specific profile version by ID.
func (s *Store) GetVersion(id string) (ProfileVersion, error) {
	row := s.db.QueryRow(
		`SELECT v.version_id, v.parent_id, v.hash, v.profile_json, v.created_at, a.version_id IS NOT NULL
		 FROM profile_versions v LEFT JOIN active_profile a ON a.version_id = v.version_id
		 WHERE v.version_id = ?`, id,
	)
	v, err := scanVersion(row)
	if err != nil {
		return ProfileVersion{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return v, nil
}

// ListVersions returns the most recent profile versions, newest first.
func (s *Store) ListVersions(limit int) ([]ProfileVersion, error) {
	rows, err := s.db.Query(
		`SELECT v.version_id, v.parent_id, v.hash, v.profile_json, v.created_at, a.version_id IS NOT NULL
		 FROM profile_versions v LEFT JOIN active_profile a ON a.version_id = v.version_id
		 ORDER BY v.created_at DESC, v.rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []ProfileVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(sc scanner) (ProfileVersion, error) {
	var v ProfileVersion
	var parentID sql.NullString
	var profJSON, createdStr string
	if err := sc.Scan(&v.VersionID, &parentID, &v.Hash, &profJSON, &createdStr, &v.Active); err != nil {
		return ProfileVersion{}, err
	}
	v.ParentID = parentID.String
	if err := json.Unmarshal([]byte(profJSON), &v.Profile); err != nil {
		return ProfileVersion{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	v.CreatedAt, _ = time.Parse(TimeLayout, createdStr)
	return v, nil
}

// #endregion get

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
