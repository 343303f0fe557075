package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
	// Fixed-width UTC timestamps keep ts_utc ordered as text.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func normalizeKey(projectKey string) string {
	projectKey = strings.TrimSpace(projectKey)
	if projectKey == "" {
		return "default"
	}
	return projectKey
}

// SaveSnapshot stores snapshot and its file lists in one transaction. A
// missing RunID or Timestamp is filled in.
func (s *Store) SaveSnapshot(projectKey string, snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectKey = normalizeKey(projectKey)
	if snapshot.RunID == "" {
		snapshot.RunID = uuid.NewString()
	}
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	if snapshot.SchemaVersion == 0 {
		snapshot.SchemaVersion = SchemaVersion
	}
	if snapshot.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported snapshot schema version %d", snapshot.SchemaVersion)
	}

	return s.withRetry("save snapshot", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
INSERT INTO snapshots (
  run_id, project_key, schema_version, ts_utc, deep, duration_ms, not_found_count, may_found_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			snapshot.RunID,
			projectKey,
			snapshot.SchemaVersion,
			snapshot.Timestamp.UTC().Format(timestampLayout),
			snapshot.Deep,
			snapshot.DurationMS,
			snapshot.NotFoundCount,
			snapshot.MayFoundCount,
		); err != nil {
			_ = tx.Rollback()
			return err
		}

		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO snapshot_files (run_id, role, path) VALUES (?, ?, ?)`)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		defer stmt.Close()
		for role, files := range map[string][]string{
			RoleCore:       snapshot.Core,
			RoleLibrary:    snapshot.Libraries,
			RoleScript:     snapshot.Scripts,
			RoleSuppressed: snapshot.Suppressed,
		} {
			for _, file := range files {
				if _, err := stmt.Exec(snapshot.RunID, role, file); err != nil {
					_ = tx.Rollback()
					return err
				}
			}
		}

		missStmt, err := tx.Prepare(`INSERT OR IGNORE INTO snapshot_misses (run_id, kind, name, file, candidate) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		defer missStmt.Close()
		for _, miss := range snapshot.Misses {
			if _, err := missStmt.Exec(snapshot.RunID, miss.Kind, miss.Name, miss.File, miss.Candidate); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// LoadSnapshots returns the project's snapshots taken at or after since,
// oldest first. A zero since loads everything.
func (s *Store) LoadSnapshots(projectKey string, since time.Time) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	where := " WHERE project_key = ?"
	args := []any{normalizeKey(projectKey)}
	if !since.IsZero() {
		where += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(timestampLayout))
	}

	var snapshots []Snapshot
	byRun := make(map[string]int)
	err := s.withRetry("load snapshots", func() error {
		snapshots = snapshots[:0]
		rows, err := s.db.Query(`
SELECT run_id, project_key, schema_version, ts_utc, deep, duration_ms, not_found_count, may_found_count
FROM snapshots`+where+` ORDER BY ts_utc ASC, run_id ASC`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				tsRaw    string
				snapshot Snapshot
			)
			if err := rows.Scan(
				&snapshot.RunID,
				&snapshot.ProjectKey,
				&snapshot.SchemaVersion,
				&tsRaw,
				&snapshot.Deep,
				&snapshot.DurationMS,
				&snapshot.NotFoundCount,
				&snapshot.MayFoundCount,
			); err != nil {
				return fmt.Errorf("scan snapshot row: %w", err)
			}
			ts, err := time.Parse(time.RFC3339Nano, tsRaw)
			if err != nil {
				return fmt.Errorf("parse snapshot timestamp %q: %w", tsRaw, err)
			}
			snapshot.Timestamp = ts.UTC()
			byRun[snapshot.RunID] = len(snapshots)
			snapshots = append(snapshots, snapshot)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return snapshots, nil
	}

	err = s.withRetry("load snapshot files", func() error {
		for i := range snapshots {
			snapshots[i].Core, snapshots[i].Libraries = nil, nil
			snapshots[i].Scripts, snapshots[i].Suppressed = nil, nil
		}
		rows, err := s.db.Query(`
SELECT f.run_id, f.role, f.path
FROM snapshot_files f JOIN snapshots s ON s.run_id = f.run_id`+strings.ReplaceAll(where, "project_key", "s.project_key")+`
ORDER BY f.path ASC`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var runID, role, path string
			if err := rows.Scan(&runID, &role, &path); err != nil {
				return fmt.Errorf("scan snapshot file row: %w", err)
			}
			idx, ok := byRun[runID]
			if !ok {
				continue
			}
			snap := &snapshots[idx]
			switch role {
			case RoleCore:
				snap.Core = append(snap.Core, path)
			case RoleLibrary:
				snap.Libraries = append(snap.Libraries, path)
			case RoleScript:
				snap.Scripts = append(snap.Scripts, path)
			case RoleSuppressed:
				snap.Suppressed = append(snap.Suppressed, path)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	err = s.withRetry("load snapshot misses", func() error {
		for i := range snapshots {
			snapshots[i].Misses = nil
		}
		rows, err := s.db.Query(`
SELECT m.run_id, m.kind, m.name, m.file, m.candidate
FROM snapshot_misses m JOIN snapshots s ON s.run_id = m.run_id`+strings.ReplaceAll(where, "project_key", "s.project_key")+`
ORDER BY m.kind DESC, m.name ASC, m.file ASC, m.candidate ASC`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var runID string
			var miss Miss
			if err := rows.Scan(&runID, &miss.Kind, &miss.Name, &miss.File, &miss.Candidate); err != nil {
				return fmt.Errorf("scan snapshot miss row: %w", err)
			}
			if idx, ok := byRun[runID]; ok {
				snapshots[idx].Misses = append(snapshots[idx].Misses, miss)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Latest returns the most recent snapshot of the project.
func (s *Store) Latest(projectKey string) (Snapshot, bool, error) {
	snapshots, err := s.LoadSnapshots(projectKey, time.Time{})
	if err != nil || len(snapshots) == 0 {
		return Snapshot{}, false, err
	}
	return snapshots[len(snapshots)-1], true, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
