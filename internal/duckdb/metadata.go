package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Matches reports whether two fingerprints describe the same file contents.
// Modification times compare at the microsecond precision DuckDB stores.
func (f FileFingerprint) Matches(o FileFingerprint) bool {
	return f.Path == o.Path && f.Size == o.Size &&
		f.ModTime.Truncate(time.Microsecond).Equal(o.ModTime.Truncate(time.Microsecond))
}

// SourceInfo describes one imported source.
type SourceInfo struct {
	Name        string
	Fingerprint FileFingerprint
	SampleNames []string
	Records     int64
}

// Sources lists the imported sources by name.
func (s *Store) Sources(ctx context.Context) ([]SourceInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, path, size, mod_time, sample_names, records
		FROM sources ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var out []SourceInfo
	for rows.Next() {
		var info SourceInfo
		var samples string
		if err := rows.Scan(&info.Name, &info.Fingerprint.Path, &info.Fingerprint.Size,
			&info.Fingerprint.ModTime, &samples, &info.Records); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		info.SampleNames = splitNonEmpty(samples, "\t")
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return out, nil
}

// Source returns the metadata of one imported source.
func (s *Store) Source(ctx context.Context, name string) (SourceInfo, bool, error) {
	var info SourceInfo
	var samples string
	err := s.db.QueryRowContext(ctx, `SELECT source, path, size, mod_time, sample_names, records
		FROM sources WHERE source = ?`, name).
		Scan(&info.Name, &info.Fingerprint.Path, &info.Fingerprint.Size,
			&info.Fingerprint.ModTime, &samples, &info.Records)
	if errors.Is(err, sql.ErrNoRows) {
		return SourceInfo{}, false, nil
	}
	if err != nil {
		return SourceInfo{}, false, fmt.Errorf("query source %s: %w", name, err)
	}
	info.SampleNames = splitNonEmpty(samples, "\t")
	return info, true, nil
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}
