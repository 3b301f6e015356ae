package core

/*------------------------------------------------------------------
 *
 * Purpose:	Index completed raw-pulse and sweep files so a caller can
 *		find what has been archived without walking the data
 *		directory.
 *
 *------------------------------------------------------------------*/

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Catalog indexes archived raw-pulse and sweep files in a sqlite database.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens (creating if necessary) the catalog database at path.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("radarkit: catalog: open %s: %w", path, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS raw_files (
			path TEXT PRIMARY KEY,
			start_time DOUBLE,
			config_id INTEGER,
			pulse_count INTEGER
		);
		CREATE TABLE IF NOT EXISTS sweep_files (
			path TEXT PRIMARY KEY,
			start_time DOUBLE,
			config_id INTEGER,
			product TEXT,
			ray_count INTEGER,
			complete BOOLEAN
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("radarkit: catalog: create schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the underlying database handle.
func (c *Catalog) Close() error { return c.db.Close() }

// RecordRawFile indexes one completed raw-pulse file.
func (c *Catalog) RecordRawFile(path string, startTime WallTime, configID uint32, pulseCount int) error {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO raw_files (path, start_time, config_id, pulse_count) VALUES (?, ?, ?, ?)",
		path, startTime.Double, configID, pulseCount,
	)
	if err != nil {
		return fmt.Errorf("radarkit: catalog: record raw file: %w", err)
	}
	return nil
}

// RecordSweepFile indexes one completed sweep file.
func (c *Catalog) RecordSweepFile(path string, sweep *Sweep, product string) error {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO sweep_files (path, start_time, config_id, product, ray_count, complete) VALUES (?, ?, ?, ?, ?, ?)",
		path, sweep.StartTime.Double, sweep.ConfigIndex, product, len(sweep.Rays), sweep.Complete,
	)
	if err != nil {
		return fmt.Errorf("radarkit: catalog: record sweep file: %w", err)
	}
	return nil
}

// ArchiveEntry is one row returned by the catalog's lookup queries.
type ArchiveEntry struct {
	Path      string
	StartTime float64
	ConfigID  uint32
	RayCount  int
	Complete  bool
}

// SweepFilesSince returns every indexed sweep file whose start time is at or
// after since, ordered oldest first.
func (c *Catalog) SweepFilesSince(since float64) ([]ArchiveEntry, error) {
	rows, err := c.db.Query(
		"SELECT path, start_time, config_id, ray_count, complete FROM sweep_files WHERE start_time >= ? ORDER BY start_time ASC",
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("radarkit: catalog: query sweep files: %w", err)
	}
	defer rows.Close()

	var entries []ArchiveEntry
	for rows.Next() {
		var e ArchiveEntry
		if err := rows.Scan(&e.Path, &e.StartTime, &e.ConfigID, &e.RayCount, &e.Complete); err != nil {
			return nil, fmt.Errorf("radarkit: catalog: scan sweep file row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("radarkit: catalog: sweep file rows: %w", err)
	}
	return entries, nil
}
