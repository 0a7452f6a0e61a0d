package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/Sussexdowns/Foodshare/internal/model"
)

// Store persists snapshots of the working set and visitor preferences via DuckDB.
type Store struct {
	DB      *sql.DB
	DataDir string
}

// Snapshot is a persisted copy of a loaded working set.
type Snapshot struct {
	Locations      []model.Location
	LoadedCounties []string
	Source         string
	TakenAt        string
}

// New opens (or creates) a DuckDB database in the given data directory.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "foodshare.duckdb")
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}

	s := &Store{DB: db, DataDir: dataDir}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS locations (
			id INTEGER PRIMARY KEY,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			display_name TEXT,
			lat DOUBLE NOT NULL,
			lng DOUBLE NOT NULL,
			category TEXT NOT NULL,
			original_type TEXT,
			description TEXT,
			short_description TEXT,
			season TEXT,
			link TEXT,
			image TEXT,
			likes INTEGER NOT NULL DEFAULT 0,
			dislikes INTEGER NOT NULL DEFAULT 0,
			town TEXT,
			county TEXT,
			postcode TEXT,
			address TEXT,
			tags TEXT,
			county_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS loaded_counties (
			id TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS prefs (
			visitor TEXT PRIMARY KEY,
			body TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// WriteSnapshot replaces the persisted working set.
func (s *Store) WriteSnapshot(snap *Snapshot) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, tbl := range []string{"locations", "loaded_counties"} {
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", tbl)); err != nil {
			return fmt.Errorf("clearing %s: %w", tbl, err)
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO locations (id, position, name, display_name, lat, lng, category, original_type,
		description, short_description, season, link, image, likes, dislikes, town, county, postcode, address, tags, county_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, l := range snap.Locations {
		season, _ := json.Marshal(l.Season)
		if _, err := stmt.Exec(l.ID, i, l.Name, l.DisplayName, l.Lat, l.Lng, l.Category, l.OriginalType,
			l.Description, l.ShortDescription, string(season), l.Link, l.Image, l.Likes, l.Dislikes,
			l.Town, l.County, l.Postcode, l.Address, l.Tags, l.CountyID); err != nil {
			return fmt.Errorf("inserting location %d: %w", l.ID, err)
		}
	}

	for _, id := range snap.LoadedCounties {
		if _, err := tx.Exec("INSERT OR REPLACE INTO loaded_counties (id) VALUES (?)", id); err != nil {
			return fmt.Errorf("inserting county %s: %w", id, err)
		}
	}

	for k, v := range map[string]string{"snapshot_source": snap.Source, "snapshot_at": snap.TakenAt} {
		if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ReadSnapshot loads the persisted working set in its original order.
func (s *Store) ReadSnapshot() (*Snapshot, error) {
	rows, err := s.DB.Query(`SELECT id, name, display_name, lat, lng, category, original_type, description,
		short_description, season, link, image, likes, dislikes, town, county, postcode, address, tags, county_id
		FROM locations ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := &Snapshot{}
	for rows.Next() {
		var l model.Location
		var displayName, origType, desc, short, season, link, image, town, county, postcode, address, tags, countyID sql.NullString
		if err := rows.Scan(&l.ID, &l.Name, &displayName, &l.Lat, &l.Lng, &l.Category, &origType, &desc,
			&short, &season, &link, &image, &l.Likes, &l.Dislikes, &town, &county, &postcode, &address, &tags, &countyID); err != nil {
			return nil, err
		}
		l.DisplayName, l.OriginalType, l.Description = displayName.String, origType.String, desc.String
		l.ShortDescription, l.Link, l.Image = short.String, link.String, image.String
		l.Town, l.County, l.Postcode, l.Address, l.Tags = town.String, county.String, postcode.String, address.String, tags.String
		l.CountyID = countyID.String
		l.Season = []int{}
		if season.Valid && season.String != "" {
			json.Unmarshal([]byte(season.String), &l.Season)
		}
		snap.Locations = append(snap.Locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cRows, err := s.DB.Query("SELECT id FROM loaded_counties ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer cRows.Close()
	for cRows.Next() {
		var id string
		if err := cRows.Scan(&id); err != nil {
			return nil, err
		}
		snap.LoadedCounties = append(snap.LoadedCounties, id)
	}

	var source, at sql.NullString
	s.DB.QueryRow("SELECT value FROM meta WHERE key = 'snapshot_source'").Scan(&source)
	s.DB.QueryRow("SELECT value FROM meta WHERE key = 'snapshot_at'").Scan(&at)
	snap.Source, snap.TakenAt = source.String, at.String

	return snap, cRows.Err()
}

// WritePrefs stores a visitor's preferences.
func (s *Store) WritePrefs(visitor string, p model.Preferences) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec("INSERT OR REPLACE INTO prefs (visitor, body) VALUES (?, ?)", visitor, string(body))
	return err
}

// ReadPrefs returns a visitor's preferences, or the defaults when none are stored.
func (s *Store) ReadPrefs(visitor string) (model.Preferences, error) {
	p := model.DefaultPreferences()
	var body string
	err := s.DB.QueryRow("SELECT body FROM prefs WHERE visitor = ?", visitor).Scan(&body)
	if err == sql.ErrNoRows {
		return p, nil
	}
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return model.DefaultPreferences(), fmt.Errorf("decoding prefs: %w", err)
	}
	return p, nil
}

// LocationCount returns the number of persisted locations.
func (s *Store) LocationCount() int {
	var n int
	s.DB.QueryRow("SELECT COUNT(*) FROM locations").Scan(&n)
	return n
}

// CountyCount returns the number of persisted loaded counties.
func (s *Store) CountyCount() int {
	var n int
	s.DB.QueryRow("SELECT COUNT(*) FROM loaded_counties").Scan(&n)
	return n
}

// CountByCategory returns persisted location counts per category.
func (s *Store) CountByCategory() map[string]int {
	return s.groupCount("category")
}

// CountByCounty returns persisted location counts per county id ("" for single-file sources).
func (s *Store) CountByCounty() map[string]int {
	return s.groupCount("COALESCE(county_id, '')")
}

func (s *Store) groupCount(expr string) map[string]int {
	m := make(map[string]int)
	rows, err := s.DB.Query(fmt.Sprintf("SELECT %s, COUNT(*) FROM locations GROUP BY 1 ORDER BY 1", expr))
	if err != nil {
		return m
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var cnt int
		rows.Scan(&key, &cnt)
		m[key] = cnt
	}
	return m
}
