package sqlite

import (
	"database/sql"

	// Import the SQLite driver.
	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens the SQLite database and creates the media_files table if it
// doesn't exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS media_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT UNIQUE NOT NULL,
		title TEXT,
		uploader TEXT,
		media_type TEXT NOT NULL,
		size_mb REAL,
		duration TEXT,
		webpage_url TEXT,
		thumbnail TEXT,
		upload_date TEXT,
		folder_id TEXT,
		created_at DATETIME NOT NULL
	)`)

	if err != nil {
		return nil, err
	}

	return db, nil
}
