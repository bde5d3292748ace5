package testutil

import (
	"testing"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

// DriverNameSQLite identifies the pure-Go SQLite driver used by tests.
const DriverNameSQLite = "sqlite"

// sqliteSchema mirrors internal/db/migrations in SQLite dialect.
var sqliteSchema = []string{
	`CREATE TABLE contacts (
		id            TEXT     NOT NULL PRIMARY KEY,
		name          TEXT     NOT NULL,
		email         TEXT     NOT NULL,
		phone         TEXT     NULL,
		subject       TEXT     NOT NULL,
		message       TEXT     NOT NULL,
		status        TEXT     NOT NULL DEFAULT 'new',
		priority      TEXT     NOT NULL DEFAULT 'medium',
		source        TEXT     NOT NULL DEFAULT 'website',
		ip_address    TEXT     NULL,
		user_agent    TEXT     NULL,
		email_sent    INTEGER  NOT NULL DEFAULT 0,
		email_sent_at DATETIME NULL,
		response_time DATETIME NULL,
		notes         TEXT     NULL,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	)`,
	`CREATE INDEX idx_contacts_email ON contacts (email)`,
	`CREATE INDEX idx_contacts_created_at ON contacts (created_at DESC)`,
	`CREATE INDEX idx_contacts_status ON contacts (status)`,
	`CREATE INDEX idx_contacts_priority ON contacts (priority)`,
	`CREATE TABLE outbox (
		id           INTEGER  PRIMARY KEY AUTOINCREMENT,
		aggregate    TEXT     NOT NULL,
		aggregate_id TEXT     NOT NULL,
		topic        TEXT     NOT NULL,
		payload      BLOB     NOT NULL,
		attempts     INTEGER  NOT NULL DEFAULT 0,
		created_at   DATETIME NOT NULL,
		published_at DATETIME NULL
	)`,
}

// NewSQLiteDB opens a private in-memory SQLite database with the contacts and
// outbox schema applied. It is closed when the test ends.
func NewSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open(DriverNameSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// every connection to :memory: is its own database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("apply sqlite schema: %v", err)
		}
	}
	return db
}
