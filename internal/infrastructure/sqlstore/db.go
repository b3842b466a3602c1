package sqlstore

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Supported driver names.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS registrations (
	id          VARCHAR(36)  NOT NULL PRIMARY KEY,
	name        VARCHAR(255) NOT NULL,
	email       VARCHAR(255) NOT NULL,
	phone       VARCHAR(64)  NOT NULL,
	dob         DATE         NULL,
	street      VARCHAR(255) NOT NULL,
	city        VARCHAR(255) NOT NULL,
	state       VARCHAR(255) NOT NULL,
	postal      VARCHAR(64)  NOT NULL,
	country     VARCHAR(255) NOT NULL,
	institution VARCHAR(255) NOT NULL,
	student_id  VARCHAR(255) NOT NULL,
	message     TEXT         NOT NULL,
	created_at  TIMESTAMP    NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS failed_notifications (
	id              VARCHAR(36)  NOT NULL PRIMARY KEY,
	target          VARCHAR(64)  NOT NULL,
	registration_id VARCHAR(64)  NOT NULL,
	destination     VARCHAR(255) NOT NULL,
	text            TEXT         NOT NULL,
	attempts        INTEGER      NOT NULL,
	status          VARCHAR(32)  NOT NULL,
	error           TEXT         NOT NULL,
	created_at      TIMESTAMP    NOT NULL
)`}

// Open connects to driver/dsn, tunes the pool and checks the connection.
// MySQL DSNs must carry parseTime=true.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverMySQL, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// EnsureSchema creates the tables when missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
