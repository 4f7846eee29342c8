// Package mysql records exhausted CDC batches into a MySQL table for
// operator inspection.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/antgroup/gitvault/cdc"
)

// Sink persists dead-lettered batches to a `cdc_dead_letters` table:
//
//	CREATE TABLE cdc_dead_letters (
//	    id          BIGINT AUTO_INCREMENT PRIMARY KEY,
//	    source      VARCHAR(255) NOT NULL,
//	    batch_size  INT NOT NULL,
//	    cause       TEXT NOT NULL,
//	    events_json LONGTEXT NOT NULL,
//	    created_at  DATETIME NOT NULL
//	);
type Sink struct {
	db *sql.DB
}

// Open connects using cfg via mysql.NewConnector rather than a raw DSN
// string, so the config is validated before any dial.
func Open(cfg *mysql.Config) (*Sink, error) {
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("dlq/mysql: new connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Sink{db: db}, nil
}

func (s *Sink) Close() error { return s.db.Close() }

// HandleDeadLetter satisfies cdc.DeadLetterHandler.
func (s *Sink) HandleDeadLetter(ctx context.Context, events []cdc.Event, cause error) error {
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("dlq/mysql: marshal events: %w", err)
	}
	source := ""
	if len(events) > 0 {
		source = events[0].Source
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cdc_dead_letters (source, batch_size, cause, events_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		source, len(events), causeText(cause), string(eventsJSON), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("dlq/mysql: insert: %w", err)
	}
	return nil
}

func causeText(cause error) string {
	if cause == nil {
		return ""
	}
	return cause.Error()
}

var _ cdc.DeadLetterHandler = (*Sink)(nil)
