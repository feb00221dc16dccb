package database

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// schemaVersion reads PRAGMA user_version. A new file reports 0.
func schemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// pending returns the migrations above version, in order.
func pending(version int) []Migration {
	var out []Migration
	for _, m := range migrations {
		if m.Version > version {
			out = append(out, m)
		}
	}
	return out
}

// migrate applies every pending migration and records each version as it
// commits. A file written by a newer build is refused rather than downgraded.
func migrate(conn *sql.DB, log zerolog.Logger) error {
	current, err := schemaVersion(conn)
	if err != nil {
		return err
	}
	latest := latestVersion()
	if current > latest {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, latest)
	}

	todo := pending(current)
	if len(todo) == 0 {
		log.Debug().Int("version", current).Msg("schema up to date")
		return nil
	}

	for _, m := range todo {
		if err := apply(conn, m); err != nil {
			return err
		}
		log.Info().Int("version", m.Version).Str("description", m.Description).Msg("migration applied")
	}
	log.Info().Int("from", current).Int("to", latest).Msg("schema migrated")
	return nil
}

func apply(conn *sql.DB, m Migration) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	if err := m.Up(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	// user_version is set outside the transaction; every Up uses IF NOT EXISTS
	// so a crash between commit and stamp replays cleanly.
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("setting version %d: %w", m.Version, err)
	}
	return nil
}
