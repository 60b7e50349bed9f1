package conddb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type migration struct {
	id   int
	name string
	sql  string
}

// Schema versions are tracked with PRAGMA user_version; every migration with an id above the current
// version is applied, in order, in its own transaction.
var migrations = []migration{
	{
		id:   1,
		name: "tags_payloads_iovs",
		sql: `
		CREATE TABLE TAG (
			NAME              TEXT PRIMARY KEY,
			TIME_TYPE         TEXT NOT NULL,
			OBJECT_TYPE       TEXT NOT NULL,
			SYNCHRONIZATION   TEXT NOT NULL,
			DESCRIPTION       TEXT NOT NULL,
			INSERTION_TIME    INTEGER NOT NULL,
			MODIFICATION_TIME INTEGER NOT NULL
		);
		CREATE TABLE PAYLOAD (
			HASH           TEXT PRIMARY KEY,
			OBJECT_TYPE    TEXT NOT NULL,
			DATA           BLOB NOT NULL,
			INSERTION_TIME INTEGER NOT NULL
		);
		CREATE TABLE IOV (
			TAG_NAME       TEXT NOT NULL REFERENCES TAG (NAME),
			SINCE          INTEGER NOT NULL,
			PAYLOAD_HASH   TEXT NOT NULL REFERENCES PAYLOAD (HASH),
			INSERTION_TIME INTEGER NOT NULL,
			PRIMARY KEY (TAG_NAME, SINCE)
		);`,
	},
	{
		id:   2,
		name: "popcon_log",
		sql: `
		CREATE TABLE POPCON_LOG (
			EXECUTION_ID TEXT PRIMARY KEY,
			TAG_NAME     TEXT NOT NULL,
			HANDLER      TEXT NOT NULL,
			START_TIME   INTEGER NOT NULL,
			END_TIME     INTEGER NOT NULL,
			IOVS_WRITTEN INTEGER NOT NULL,
			STATUS       TEXT NOT NULL,
			MESSAGE      TEXT NOT NULL
		);
		CREATE INDEX IDX_POPCON_LOG_TAG ON POPCON_LOG (TAG_NAME, START_TIME);`,
	},
}

func updateDatabase(ctx context.Context, db *sql.DB, migrations []migration) error {
	version, err := readVersion(ctx, db)
	if err != nil {
		return err
	}
	log.Debugf("Conditions database schema version %d", version)

	for _, m := range migrations {
		if m.id <= version {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return errors.WithMessagef(err, "error applying migration %d (%s)", m.id, m.name)
		}
		version = m.id
		log.Infof("Conditions database migrated to version %d (%s)", m.id, m.name)
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return errors.WithStack(err)
	}
	// PRAGMA does not accept bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.id)); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(tx.Commit())
}

func readVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, errors.WithStack(err)
	}
	return version, nil
}
