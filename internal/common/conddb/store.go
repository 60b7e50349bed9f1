// Package conddb is an append-only store of conditions: named tags, each a since-ordered sequence of intervals of
// validity (IOVs) pointing to payloads. Payloads are content addressed, so identical payloads are stored once.
package conddb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"k8s.io/utils/clock"
	_ "modernc.org/sqlite"

	"github.com/armadaproject/popcon/internal/common/cond"
	"github.com/armadaproject/popcon/internal/common/poperrors"
)

const (
	TimeTypeTime         = "Time"
	SynchronizationAny   = "any"
	defaultSqliteTimeout = 5 * time.Second
)

// Tag describes a tag. ObjectType is the name of the payload type stored in it.
type Tag struct {
	Name             string
	TimeType         string
	ObjectType       string
	Synchronization  string
	Description      string
	InsertionTime    time.Time
	ModificationTime time.Time
}

// Iov is one interval of validity: PayloadId is valid from Since until the Since of the next IOV.
type Iov struct {
	Since         cond.Time
	PayloadId     string
	InsertionTime time.Time
}

// TagInfo summarises a tag for a populator: its size and its last IOV.
type TagInfo struct {
	Name         string
	Size         int
	LastInterval Iov
}

// IsEmpty returns true if the tag holds no IOVs (or does not exist yet).
func (t TagInfo) IsEmpty() bool {
	return t.Size == 0
}

// Store is a conditions database backed by SQLite.
type Store struct {
	db    *sql.DB
	clock clock.PassiveClock
}

// Open opens (creating it if needed) the SQLite conditions database at path and brings its schema up to date.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "could not create directory %s for the conditions database", dir)
		}
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, defaultSqliteTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening conditions database %s", path)
	}
	// SQLite allows one writer at a time; a single connection serialises access.
	db.SetMaxOpenConns(1)
	if err := updateDatabase(ctx, db, migrations); err != nil {
		return nil, multierror.Append(err, db.Close()).ErrorOrNil()
	}
	return &Store{db: db, clock: clock.RealClock{}}, nil
}

// WithClock overrides the clock used to timestamp insertions.
func (s *Store) WithClock(c clock.PassiveClock) *Store {
	s.clock = c
	return s
}

func (s *Store) Close() error {
	return errors.WithStack(s.db.Close())
}

// TagInfo returns the size and last IOV of the named tag. A tag that does not exist is reported as empty.
func (s *Store) TagInfo(ctx context.Context, name string) (TagInfo, error) {
	info := TagInfo{Name: name}
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM IOV WHERE TAG_NAME = ?", name).Scan(&info.Size)
	if err != nil {
		return TagInfo{}, errors.WithStack(err)
	}
	if info.Size == 0 {
		return info, nil
	}
	last, err := lastIov(ctx, s.db, name)
	if err != nil {
		return TagInfo{}, err
	}
	info.LastInterval = last
	return info, nil
}

// GetTag returns the named tag, or an *poperrors.ErrNotFound.
func (s *Store) GetTag(ctx context.Context, name string) (Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT NAME, TIME_TYPE, OBJECT_TYPE, SYNCHRONIZATION, DESCRIPTION, INSERTION_TIME, MODIFICATION_TIME
		FROM TAG WHERE NAME = ?`, name)
	tag, err := scanTag(row)
	if err == sql.ErrNoRows {
		return Tag{}, errors.WithStack(&poperrors.ErrNotFound{Type: "tag", Value: name})
	}
	return tag, err
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT NAME, TIME_TYPE, OBJECT_TYPE, SYNCHRONIZATION, DESCRIPTION, INSERTION_TIME, MODIFICATION_TIME
		FROM TAG ORDER BY NAME`)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, errors.WithStack(rows.Err())
}

// ListIovs returns the IOVs of a tag with since >= from, in since order. limit <= 0 means no limit.
func (s *Store) ListIovs(ctx context.Context, tag string, from cond.Time, limit int) ([]Iov, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT SINCE, PAYLOAD_HASH, INSERTION_TIME FROM IOV
		WHERE TAG_NAME = ? AND SINCE >= ? ORDER BY SINCE LIMIT ?`, tag, int64(from), limit)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var iovs []Iov
	for rows.Next() {
		var since, inserted int64
		var hash string
		if err := rows.Scan(&since, &hash, &inserted); err != nil {
			return nil, errors.WithStack(err)
		}
		iovs = append(iovs, Iov{Since: cond.Time(since), PayloadId: hash, InsertionTime: fromUnixMicro(inserted)})
	}
	return iovs, errors.WithStack(rows.Err())
}

// FetchPayloadData returns the object type and serialized form of a payload, or an *poperrors.ErrNotFound.
// The read happens in its own transaction.
func (s *Store) FetchPayloadData(ctx context.Context, id string) (string, []byte, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, errors.WithStack(err)
	}
	defer func() { _ = tx.Rollback() }()

	var objectType string
	var data []byte
	err = tx.QueryRowContext(ctx, "SELECT OBJECT_TYPE, DATA FROM PAYLOAD WHERE HASH = ?", id).Scan(&objectType, &data)
	if err == sql.ErrNoRows {
		return "", nil, errors.WithStack(&poperrors.ErrNotFound{Type: "payload", Value: id})
	}
	if err != nil {
		return "", nil, errors.WithStack(err)
	}
	return objectType, data, errors.WithStack(tx.Commit())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTag(row rowScanner) (Tag, error) {
	var tag Tag
	var inserted, modified int64
	err := row.Scan(&tag.Name, &tag.TimeType, &tag.ObjectType, &tag.Synchronization, &tag.Description, &inserted, &modified)
	if err == sql.ErrNoRows {
		return Tag{}, err
	}
	if err != nil {
		return Tag{}, errors.WithStack(err)
	}
	tag.InsertionTime = fromUnixMicro(inserted)
	tag.ModificationTime = fromUnixMicro(modified)
	return tag, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func lastIov(ctx context.Context, db querier, tag string) (Iov, error) {
	var since, inserted int64
	var hash string
	err := db.QueryRowContext(ctx,
		"SELECT SINCE, PAYLOAD_HASH, INSERTION_TIME FROM IOV WHERE TAG_NAME = ? ORDER BY SINCE DESC LIMIT 1", tag).
		Scan(&since, &hash, &inserted)
	if err == sql.ErrNoRows {
		return Iov{}, nil
	}
	if err != nil {
		return Iov{}, errors.WithStack(err)
	}
	return Iov{Since: cond.Time(since), PayloadId: hash, InsertionTime: fromUnixMicro(inserted)}, nil
}

func fromUnixMicro(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}
