package conddb

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/armadaproject/popcon/internal/common/iov"
	"github.com/armadaproject/popcon/internal/common/poperrors"
)

// PayloadHash returns the content address of a serialized payload of the given type.
func PayloadHash(objectType string, data []byte) string {
	h := sha1.New()
	h.Write([]byte(objectType))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FetchPayload reads and deserializes the payload with the given id.
// A payload stored with a different object type is reported as an *poperrors.ErrInvalidArgument.
func FetchPayload[T iov.Payload[T]](ctx context.Context, s *Store, objectType string, id string) (T, error) {
	var payload T
	storedType, data, err := s.FetchPayloadData(ctx, id)
	if err != nil {
		return payload, err
	}
	if storedType != objectType {
		return payload, errors.WithStack(&poperrors.ErrInvalidArgument{
			Name:    "objectType",
			Value:   storedType,
			Message: "payload " + id + " is not of type " + objectType,
		})
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, errors.Wrapf(err, "error deserializing payload %s", id)
	}
	return payload, nil
}

// AppendIovs appends entries to tag in a single transaction, creating the tag if it does not exist.
// The store is append-only: every since must be strictly greater than the tag's current last since and than the
// since preceding it in entries. It returns the number of IOVs written.
func AppendIovs[T iov.Payload[T]](ctx context.Context, s *Store, tag Tag, entries []iov.Entry[T]) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	now := s.clock.Now().UTC().UnixMicro()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := ensureTag(ctx, tx, tag, now); err != nil {
		return 0, err
	}
	last, err := lastIov(ctx, tx, tag.Name)
	if err != nil {
		return 0, err
	}
	lastSince := last.Since

	for _, entry := range entries {
		if entry.Since <= lastSince {
			return 0, errors.WithStack(&poperrors.ErrInvalidArgument{
				Name:    "since",
				Value:   uint64(entry.Since),
				Message: "IOVs of tag " + tag.Name + " must be appended after " + lastSince.String(),
			})
		}
		data, err := json.Marshal(entry.Payload)
		if err != nil {
			return 0, errors.WithStack(err)
		}
		hash := PayloadHash(tag.ObjectType, data)
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO PAYLOAD (HASH, OBJECT_TYPE, DATA, INSERTION_TIME) VALUES (?, ?, ?, ?)",
			hash, tag.ObjectType, data, now); err != nil {
			return 0, errors.WithStack(err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO IOV (TAG_NAME, SINCE, PAYLOAD_HASH, INSERTION_TIME) VALUES (?, ?, ?, ?)",
			tag.Name, int64(entry.Since), hash, now); err != nil {
			return 0, errors.WithStack(err)
		}
		lastSince = entry.Since
	}

	if _, err := tx.ExecContext(ctx, "UPDATE TAG SET MODIFICATION_TIME = ? WHERE NAME = ?", now, tag.Name); err != nil {
		return 0, errors.WithStack(err)
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.WithStack(err)
	}
	return len(entries), nil
}

func ensureTag(ctx context.Context, tx *sql.Tx, tag Tag, now int64) error {
	var objectType string
	err := tx.QueryRowContext(ctx, "SELECT OBJECT_TYPE FROM TAG WHERE NAME = ?", tag.Name).Scan(&objectType)
	switch {
	case err == sql.ErrNoRows:
		timeType := tag.TimeType
		if timeType == "" {
			timeType = TimeTypeTime
		}
		synchronization := tag.Synchronization
		if synchronization == "" {
			synchronization = SynchronizationAny
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO TAG (NAME, TIME_TYPE, OBJECT_TYPE, SYNCHRONIZATION, DESCRIPTION, INSERTION_TIME, MODIFICATION_TIME)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			tag.Name, timeType, tag.ObjectType, synchronization, tag.Description, now, now)
		return errors.WithStack(err)
	case err != nil:
		return errors.WithStack(err)
	case objectType != tag.ObjectType:
		return errors.WithStack(&poperrors.ErrInvalidArgument{
			Name:    "objectType",
			Value:   tag.ObjectType,
			Message: "tag " + tag.Name + " holds payloads of type " + objectType,
		})
	}
	return nil
}
