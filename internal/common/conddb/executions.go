package conddb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type ExecutionStatus string

const (
	ExecutionSucceeded ExecutionStatus = "succeeded"
	ExecutionFailed    ExecutionStatus = "failed"
)

// Execution is one populator run as recorded in the PopCon log.
type Execution struct {
	Id          string
	Tag         string
	Handler     string
	StartTime   time.Time
	EndTime     time.Time
	IovsWritten int
	Status      ExecutionStatus
	Message     string
}

// LogExecution records an execution. An id is generated if none is set; the id used is returned.
func (s *Store) LogExecution(ctx context.Context, e Execution) (string, error) {
	if e.Id == "" {
		e.Id = uuid.NewString()
	}
	if e.EndTime.IsZero() {
		e.EndTime = s.clock.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO POPCON_LOG (EXECUTION_ID, TAG_NAME, HANDLER, START_TIME, END_TIME, IOVS_WRITTEN, STATUS, MESSAGE)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Id, e.Tag, e.Handler, e.StartTime.UTC().UnixMicro(), e.EndTime.UTC().UnixMicro(), e.IovsWritten,
		string(e.Status), e.Message)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return e.Id, nil
}

// ListExecutions returns the executions recorded for tag, most recent first. limit <= 0 means no limit.
func (s *Store) ListExecutions(ctx context.Context, tag string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT EXECUTION_ID, TAG_NAME, HANDLER, START_TIME, END_TIME, IOVS_WRITTEN, STATUS, MESSAGE
		FROM POPCON_LOG WHERE TAG_NAME = ? ORDER BY START_TIME DESC, EXECUTION_ID LIMIT ?`, tag, limit)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var executions []Execution
	for rows.Next() {
		var e Execution
		var start, end int64
		var status string
		if err := rows.Scan(&e.Id, &e.Tag, &e.Handler, &start, &end, &e.IovsWritten, &status, &e.Message); err != nil {
			return nil, errors.WithStack(err)
		}
		e.StartTime = fromUnixMicro(start)
		e.EndTime = fromUnixMicro(end)
		e.Status = ExecutionStatus(status)
		executions = append(executions, e)
	}
	return executions, errors.WithStack(rows.Err())
}
