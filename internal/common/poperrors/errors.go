// Package poperrors contains generic errors returned by the populator and its collaborators.
// Callers match them with errors.As, looking through any pkg/errors wrapping.
package poperrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound is a generic error to be returned whenever some resource isn't found.
// Type and Message are optional and are omitted from the error message if not provided.
type ErrNotFound struct {
	Type    string // Resource type, e.g., "tag" or "payload"
	Value   string // Resource name, e.g., "LHCInfoPerLS_v1"
	Message string // An optional message to include in the error message
}

func (err *ErrNotFound) Error() (s string) {
	if err.Type != "" {
		s = fmt.Sprintf("resource %q of type %q does not exist", err.Value, err.Type)
	} else {
		s = fmt.Sprintf("resource %q does not exist", err.Value)
	}
	if err.Message != "" {
		return s + fmt.Sprintf("; %s", err.Message)
	}
	return s
}

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "since"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message to include with the error message, e.g., explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %v is invalid for field %q", err.Value, err.Name)
	}
	return fmt.Sprintf("value %v is invalid for field %q; %s", err.Value, err.Name, err.Message)
}

// ErrQueryFailed is returned when a query against an upstream service (OMS or the optics database) fails.
type ErrQueryFailed struct {
	Service  string // e.g., "oms"
	Resource string // e.g., "fills"
	Status   int    // Service specific status, e.g. the HTTP status code; zero if not applicable
	Message  string
	// Permanent is set when repeating the query cannot succeed, e.g. because the queried table does not exist.
	Permanent bool
}

func (err *ErrQueryFailed) Error() string {
	s := fmt.Sprintf("%s query for %q failed", err.Service, err.Resource)
	if err.Status != 0 {
		s += fmt.Sprintf(" with status %d", err.Status)
	}
	if err.Message != "" {
		s += fmt.Sprintf("; %s", err.Message)
	}
	return s
}

// IsNotFound returns true if err, or any error it wraps, is an *ErrNotFound.
func IsNotFound(err error) bool {
	var e *ErrNotFound
	return errors.As(err, &e)
}

// IsQueryFailed returns true if err, or any error it wraps, is an *ErrQueryFailed.
func IsQueryFailed(err error) bool {
	var e *ErrQueryFailed
	return errors.As(err, &e)
}

// IsPermanentQueryFailure returns true if err, or any error it wraps, is an *ErrQueryFailed that repeating the
// query cannot fix.
func IsPermanentQueryFailure(err error) bool {
	var e *ErrQueryFailed
	return errors.As(err, &e) && e.Permanent
}
