package poperrors

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := map[string]struct {
		err  error
		want string
	}{
		"ErrNotFound": {
			err:  &ErrNotFound{Type: "tag", Value: "LHCInfoPerLS_v1"},
			want: `resource "LHCInfoPerLS_v1" of type "tag" does not exist`,
		},
		"ErrNotFound without type": {
			err:  &ErrNotFound{Value: "abc", Message: "purged"},
			want: `resource "abc" does not exist; purged`,
		},
		"ErrInvalidArgument": {
			err:  &ErrInvalidArgument{Name: "since", Value: 10, Message: "must be after 20"},
			want: `value 10 is invalid for field "since"; must be after 20`,
		},
		"ErrQueryFailed": {
			err:  &ErrQueryFailed{Service: "oms", Resource: "fills", Status: 503},
			want: `oms query for "fills" failed with status 503`,
		},
		"ErrQueryFailed with message": {
			err:  &ErrQueryFailed{Service: "optics", Resource: "PPS_LHC_MACHINE_PARAMS", Message: "connection reset"},
			want: `optics query for "PPS_LHC_MACHINE_PARAMS" failed; connection reset`,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestIsHelpers(t *testing.T) {
	notFound := errors.WithMessage(&ErrNotFound{Value: "x"}, "fetching payload")
	queryFailed := errors.WithStack(&ErrQueryFailed{Service: "oms", Resource: "fills"})

	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsNotFound(queryFailed))
	assert.True(t, IsQueryFailed(queryFailed))
	assert.False(t, IsQueryFailed(notFound))
	assert.False(t, IsNotFound(nil))

	assert.False(t, IsPermanentQueryFailure(queryFailed))
	assert.True(t, IsPermanentQueryFailure(errors.WithMessage(&ErrQueryFailed{Service: "optics", Permanent: true}, "enriching")))
	assert.False(t, IsPermanentQueryFailure(notFound))
	assert.False(t, IsPermanentQueryFailure(nil))
}
