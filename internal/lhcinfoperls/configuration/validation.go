package configuration

import (
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/armadaproject/popcon/internal/common/poperrors"
)

// Validate checks the struct tags of the configuration and the constraints spanning several fields.
// All failures are returned together.
func (c LHCInfoPerLSConfiguration) Validate() error {
	var result *multierror.Error
	if err := validator.New().Struct(c); err != nil {
		result = multierror.Append(result, err)
	}
	if !c.EndTime.IsZero() && !c.EndTime.After(c.StartTime) {
		result = multierror.Append(result, errors.WithStack(&poperrors.ErrInvalidArgument{
			Name:    "endTime",
			Value:   c.EndTime,
			Message: "must be after startTime",
		}))
	}
	if c.Oms.Timeout < 0 {
		result = multierror.Append(result, errors.WithStack(&poperrors.ErrInvalidArgument{
			Name:    "oms.timeout",
			Value:   c.Oms.Timeout,
			Message: "must not be negative",
		}))
	}
	return result.ErrorOrNil()
}
