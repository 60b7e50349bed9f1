package oms

import (
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Result holds the rows returned by a query, in the order the service returned them.
type Result struct {
	rows []Row
}

// Row gives typed access to the attributes of one returned record.
type Row struct {
	attributes gjson.Result
}

// ParseResult parses a JSON:API response body; each element of "data" becomes a row built from its "attributes".
func ParseResult(body []byte) (*Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("oms response is not valid json")
	}
	data := gjson.GetBytes(body, "data")
	if data.Exists() && !data.IsArray() {
		return nil, errors.Errorf("oms response data is of type %s, expected an array", data.Type)
	}
	result := &Result{}
	data.ForEach(func(_, value gjson.Result) bool {
		result.rows = append(result.rows, Row{attributes: value.Get("attributes")})
		return true
	})
	return result, nil
}

func (r *Result) Len() int {
	return len(r.rows)
}

func (r *Result) IsEmpty() bool {
	return len(r.rows) == 0
}

func (r *Result) Rows() []Row {
	return r.rows
}

// Front returns the first row. ok is false if there are no rows.
func (r *Result) Front() (row Row, ok bool) {
	if len(r.rows) == 0 {
		return Row{}, false
	}
	return r.rows[0], true
}

// Back returns the last row. ok is false if there are no rows.
func (r *Result) Back() (row Row, ok bool) {
	if len(r.rows) == 0 {
		return Row{}, false
	}
	return r.rows[len(r.rows)-1], true
}

// IsNull returns true if the attribute is missing or null.
func (r Row) IsNull(name string) bool {
	v := r.attributes.Get(name)
	return !v.Exists() || v.Type == gjson.Null
}

// GetString returns the attribute as a string; ok is false if it is null.
func (r Row) GetString(name string) (value string, ok bool) {
	if r.IsNull(name) {
		return "", false
	}
	return r.attributes.Get(name).String(), true
}

// GetUint returns a numeric attribute; ok is false if it is null.
func (r Row) GetUint(name string) (value uint64, ok bool) {
	if r.IsNull(name) {
		return 0, false
	}
	return r.attributes.Get(name).Uint(), true
}

// GetFloat returns a numeric attribute; ok is false if it is null.
func (r Row) GetFloat(name string) (value float64, ok bool) {
	if r.IsNull(name) {
		return 0, false
	}
	return r.attributes.Get(name).Float(), true
}

// GetBool returns a boolean attribute. Null and unparseable values are false; the strings "true" and "1" are
// accepted as true.
func (r Row) GetBool(name string) bool {
	if r.IsNull(name) {
		return false
	}
	return r.attributes.Get(name).Bool()
}

// GetTime returns a time attribute in UTC; ok is false if it is null.
func (r Row) GetTime(name string) (value time.Time, ok bool, err error) {
	s, ok := r.GetString(name)
	if !ok {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, errors.Wrapf(err, "attribute %s", name)
	}
	return t.UTC(), true, nil
}

// Raw returns the attributes object as JSON.
func (r Row) Raw() string {
	return r.attributes.Raw
}
