// Package omstest provides an in-memory OMS service for tests.
package omstest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/armadaproject/popcon/internal/common/oms"
	"github.com/armadaproject/popcon/internal/common/poperrors"
)

// Row is a record served by the fake. Values may be nil, bool, string, any integer or float type, or time.Time.
type Row map[string]any

// FakeService evaluates queries against rows held in memory, with the filter, sort, limit and field selection
// semantics of the OMS API. Results go through the same JSON parsing as those of the real client.
type FakeService struct {
	mu       sync.Mutex
	rows     map[string][]Row
	failures map[string]error
	queries  []*oms.Query
}

func NewFakeService() *FakeService {
	return &FakeService{
		rows:     map[string][]Row{},
		failures: map[string]error{},
	}
}

// Add appends rows to a resource.
func (f *FakeService) Add(resource string, rows ...Row) *FakeService {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[resource] = append(f.rows[resource], rows...)
	return f
}

// Fail makes every query for resource fail with err. A nil err clears the failure.
func (f *FakeService) Fail(resource string, err error) *FakeService {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, resource)
	} else {
		f.failures[resource] = err
	}
	return f
}

// Queries returns the queries executed for resource, in order.
func (f *FakeService) Queries(resource string) []*oms.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*oms.Query
	for _, q := range f.queries {
		if q.Resource() == resource {
			result = append(result, q)
		}
	}
	return result
}

func (f *FakeService) Execute(ctx context.Context, query *oms.Query) (*oms.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if err := f.failures[query.Resource()]; err != nil {
		return nil, errors.WithStack(&poperrors.ErrQueryFailed{
			Service:  "oms",
			Resource: query.Resource(),
			Message:  err.Error(),
		})
	}

	var selected []Row
	for _, row := range f.rows[query.Resource()] {
		if matches(row, query.Filters()) {
			selected = append(selected, row)
		}
	}
	for i := len(query.SortFields()) - 1; i >= 0; i-- {
		field := query.SortFields()[i]
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		sort.SliceStable(selected, func(a, b int) bool {
			c := compare(selected[a][field], selected[b][field])
			if descending {
				return c > 0
			}
			return c < 0
		})
	}
	if query.Limit() > 0 && len(selected) > query.Limit() {
		selected = selected[:query.Limit()]
	}

	body, err := encode(query, selected)
	if err != nil {
		return nil, err
	}
	return oms.ParseResult(body)
}

func encode(query *oms.Query, rows []Row) ([]byte, error) {
	type record struct {
		Id         string         `json:"id"`
		Type       string         `json:"type"`
		Attributes map[string]any `json:"attributes"`
	}
	data := make([]record, 0, len(rows))
	for i, row := range rows {
		attributes := map[string]any{}
		for k, v := range row {
			if len(query.OutputVars()) > 0 && !contains(query.OutputVars(), k) {
				continue
			}
			if t, ok := v.(time.Time); ok {
				v = t.UTC().Format(oms.TimeFormat)
			}
			attributes[k] = v
		}
		data = append(data, record{Id: strconv.Itoa(i), Type: query.Resource(), Attributes: attributes})
	}
	body, err := json.Marshal(map[string]any{"data": data})
	return body, errors.WithStack(err)
}

func matches(row Row, filters []oms.Filter) bool {
	for _, filter := range filters {
		value := row[filter.Field]
		if filter.Operator == oms.NEQ && filter.Value == "null" {
			if value == nil {
				return false
			}
			continue
		}
		if value == nil {
			return false
		}
		c := compare(value, filter.Value)
		ok := false
		switch filter.Operator {
		case oms.EQ:
			ok = c == 0
		case oms.NEQ:
			ok = c != 0
		case oms.GT:
			ok = c > 0
		case oms.GE:
			ok = c >= 0
		case oms.LT:
			ok = c < 0
		case oms.LE:
			ok = c <= 0
		}
		if !ok {
			return false
		}
	}
	return true
}

// compare orders a row value against another row value or a filter value. Nulls sort first.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			parsed, err := time.Parse(oms.TimeFormat, fmt.Sprint(b))
			if err != nil {
				return strings.Compare(av.UTC().Format(oms.TimeFormat), fmt.Sprint(b))
			}
			bv = parsed
		}
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
		return 0
	case string, bool:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	default:
		af, aerr := strconv.ParseFloat(fmt.Sprint(a), 64)
		bf, berr := strconv.ParseFloat(fmt.Sprint(b), 64)
		if aerr != nil || berr != nil {
			return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
		}
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
