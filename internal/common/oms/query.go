// Package oms is a client for the Online Monitoring System REST API, which serves fill, run and lumisection
// records using the JSON:API conventions.
package oms

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/armadaproject/popcon/internal/common/cond"
)

// Operator is a JSON:API filter operator.
type Operator string

const (
	EQ  Operator = "EQ"
	NEQ Operator = "NEQ"
	GT  Operator = "GT"
	GE  Operator = "GE"
	LT  Operator = "LT"
	LE  Operator = "LE"
)

// TimeFormat is the format of time values in filters and in returned attributes.
const TimeFormat = "2006-01-02T15:04:05Z"

const nullValue = "null"

// Filter restricts the rows returned to those whose Field compares to Value with Operator.
type Filter struct {
	Field    string
	Operator Operator
	Value    string
}

// Query describes a request for one OMS resource, e.g. "fills" or "lumisections".
type Query struct {
	resource   string
	outputVars []string
	filters    []Filter
	limit      int
	sort       []string
}

func NewQuery(resource string) *Query {
	return &Query{resource: resource}
}

func (q *Query) Resource() string {
	return q.resource
}

func (q *Query) OutputVars() []string {
	return q.outputVars
}

func (q *Query) Filters() []Filter {
	return q.filters
}

// Limit returns the page limit; zero means the service default.
func (q *Query) Limit() int {
	return q.limit
}

func (q *Query) SortFields() []string {
	return q.sort
}

// AddOutputVar restricts the attributes returned to those added.
func (q *Query) AddOutputVar(name string) *Query {
	q.outputVars = append(q.outputVars, name)
	return q
}

func (q *Query) AddOutputVars(names ...string) *Query {
	q.outputVars = append(q.outputVars, names...)
	return q
}

func (q *Query) FilterEQ(field string, value any) *Query {
	return q.filter(field, EQ, value)
}

func (q *Query) FilterGT(field string, value any) *Query {
	return q.filter(field, GT, value)
}

func (q *Query) FilterGE(field string, value any) *Query {
	return q.filter(field, GE, value)
}

func (q *Query) FilterLT(field string, value any) *Query {
	return q.filter(field, LT, value)
}

// FilterNotNull keeps only rows where field has a value.
func (q *Query) FilterNotNull(field string) *Query {
	q.filters = append(q.filters, Filter{Field: field, Operator: NEQ, Value: nullValue})
	return q
}

// FilterGTOrGE adds a GT filter if strict is set and a GE filter otherwise.
func (q *Query) FilterGTOrGE(field string, value any, strict bool) *Query {
	if strict {
		return q.FilterGT(field, value)
	}
	return q.FilterGE(field, value)
}

func (q *Query) WithLimit(limit int) *Query {
	q.limit = limit
	return q
}

// Sort orders the rows by field, ascending. Prefix the field with "-" to sort descending.
func (q *Query) Sort(field string) *Query {
	q.sort = append(q.sort, field)
	return q
}

func (q *Query) filter(field string, op Operator, value any) *Query {
	q.filters = append(q.filters, Filter{Field: field, Operator: op, Value: FormatValue(value)})
	return q
}

// Values encodes the query as JSON:API parameters.
func (q *Query) Values() url.Values {
	values := url.Values{}
	if len(q.outputVars) > 0 {
		values.Set(fmt.Sprintf("fields[%s]", q.resource), strings.Join(q.outputVars, ","))
	}
	for _, f := range q.filters {
		values.Add(fmt.Sprintf("filter[%s][%s]", f.Field, f.Operator), f.Value)
	}
	if q.limit > 0 {
		values.Set("page[limit]", strconv.Itoa(q.limit))
	}
	if len(q.sort) > 0 {
		values.Set("sort", strings.Join(q.sort, ","))
	}
	return values
}

// URL returns the address of the query relative to baseUrl.
func (q *Query) URL(baseUrl string) string {
	return strings.TrimSuffix(baseUrl, "/") + "/" + q.resource + "?" + q.Values().Encode()
}

func (q *Query) String() string {
	return q.resource + "?" + q.Values().Encode()
}

// FormatValue renders a filter value the way OMS expects it.
func FormatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.UTC().Format(TimeFormat)
	case cond.Time:
		return v.Time().Format(TimeFormat)
	case bool:
		return strconv.FormatBool(v)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}
