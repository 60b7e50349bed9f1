package oms

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/popcon/internal/common/cond"
)

func TestQuery_Values(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 30, 0, 0, time.UTC)
	q := NewQuery("fills").
		AddOutputVars("fill_number", "start_time", "end_time").
		FilterNotNull("start_stable_beam").
		FilterGE("start_time", start).
		FilterLT("start_time", cond.FromTime(start.Add(time.Hour))).
		FilterEQ("fill_number", uint16(8000)).
		WithLimit(4000).
		Sort("start_time")

	values := q.Values()
	assert.Equal(t, "fill_number,start_time,end_time", values.Get("fields[fills]"))
	assert.Equal(t, "null", values.Get("filter[start_stable_beam][NEQ]"))
	assert.Equal(t, "2023-06-01T10:30:00Z", values.Get("filter[start_time][GE]"))
	assert.Equal(t, "2023-06-01T11:30:00Z", values.Get("filter[start_time][LT]"))
	assert.Equal(t, "8000", values.Get("filter[fill_number][EQ]"))
	assert.Equal(t, "4000", values.Get("page[limit]"))
	assert.Equal(t, "start_time", values.Get("sort"))
	assert.Len(t, q.Filters(), 4)
}

func TestQuery_URL(t *testing.T) {
	q := NewQuery("lumisections").AddOutputVar("run_number").FilterEQ("fill_number", 7)
	u, err := url.Parse(q.URL("http://oms.example/api/v1/"))
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/lumisections", u.Path)
	assert.Equal(t, "7", u.Query().Get("filter[fill_number][EQ]"))
	assert.Equal(t, "run_number", u.Query().Get("fields[lumisections]"))
}

func TestQuery_FilterGTOrGE(t *testing.T) {
	assert.Equal(t, GT, NewQuery("fills").FilterGTOrGE("start_time", "x", true).Filters()[0].Operator)
	assert.Equal(t, GE, NewQuery("fills").FilterGTOrGE("start_time", "x", false).Filters()[0].Operator)
}

func TestQuery_NoOptionalParameters(t *testing.T) {
	assert.Empty(t, NewQuery("fills").Values())
}

func TestFormatValue(t *testing.T) {
	tests := map[string]struct {
		value    any
		expected string
	}{
		"string":    {"abc", "abc"},
		"bool":      {true, "true"},
		"uint32":    {uint32(42), "42"},
		"uint64":    {uint64(42), "42"},
		"int":       {-3, "-3"},
		"time":      {time.Date(2023, 1, 2, 3, 4, 5, 600, time.FixedZone("CET", 3600)), "2023-01-02T02:04:05Z"},
		"cond time": {cond.Pack(1672628645, 0), "2023-01-02T03:04:05Z"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatValue(tc.value))
		})
	}
}
