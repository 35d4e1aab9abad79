package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"redirect-manager/internal/model"
)

func TestParseListOptions_Defaults(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/api/v1/redirects", nil)
	opts, err := parseListOptions(req)
	require.NoError(t, err)

	require.Equal(t, 1, opts.Page)
	require.Equal(t, defaultPageSize, opts.Limit)
	require.Equal(t, model.SortByID, opts.SortBy)
	require.Equal(t, model.SortAsc, opts.SortOrder)
	require.Nil(t, opts.Cursor)
	require.Empty(t, opts.Filters)
}

func TestParseListOptions_OffsetAndSort(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/api/v1/redirects?page=3&limit=50&sort_by=source&sort_order=desc", nil)
	opts, err := parseListOptions(req)
	require.NoError(t, err)

	require.Equal(t, 3, opts.Page)
	require.Equal(t, 50, opts.Limit)
	require.Equal(t, model.SortBySource, opts.SortBy)
	require.Equal(t, model.SortDesc, opts.SortOrder)
}

func TestParseListOptions_Cursor(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/api/v1/redirects?cursor=42&first=10", nil)
	opts, err := parseListOptions(req)
	require.NoError(t, err)

	require.NotNil(t, opts.Cursor)
	require.EqualValues(t, 42, *opts.Cursor)
	require.Equal(t, 10, opts.First)
}

func TestParseListOptions_BracketFilters(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET",
		"/api/v1/redirects?status_code[in]=301,302&source[startswith]=/blog&destination[neq]=/x", nil)
	opts, err := parseListOptions(req)
	require.NoError(t, err)
	require.Len(t, opts.Filters, 3)

	byField := map[string]model.Filter{}
	for _, f := range opts.Filters {
		byField[f.Field] = f
	}

	require.Equal(t, model.OpIn, byField[model.FilterFieldStatusCode].Operator)
	require.Equal(t, []string{"301", "302"}, byField[model.FilterFieldStatusCode].Values)
	require.Equal(t, model.OpStartsWith, byField[model.FilterFieldSource].Operator)
	require.Equal(t, []string{"/blog"}, byField[model.FilterFieldSource].Values)
	require.Equal(t, model.OpNotEquals, byField[model.FilterFieldDestination].Operator)
}

func TestParseListOptions_Invalid(t *testing.T) {
	t.Parallel()

	for _, query := range []string{
		"page=0",
		"page=abc",
		"limit=101",
		"first=0",
		"cursor=-1",
		"sort_by=password",
		"sort_order=sideways",
		"enabled[eq]=true",
		"source[in]=/a,/b",
	} {
		req := httptest.NewRequest("GET", "/api/v1/redirects?"+query, nil)
		_, err := parseListOptions(req)
		require.ErrorIs(t, err, model.ErrInvalidInput, "query %q", query)
	}
}
