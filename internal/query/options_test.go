package query

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func newListContext(rawQuery string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/bonus?"+rawQuery, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected ListOptions
	}{
		{
			name:     "defaults",
			query:    "",
			expected: ListOptions{Page: 1, Size: 10},
		},
		{
			name:     "filters and pagination",
			query:    "status=PENDING&recipient=abc&created_by=def&page=3&size=25",
			expected: ListOptions{Status: "PENDING", RecipientID: "abc", CreatedByID: "def", Page: 3, Size: 25},
		},
		{
			name:     "size is capped",
			query:    "size=5000",
			expected: ListOptions{Page: 1, Size: 100},
		},
		{
			name:     "garbage pagination falls back",
			query:    "page=zero&size=-4",
			expected: ListOptions{Page: 1, Size: 10},
		},
		{
			name:     "sort is carried through",
			query:    "sort=amount,desc",
			expected: ListOptions{Sort: "amount,desc", Page: 1, Size: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Parse(newListContext(tt.query)))
		})
	}
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		sort     string
		expected string
	}{
		{"", "created_at DESC"},
		{"amount", "amount ASC"},
		{"amount,desc", "amount DESC"},
		{"amount,DESC", "amount DESC"},
		{"title,asc", "title ASC"},
		{"password_hash", "created_at DESC"},
		{"amount;drop table bonuses", "created_at DESC"},
	}

	for _, tt := range tests {
		opts := ListOptions{Sort: tt.sort}
		assert.Equal(t, tt.expected, opts.orderClause(), "sort=%q", tt.sort)
	}
}
