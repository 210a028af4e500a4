package common_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lineup-studio/backend-lineup/internal/common"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		name        string
		url         string
		wantPage    int
		wantPerPage int
	}{
		{"defaults", "/photos", 1, 24},
		{"explicit", "/photos?page=3&limit=12", 3, 12},
		{"clamped limit", "/photos?limit=5000", 1, 100},
		{"invalid values ignored", "/photos?page=zero&limit=-4", 1, 24},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tc.url, nil)
			page, perPage := common.ParsePagination(r, 24)
			require.Equal(t, tc.wantPage, page)
			require.Equal(t, tc.wantPerPage, perPage)
		})
	}
}
