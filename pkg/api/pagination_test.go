package api

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParsePagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query string
		want  PageRequest
	}{
		{"", PageRequest{Page: 1, PageSize: 20}},
		{"?page=3&pageSize=50", PageRequest{Page: 3, PageSize: 50}},
		{"?page=0&pageSize=-1", PageRequest{Page: 1, PageSize: 20}},
		{"?page=abc&pageSize=500", PageRequest{Page: 1, PageSize: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/transactions"+tt.query, nil)
			assert.Equal(t, tt.want, ParsePagination(c))
		})
	}
}

func TestNewPageResponse(t *testing.T) {
	page := NewPageResponse([]string{"a", "b"}, 2, 2, 5)
	assert.Equal(t, int64(3), page.TotalPages)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrev)

	empty := NewPageResponse[string](nil, 1, 20, 0)
	assert.Equal(t, int64(1), empty.TotalPages)
	assert.NotNil(t, empty.Data)
	assert.False(t, empty.HasNext)
}

func TestPageRequestOffset(t *testing.T) {
	assert.Equal(t, 40, PageRequest{Page: 3, PageSize: 20}.Offset())
}
