package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		expect Pagination
	}{
		{"defaults", "", Pagination{Limit: 20, Offset: 0}},
		{"explicit", "?limit=5&offset=10", Pagination{Limit: 5, Offset: 10}},
		{"limit capped", "?limit=1000", Pagination{Limit: 100, Offset: 0}},
		{"non-positive limit", "?limit=0", Pagination{Limit: 20, Offset: 0}},
		{"negative offset", "?offset=-3", Pagination{Limit: 20, Offset: 0}},
		{"garbage", "?limit=abc&offset=xyz", Pagination{Limit: 20, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			var got Pagination
			app.Get("/", func(c *fiber.Ctx) error {
				got = parsePagination(c, 20)
				return c.SendStatus(fiber.StatusNoContent)
			})
			_, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{2, 3}, paginate(items, Pagination{Limit: 2, Offset: 1}))
	assert.Equal(t, []int{4, 5}, paginate(items, Pagination{Limit: 10, Offset: 3}))
	assert.Equal(t, []int{}, paginate(items, Pagination{Limit: 2, Offset: 5}))
	assert.Equal(t, []int{}, paginate([]int(nil), Pagination{Limit: 2}))
}

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "target ID", humanizeParam("targetId"))
	assert.Equal(t, "username", humanizeParam("username"))
}

func TestParseID(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/things/:id", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		return c.SendString(id)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/things/moment1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	long := make([]byte, maxIDLength+1)
	for i := range long {
		long[i] = 'a'
	}
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/things/"+string(long), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
