package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegionFeed/internal/domain/models"
	"RegionFeed/internal/repository"
	"RegionFeed/internal/usecase"
	xhttp "RegionFeed/pkg/http"
	"RegionFeed/pkg/logger"
)

func serveRoles(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewRolesEchoHandler(usecase.NewRoles(repository.NewStaticRoleCatalog()), logger.NewNop())
	e := xhttp.NewServer([]xhttp.Handler{h}).Echo()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRolesList(t *testing.T) {
	rec := serveRoles(t, "/api/roles")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Rows  []models.Role `json:"rows"`
			Total int64         `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 3, body.Data.Total)
	assert.Equal(t, "admin", body.Data.Rows[0].Code)
}

func TestRolesListByCode(t *testing.T) {
	rec := serveRoles(t, "/api/roles?code=viewer")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Rows []models.Role `json:"rows"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Rows, 1)
	assert.Equal(t, 3, body.Data.Rows[0].ID)
}

func TestRolesRejectsUnknownCode(t *testing.T) {
	rec := serveRoles(t, "/api/roles?code=root")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_ONEOF")
}

func TestRolesGet(t *testing.T) {
	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/api/roles/2", http.StatusOK},
		{"missing", "/api/roles/9", http.StatusNotFound},
		{"zero", "/api/roles/0", http.StatusBadRequest},
		{"not a number", "/api/roles/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveRoles(t, tt.path)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
