package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"classhub/pkg/types"
)

func TestServer_AdminRoutesRequireAdmin(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/api/admin/teachers", "teacher-token", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodPost, "/api/admin/teachers", "teacher-token", `{"username":"wang","password":"secret1","name":"Wang"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Len(t, f.store.teachers, 3)
}

func TestServer_AdminTeacherLifecycle(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/api/admin/teachers", "admin-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[map[string][]types.Teacher](t, w)["teachers"]
	require.Len(t, listed, 3)
	assert.NotContains(t, w.Body.String(), "old", "password hashes never leave the server")

	w = f.do(http.MethodPost, "/api/admin/teachers", "admin-token",
		`{"username":" wang ","password":"secret1","name":"Wang","email":"wang@school.cn","department":"Math"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]types.Teacher](t, w)["teacher"]
	assert.Equal(t, "wang", created.Username)
	assert.Equal(t, "Math", created.Department)
	assert.False(t, created.IsAdmin)

	stored := f.store.teachers[created.ID]
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))

	path := "/api/admin/teachers/" + jsonNumber(created.ID)
	w = f.do(http.MethodGet, path, "admin-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "wang@school.cn", decode[map[string]types.Teacher](t, w)["teacher"].Email)

	// profile edits keep the password and the sessions
	w = f.do(http.MethodPut, path, "admin-token", `{"name":"Wang Fang","email":"fang@school.cn","department":"Science"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Wang Fang", f.store.teachers[created.ID].Name)
	assert.Equal(t, stored.PasswordHash, f.store.teachers[created.ID].PasswordHash)
	assert.Empty(t, f.auth.revoked)

	w = f.do(http.MethodPut, path, "admin-token", `{"name":"Wang Fang","password":"newpass1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(f.store.teachers[created.ID].PasswordHash), []byte("newpass1")))
	assert.Equal(t, []int64{created.ID}, f.auth.revoked, "a new password signs the teacher out")

	w = f.do(http.MethodDelete, path, "admin-token", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, f.store.teachers, created.ID)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, path, "admin-token", "").Code)
}

func TestServer_AdminTeacherErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"duplicate username", http.MethodPost, "/api/admin/teachers", `{"username":"zhang","password":"secret1","name":"Z"}`, http.StatusConflict},
		{"short password", http.MethodPost, "/api/admin/teachers", `{"username":"wang","password":"123","name":"Wang"}`, http.StatusBadRequest},
		{"bad email", http.MethodPost, "/api/admin/teachers", `{"username":"wang","password":"secret1","name":"Wang","email":"nope"}`, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/api/admin/teachers", `{"username":"wang","password":"secret1"}`, http.StatusBadRequest},
		{"unknown teacher", http.MethodGet, "/api/admin/teachers/404", "", http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/admin/teachers/abc", "", http.StatusBadRequest},
		{"update unknown", http.MethodPut, "/api/admin/teachers/404", `{"name":"X"}`, http.StatusNotFound},
		{"delete self", http.MethodDelete, "/api/admin/teachers/99", "", http.StatusBadRequest},
		{"delete class owner", http.MethodDelete, "/api/admin/teachers/1", "", http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			w := f.do(tt.method, tt.path, "admin-token", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestServer_DeleteTeacherEndsSessions(t *testing.T) {
	f := newFixture()
	delete(f.store.classes, 1)

	w := f.do(http.MethodDelete, "/api/admin/teachers/1", "admin-token", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/classes", "teacher-token", "").Code)
}
