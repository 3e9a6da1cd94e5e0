package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classhub/internal/config"
	"classhub/internal/logging"
	"classhub/pkg/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "data", "classhub.db")
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = freePort(t)
	cfg.Auth.DefaultPassword = "secret"
	return cfg
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestNewApplication_RejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.HTTP.Port = -1

	application, err := NewApplication(cfg, logging.Discard())

	assert.Error(t, err)
	assert.Nil(t, application)
}

func TestNewApplication_ServesHealthBeforeStart(t *testing.T) {
	application, err := NewApplication(testConfig(t), logging.Discard())
	require.NoError(t, err)
	defer application.dbManager.Close()

	w := httptest.NewRecorder()
	application.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestApplication_StartStop(t *testing.T) {
	cfg := testConfig(t)
	application, err := NewApplication(cfg, logging.Discard())
	require.NoError(t, err)

	require.NoError(t, application.Start(context.Background()))
	assert.Equal(t, net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port)), application.Addr())

	resp, err := http.Get("http://" + application.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, application.Stop(ctx))
}

func TestApplication_StartFailsWhenPortTaken(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testConfig(t)
	cfg.HTTP.Port = busy.Addr().(*net.TCPAddr).Port
	application, err := NewApplication(cfg, logging.Discard())
	require.NoError(t, err)
	defer application.dbManager.Close()

	assert.Error(t, application.Start(context.Background()))
}

// client is a thin REST and websocket client against a running application
type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) call(method, path string, body interface{}) (int, []byte) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, "http://"+c.base+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data
}

func (c *client) dial(query url.Values) *gorillaws.Conn {
	c.t.Helper()
	u := url.URL{Scheme: "ws", Host: c.base, Path: "/ws", RawQuery: query.Encode()}
	conn, _, err := gorillaws.DefaultDialer.Dial(u.String(), nil)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *gorillaws.Conn, eventType string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(types.Envelope{Type: eventType, Data: raw}))
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// await reads frames until one of eventType arrives
func await(t *testing.T, conn *gorillaws.Conn, eventType string) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f), "waiting for %s", eventType)
		if f.Type == eventType {
			return f
		}
	}
}

func TestApplication_ClassroomFlow(t *testing.T) {
	application, err := NewApplication(testConfig(t), logging.Discard())
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		application.Stop(ctx)
	}()

	c := &client{t: t, base: application.Addr()}

	status, body := c.call(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "secret"})
	require.Equal(t, http.StatusOK, status, string(body))
	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &session))
	c.token = session.Token

	status, body = c.call(http.MethodPost, "/api/classes", map[string]string{"name": "Grade 7 Class 2", "grade": "7"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created struct {
		Class types.Class `json:"class"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	classID := created.Class.ID

	status, body = c.call(http.MethodPost, fmt.Sprintf("/api/classes/%d/students", classID),
		map[string]string{"studentId": "2024001", "name": "Alice"})
	require.Equal(t, http.StatusCreated, status, string(body))

	teacher := c.dial(url.Values{"role": {types.RoleTeacher}, "token": {c.token}})
	send(t, teacher, types.EventSelectClass, map[string]interface{}{"classId": classID, "className": "Grade 7 Class 2"})
	selected := await(t, teacher, types.EventClassSelected)
	assert.Contains(t, string(selected.Data), `"selected":true`)

	student := c.dial(url.Values{"role": {types.RoleStudent}})
	await(t, student, types.EventClassSelected)

	send(t, student, types.EventJoinCompetition, map[string]string{"studentId": "2024001"})
	await(t, student, types.EventWaitingForCompetition)
	loggedIn := await(t, teacher, types.EventStudentLoggedIn)
	assert.Contains(t, string(loggedIn.Data), "2024001")

	status, body = c.call(http.MethodGet, "/api/presence", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "2024001")

	// Deleting a class that still has students is refused
	status, _ = c.call(http.MethodDelete, fmt.Sprintf("/api/classes/%d", classID), nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestApplication_TeacherSocketNeedsToken(t *testing.T) {
	application, err := NewApplication(testConfig(t), logging.Discard())
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))
	defer application.Stop(context.Background())

	u := url.URL{Scheme: "ws", Host: application.Addr(), Path: "/ws", RawQuery: "role=teacher&token=forged"}
	_, resp, err := gorillaws.DefaultDialer.Dial(u.String(), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
