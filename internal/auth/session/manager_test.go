package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/realtyledger/internal/config"
	"github.com/stretchr/testify/assert"
)

func newContext(req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func TestReadTokenPrefersBearerHeader(t *testing.T) {
	m := NewManager(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "cookie-token"})
	c, _ := newContext(req)

	token, ok := m.ReadToken(c)
	assert.True(t, ok)
	assert.Equal(t, "header-token", token)
}

func TestReadTokenFromCookie(t *testing.T) {
	m := NewManager(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "cookie-token"})
	c, _ := newContext(req)

	token, ok := m.ReadToken(c)
	assert.True(t, ok)
	assert.Equal(t, "cookie-token", token)

	empty, _ := newContext(httptest.NewRequest(http.MethodGet, "/", nil))
	_, ok = m.ReadToken(empty)
	assert.False(t, ok)
}

func TestSetAndClearCookie(t *testing.T) {
	m := NewManager(config.Config{AuthCookieSecure: true})
	c, w := newContext(httptest.NewRequest(http.MethodGet, "/", nil))

	m.Set(c, "abc", time.Now().Add(time.Hour))
	cookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, "token=abc")
	assert.Contains(t, cookie, "HttpOnly")
	assert.Contains(t, cookie, "Secure")

	c2, w2 := newContext(httptest.NewRequest(http.MethodGet, "/", nil))
	m.Clear(c2)
	assert.Contains(t, w2.Header().Get("Set-Cookie"), "Max-Age=0")
}
