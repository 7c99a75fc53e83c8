package httpputt

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	log := logrus.NewEntry(logrus.New())
	return New("127.0.0.1:0", log)
}

func TestHandlePuttAccepts(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/putt", bytes.NewBufferString(`{"distance_ft":4.5,"made_putt":true}`))
	rec := httptest.NewRecorder()

	s.srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHandlePuttRejectsBadJSON(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/putt", bytes.NewBufferString(`not json`))
	rec := httptest.NewRecorder()

	s.srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	s.srv.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
