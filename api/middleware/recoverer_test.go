package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/posledger/pkg/logger"
)

func TestRecovererWritesInternalEnvelopeWithRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: buf})
	handler := RequestID(logg)(Recoverer(logg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("register row missing")
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/registers/close", nil)
	req.Header.Set(requestIDHeader, "till-2:00017")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, w.Body.String(), "register row missing")

	var panicLine string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, "panic.recovered") {
			panicLine = line
		}
	}
	require.NotEmpty(t, panicLine, buf.String())
	assert.Contains(t, panicLine, `"request_id":"till-2:00017"`)
	assert.Contains(t, panicLine, `"path":"/api/v1/registers/close"`)
	assert.Contains(t, panicLine, `"stack":`)
}

func TestRecovererRepanicsOnAbort(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestIDKeepsOnlyWellFormedIDs(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(requestIDHeader)
	}))

	cases := map[string]bool{
		"till-2:00017":          true,
		"":                      false,
		"has space":             false,
		"line\nbreak":           false,
		strings.Repeat("a", 65): false,
	}
	for inbound, kept := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if inbound != "" {
			req.Header[requestIDHeader] = []string{inbound}
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, seen, w.Header().Get(requestIDHeader))
		if kept {
			assert.Equal(t, inbound, seen)
			continue
		}
		assert.NotEqual(t, inbound, seen)
		assert.Len(t, seen, 36, "minted id for %q", inbound)
	}
}
