package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_Generates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, seen)
	_, err := xid.FromString(seen)
	assert.NoError(t, err, "generated id should be an xid")
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
}

func TestRequestID_ReusesIncoming(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reused   bool
	}{
		{"well formed", "abc-123_x.y", true},
		{"empty", "", false},
		{"bad characters", "abc\n123", false},
		{"too long", string(bytes.Repeat([]byte("a"), 65)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, tt.incoming)
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			got := rr.Header().Get(RequestIDHeader)
			if tt.reused {
				assert.Equal(t, tt.incoming, got)
			} else {
				assert.NotEqual(t, tt.incoming, got)
				assert.NotEmpty(t, got)
			}
		})
	}
}

func TestLogger_RecordsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("nope"))
	})))

	req := httptest.NewRequest(http.MethodDelete, "/api/images/7", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "DELETE", entry["method"])
	assert.Equal(t, "/api/images/7", entry["path"])
	assert.EqualValues(t, 404, entry["status"])
	assert.EqualValues(t, 4, entry["bytes"])
	assert.Equal(t, "req-1", entry["request_id"])
}

func TestLogger_DefaultStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.EqualValues(t, 200, entry["status"])
}
