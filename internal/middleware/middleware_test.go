package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "acadreport/internal/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var captured string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetReqID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, captured)
	assert.Equal(t, captured, w.Header().Get("X-Request-ID"))
}

func TestRequestID_PreservesIncoming(t *testing.T) {
	var captured string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetReqID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "incoming-id")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "incoming-id", captured)
}

func TestRateLimiter_Blocks(t *testing.T) {
	rl := NewRateLimiter(1, 1, discardLogger())
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

func TestTimeout_PassesThrough(t *testing.T) {
	h := Timeout(time.Second, discardLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Fast", "1")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "1", w.Header().Get("X-Fast"))
}

func TestTimeout_DiscardsLateHandlerWrite(t *testing.T) {
	release := make(chan struct{})
	wrote := make(chan error, 1)
	h := Timeout(5*time.Millisecond, discardLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
			_, err := w.Write([]byte("late"))
			wrote <- err
		}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	close(release)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "/errors/timeout")

	// The stalled handler's write is dropped, not interleaved.
	assert.ErrorIs(t, <-wrote, http.ErrHandlerTimeout)
	assert.NotContains(t, w.Body.String(), "late")
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("preflight must not reach the handler")
		}))

	r := httptest.NewRequest(http.MethodOptions, "/", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestContentTypeValidator(t *testing.T) {
	h := ContentTypeValidator("multipart/form-data")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	t.Run("accepted", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.Header.Set("Content-Type", "text/plain")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get bypasses", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestValidateStruct(t *testing.T) {
	logger := discardLogger()
	vm := NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))

	type archiveRequest struct {
		Format string `json:"format" validate:"required,oneof=pdf docx"`
	}

	assert.NoError(t, vm.ValidateStruct(archiveRequest{Format: "pdf"}))

	err := vm.ValidateStruct(archiveRequest{Format: "odt"})
	require.Error(t, err)
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)
}

func TestSpreadsheetValidator(t *testing.T) {
	logger := discardLogger()
	vm := NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))

	type upload struct {
		Name string `json:"name" validate:"spreadsheet"`
	}

	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"csv accepted", "results.csv", true},
		{"xlsx accepted", "Attendance.XLSX", true},
		{"legacy xls rejected", "results.xls", false},
		{"pdf rejected", "results.pdf", false},
		{"traversal rejected", "../etc/passwd.csv", false},
		{"empty rejected", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vm.ValidateStruct(upload{Name: tt.value})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestQueryParamValidator_ValidateEnum(t *testing.T) {
	logger := discardLogger()
	qv := NewQueryParamValidator(logger, apierrors.NewErrorHandler(logger, false))

	r := httptest.NewRequest(http.MethodGet, "/?format=docx", nil)
	w := httptest.NewRecorder()
	got, ok := qv.ValidateEnum(w, r, "format", []string{"pdf", "docx"}, "pdf")
	assert.True(t, ok)
	assert.Equal(t, "docx", got)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	got, ok = qv.ValidateEnum(httptest.NewRecorder(), r, "format", []string{"pdf", "docx"}, "pdf")
	assert.True(t, ok)
	assert.Equal(t, "pdf", got)

	r = httptest.NewRequest(http.MethodGet, "/?format=odt", nil)
	w = httptest.NewRecorder()
	_, ok = qv.ValidateEnum(w, r, "format", []string{"pdf", "docx"}, "pdf")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
