package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roulettehub/subgate/handler"
)

type resourceRequest struct {
	Resource string
}

func setResource(req *resourceRequest, v string) { req.Resource = v }

func decode(t *testing.T, rec *httptest.ResponseRecorder) handler.JSONResponse {
	t.Helper()
	var body handler.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("binds path parameter", func(t *testing.T) {
		t.Parallel()
		h := handler.Wrap(func(ctx handler.Context, req resourceRequest) handler.Response {
			return handler.JSON(map[string]string{"resource": req.Resource})
		}, handler.WithBinders[handler.Context, resourceRequest](handler.PathParam("resource", setResource)))

		r := chi.NewRouter()
		r.Get("/access/{resource}", h)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/access/roulette.live", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data":{"resource":"roulette.live"}}`, rec.Body.String())
	})

	t.Run("missing path parameter", func(t *testing.T) {
		t.Parallel()
		h := handler.Wrap(func(ctx handler.Context, req resourceRequest) handler.Response {
			return handler.JSON(nil)
		}, handler.WithBinders[handler.Context, resourceRequest](handler.PathParam("resource", setResource)))

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/access/", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_request", decode(t, rec).Error.Code)
	})

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()
		h := handler.Wrap(func(ctx handler.Context, req struct{}) handler.Response { return nil })

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("context exposes request", func(t *testing.T) {
		t.Parallel()
		h := handler.Wrap(func(ctx handler.Context, req struct{}) handler.Response {
			return handler.JSON(ctx.Request().URL.Path)
		})

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/plans", nil))
		assert.JSONEq(t, `{"data":"/plans"}`, rec.Body.String())
	})

	t.Run("custom error handler", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := slog.New(slog.NewJSONHandler(&buf, nil))
		h := handler.Wrap(func(ctx handler.Context, req resourceRequest) handler.Response {
			return handler.JSON(nil)
		},
			handler.WithBinders[handler.Context, resourceRequest](handler.PathParam("resource", setResource)),
			handler.WithErrorHandler[handler.Context, resourceRequest](handler.NewErrorHandler(log)),
		)

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/access/", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, buf.String(), `"level":"WARN"`)
		assert.Contains(t, buf.String(), `"status_code":400`)
	})
}

func TestJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	err := handler.JSON([]string{"basic"}, handler.WithJSONStatus(http.StatusCreated), handler.WithJSONMeta(map[string]any{"count": 1})).
		Render(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":["basic"],"meta":{"count":1}}`, rec.Body.String())
}

func TestJSONError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"http error", handler.ErrNotFound, http.StatusNotFound, "not_found"},
		{"wrapped http error", errors.Join(handler.ErrServiceUnavailable, errors.New("mongo down")), http.StatusServiceUnavailable, "service_unavailable"},
		{"plain error is hidden", errors.New("secret detail"), http.StatusInternalServerError, "internal_server_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			require.NoError(t, handler.JSONError(tt.err).Render(rec, httptest.NewRequest(http.MethodGet, "/", nil)))

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotContains(t, rec.Body.String(), "secret detail")
		})
	}
}
