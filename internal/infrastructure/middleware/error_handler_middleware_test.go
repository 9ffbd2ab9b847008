package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"livecart/internal/core/domain"
	"livecart/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func errorRouter(fail func(c *gin.Context)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryMiddleware(zap.NewNop().Sugar()))
	router.Use(ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	router.GET("/fail", fail)
	return router
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorHandlerMiddleware_AppErrorKeepsItsStatus(t *testing.T) {
	router := errorRouter(func(c *gin.Context) {
		c.Error(errors.NewForbiddenError("only the seller shares products"))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/fail", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, string(errors.ErrCodeForbidden), errorBody(t, w)["error"])
}

func TestErrorHandlerMiddleware_MapsDomainSentinels(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   errors.ErrorCode
	}{
		{"room not found", domain.ErrRoomNotFound, http.StatusNotFound, errors.ErrCodeNotFound},
		{"product not found", domain.ErrProductNotFound, http.StatusNotFound, errors.ErrCodeNotFound},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, errors.ErrCodeNotFound},
		{"room ended", domain.ErrRoomEnded, http.StatusGone, errors.ErrCodeRoomEnded},
		{"room exists", domain.ErrRoomExists, http.StatusConflict, errors.ErrCodeConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := errorRouter(func(c *gin.Context) {
				c.Error(tc.err)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/fail", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, string(tc.wantCode), errorBody(t, w)["error"])
		})
	}
}

func TestErrorHandlerMiddleware_UnknownErrorBecomes500(t *testing.T) {
	router := errorRouter(func(c *gin.Context) {
		c.Error(assert.AnError)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/fail", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(errors.ErrCodeInternal), errorBody(t, w)["error"])
}

func TestRecoveryMiddleware_TurnsPanicInto500(t *testing.T) {
	router := errorRouter(func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/fail", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
