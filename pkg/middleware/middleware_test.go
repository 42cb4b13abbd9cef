package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	cfg := DefaultConfig("cssd-test", logging.Discard())
	cfg.Metrics = metrics.New(metrics.DefaultConfig("cssd-test"))
	Setup(router, cfg)
	return router
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIErrorResponse {
	t.Helper()
	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequestAndCorrelationIDs(t *testing.T) {
	router := newRouter()
	var seenCorrelation, seenOperator string
	router.GET("/ping", func(c *gin.Context) {
		seenCorrelation = logging.CorrelationIDFromContext(c.Request.Context())
		seenOperator = Operator(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderCorrelationID, "corr-1")
	req.Header.Set(HeaderOperator, "Siti")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, "corr-1", w.Header().Get(HeaderCorrelationID))
	assert.Equal(t, "corr-1", seenCorrelation)
	assert.Equal(t, "Siti", seenOperator)
}

func TestErrorHandlerRendersAppError(t *testing.T) {
	router := newRouter()
	router.GET("/fail", WrapHandler(func(c *gin.Context) error {
		return errors.ErrInsufficientStock("not enough sterile stock").WithDetail("instrumentId", "A")
	}))
	router.GET("/boom", WrapHandler(func(c *gin.Context) error {
		return fmt.Errorf("disk on fire")
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, errors.CodeInsufficientStock, body.Code)
	assert.Equal(t, "A", body.Details["instrumentId"])
	assert.Equal(t, "/fail", body.Path)
	assert.NotEmpty(t, body.RequestID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.CodeInternalError, decodeError(t, w).Code)
}

func TestRecoveryReturns500(t *testing.T) {
	router := newRouter()
	router.GET("/panic", func(c *gin.Context) { panic("oops") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.CodeInternalError, decodeError(t, w).Code)
}

func TestContentTypeAndCORS(t *testing.T) {
	router := newRouter()
	router.POST("/things", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodPost, "/things", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/things", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/things", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNoRoute(t *testing.T) {
	router := newRouter()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", decodeError(t, w).Code)
}

func TestCSSDValidations(t *testing.T) {
	v := validator.New()
	RegisterValidations(v)

	type request struct {
		Type   string `json:"type" validate:"required,transaction_type"`
		Pack   string `json:"packType" validate:"pack_type"`
		Item   string `json:"itemType" validate:"item_type"`
		Status string `json:"status" validate:"sterilize_status"`
		UnitID string `json:"unitId" validate:"required,cssd_unit"`
	}

	assert.NoError(t, v.Struct(request{Type: "DISTRIBUTE", Pack: "MIXED", Item: "SET", Status: "FAILED", UnitID: "u1"}))
	assert.NoError(t, v.Struct(request{Type: "COLLECT", UnitID: "u1"}), "optional tags accept empty values")

	err := v.Struct(request{Type: "TRANSFER", Pack: "BOX", Item: "KIT", Status: "MAYBE", UnitID: "cssd"})
	require.Error(t, err)
	var fields []string
	for _, fe := range err.(validator.ValidationErrors) {
		fields = append(fields, fe.Field())
	}
	assert.ElementsMatch(t, []string{"type", "packType", "itemType", "status", "unitId"}, fields)
}
