package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/application"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/config"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/infrastructure/backend"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/infrastructure/notification"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/api"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/cloudevents"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/contracts/openapi"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/idempotency"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/middleware"
)

type testAPI struct {
	t        *testing.T
	router   *gin.Engine
	contract *openapi.Validator
	store    *backend.Backend
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	logger := logging.Discard()
	m := metrics.New(metrics.DefaultConfig("cssd-api-test"))

	cfg := &config.Config{Storage: config.StorageMemory, CSSDUnitID: domain.DefaultCSSDUnitID}
	store, err := backend.Open(ctx, cfg, cloudevents.NewEventFactory(cloudevents.SourceCSSDService), m, logger)
	require.NoError(t, err)
	require.NoError(t, store.EnsureCSSDUnit(ctx, cfg.CSSDUnitID, "CSSD"))

	appConfig := application.DefaultConfig()
	notifier := notification.NewLogNotifier(logger)
	repos := store.Repos
	svc := &services{
		transactions: application.NewTransactionService(repos, appConfig, notifier, m, logger),
		verification: application.NewVerificationService(repos, appConfig, notifier, m, logger),
		overdue:      application.NewOverdueService(repos, appConfig, notifier, m, logger),
		packs:        application.NewPackService(repos, appConfig, m, logger),
		lifecycle:    application.NewLifecycleService(repos, appConfig, m, logger),
		catalog:      application.NewCatalogService(repos, appConfig, m, logger),
		audit:        application.NewAuditService(repos, appConfig, logger),
	}

	contract, err := openapi.NewValidator("../../api/openapi.yaml")
	require.NoError(t, err)

	return &testAPI{
		t: t,
		router: newRouter(routerDeps{
			Services:   svc,
			Logger:     logger,
			Metrics:    m,
			CSSDUnitID: cfg.CSSDUnitID,
			Keys:       store.Keys,
			Ready:      store.HealthCheck,
		}),
		contract: contract,
		store:    store,
	}
}

func (a *testAPI) newRequest(method, path string, payload any, headers map[string]string) *http.Request {
	a.t.Helper()
	var body []byte
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(a.t, err)
		body = raw
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

// do sends a request that must match the published contract, and checks the response against it too
func (a *testAPI) do(method, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := a.newRequest(method, path, payload, headers)
	require.NoError(a.t, a.contract.ValidateRequest(req), "%s %s", method, path)

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	require.NoError(a.t, a.contract.ValidateResponse(req, w.Code, w.Header(), w.Body.Bytes()),
		"%s %s -> %d %s", method, path, w.Code, w.Body.String())
	return w
}

// raw sends a request without contract checks, for deliberately malformed input
func (a *testAPI) raw(method, path string, payload any) *httptest.ResponseRecorder {
	a.t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, a.newRequest(method, path, payload, nil))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *testAPI) instrument(id, name string, stock int) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/instruments", gin.H{"id": id, "name": name, "initialStock": stock}, nil)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
}

func (a *testAPI) getInstrument(id string) application.InstrumentDTO {
	a.t.Helper()
	w := a.do(http.MethodGet, "/api/v1/instruments/"+id, nil, nil)
	require.Equal(a.t, http.StatusOK, w.Code)
	return decode[application.InstrumentDTO](a.t, w)
}

func (a *testAPI) transaction(body gin.H) application.TransactionDTO {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/transactions", body, map[string]string{middleware.HeaderOperator: "staff-1"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[application.TransactionDTO](a.t, w)
}

func items(instrumentID string, count int) []gin.H {
	return []gin.H{{"instrumentId": instrumentID, "count": count}}
}

func TestLoanAndVerifiedReturn(t *testing.T) {
	a := newTestAPI(t)
	a.instrument("A", "Gunting", 20)

	w := a.do(http.MethodPost, "/api/v1/units", gin.H{"id": "icu", "name": "ICU"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	out := a.transaction(gin.H{"type": "DISTRIBUTE", "unitId": "icu", "items": items("A", 5)})
	assert.Equal(t, "COMPLETED", out.Status)
	assert.Equal(t, "staff-1", out.CreatedBy)
	assert.Equal(t, domain.DefaultCSSDUnitID, out.SourceUnitID)
	assert.Equal(t, 15, a.getInstrument("A").CSSDStock)

	back := a.transaction(gin.H{"type": "COLLECT", "unitId": "icu", "items": items("A", 5)})
	assert.Equal(t, "PENDING", back.Status)
	assert.Equal(t, 0, a.getInstrument("A").DirtyStock)

	w = a.do(http.MethodPost, "/api/v1/transactions/"+back.ID+"/verify", gin.H{
		"itemVerifications": []gin.H{{"instrumentId": "A", "received": 4, "broken": 1, "notes": "hinge loose"}},
		"notes":             "counted at intake",
	}, map[string]string{middleware.HeaderOperator: "staff-2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[application.ValidationResultDTO](t, w)
	assert.Equal(t, "PARTIAL", result.ValidationStatus)
	assert.Equal(t, 1, result.DiscrepancySummary.TotalBroken)
	assert.NotEmpty(t, result.ReportID)

	inst := a.getInstrument("A")
	assert.Equal(t, 15, inst.CSSDStock)
	assert.Equal(t, 4, inst.DirtyStock)
	assert.Equal(t, 1, inst.BrokenStock)
	assert.Equal(t, 20, inst.TotalStock)

	w = a.do(http.MethodGet, "/api/v1/transactions/"+back.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stored := decode[application.TransactionDTO](t, w)
	assert.Equal(t, "COMPLETED", stored.Status)
	assert.Equal(t, "staff-2", stored.ValidatedBy)

	w = a.do(http.MethodGet, "/api/v1/transactions/"+back.ID+"/discrepancies", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.DiscrepancyReportDTO](t, w), 1)

	w = a.do(http.MethodGet, "/api/v1/discrepancies?limit=5", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.DiscrepancyReportDTO](t, w), 1)

	w = a.do(http.MethodGet, "/api/v1/transactions?unitId=icu&pageSize=1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[api.PageResponse[application.TransactionDTO]](t, w)
	assert.Equal(t, int64(2), page.TotalItems)
	assert.Len(t, page.Data, 1)
	assert.True(t, page.HasNext)

	w = a.do(http.MethodGet, "/api/v1/audit", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[application.AuditReportDTO](t, w).Consistent)
}

func TestVerifyMismatchIsUnprocessable(t *testing.T) {
	a := newTestAPI(t)
	a.instrument("A", "Gunting", 10)
	a.transaction(gin.H{"type": "DISTRIBUTE", "unitId": "icu", "items": items("A", 3)})
	back := a.transaction(gin.H{"type": "COLLECT", "unitId": "icu", "items": items("A", 3)})

	w := a.do(http.MethodPost, "/api/v1/transactions/"+back.ID+"/verify", gin.H{
		"itemVerifications": []gin.H{{"instrumentId": "A", "received": 1}},
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "VERIFICATION_MISMATCH", decode[middleware.APIErrorResponse](t, w).Code)

	w = a.do(http.MethodPost, "/api/v1/transactions/"+back.ID+"/validate", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "VERIFIED", decode[application.ValidationResultDTO](t, w).ValidationStatus)
	assert.Equal(t, 3, a.getInstrument("A").DirtyStock)
}

func TestCreateTransactionRejects(t *testing.T) {
	tests := []struct {
		name   string
		body   gin.H
		status int
		code   string
	}{
		{
			name:   "unit is the CSSD itself",
			body:   gin.H{"type": "DISTRIBUTE", "unitId": domain.DefaultCSSDUnitID, "items": items("A", 1)},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "no lines",
			body:   gin.H{"type": "DISTRIBUTE", "unitId": "icu"},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "more than sterile stock",
			body:   gin.H{"type": "DISTRIBUTE", "unitId": "icu", "items": items("A", 50)},
			status: http.StatusConflict,
			code:   "INSUFFICIENT_STOCK",
		},
		{
			name:   "return of pieces the unit never received",
			body:   gin.H{"type": "COLLECT", "unitId": "icu", "autoValidate": true, "items": items("A", 2)},
			status: http.StatusConflict,
			code:   "INSUFFICIENT_STOCK",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(t)
			a.instrument("A", "Gunting", 10)

			w := a.do(http.MethodPost, "/api/v1/transactions", tt.body, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[middleware.APIErrorResponse](t, w).Code)
			assert.Equal(t, 10, a.getInstrument("A").CSSDStock)
		})
	}
}

func TestMalformedRequests(t *testing.T) {
	a := newTestAPI(t)

	w := a.raw(http.MethodPost, "/api/v1/transactions", gin.H{"unitId": "icu", "items": items("A", 1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[middleware.APIErrorResponse](t, w)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Contains(t, body.Details, "type")

	w = a.raw(http.MethodPost, "/api/v1/transactions", gin.H{"type": "LEND", "unitId": "icu", "items": items("A", 1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.raw(http.MethodPost, "/api/v1/sterilize", gin.H{"items": []gin.H{{"instrumentId": "A", "quantity": 1}}, "status": "MAYBE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.raw(http.MethodGet, "/api/v1/batches?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.raw(http.MethodGet, "/api/v1/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", decode[middleware.APIErrorResponse](t, w).Code)
}

func TestGetTransactionNotFound(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodGet, "/api/v1/transactions/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", decode[middleware.APIErrorResponse](t, w).Code)
}

func TestIdempotencyKeyReplaysTransaction(t *testing.T) {
	a := newTestAPI(t)
	a.instrument("A", "Gunting", 10)

	body := gin.H{"type": "DISTRIBUTE", "unitId": "icu", "items": items("A", 4)}
	headers := map[string]string{idempotency.HeaderIdempotencyKey: "loan-0001"}

	first := a.do(http.MethodPost, "/api/v1/transactions", body, headers)
	require.Equal(t, http.StatusCreated, first.Code)
	second := a.do(http.MethodPost, "/api/v1/transactions", body, headers)
	require.Equal(t, http.StatusCreated, second.Code)

	assert.Equal(t, "true", second.Header().Get(idempotency.HeaderReplayed))
	assert.Equal(t, decode[application.TransactionDTO](t, first).ID, decode[application.TransactionDTO](t, second).ID)
	assert.Equal(t, 6, a.getInstrument("A").CSSDStock)
}

func TestCallerSuppliedIDIsIdempotent(t *testing.T) {
	a := newTestAPI(t)
	a.instrument("A", "Gunting", 10)

	body := gin.H{"id": "TX-1", "type": "DISTRIBUTE", "unitId": "icu", "items": items("A", 4)}
	a.transaction(body)
	again := a.transaction(body)
	assert.Equal(t, "TX-1", again.ID)
	assert.Equal(t, 6, a.getInstrument("A").CSSDStock)

	w := a.do(http.MethodPost, "/api/v1/transactions", gin.H{"id": "TX-1", "type": "DISTRIBUTE", "unitId": "icu", "items": items("A", 1)}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReprocessingAndPacks(t *testing.T) {
	a := newTestAPI(t)
	a.instrument("A", "Gunting", 10)
	a.transaction(gin.H{"type": "DISTRIBUTE", "unitId": "icu", "items": items("A", 6)})
	a.transaction(gin.H{"type": "COLLECT", "unitId": "icu", "autoValidate": true, "items": items("A", 6)})
	assert.Equal(t, 6, a.getInstrument("A").DirtyStock)

	w := a.do(http.MethodPost, "/api/v1/wash", gin.H{"items": []gin.H{{"instrumentId": "A", "quantity": 6}}}, map[string]string{middleware.HeaderOperator: "op-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	batch := decode[application.BatchDTO](t, w)
	assert.Equal(t, "WASH", batch.Kind)
	assert.Equal(t, "op-1", batch.Operator)
	assert.Equal(t, 6, a.getInstrument("A").PackingStock)

	w = a.do(http.MethodPost, "/api/v1/packs", gin.H{"items": []gin.H{{"itemId": "A", "itemType": "SINGLE", "quantity": 2}}}, map[string]string{middleware.HeaderOperator: "op-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	pack := decode[application.PackDTO](t, w)
	assert.Equal(t, "Gunting (2 pcs)", pack.Name)
	assert.Equal(t, "PACKED", pack.Status)
	assert.Equal(t, 4, a.getInstrument("A").PackingStock)

	w = a.do(http.MethodPost, "/api/v1/packs", gin.H{"items": []gin.H{{"itemId": "A", "itemType": "SINGLE", "quantity": 9}}}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INSUFFICIENT_PACKING_STOCK", decode[middleware.APIErrorResponse](t, w).Code)

	w = a.do(http.MethodPost, "/api/v1/packs/"+pack.ID+"/sterilize", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "STERILIZED", decode[application.PackDTO](t, w).Status)

	w = a.do(http.MethodPost, "/api/v1/packs/"+pack.ID+"/sterilize", nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodGet, "/api/v1/packs?status=STERILIZED", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.PackDTO](t, w), 1)

	w = a.do(http.MethodPost, "/api/v1/sterilize", gin.H{
		"items":    []gin.H{{"instrumentId": "A", "quantity": 4}},
		"operator": "op-2",
		"machine":  "autoclave-1",
		"status":   "SUCCESS",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decode[application.SterilizeResultDTO](t, w)
	assert.Equal(t, "SUCCESS", result.Status)
	assert.NotNil(t, result.ExpiryDate)
	assert.Equal(t, 0, a.getInstrument("A").PackingStock)

	w = a.do(http.MethodGet, "/api/v1/batches", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.BatchDTO](t, w), 2)

	w = a.do(http.MethodGet, "/api/v1/audit", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[application.AuditReportDTO](t, w).Consistent)
}

func TestSetsAndAvailability(t *testing.T) {
	a := newTestAPI(t)
	a.instrument("A", "Gunting", 5)
	a.instrument("B", "Pinset", 10)

	w := a.do(http.MethodPost, "/api/v1/sets", gin.H{
		"id":   "S1",
		"name": "Set Minor",
		"items": []gin.H{
			{"instrumentId": "A", "quantity": 2},
			{"instrumentId": "B", "quantity": 1},
		},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 3, decode[application.SetDTO](t, w).PieceCount)

	w = a.do(http.MethodGet, "/api/v1/sets/S1/availability?quantity=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[application.SetAvailabilityDTO](t, w).Available)

	w = a.do(http.MethodGet, "/api/v1/sets/S1/availability?quantity=3", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	avail := decode[application.SetAvailabilityDTO](t, w)
	assert.False(t, avail.Available)
	require.Len(t, avail.Unavailable, 1)
	assert.Equal(t, "A", avail.Unavailable[0].InstrumentID)
	assert.Equal(t, 6, avail.Unavailable[0].Required)
	assert.Equal(t, 5, avail.Unavailable[0].Available)

	out := a.transaction(gin.H{"type": "DISTRIBUTE", "unitId": "ok", "setItems": []gin.H{{"setId": "S1", "quantity": 2}}})
	require.Len(t, out.SetItems, 1)
	assert.Equal(t, 1, a.getInstrument("A").CSSDStock)
	assert.Equal(t, 8, a.getInstrument("B").CSSDStock)

	w = a.do(http.MethodGet, "/api/v1/sets", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.SetDTO](t, w), 1)

	w = a.do(http.MethodGet, "/api/v1/sets/none", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoansOverdueAndParLevels(t *testing.T) {
	a := newTestAPI(t)
	a.instrument("A", "Gunting", 10)
	a.do(http.MethodPost, "/api/v1/units", gin.H{"id": "icu", "name": "ICU"}, nil)

	due := time.Now().UTC().Add(-72 * time.Hour)
	a.transaction(gin.H{"type": "DISTRIBUTE", "unitId": "icu", "items": items("A", 3), "expectedReturnDate": due})

	w := a.do(http.MethodGet, "/api/v1/overdue", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	overdue := decode[[]application.UnitOverdueDTO](t, w)
	require.Len(t, overdue, 1)
	assert.Equal(t, "ICU", overdue[0].UnitName)
	require.Len(t, overdue[0].Instruments, 1)
	assert.Equal(t, 3, overdue[0].Instruments[0].Remaining)
	assert.GreaterOrEqual(t, overdue[0].Instruments[0].DaysOverdue, 2)

	w = a.do(http.MethodGet, "/api/v1/units/icu/overdue", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[application.UnitOverdueStatusDTO](t, w).HasOverdue)

	w = a.do(http.MethodGet, "/api/v1/units/icu/outstanding", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.OutstandingLineDTO](t, w), 1)

	w = a.do(http.MethodPut, "/api/v1/units/icu/par/A", gin.H{"maxStock": 5}, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = a.do(http.MethodGet, "/api/v1/units/icu/stock", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stock := decode[[]application.UnitStockDTO](t, w)
	require.Len(t, stock, 1)
	assert.Equal(t, 3, stock[0].Quantity)
	require.NotNil(t, stock[0].MaxStock)
	assert.Equal(t, 5, *stock[0].MaxStock)

	w = a.do(http.MethodPut, "/api/v1/units/icu/par/ghost", gin.H{"maxStock": 1}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	a.transaction(gin.H{"type": "COLLECT", "unitId": "icu", "autoValidate": true, "items": items("A", 3)})
	w = a.do(http.MethodGet, "/api/v1/units/icu/overdue", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[application.UnitOverdueStatusDTO](t, w).HasOverdue)
}

func TestCatalogEndpoints(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodPost, "/api/v1/instruments", gin.H{"id": "K", "name": "Klem", "category": "clamp", "initialStock": 2, "isSerialized": true}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.do(http.MethodPost, "/api/v1/instruments", gin.H{"id": "K", "name": "Klem"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodPost, "/api/v1/instruments/K/assets", gin.H{"serialNumber": "SN-001"}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	asset := decode[application.AssetDTO](t, w)
	assert.Equal(t, domain.DefaultCSSDUnitID, asset.Location)

	w = a.do(http.MethodPut, fmt.Sprintf("/api/v1/assets/%s/status", asset.ID), gin.H{"status": "MAINTENANCE"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "MAINTENANCE", decode[application.AssetDTO](t, w).Status)

	w = a.do(http.MethodGet, "/api/v1/instruments/K/assets", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.AssetDTO](t, w), 1)

	w = a.do(http.MethodGet, "/api/v1/instruments", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.InstrumentDTO](t, w), 1)

	w = a.do(http.MethodPost, "/api/v1/units", gin.H{"id": domain.DefaultCSSDUnitID, "name": "CSSD"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/v1/units", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.UnitDTO](t, w), 1)
}

func TestHealthReadyAndMetrics(t *testing.T) {
	a := newTestAPI(t)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		w := a.raw(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
