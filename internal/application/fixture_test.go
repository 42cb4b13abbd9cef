package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/infrastructure/eventing"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/infrastructure/memory"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/cloudevents"
	apperrors "github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtureStart = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu            sync.Mutex
	err           error
	discrepancies []*domain.DiscrepancyReport
	overdue       []UnitOverdueDTO
}

func (n *fakeNotifier) NotifyDiscrepancy(_ context.Context, report *domain.DiscrepancyReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.discrepancies = append(n.discrepancies, report)
	return n.err
}

func (n *fakeNotifier) NotifyOverdue(_ context.Context, unit UnitOverdueDTO) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.overdue = append(n.overdue, unit)
	return n.err
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.Store
	repos    domain.Repositories
	now      time.Time
	seq      int
	notifier *fakeNotifier

	transactions *TransactionService
	verification *VerificationService
	overdue      *OverdueService
	packs        *PackService
	lifecycle    *LifecycleService
	catalog      *CatalogService
	audit        *AuditService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith builds a fixture whose services run on the unit of work wrap returns
func newFixtureWith(t *testing.T, wrap func(domain.UnitOfWork) domain.UnitOfWork) *fixture {
	t.Helper()

	f := &fixture{t: t, ctx: context.Background(), store: memory.NewStore(), now: fixtureStart, notifier: &fakeNotifier{}}
	f.repos = f.store.Repositories()
	f.repos.Events = eventing.NewOutboxRecorder(f.store.Outbox(), cloudevents.NewEventFactory(cloudevents.SourceCSSDService))
	if wrap != nil {
		f.repos.UnitOfWork = wrap(f.repos.UnitOfWork)
	}

	cfg := &Config{
		CSSDUnitID: domain.DefaultCSSDUnitID,
		ShelfLife:  7 * 24 * time.Hour,
		Clock:      func() time.Time { return f.now },
		NewID: func() string {
			f.seq++
			return fmt.Sprintf("id-%03d", f.seq)
		},
	}
	m := metrics.New(metrics.DefaultConfig("cssd-test"))
	logger := logging.Discard()

	f.transactions = NewTransactionService(f.repos, cfg, f.notifier, m, logger)
	f.verification = NewVerificationService(f.repos, cfg, f.notifier, m, logger)
	f.overdue = NewOverdueService(f.repos, cfg, f.notifier, m, logger)
	f.packs = NewPackService(f.repos, cfg, m, logger)
	f.lifecycle = NewLifecycleService(f.repos, cfg, m, logger)
	f.catalog = NewCatalogService(f.repos, cfg, m, logger)
	f.audit = NewAuditService(f.repos, cfg, logger)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) instrument(id, name string, stock int) {
	f.t.Helper()
	_, err := f.catalog.RegisterInstrument(f.ctx, RegisterInstrumentCommand{ID: id, Name: name, InitialStock: stock})
	require.NoError(f.t, err)
}

func (f *fixture) unit(id, name string) {
	f.t.Helper()
	_, err := f.catalog.RegisterUnit(f.ctx, RegisterUnitCommand{ID: id, Name: name})
	require.NoError(f.t, err)
}

func (f *fixture) stock(id string) *domain.Instrument {
	f.t.Helper()
	inst, err := f.repos.Instruments.FindByID(f.ctx, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, inst)
	return inst
}

func (f *fixture) held(instrumentID, unitID string) int {
	f.t.Helper()
	snap, err := f.repos.Snapshots.Find(f.ctx, instrumentID, unitID)
	require.NoError(f.t, err)
	if snap == nil {
		return 0
	}
	return snap.Quantity
}

func (f *fixture) distribute(unitID string, due *time.Time, items ...TransactionItemInput) *TransactionDTO {
	f.t.Helper()
	tx, err := f.transactions.CreateTransaction(f.ctx, CreateTransactionCommand{
		Type: string(domain.TransactionTypeDistribute), UnitID: unitID, Items: items, ExpectedReturnDate: due, CreatedBy: "staff-1",
	})
	require.NoError(f.t, err)
	return tx
}

func (f *fixture) collect(unitID string, autoValidate bool, items ...TransactionItemInput) *TransactionDTO {
	f.t.Helper()
	tx, err := f.transactions.CreateTransaction(f.ctx, CreateTransactionCommand{
		Type: string(domain.TransactionTypeCollect), UnitID: unitID, Items: items, AutoValidate: autoValidate, CreatedBy: "nurse-1",
	})
	require.NoError(f.t, err)
	return tx
}

// washed puts qty of an instrument through a loan and the washer so it sits in packing stock
func (f *fixture) washed(instrumentID string, qty int) {
	f.t.Helper()
	f.distribute("u-wash", nil, TransactionItemInput{InstrumentID: instrumentID, Count: qty})
	f.collect("u-wash", true, TransactionItemInput{InstrumentID: instrumentID, Count: qty})
	_, err := f.lifecycle.WashItems(f.ctx, WashItemsCommand{Items: []ProcessItemInput{{InstrumentID: instrumentID, Quantity: qty}}, Operator: "op-1"})
	require.NoError(f.t, err)
}

func (f *fixture) assertConsistent() {
	f.t.Helper()
	report, err := f.audit.CheckStock(f.ctx)
	require.NoError(f.t, err)
	assert.True(f.t, report.Consistent, "drifts: %+v", report.Drifts)
}

func (f *fixture) pendingEvents() int {
	f.t.Helper()
	events, err := f.store.Outbox().FindUnpublished(f.ctx, 1000)
	require.NoError(f.t, err)
	return len(events)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "not an AppError: %v", err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

var errTransientCommit = errors.New("transient commit failure")

// rerunningUnitOfWork fails the commit of every first attempt after fn has
// run, then runs fn again, the way the Mongo driver retries a transaction
// that hit a write conflict.
type rerunningUnitOfWork struct {
	inner  domain.UnitOfWork
	reruns int
}

func (u *rerunningUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	err := u.inner.Do(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return errTransientCommit
	})
	if !errors.Is(err, errTransientCommit) {
		return err
	}
	u.reruns++
	return u.inner.Do(ctx, fn)
}

func ptr[T any](v T) *T {
	return &v
}
