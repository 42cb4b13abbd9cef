package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	apperrors "github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
)

const defaultPageSize = 20

// TransactionService records distributions and collections against the stock ledger
type TransactionService struct {
	repos    domain.Repositories
	config   *Config
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	repos domain.Repositories,
	config *Config,
	notifier Notifier,
	m *metrics.Metrics,
	logger *logging.Logger,
) *TransactionService {
	return &TransactionService{
		repos:    repos,
		config:   config,
		notifier: notifier,
		metrics:  m,
		logger:   logger.WithComponent("transaction-service"),
	}
}

// CreateTransaction validates the request, moves stock and stores the transaction
// in one unit of work. Resubmitting a caller-supplied ID returns the stored
// transaction without touching stock.
func (s *TransactionService) CreateTransaction(ctx context.Context, cmd CreateTransactionCommand) (*TransactionDTO, error) {
	now := s.config.now()
	id := cmd.ID
	if id == "" {
		id = s.config.id()
	}

	// Do may rerun its function; each attempt builds its own transaction
	build := func() (*domain.Transaction, error) {
		return domain.NewTransaction(domain.TransactionParams{
			ID:                 id,
			Type:               domain.TransactionType(cmd.Type),
			UnitID:             cmd.UnitID,
			CSSDUnitID:         s.config.cssdUnit(),
			Items:              toItemLines(cmd.Items),
			SetItems:           toSetLines(cmd.SetItems),
			PackIDs:            cmd.PackIDs,
			ExpectedReturnDate: cmd.ExpectedReturnDate,
			CreatedBy:          cmd.CreatedBy,
			Now:                now,
		})
	}
	if _, err := build(); err != nil {
		return nil, s.fail("createTransaction", err)
	}

	var (
		tx     *domain.Transaction
		stored *domain.Transaction
		report *domain.DiscrepancyReport
		mv     = newMovements(s.repos.Ledger, s.logger)
	)

	err := s.repos.UnitOfWork.Do(ctx, func(ctx context.Context) error {
		stored, report = nil, nil
		mv.reset()
		var err error
		if tx, err = build(); err != nil {
			return err
		}

		if cmd.ID != "" {
			existing, err := s.repos.Transactions.FindByID(ctx, cmd.ID)
			if err != nil {
				return fmt.Errorf("failed to get transaction: %w", err)
			}
			if existing != nil {
				if !existing.SameRequest(tx) {
					return &domain.ConcurrencyConflictError{Resource: "transaction", ID: cmd.ID, Err: errors.New("id already used by a different request")}
				}
				stored = existing
				return nil
			}
		}

		sets := newSetCache(s.repos.Sets)
		if tx.Type == domain.TransactionTypeDistribute {
			if err := s.distribute(ctx, mv, sets, tx, now); err != nil {
				return err
			}
		} else if cmd.AutoValidate {
			summary := tx.CompleteWithDeclaredCounts(cmd.CreatedBy, now)
			if err := applyCollection(ctx, mv, sets, tx); err != nil {
				return err
			}
			if summary.Outcome() == domain.ValidationStatusPartial {
				r, err := recordDiscrepancy(ctx, s.repos, s.config, tx, summary, "", cmd.CreatedBy, now)
				if err != nil {
					return err
				}
				report = r
			}
		} else {
			tx.Open()
		}

		if err := s.moveAssets(ctx, tx, now); err != nil {
			return err
		}

		if err := s.repos.Transactions.Save(ctx, tx); err != nil {
			return fmt.Errorf("failed to save transaction: %w", err)
		}
		if err := eventsOf(s.repos).Record(ctx, "Transaction", tx.ID, tx.GetDomainEvents()); err != nil {
			return err
		}
		tx.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, s.fail("createTransaction", err)
	}

	if stored != nil {
		s.logger.Info("Transaction resubmitted, returning stored copy", "transactionId", stored.ID)
		return ToTransactionDTO(stored), nil
	}

	mv.flush(s.metrics)
	s.metrics.RecordTransaction(string(tx.Type), string(tx.Status))
	if report != nil {
		s.metrics.RecordDiscrepancy(report.Summary.TotalBroken, report.Summary.TotalMissing)
		notifyDiscrepancy(ctx, s.notifier, report, s.metrics, s.logger)
	}

	s.logger.Info("Recorded transaction",
		"transactionId", tx.ID,
		"type", tx.Type,
		"unitId", tx.UnitID,
		"status", tx.Status,
		"items", len(tx.Items),
		"sets", len(tx.SetItems),
		"packs", len(tx.PackIDs),
	)
	return ToTransactionDTO(tx), nil
}

// distribute moves every line out of sterile stock. Pack contents are added to
// the transaction as ordinary lines tagged with their pack.
func (s *TransactionService) distribute(ctx context.Context, mv *movements, sets *setCache, tx *domain.Transaction, now time.Time) error {
	for _, l := range tx.Items {
		if err := mv.distribute(ctx, l.InstrumentID, l.Count, tx.UnitID); err != nil {
			return err
		}
	}
	for _, l := range tx.SetItems {
		if err := s.distributeSet(ctx, mv, sets, l.SetID, l.Quantity, tx.UnitID); err != nil {
			return err
		}
	}

	for _, packID := range tx.PackIDs {
		pack, err := s.repos.Packs.FindByID(ctx, packID)
		if err != nil {
			return fmt.Errorf("failed to get pack: %w", err)
		}
		if pack == nil {
			return domain.NewNotFoundError("pack", packID)
		}
		if err := pack.MarkDistributed(tx.ID, now); err != nil {
			return err
		}

		for _, it := range pack.Items {
			switch it.ItemType {
			case domain.ItemTypeSet:
				if err := s.distributeSet(ctx, mv, sets, it.ItemID, it.Quantity, tx.UnitID); err != nil {
					return err
				}
				tx.SetItems = append(tx.SetItems, domain.SetLine{SetID: it.ItemID, Quantity: it.Quantity, PackID: pack.ID})
			default:
				if err := mv.distribute(ctx, it.ItemID, it.Quantity, tx.UnitID); err != nil {
					return err
				}
				tx.Items = append(tx.Items, domain.ItemLine{InstrumentID: it.ItemID, Count: it.Quantity, PackID: pack.ID})
			}
		}

		if err := s.repos.Packs.Save(ctx, pack); err != nil {
			return fmt.Errorf("failed to save pack: %w", err)
		}
	}
	return tx.Complete()
}

func (s *TransactionService) distributeSet(ctx context.Context, mv *movements, sets *setCache, setID string, qty int, unitID string) error {
	set, err := sets.get(ctx, setID)
	if err != nil {
		return err
	}
	for _, c := range set.Expand(qty) {
		if err := mv.distribute(ctx, c.InstrumentID, c.Quantity, unitID); err != nil {
			return err
		}
	}
	return nil
}

// moveAssets follows the serialized units named on item lines
func (s *TransactionService) moveAssets(ctx context.Context, tx *domain.Transaction, now time.Time) error {
	status := domain.StatusForTransaction(tx.Type)
	location := tx.DestUnitID

	for _, l := range tx.Items {
		if len(l.AssetIDs) > l.Expected() {
			return fmt.Errorf("%w: %d assets on a line of %d %s", domain.ErrInvalidQuantity, len(l.AssetIDs), l.Expected(), l.InstrumentID)
		}
		for _, assetID := range l.AssetIDs {
			asset, err := s.repos.Assets.FindByID(ctx, assetID)
			if err != nil {
				return fmt.Errorf("failed to get asset: %w", err)
			}
			if asset == nil {
				return domain.NewNotFoundError("asset", assetID)
			}
			if asset.InstrumentID != l.InstrumentID {
				return fmt.Errorf("%w: asset %s is a %s, not a %s", domain.ErrInvalidType, assetID, asset.InstrumentID, l.InstrumentID)
			}
			if err := asset.MoveTo(status, location, now); err != nil {
				return err
			}
			if err := s.repos.Assets.Update(ctx, asset); err != nil {
				return fmt.Errorf("failed to update asset: %w", err)
			}
		}
	}
	return nil
}

// ValidateSetAvailability reports which instruments cannot cover quantity sets.
// It is advisory: the guarded ledger still decides when stock actually moves.
func (s *TransactionService) ValidateSetAvailability(ctx context.Context, query SetAvailabilityQuery) (*SetAvailabilityDTO, error) {
	if query.Quantity <= 0 {
		return nil, apperrors.ErrValidation("quantity must be positive")
	}
	txType := domain.TransactionType(query.Type)
	if txType == "" {
		txType = domain.TransactionTypeDistribute
	}
	if !txType.IsValid() {
		return nil, apperrors.ErrValidation("invalid transaction type")
	}
	if txType == domain.TransactionTypeCollect && query.UnitID == "" {
		return nil, apperrors.ErrValidation("unitId is required to check a collection")
	}

	set, err := s.repos.Sets.FindByID(ctx, query.SetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get set: %w", err)
	}
	if set == nil {
		return nil, apperrors.ErrNotFoundWithID("set", query.SetID)
	}

	result := &SetAvailabilityDTO{SetID: set.ID, Quantity: query.Quantity, Available: true, Unavailable: []UnavailableItemDTO{}}
	for _, c := range set.Expand(query.Quantity) {
		inst, err := s.repos.Instruments.FindByID(ctx, c.InstrumentID)
		if err != nil {
			return nil, fmt.Errorf("failed to get instrument: %w", err)
		}

		name, available := c.InstrumentID, 0
		if inst != nil {
			name = inst.Name
			available = inst.CSSDStock
		}
		if txType == domain.TransactionTypeCollect {
			available = 0
			snap, err := s.repos.Snapshots.Find(ctx, c.InstrumentID, query.UnitID)
			if err != nil {
				return nil, fmt.Errorf("failed to get unit stock: %w", err)
			}
			if snap != nil {
				available = snap.Quantity
			}
		}

		if available < c.Quantity {
			result.Available = false
			result.Unavailable = append(result.Unavailable, UnavailableItemDTO{
				InstrumentID:   c.InstrumentID,
				InstrumentName: name,
				Required:       c.Quantity,
				Available:      available,
			})
		}
	}
	return result, nil
}

// GetTransaction retrieves a transaction by ID
func (s *TransactionService) GetTransaction(ctx context.Context, id string) (*TransactionDTO, error) {
	tx, err := s.repos.Transactions.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get transaction", "transactionId", id, "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if tx == nil {
		return nil, apperrors.ErrNotFoundWithID("transaction", id)
	}
	return ToTransactionDTO(tx), nil
}

// ListTransactions pages through the ledger, newest first
func (s *TransactionService) ListTransactions(ctx context.Context, query ListTransactionsQuery) (*TransactionListDTO, error) {
	page, pageSize := query.Page, query.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	filter := domain.TransactionFilter{
		UnitID: query.UnitID,
		Type:   domain.TransactionType(query.Type),
		Status: domain.TransactionStatus(query.Status),
	}
	total, err := s.repos.Transactions.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	txs, err := s.repos.Transactions.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	dtos := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, *ToTransactionDTO(tx))
	}
	return &TransactionListDTO{Transactions: dtos, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *TransactionService) fail(operation string, err error) error {
	return reject(s.metrics, s.logger, operation, err)
}

func toItemLines(items []TransactionItemInput) []domain.ItemLine {
	out := make([]domain.ItemLine, 0, len(items))
	for _, it := range items {
		out = append(out, domain.ItemLine{
			InstrumentID: it.InstrumentID,
			Count:        it.Count,
			BrokenCount:  it.BrokenCount,
			MissingCount: it.MissingCount,
			AssetIDs:     it.AssetIDs,
			Notes:        it.Notes,
		})
	}
	return out
}

func toSetLines(sets []TransactionSetInput) []domain.SetLine {
	out := make([]domain.SetLine, 0, len(sets))
	for _, it := range sets {
		out = append(out, domain.SetLine{
			SetID:        it.SetID,
			Quantity:     it.Quantity,
			BrokenCount:  it.BrokenCount,
			MissingCount: it.MissingCount,
			Notes:        it.Notes,
		})
	}
	return out
}
