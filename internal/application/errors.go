package application

import (
	"errors"
	"fmt"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	apperrors "github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
)

// toAppError maps domain errors onto the API error model. Anything it does
// not recognise is left to MapDomainError.
func toAppError(err error) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}

	var (
		notFound     *domain.NotFoundError
		insufficient *domain.InsufficientStockError
		packing      *domain.InsufficientPackingStockError
		invalidState *domain.InvalidStateError
		mismatch     *domain.VerificationMismatchError
		conflict     *domain.ConcurrencyConflictError
	)

	switch {
	case errors.As(err, &mismatch):
		appErr := apperrors.ErrVerificationMismatch(err.Error()).Wrap(err)
		for _, l := range mismatch.Lines {
			if l.Duplicate {
				appErr.WithDetail(fmt.Sprintf("%s:%s", l.ItemType, l.ItemID), "verified more than once")
				continue
			}
			appErr.WithDetail(fmt.Sprintf("%s:%s", l.ItemType, l.ItemID),
				fmt.Sprintf("expected %d, got received=%d broken=%d missing=%d", l.Expected, l.Received, l.Broken, l.Missing))
		}
		return appErr
	case errors.Is(err, domain.ErrVerificationMismatch):
		return apperrors.ErrVerificationMismatch(err.Error()).Wrap(err)
	case errors.As(err, &packing):
		return apperrors.ErrInsufficientPackingStock(err.Error()).
			WithDetail("instrumentId", packing.InstrumentID).
			WithDetail("requested", fmt.Sprint(packing.Requested)).Wrap(err)
	case errors.As(err, &insufficient):
		appErr := apperrors.ErrInsufficientStock(err.Error()).
			WithDetail("instrumentId", insufficient.InstrumentID).
			WithDetail("pool", string(insufficient.Pool)).
			WithDetail("requested", fmt.Sprint(insufficient.Requested))
		if insufficient.UnitID != "" {
			appErr.WithDetail("unitId", insufficient.UnitID)
		}
		return appErr.Wrap(err)
	case errors.As(err, &notFound):
		return apperrors.ErrNotFoundWithID(notFound.Resource, notFound.ID).Wrap(err)
	case errors.Is(err, domain.ErrNotFound):
		return apperrors.ErrNotFound("resource").Wrap(err)
	case errors.As(err, &invalidState), errors.Is(err, domain.ErrInvalidState):
		return apperrors.ErrInvalidState(err.Error()).Wrap(err)
	case errors.As(err, &conflict), errors.Is(err, domain.ErrConcurrencyConflict):
		return apperrors.ErrConcurrencyConflict(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrAlreadyExists):
		return apperrors.ErrConflict(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrEmptyTransaction),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidType),
		errors.Is(err, domain.ErrInvalidUnit),
		errors.Is(err, domain.ErrDuplicateLine),
		errors.Is(err, domain.ErrRequiredField):
		return apperrors.ErrValidation(err.Error()).Wrap(err)
	default:
		return apperrors.MapDomainError(err)
	}
}

// errorCode returns the API code for err, for metrics labels
func errorCode(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Code
	}
	return apperrors.CodeInternalError
}

// reject maps err, counts it against operation and logs it. Guard failures
// are expected traffic and log at warn; anything unmapped logs at error.
func reject(m *metrics.Metrics, logger *logging.Logger, operation string, err error) error {
	appErr := toAppError(err)
	code := errorCode(appErr)
	m.RecordGuardFailure(operation, code)
	if code == apperrors.CodeInternalError {
		logger.Error("Operation failed", "operation", operation, "error", err)
	} else {
		logger.Warn("Operation rejected", "operation", operation, "error", err)
	}
	return appErr
}
