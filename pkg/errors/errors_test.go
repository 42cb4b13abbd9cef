package errors

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	cause := errors.New("invalid state: transaction TX-1 is COMPLETED, requires PENDING")

	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "message taken from the cause",
			err:  ErrInvalidState(cause.Error()).Wrap(cause),
			want: "INVALID_STATE: invalid state: transaction TX-1 is COMPLETED, requires PENDING",
		},
		{
			name: "own message keeps the cause",
			err:  ErrInternal("").Wrap(errors.New("disk full")),
			want: "INTERNAL_ERROR: an internal error occurred: disk full",
		},
		{
			name: "no cause",
			err:  ErrValidation("quantity must be positive"),
			want: "VALIDATION_ERROR: quantity must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestMapDomainError(t *testing.T) {
	assert.Nil(t, MapDomainError(nil))

	appErr := MapDomainError(context.DeadlineExceeded)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus)
	assert.ErrorIs(t, appErr, context.DeadlineExceeded)

	appErr = MapDomainError(errors.New("something broke"))
	assert.Equal(t, CodeInternalError, appErr.Code)

	original := ErrConflict("taken")
	assert.Same(t, original, MapDomainError(original))
}
