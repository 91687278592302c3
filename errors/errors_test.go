package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/krisalay/campaign-cache/errors"
)

func TestStatusClassifiesNotFound(t *testing.T) {
	err := apperrors.Status("remote.GetMagicItem", 404, "")

	assert.True(t, apperrors.IsNotFound(err))
	assert.False(t, apperrors.IsStatus(err))
	assert.Equal(t, 404, apperrors.StatusOf(err))
}

func TestStatusKeepsServerErrors(t *testing.T) {
	err := apperrors.Status("remote.DeleteEvent", 500, "boom")

	assert.True(t, apperrors.IsStatus(err))
	assert.Equal(t, "remote.DeleteEvent: unexpected status: boom (status 500)", err.Error())
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := apperrors.Transport("remote.ListEvents", context.DeadlineExceeded)
	wrapped := fmt.Errorf("ledger.Events: %w", base)

	assert.True(t, apperrors.IsTransport(wrapped))
	assert.True(t, errors.Is(wrapped, context.DeadlineExceeded))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, apperrors.Kind(""), apperrors.KindOf(errors.New("plain")))
	assert.Equal(t, 0, apperrors.StatusOf(errors.New("plain")))
}
