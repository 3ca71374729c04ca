package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeQuery, http.StatusBadRequest},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeConflict, http.StatusConflict},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodePartialConsistency, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := NotFoundf("no post found with id: %s", "post-1")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, "no post found with id: post-1", err.Error())
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, CodeQuery, "query failed")

	assert.ErrorIs(t, err, ErrQuery)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "query failed: disk full", err.Error())
}

func TestError_WrappedInFmtError(t *testing.T) {
	err := fmt.Errorf("save actor: %w", PartialConsistency("actor not saved", map[string]string{"step": "actor"}))

	assert.ErrorIs(t, err, ErrPartialConsistency)
	assert.Equal(t, CodePartialConsistency, CodeOf(err))
}

func TestError_WithDetails(t *testing.T) {
	base := Validation("validation failed")
	withDetails := base.WithDetails(map[string]string{"text": "is required"})

	assert.Nil(t, base.Details)
	assert.Equal(t, map[string]string{"text": "is required"}, withDetails.Details)
	assert.Equal(t, CodeValidation, withDetails.Code)
}

func TestCodeOf_NoDomainError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestIsContextError(t *testing.T) {
	assert.True(t, IsContextError(context.Canceled))
	assert.True(t, IsContextError(fmt.Errorf("load: %w", context.DeadlineExceeded)))
	assert.False(t, IsContextError(ErrNotFound))
}
