package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"task-ledger/internal/domain"
	"task-ledger/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: name", domain.ErrInvalidInput), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: Task.Created v2", domain.ErrSchemaViolation), http.StatusUnprocessableEntity},
		{domain.ErrTaskNotFound, http.StatusUnprocessableEntity},
		{domain.ErrForbidden, http.StatusUnauthorized},
		{domain.ErrInvalidState, http.StatusUnauthorized},
		{domain.ErrNoEligibleAssignee, http.StatusConflict},
		{&service.ReassignError{Reassigned: 2, Err: domain.ErrNoEligibleAssignee}, http.StatusConflict},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
