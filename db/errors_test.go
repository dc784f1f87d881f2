package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"lab_borrow_portal/lifecycle"
)

func Test_mapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(gorm.ErrRecordNotFound), lifecycle.ErrNotFound)
	assert.ErrorIs(t, mapErr(fmt.Errorf("query: %w", context.DeadlineExceeded)), lifecycle.ErrTransient)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "40001"}), lifecycle.ErrTransient)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "08006"}), lifecycle.ErrTransient)

	dup := mapErr(&pgconn.PgError{Code: "23505", Detail: "Key (email)=(a@b.c) already exists."})
	assert.ErrorIs(t, dup, lifecycle.ErrConflict)
	assert.False(t, errors.Is(dup, lifecycle.ErrTransient))

	check := &pgconn.PgError{Code: "23514"}
	assert.Same(t, check, mapErr(check))
}
