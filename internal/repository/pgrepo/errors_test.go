package pgrepo

import (
	"errors"
	"testing"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestConvertErr(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "no rows", err: pgx.ErrNoRows, wantErr: domain.ErrRecordNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: uniqueViolationCode}, wantErr: domain.ErrDuplicateKey},
		{name: "foreign key violation", err: &pgconn.PgError{Code: foreignKeyViolationCode}, wantErr: domain.ErrRecordNotFound},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, wantErr: domain.ErrUnknown},
		{name: "plain error", err: errors.New("connection reset"), wantErr: domain.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := convertErr(tt.err, "getting account %d", 1)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "[repository/getting account 1]")
		})
	}

	assert.NoError(t, convertErr(nil, "noop"))
}

func TestSafeConvertUintToInt64(t *testing.T) {
	v, err := safeConvertUintToInt64(42)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = safeConvertUintToInt64(^uint(0))
	assert.Error(t, err)
}
