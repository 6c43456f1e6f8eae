package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPgErrorMapping(t *testing.T) {
	exclusion := fmt.Errorf("create booking room: %w", &pgconn.PgError{Code: "23P01"})
	unique := fmt.Errorf("create payment: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}
	check := &pgconn.PgError{Code: "23514"}
	plain := errors.New("connection reset")

	assert.True(t, IsExclusionViolation(exclusion))
	assert.False(t, IsUniqueViolation(exclusion))

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsExclusionViolation(unique))

	assert.True(t, IsForeignKeyViolation(fk))
	assert.True(t, IsCheckViolation(check))

	assert.False(t, IsUniqueViolation(plain))
	assert.False(t, IsExclusionViolation(plain))
	assert.False(t, IsUniqueViolation(nil))
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		term string
		want string
	}{
		{"Goa", "Goa"},
		{"100%", `100\%`},
		{"north_goa", `north\_goa`},
		{`a\b`, `a\\b`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeLike(tt.term), tt.term)
	}
}
