package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBCircuitBreaker_ExecContext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("DELETE FROM parcels").WillReturnResult(sqlmock.NewResult(0, 2))

	dcb := NewDBCircuitBreaker(db)
	res, err := dcb.ExecContext(context.Background(), "DELETE FROM parcels WHERE platform = $1", "fl")
	require.NoError(t, err)
	n, _ := res.RowsAffected()
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBCircuitBreaker_QueryRowScan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT count").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	dcb := NewDBCircuitBreaker(db)
	var n int
	require.NoError(t, dcb.QueryRowScan(context.Background(), "SELECT count(*) FROM parcels", nil, &n))
	assert.Equal(t, 7, n)
}

func TestDBCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cfg := DBConfig()
	cfg.Name = "postgres-open-test"
	cfg.Timeout = 20 * time.Millisecond
	dcb := NewDBCircuitBreakerWithConfig(db, cfg)

	for i := 0; i < 5; i++ {
		mock.ExpectExec("INSERT").WillReturnError(errors.New("connection reset"))
		_, err := dcb.ExecContext(context.Background(), "INSERT INTO parcels VALUES (1)")
		require.Error(t, err)
	}
	assert.True(t, dcb.IsOpen())

	_, err = dcb.ExecContext(context.Background(), "INSERT INTO parcels VALUES (1)")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	time.Sleep(30 * time.Millisecond)
	mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))
	_, err = dcb.ExecContext(context.Background(), "INSERT INTO parcels VALUES (1)")
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateHalfOpen, dcb.State(), "half-open until MaxRequests successes")
	assert.Same(t, db, dcb.DB())
}
