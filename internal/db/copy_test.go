package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "attribute_results", []string{"attribute", "score"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"attribute_results"}, []string{"attribute", "score"}).WillReturnResult(3)

	rows := [][]any{{"vendor.name", 1.0}, {"total", 0.92}, {"date", 0.0}}
	n, err := CopyFrom(context.Background(), mock, "attribute_results", []string{"attribute", "score"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"attribute_results"}, []string{"attribute"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"total"}}
	_, err = CopyFrom(context.Background(), mock, "attribute_results", []string{"attribute"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO attribute_results")
	assert.NoError(t, mock.ExpectationsWereMet())
}
