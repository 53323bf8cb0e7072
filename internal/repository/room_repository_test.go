package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roomRepoWithMock(t *testing.T) (*RoomRepo, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewRoomRepo(db), mock, func() { db.Close() }
}

func TestRoomDeleteLocksRowBeforeRemoving(t *testing.T) {
	repo, mock, closeDB := roomRepoWithMock(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM rooms`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reservations`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM rooms`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 7))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomDeleteRefusesReservedRoom(t *testing.T) {
	repo, mock, closeDB := roomRepoWithMock(t)
	defer closeDB()

	// A reservation inserted while the room row is locked is seen by the
	// count, so the delete never runs and the transaction rolls back.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM rooms`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reservations`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Delete(context.Background(), 7), ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomDeleteMissingRoom(t *testing.T) {
	repo, mock, closeDB := roomRepoWithMock(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM rooms`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Delete(context.Background(), 7), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
