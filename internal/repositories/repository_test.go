package repositories

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"alfredoptarigan/resume-polisher/internal/models"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func TestRecordRepositoryInsertReturnsID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "analysis_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()

	id, err := repo.Insert(&models.AnalysisRecord{
		Filename:              "resume.pdf",
		JobDescriptionSnippet: "Senior Go engineer",
		MatchScore:            72,
	})

	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryInsertWrapsError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "analysis_records"`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Insert(&models.AnalysisRecord{Filename: "resume.pdf"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert analysis record")
}

func TestJobRepositoryClaim(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "analysis_jobs" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	claimed, err := repo.Claim(id)
	require.NoError(t, err)
	assert.True(t, claimed)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "analysis_jobs" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	claimed, err = repo.Claim(id)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepositoryFindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "analysis_jobs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(uuid.New())

	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobRepositoryUpdateErrorMissingJob(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "analysis_jobs" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.UpdateError(uuid.New(), "boom")

	assert.ErrorIs(t, err, ErrJobNotFound)
}
