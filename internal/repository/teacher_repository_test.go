package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murafiq/murafiq-api/internal/models"
)

func newTeacherRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func teacherDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "bio", "specialization", "hourly_rate", "years_experience", "city", "verified", "active", "created_at", "updated_at", "full_name", "email", "phone"})
}

func TestTeacherRepositoryList(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := teacherDetailRows().
		AddRow("tp-1", "u-1", nil, "ABA", 350.0, 4, "Cairo", true, true, time.Now(), time.Now(), "Mona Hassan", "mona@example.com", nil)
	mock.ExpectQuery("SELECT (.+) FROM teacher_profiles tp JOIN users u ON u.id = tp.user_id WHERE 1=1 ORDER BY tp.created_at DESC LIMIT 20 OFFSET 0").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teacher_profiles tp JOIN users u ON u.id = tp.user_id WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.TeacherFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListFiltersByCity(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM teacher_profiles tp JOIN users u ON u.id = tp.user_id WHERE 1=1 AND LOWER\\(tp.city\\) = LOWER\\(\\$1\\)").
		WithArgs("Alexandria").
		WillReturnRows(teacherDetailRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM teacher_profiles").
		WithArgs("Alexandria").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	list, total, err := repo.List(context.Background(), models.TeacherFilter{City: "Alexandria"})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCreateAndDeactivate(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec("INSERT INTO teacher_profiles").
		WithArgs(sqlmock.AnyArg(), "u-1", sqlmock.AnyArg(), "ABA", 350.0, 4, "Cairo", false, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	profile := &models.TeacherProfile{UserID: "u-1", Specialization: strPtr("ABA"), HourlyRate: 350, YearsExperience: 4, City: "Cairo", Active: true}
	require.NoError(t, repo.Create(context.Background(), profile))
	assert.NotEmpty(t, profile.ID)

	mock.ExpectExec("UPDATE teacher_profiles SET active = FALSE").
		WithArgs("tp-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Deactivate(context.Background(), "tp-1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositorySummaries(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "hourly_rate", "city"}).
		AddRow("tp-1", "Mona Hassan", 350.0, "Cairo").
		AddRow("tp-2", "Omar Said", 280.0, "Giza")
	mock.ExpectQuery("SELECT tp.id, u.full_name, tp.hourly_rate, tp.city FROM teacher_profiles").
		WithArgs("tp-1", "tp-2").
		WillReturnRows(rows)

	summaries, err := repo.Summaries(context.Background(), []string{"tp-1", "tp-2"})
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryHourlyRate(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT hourly_rate FROM teacher_profiles WHERE id = $1")).
		WithArgs("tp-1").
		WillReturnRows(sqlmock.NewRows([]string{"hourly_rate"}).AddRow(350.0))

	rate, err := repo.HourlyRate(context.Background(), "tp-1")
	require.NoError(t, err)
	assert.Equal(t, 350.0, rate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
