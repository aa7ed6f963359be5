package content

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festbot/internal/schedule"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestRepositoryLoad(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectSectionsSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"label", "body"}).
			AddRow("Schedule", "").
			AddRow("Food", "*Food court*"))
	mock.ExpectQuery(regexp.QuoteMeta(selectEventsSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"hour", "minute", "description"}).
			AddRow(10, 0, "Opening").
			AddRow(10, 45, "Panel"))

	store, err := repo.Load(context.Background(), "Schedule")
	require.NoError(t, err)
	assert.Equal(t, []string{"Schedule", "Food"}, store.Labels())
	require.Len(t, store.Events(), 2)
	assert.Equal(t, schedule.Clock{Hour: 10, Minute: 45}, store.Events()[1].At)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		mock func(mock sqlmock.Sqlmock)
		is   error
	}{
		{
			name: "sections query fails",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(selectSectionsSQL)).WillReturnError(sql.ErrConnDone)
			},
			is: sql.ErrConnDone,
		},
		{
			name: "events query fails",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(selectSectionsSQL)).
					WillReturnRows(sqlmock.NewRows([]string{"label", "body"}))
				mock.ExpectQuery(regexp.QuoteMeta(selectEventsSQL)).WillReturnError(sql.ErrConnDone)
			},
			is: sql.ErrConnDone,
		},
		{
			name: "duplicate labels rejected",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(selectSectionsSQL)).
					WillReturnRows(sqlmock.NewRows([]string{"label", "body"}).AddRow("A", "").AddRow("A", ""))
				mock.ExpectQuery(regexp.QuoteMeta(selectEventsSQL)).
					WillReturnRows(sqlmock.NewRows([]string{"hour", "minute", "description"}))
			},
			is: ErrDuplicateSection,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			tt.mock(mock)
			_, err := repo.Load(context.Background(), "")
			require.ErrorIs(t, err, tt.is)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepositoryReplace(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteEventsSQL)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(deleteSectionsSQL)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(insertSectionSQL)).
		WithArgs(0, "Schedule", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertSectionSQL)).
		WithArgs(1, "Food", "*Food court*").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WithArgs(10, 0, "Opening").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Replace(context.Background(), Document{
		Sections: []Section{{Label: "Schedule"}, {Label: "Food", Text: "*Food court*"}},
		Events:   []schedule.Event{{At: schedule.Clock{Hour: 10}, Description: "Opening"}},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryReplaceRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteEventsSQL)).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), Document{})
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositorySeedFileValidatesFirst(t *testing.T) {
	repo, mock := newMockRepo(t)
	path := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sections:\n  - label: A\n  - label: A\n"), 0o600))

	err := repo.SeedFile(context.Background(), path, "")
	require.ErrorIs(t, err, ErrDuplicateSection)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositorySeedFile(t *testing.T) {
	repo, mock := newMockRepo(t)
	path := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sections:\n  - label: Now\nevents:\n  - time: \"11:15\"\n    description: Talk\n"), 0o600))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteEventsSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(deleteSectionsSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(insertSectionSQL)).
		WithArgs(0, "Now", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WithArgs(11, 15, "Talk").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SeedFile(context.Background(), path, "Now"))
	require.NoError(t, mock.ExpectationsWereMet())
}
