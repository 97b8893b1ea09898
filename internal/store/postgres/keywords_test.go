package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/bilgisen/autowriter/internal/models"
	"github.com/bilgisen/autowriter/internal/store"
	"github.com/bilgisen/autowriter/internal/store/postgres"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var keywordCols = []string{"id", "site_id", "text", "text_hash", "status", "priority", "reserved_at", "created_at", "updated_at"}

func TestKeywordRepository_Reserve(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewKeywordRepository(db)
	now := time.Now()

	testCases := []struct {
		name      string
		setupMock func()
		want      bool
		wantErr   bool
	}{
		{
			name: "reserves pending keyword",
			setupMock: func() {
				mock.ExpectExec("UPDATE keywords").
					WithArgs("kw-1", now).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			want: true,
		},
		{
			name: "already reserved reports conflict",
			setupMock: func() {
				mock.ExpectExec("UPDATE keywords").
					WithArgs("kw-1", now).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			want: false,
		},
		{
			name: "database error",
			setupMock: func() {
				mock.ExpectExec("UPDATE keywords").
					WithArgs("kw-1", now).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMock()

			got, err := repo.Reserve(context.Background(), "kw-1", now)
			if (err != nil) != tc.wantErr {
				t.Errorf("Reserve() error = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("Reserve() = %v, want %v", got, tc.want)
			}
			if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
				t.Errorf("unfulfilled expectations: %v", expectErr)
			}
		})
	}
}

func TestKeywordRepository_NextPending(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewKeywordRepository(db)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM keywords WHERE site_id").
		WithArgs("site-a").
		WillReturnRows(sqlmock.NewRows(keywordCols).
			AddRow("kw-1", "site-a", "go generics", "h1", "pending", 5, nil, created, created))

	k, err := repo.NextPending(context.Background(), store.KeywordFilter{SiteID: "site-a"})
	if err != nil {
		t.Fatalf("NextPending() error = %v", err)
	}
	if k.ID != "kw-1" || k.Priority != 5 || k.Status != models.KeywordPending {
		t.Errorf("unexpected keyword %+v", k)
	}

	mock.ExpectQuery("SELECT (.+) FROM keywords").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.NextPending(context.Background(), store.KeywordFilter{SiteID: "site-a", IDs: []string{"kw-9"}}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestKeywordRepository_SetStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewKeywordRepository(db)

	mock.ExpectExec("UPDATE keywords").
		WithArgs("kw-1", models.KeywordPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.SetStatus(context.Background(), "kw-1", models.KeywordPending); err != nil {
		t.Errorf("SetStatus() error = %v", err)
	}

	mock.ExpectExec("UPDATE keywords").
		WithArgs("missing", models.KeywordPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.SetStatus(context.Background(), "missing", models.KeywordPending); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestKeywordRepository_ResetStale(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewKeywordRepository(db)
	cutoff := time.Now().Add(-time.Hour)

	mock.ExpectQuery("UPDATE keywords").
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows(keywordCols).
			AddRow("kw-2", "site-a", "stuck", "h2", "pending", 0, nil, cutoff, cutoff))

	reset, err := repo.ResetStale(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ResetStale() error = %v", err)
	}
	if len(reset) != 1 || reset[0].ID != "kw-2" {
		t.Errorf("unexpected reset keywords %+v", reset)
	}
	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestKeywordRepository_SetStatusesSkipsReserved(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewKeywordRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ANY($1) AND status <> 'generating'")).
		WithArgs(sqlmock.AnyArg(), models.KeywordPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.SetStatuses(context.Background(), []string{"kw-1", "kw-held"}, models.KeywordPending)
	if err != nil {
		t.Fatalf("SetStatuses() error = %v", err)
	}
	if n != 1 {
		t.Errorf("SetStatuses() = %d, want 1", n)
	}
	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}
