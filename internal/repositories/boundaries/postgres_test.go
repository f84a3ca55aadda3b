package boundaries

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestGetBoundaries_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+get_federation_boundaries\(\)`

	rows := sqlmock.NewRows([]string{"get_federation_boundaries"}).
		AddRow(0).AddRow(256).AddRow(512).AddRow(768)
	mock.ExpectQuery(q).WillReturnRows(rows)

	got, err := repo.GetBoundaries(context.Background())
	if err != nil {
		t.Fatalf("GetBoundaries error: %v", err)
	}
	want := []int{0, 256, 512, 768}
	if len(got) != len(want) {
		t.Fatalf("unexpected boundaries: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected boundaries: %v", got)
		}
	}
}

func TestGetBoundaries_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+get_federation_boundaries\(\)`

	mock.ExpectQuery(q).WillReturnRows(sqlmock.NewRows([]string{"get_federation_boundaries"}))

	got, err := repo.GetBoundaries(context.Background())
	if err != nil {
		t.Fatalf("GetBoundaries error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no boundaries, got %v", got)
	}
}

func TestGetBoundaries_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+get_federation_boundaries\(\)`

	mock.ExpectQuery(q).WillReturnError(errors.New("db down"))

	_, err := repo.GetBoundaries(context.Background())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
