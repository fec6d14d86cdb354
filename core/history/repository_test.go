package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"calendar-sync/core/database"
	"calendar-sync/core/reconcile"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// setupMockDB creates a GORM DB backed by sqlmock.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func setupSQLite(t *testing.T) *GormRepository {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	repo := NewGormRepository(db)
	require.NoError(t, repo.Migrate())
	return repo
}

func TestGormRepository_SaveAndList(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first := NewRun(KindFeed, "work", start)
	first.Finish(&reconcile.Report{Summary: reconcile.Summary{Units: 3, Created: 2, Unchanged: 1}}, nil, start.Add(time.Second))
	require.NoError(t, repo.Save(ctx, first))

	second := NewRun(KindDatabase, "tasks", start.Add(time.Hour))
	require.NoError(t, repo.Save(ctx, second))

	// Saving again replaces the row.
	second.Finish(&reconcile.Report{DryRun: true, Summary: reconcile.Summary{Failed: 1}}, errors.New("boom"), start.Add(2*time.Hour))
	require.NoError(t, repo.Save(ctx, second))

	runs, err := repo.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID, "newest first")
	assert.Equal(t, "boom", runs[0].Error)
	assert.True(t, runs[0].DryRun)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Equal(t, 2, runs[1].Created)

	runs, err = repo.List(ctx, Filter{Kind: KindFeed, Target: "work"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, first.ID, runs[0].ID)

	runs, err = repo.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "work", got.Target)
	assert.Equal(t, 3, got.Units)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepository_ListFilters(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `sync_runs` WHERE kind = \\? AND target = \\? ORDER BY started_at DESC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "target"}).AddRow("r1", KindFeed, "work"))

	runs, err := repo.List(context.Background(), Filter{Kind: KindFeed, Target: "work", Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRepository_ListError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormRepository(db)

	mock.ExpectQuery("SELECT .* FROM `sync_runs`").WillReturnError(errors.New("connection lost"))

	runs, err := repo.List(context.Background(), Filter{})
	assert.ErrorContains(t, err, "connection lost")
	assert.Nil(t, runs)
}

func TestNopRepository(t *testing.T) {
	var repo Repository = NopRepository{}
	assert.NoError(t, repo.Save(context.Background(), NewRun(KindFeed, "x", time.Now())))

	runs, err := repo.List(context.Background(), Filter{})
	assert.NoError(t, err)
	assert.Empty(t, runs)

	_, err = repo.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunFinish(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := NewRun(KindDatabase, "tasks", start)
	assert.Len(t, run.ID, 36)

	run.Finish(nil, errors.New("notion unreachable"), start.Add(time.Minute))
	assert.Equal(t, "notion unreachable", run.Error)
	assert.Zero(t, run.Units)
	assert.Equal(t, start.Add(time.Minute), run.FinishedAt)
}
