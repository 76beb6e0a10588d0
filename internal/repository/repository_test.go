package repository

import (
	"context"
	"testing"
	"time"

	"mailmaster/internal/events"
	"mailmaster/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return gdb, mock
}

func TestListQueryNormalize(t *testing.T) {
	q := ListQuery{}.Normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultPageSize, q.Limit)
	assert.Equal(t, 0, q.Offset())

	q = ListQuery{Page: 3, Limit: 1000}.Normalize()
	assert.Equal(t, MaxPageSize, q.Limit)
	assert.Equal(t, 200, q.Offset())
}

func TestGormTableName(t *testing.T) {
	gdb, _ := setupTestDB(t)

	assert.Equal(t, "access_tokens", GormTableName(gdb, models.AccessToken{}))
	assert.Equal(t, "newsletters", GormTableName(gdb, models.Newsletter{}))
}

func TestNewsletterCreateEmitsEvent(t *testing.T) {
	gdb, mock := setupTestDB(t)
	bus := events.NewBus()

	var emitted interface{}
	bus.On("newsletters.created", func(_ context.Context, p interface{}) { emitted = p })

	mock.ExpectExec(`INSERT INTO "newsletters"`).WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewNewsletterRepository(gdb, bus)
	n := &models.Newsletter{UserID: "owner", Name: "Weekly"}
	require.NoError(t, repo.Create(context.Background(), n))

	assert.NotEmpty(t, n.ID)
	assert.Same(t, n, emitted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewsletterFindOwnedNotFound(t *testing.T) {
	gdb, mock := setupTestDB(t)

	mock.ExpectQuery(`SELECT \* FROM "newsletters" WHERE newsletters.user_id = \$1 AND newsletters.id = \$2`).
		WithArgs("owner", "missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewNewsletterRepository(gdb, nil)
	_, err := repo.FindOwned(context.Background(), "owner", "missing")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewsletterFindOwned(t *testing.T) {
	gdb, mock := setupTestDB(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "description"}).
		AddRow("n1", "owner", "Weekly", "news every week")
	mock.ExpectQuery(`SELECT \* FROM "newsletters"`).WillReturnRows(rows)

	repo := NewNewsletterRepository(gdb, nil)
	n, err := repo.FindOwned(context.Background(), "owner", "n1")

	require.NoError(t, err)
	assert.Equal(t, "Weekly", n.Name)
	assert.Equal(t, "owner", n.UserID)
}

func TestNewsletterListOwned(t *testing.T) {
	gdb, mock := setupTestDB(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "newsletters"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT \* FROM "newsletters" WHERE newsletters.user_id = \$1 ORDER BY "newsletters"."created_at" DESC LIMIT \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("a", "A").AddRow("b", "B"))

	repo := NewNewsletterRepository(gdb, nil)
	list, total, err := repo.ListOwned(context.Background(), "owner", ListQuery{})

	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewsletterDeleteOwnedMissing(t *testing.T) {
	gdb, mock := setupTestDB(t)

	mock.ExpectExec(`DELETE FROM "newsletters"`).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewNewsletterRepository(gdb, nil)
	err := repo.DeleteOwned(context.Background(), "owner", "n1")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewsletterDeleteOwnedEmitsEvent(t *testing.T) {
	gdb, mock := setupTestDB(t)
	bus := events.NewBus()

	var deleted interface{}
	bus.On("newsletters.deleted", func(_ context.Context, p interface{}) { deleted = p })

	mock.ExpectExec(`DELETE FROM "newsletters" WHERE newsletters.user_id = \$1 AND newsletters.id = \$2`).
		WithArgs("owner", "n1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewNewsletterRepository(gdb, bus)
	require.NoError(t, repo.DeleteOwned(context.Background(), "owner", "n1"))
	assert.Equal(t, "n1", deleted)
}

func TestSubscriberFindOwnedScopesThroughNewsletter(t *testing.T) {
	gdb, mock := setupTestDB(t)

	mock.ExpectQuery(`SELECT \* FROM "subscribers" WHERE subscribers.newsletter_id IN \(SELECT id FROM newsletters WHERE user_id = \$1\) AND subscribers.id = \$2`).
		WithArgs("owner", "s1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "status"}).AddRow("s1", "a@example.com", "ACTIVE"))

	repo := NewSubscriberRepository(gdb, nil)
	s, err := repo.FindOwned(context.Background(), "owner", "s1")

	require.NoError(t, err)
	assert.Equal(t, "a@example.com", s.Email)
	assert.True(t, s.IsActive())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignTransition(t *testing.T) {
	gdb, mock := setupTestDB(t)

	mock.ExpectExec(`UPDATE "campaigns" SET "status"=\$1,"updated_at"=\$2 WHERE id = \$3 AND status IN \(\$4,\$5\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "campaigns"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCampaignRepository(gdb, nil)
	from := []models.CampaignStatus{models.CampaignStatusDraft, models.CampaignStatusScheduled}

	won, err := repo.Transition(context.Background(), "c1", from, models.CampaignStatusQueued)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.Transition(context.Background(), "c1", from, models.CampaignStatusQueued)
	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRevokeAlreadyRevoked(t *testing.T) {
	gdb, mock := setupTestDB(t)

	mock.ExpectExec(`UPDATE "access_tokens" SET "revoked_at"`).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewTokenRepository(gdb)
	err := repo.Revoke(context.Background(), "t1", time.Now())

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenPruneExpired(t *testing.T) {
	gdb, mock := setupTestDB(t)

	mock.ExpectExec(`DELETE FROM "access_tokens" WHERE expires_at < \$1 OR revoked_at < \$2`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	repo := NewTokenRepository(gdb)
	n, err := repo.PruneExpired(context.Background(), time.Now())

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestUserFindByEmail(t *testing.T) {
	gdb, mock := setupTestDB(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WithArgs("a@example.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name"}).AddRow("u1", "a@example.com", "Ada"))

	repo := NewUserRepository(gdb, nil)
	u, err := repo.FindByEmail(context.Background(), "a@example.com")

	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}
