package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/airflowiq/hub/internal/database"
	apierrors "github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var readingCols = []string{"id", "device_id", "recorded_at", "temp_c", "humidity", "pressure_pa", "wind_speed", "rfid"}

func setupMockDB(t *testing.T) (database.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.Wrap(sqlx.NewDb(db, "postgres")), mock
}

func TestQueryReadings_Windowed(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReadingRepository(db, "sensor_logs")

	since := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(readingCols).
		AddRow(1, "dev-1", since.Add(time.Minute), 21.5, 40.0, nil, 1.2, nil).
		AddRow(2, "dev-1", since.Add(2*time.Minute), 21.7, nil, 101325.0, 1.4, "tag-9")

	mock.ExpectQuery(`FROM "sensor_logs"\s+WHERE device_id = ANY\(\$1\) AND recorded_at >= \$2\s+ORDER BY recorded_at ASC`).
		WithArgs(sqlmock.AnyArg(), since).
		WillReturnRows(rows)

	readings, err := repo.QueryReadings(context.Background(), models.ReadingQuery{
		DeviceIDs: []string{"dev-1"},
		Since:     since,
		Ascending: true,
	})

	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, "dev-1", readings[0].DeviceID)
	assert.Nil(t, readings[0].PressurePa)
	require.NotNil(t, readings[1].RFID)
	assert.Equal(t, "tag-9", *readings[1].RFID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryReadings_UnboundedDescending(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReadingRepository(db, "")

	mock.ExpectQuery(`WHERE device_id = ANY\(\$1\)\s+ORDER BY recorded_at DESC`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(readingCols))

	readings, err := repo.QueryReadings(context.Background(), models.ReadingQuery{DeviceIDs: []string{"dev-1", "dev-2"}})
	require.NoError(t, err)
	assert.Empty(t, readings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryReadings_NoDevicesSkipsQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReadingRepository(db, "sensor_logs")

	readings, err := repo.QueryReadings(context.Background(), models.ReadingQuery{})
	require.NoError(t, err)
	assert.Empty(t, readings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryReadings_ErrorIsTransport(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReadingRepository(db, "sensor_logs")

	mock.ExpectQuery(`FROM "sensor_logs"`).WillReturnError(errors.New("connection reset"))

	_, err := repo.QueryReadings(context.Background(), models.ReadingQuery{DeviceIDs: []string{"dev-1"}})
	require.Error(t, err)
	assert.True(t, apierrors.IsTransport(err))
}

func TestMostRecentTimestamp(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReadingRepository(db, "sensor_logs")
	latest := time.Date(2024, 2, 28, 23, 15, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT MAX\(recorded_at\) FROM "sensor_logs"`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(latest))

	ts, ok, err := repo.MostRecentTimestamp(context.Background(), []string{"dev-1"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, latest.Equal(ts))

	mock.ExpectQuery(`SELECT MAX\(recorded_at\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	_, ok, err = repo.MostRecentTimestamp(context.Background(), []string{"dev-9"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceOwnership(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewDeviceRepository(db, "devices")

	mock.ExpectQuery(`SELECT id FROM "devices" WHERE owner_id = \$1 ORDER BY id`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("dev-a").AddRow("dev-b"))

	ids, err := repo.OwnedDeviceIDs(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"dev-a", "dev-b"}, ids)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM "devices" WHERE id = \$1 AND owner_id = \$2\)`).
		WithArgs("dev-x", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	owned, err := repo.IsDeviceOwner(context.Background(), "dev-x", "user-1")
	require.NoError(t, err)
	assert.False(t, owned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceGetNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewDeviceRepository(db, "devices")

	mock.ExpectQuery(`FROM "devices" WHERE device_mac = \$1`).
		WithArgs("AA:BB").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByMAC(context.Background(), "AA:BB")
	require.Error(t, err)
	assert.True(t, apierrors.IsNotFound(err))
}

func TestDeviceClaimAndUnclaim(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewDeviceRepository(db, "devices")

	mock.ExpectExec(`UPDATE "devices" SET owner_id = \$2, claimed = true`).
		WithArgs("dev-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Claim(context.Background(), "dev-1", "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(`UPDATE "devices" SET owner_id = \$2, claimed = true`).
		WithArgs("dev-1", "user-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.Claim(context.Background(), "dev-1", "user-2")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectExec(`UPDATE "devices" SET owner_id = NULL, claimed = false`).
		WithArgs("dev-1", "user-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.Unclaim(context.Background(), "dev-1", "user-2")
	assert.True(t, apierrors.IsNotFound(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByOwnerNewestFirst(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewDeviceRepository(db, "devices")
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "name", "hvac_location", "owner_id", "device_mac", "claimed", "created_at"}).
		AddRow("dev-2", "Attic", "return duct", "user-1", "AA:02", true, now).
		AddRow("dev-1", "Basement", "", "user-1", "AA:01", true, now.Add(-time.Hour))

	mock.ExpectQuery(`WHERE owner_id = \$1 ORDER BY created_at DESC`).
		WithArgs("user-1").
		WillReturnRows(rows)

	devices, err := repo.ListByOwner(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "Attic", devices[0].Name)
	assert.True(t, devices[1].IsClaimed())
}

func TestOrderCreateWithItemsIsTransactional(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewOrderRepository(db)

	order := &models.Order{
		ID:         "ord-1",
		CustomerID: "user-1",
		CreatedBy:  "user-1",
		Status:     models.OrderStatusPending,
		Currency:   "usd",
		Items: []models.OrderItem{
			{ID: "oi-1", OrderID: "ord-1", ProductID: "p-1", Qty: 2, UnitPriceCents: 500, LineTotalCents: 1000},
			{ID: "oi-2", OrderID: "ord-1", ProductID: "p-2", Qty: 1, UnitPriceCents: 250, LineTotalCents: 250},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateWithItems(context.Background(), order))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderCreateRollsBackOnItemFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewOrderRepository(db)

	order := &models.Order{
		ID:    "ord-2",
		Items: []models.OrderItem{{ID: "oi-1", OrderID: "ord-2", ProductID: "p-1", Qty: 1}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO order_items`).WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	err := repo.CreateWithItems(context.Background(), order)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileUpdateMissing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectExec(`UPDATE profiles SET full_name = \$2 WHERE id = \$1`).
		WithArgs("user-1", "Ada").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateFullName(context.Background(), "user-1", "Ada")
	assert.True(t, apierrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
