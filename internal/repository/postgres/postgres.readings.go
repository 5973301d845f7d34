// FilePath: internal/repository/postgres/postgres.readings.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/airflowiq/hub/internal/database"
	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/lib/pq"
)

const readingColumns = `id, device_id, recorded_at, temp_c, humidity, pressure_pa, "windSpeed" AS wind_speed, rfid`

// ReadingRepo reads the append-only sensor log table
type ReadingRepo struct {
	PostgresBaseRepo
	table string
}

func NewReadingRepository(db database.DB, table string) *ReadingRepo {
	if table == "" {
		table = "sensor_logs"
	}
	return &ReadingRepo{
		PostgresBaseRepo: PostgresBaseRepo{db: db},
		table:            pq.QuoteIdentifier(table),
	}
}

func (r *ReadingRepo) QueryReadings(ctx context.Context, q models.ReadingQuery) ([]models.SensorReading, error) {
	if len(q.DeviceIDs) == 0 {
		return []models.SensorReading{}, nil
	}

	order := "ASC"
	if !q.Ascending {
		order = "DESC"
	}

	args := []interface{}{pq.Array(q.DeviceIDs)}
	where := "device_id = ANY($1)"
	if q.Bounded() {
		args = append(args, q.Since)
		where += " AND recorded_at >= $2"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY recorded_at %s`, readingColumns, r.table, where, order)

	readings := []models.SensorReading{}
	err := r.db.GetDB().SelectContext(ctx, &readings, query, args...)
	if err != nil {
		return nil, errors.NewTransportError("failed to query sensor readings", err)
	}
	return readings, nil
}

func (r *ReadingRepo) MostRecentTimestamp(ctx context.Context, deviceIDs []string) (time.Time, bool, error) {
	if len(deviceIDs) == 0 {
		return time.Time{}, false, nil
	}
	query := fmt.Sprintf(`SELECT MAX(recorded_at) FROM %s WHERE device_id = ANY($1)`, r.table)

	var latest sql.NullTime
	err := r.db.GetDB().GetContext(ctx, &latest, query, pq.Array(deviceIDs))
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, errors.NewTransportError("failed to query latest reading", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return latest.Time, true, nil
}
