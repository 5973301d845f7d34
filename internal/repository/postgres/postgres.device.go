// FilePath: internal/repository/postgres/postgres.device.go
package postgres

import (
	"context"
	"fmt"

	"github.com/airflowiq/hub/internal/database"
	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/lib/pq"
)

const deviceColumns = `id, COALESCE(name, '') AS name, COALESCE(hvac_location, '') AS hvac_location,
	COALESCE(owner_id::text, '') AS owner_id, COALESCE(device_mac, '') AS device_mac,
	COALESCE(claimed, false) AS claimed, created_at`

type DeviceRepo struct {
	PostgresBaseRepo
	table string
}

func NewDeviceRepository(db database.DB, table string) *DeviceRepo {
	if table == "" {
		table = "devices"
	}
	return &DeviceRepo{
		PostgresBaseRepo: PostgresBaseRepo{db: db},
		table:            pq.QuoteIdentifier(table),
	}
}

func (r *DeviceRepo) OwnedDeviceIDs(ctx context.Context, userID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE owner_id = $1 ORDER BY id`, r.table)

	ids := []string{}
	if err := r.db.GetDB().SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, errors.NewTransportError("failed to query owned devices", err)
	}
	return ids, nil
}

func (r *DeviceRepo) IsDeviceOwner(ctx context.Context, deviceID, userID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND owner_id = $2)`, r.table)

	var owned bool
	if err := r.db.GetDB().GetContext(ctx, &owned, query, deviceID, userID); err != nil {
		return false, errors.NewTransportError("failed to verify device ownership", err)
	}
	return owned, nil
}

func (r *DeviceRepo) Create(ctx context.Context, device *models.Device) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, hvac_location, owner_id, device_mac, claimed, created_at)
		VALUES (:id, :name, :hvac_location, NULLIF(:owner_id, '')::uuid, NULLIF(:device_mac, ''), :claimed, :created_at)`, r.table)

	if _, err := r.db.GetDB().NamedExecContext(ctx, query, device); err != nil {
		return errors.NewDatabaseError("failed to create device", err)
	}
	return nil
}

func (r *DeviceRepo) Get(ctx context.Context, id string) (*models.Device, error) {
	device := &models.Device{}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, deviceColumns, r.table)
	if err := r.getOne(ctx, device, "device", query, id); err != nil {
		return nil, err
	}
	return device, nil
}

func (r *DeviceRepo) GetByMAC(ctx context.Context, mac string) (*models.Device, error) {
	device := &models.Device{}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE device_mac = $1 LIMIT 1`, deviceColumns, r.table)
	if err := r.getOne(ctx, device, "device", query, mac); err != nil {
		return nil, err
	}
	return device, nil
}

func (r *DeviceRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Device, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = $1 ORDER BY created_at DESC`, deviceColumns, r.table)

	devices := []*models.Device{}
	if err := r.db.GetDB().SelectContext(ctx, &devices, query, ownerID); err != nil {
		return nil, errors.NewDatabaseError("failed to list devices", err)
	}
	return devices, nil
}

func (r *DeviceRepo) Update(ctx context.Context, device *models.Device) error {
	query := fmt.Sprintf(`UPDATE %s SET name = $2, hvac_location = $3 WHERE id = $1`, r.table)

	rows, err := r.execAffecting(ctx, query, device.ID, device.Name, device.HVACLocation)
	if err != nil {
		return errors.NewDatabaseError("failed to update device", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}
	return nil
}

func (r *DeviceRepo) Claim(ctx context.Context, id, ownerID string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET owner_id = $2, claimed = true
		WHERE id = $1 AND owner_id IS NULL AND COALESCE(claimed, false) = false`, r.table)

	rows, err := r.execAffecting(ctx, query, id, ownerID)
	if err != nil {
		return false, errors.NewDatabaseError("failed to claim device", err)
	}
	return rows == 1, nil
}

func (r *DeviceRepo) Unclaim(ctx context.Context, id, ownerID string) error {
	query := fmt.Sprintf(`UPDATE %s SET owner_id = NULL, claimed = false WHERE id = $1 AND owner_id = $2`, r.table)

	rows, err := r.execAffecting(ctx, query, id, ownerID)
	if err != nil {
		return errors.NewDatabaseError("failed to unclaim device", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}
	return nil
}
