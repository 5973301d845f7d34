package fetcher

import (
	"context"

	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
)

// resolveScope turns a scope into the sorted set of device ids the caller
// may read. It runs before any time-series query.
func (f *Fetcher) resolveScope(ctx context.Context, userID string, scope models.Scope) ([]string, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user id is required", nil)
	}

	switch scope.Kind {
	case models.ScopeDevice:
		if len(scope.DeviceIDs) != 1 || scope.DeviceIDs[0] == "" {
			return nil, errors.NewValidationError("exactly one device id is required", nil)
		}
		id := scope.DeviceIDs[0]
		owned, err := f.owners.IsDeviceOwner(ctx, id, userID)
		if err != nil {
			return nil, transportErr("failed to verify device ownership", err)
		}
		if !owned {
			return nil, errors.NewAccessDeniedError("device not found or not owned by you", nil).
				WithDetails(map[string]string{"device_id": id})
		}
		return []string{id}, nil

	case models.ScopeAllOwned, "":
		owned, err := f.owners.OwnedDeviceIDs(ctx, userID)
		if err != nil {
			return nil, transportErr("failed to load owned devices", err)
		}
		ids := models.NormalizeIDs(owned)
		if len(ids) == 0 {
			return nil, errors.NewNoDevicesError("no devices found for this account", nil)
		}
		return ids, nil

	case models.ScopeDeviceSet:
		ids := models.NormalizeIDs(scope.DeviceIDs)
		if len(ids) == 0 {
			return nil, errors.NewNoDevicesError("no devices selected", nil)
		}
		owned, err := f.owners.OwnedDeviceIDs(ctx, userID)
		if err != nil {
			return nil, transportErr("failed to load owned devices", err)
		}
		ownedSet := make(map[string]struct{}, len(owned))
		for _, id := range owned {
			ownedSet[id] = struct{}{}
		}
		var denied []string
		for _, id := range ids {
			if _, ok := ownedSet[id]; !ok {
				denied = append(denied, id)
			}
		}
		if len(denied) > 0 {
			return nil, errors.NewAccessDeniedError("device set contains devices not owned by you", nil).
				WithDetails(map[string][]string{"device_ids": denied})
		}
		return ids, nil
	}

	return nil, errors.NewValidationError("unknown scope "+string(scope.Kind), nil)
}
