package service

import (
	"context"
	"strings"
	"time"

	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/airflowiq/hub/internal/repository"
	"github.com/google/uuid"
	"github.com/itsatony/struccy"
	nuts "github.com/vaudience/go-nuts"
)

// Claim conflict reasons, reported in the error details
const (
	ClaimReasonAlreadyYours   = "already_yours"
	ClaimReasonClaimedByOther = "claimed_by_other"
	ClaimReasonLostRace       = "lost_race"
)

// DeviceService handles device ownership and metadata
type DeviceService struct {
	devices repository.DeviceRepository
	events  *nuts.EventEmitter
	now     func() time.Time
}

// LookupResult describes a device found by its hardware id. Device is
// filtered by the caller's roles.
type LookupResult struct {
	Device  *models.Device `json:"device"`
	Claimed bool           `json:"claimed"`
	Mine    bool           `json:"mine"`
}

// List returns the caller's devices, newest first
func (s *DeviceService) List(ctx context.Context, userID string) ([]*models.Device, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user id is required", nil)
	}
	return s.devices.ListByOwner(ctx, userID)
}

// Get returns one of the caller's devices
func (s *DeviceService) Get(ctx context.Context, userID, id string) (*models.Device, error) {
	device, err := s.devices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if device.OwnerID != userID {
		return nil, errors.NewAccessDeniedError("device "+id+" does not belong to you", nil)
	}
	return device, nil
}

// Create registers a new device owned by the caller
func (s *DeviceService) Create(ctx context.Context, userID string, device *models.Device) error {
	device.Name = strings.TrimSpace(device.Name)
	if device.Name == "" {
		return errors.NewValidationError("device name is required", nil)
	}
	if userID == "" {
		return errors.NewValidationError("user id is required", nil)
	}

	if device.ID == "" {
		device.ID = uuid.NewString()
	}
	device.HVACLocation = strings.TrimSpace(device.HVACLocation)
	device.DeviceMAC = strings.TrimSpace(device.DeviceMAC)
	device.OwnerID = userID
	device.Claimed = true
	device.CreatedAt = s.clock()

	nuts.L.Infof("[DeviceService] Creating device: %s (%s) for %s", device.Name, device.ID, userID)
	if err := s.devices.Create(ctx, device); err != nil {
		return err
	}
	s.emit(EventDeviceCreated, device.ID)
	return nil
}

// Update changes name and location of one of the caller's devices
func (s *DeviceService) Update(ctx context.Context, userID, id string, upd models.DeviceUpdate) (*models.Device, error) {
	device, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, errors.NewValidationError("device name cannot be empty", nil)
		}
		device.Name = name
	}
	if upd.HVACLocation != nil {
		device.HVACLocation = strings.TrimSpace(*upd.HVACLocation)
	}

	if err := s.devices.Update(ctx, device); err != nil {
		return nil, err
	}
	nuts.L.Infof("[DeviceService] Updated device %s", id)
	s.emit(EventDeviceUpdated, device.ID)
	return device, nil
}

// LookupByMAC finds a device by hardware id. Fields are filtered by role so
// that callers who do not own the device never learn its owner.
func (s *DeviceService) LookupByMAC(ctx context.Context, userID, mac string) (*LookupResult, error) {
	mac = strings.TrimSpace(mac)
	if mac == "" {
		return nil, errors.NewValidationError("MAC address is required", nil)
	}

	device, err := s.devices.GetByMAC(ctx, mac)
	if err != nil {
		return nil, err
	}

	mine := device.OwnerID != "" && device.OwnerID == userID
	roles := models.RolesFromContext(ctx)
	if mine {
		roles = append(roles, models.RoleOwner)
	}

	filteredMap, err := struccy.StructToMapFieldsWithReadXS(device, roles)
	if err != nil {
		return nil, errors.NewInternalError("failed to filter device fields", err)
	}
	filtered := &models.Device{}
	if _, err := struccy.MergeMapStringFieldsToStruct(filtered, filteredMap, roles); err != nil {
		return nil, errors.NewInternalError("failed to map filtered fields to device struct", err)
	}

	return &LookupResult{Device: filtered, Claimed: device.IsClaimed(), Mine: mine}, nil
}

// Claim assigns an unclaimed device to the caller. A device already taken,
// whether by the caller or someone else, is a conflict.
func (s *DeviceService) Claim(ctx context.Context, userID, mac string) (*models.Device, error) {
	mac = strings.TrimSpace(mac)
	if mac == "" {
		return nil, errors.NewValidationError("MAC address is required", nil)
	}
	if userID == "" {
		return nil, errors.NewValidationError("user id is required", nil)
	}

	device, err := s.devices.GetByMAC(ctx, mac)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("no device found with MAC address "+mac, err)
		}
		return nil, err
	}

	if device.IsClaimed() {
		if device.OwnerID == userID {
			return nil, errors.NewConflictError("this device is already in your account", nil).
				WithDetails(map[string]string{"reason": ClaimReasonAlreadyYours})
		}
		return nil, errors.NewConflictError("this device is already assigned to another user", nil).
			WithDetails(map[string]string{"reason": ClaimReasonClaimedByOther})
	}

	ok, err := s.devices.Claim(ctx, device.ID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewConflictError("device was found but could not be claimed", nil).
			WithDetails(map[string]string{"reason": ClaimReasonLostRace})
	}

	device.OwnerID = userID
	device.Claimed = true
	nuts.L.Infof("[DeviceService] Device %s (%s) claimed by %s", device.ID, mac, userID)
	s.emit(EventDeviceClaimed, device.ID)
	return device, nil
}

// Unclaim releases one of the caller's devices so others can claim it
func (s *DeviceService) Unclaim(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.devices.Unclaim(ctx, id, userID); err != nil {
		return err
	}
	nuts.L.Infof("[DeviceService] Device %s unclaimed by %s", id, userID)
	s.emit(EventDeviceUnclaimed, id)
	return nil
}

func (s *DeviceService) emit(event, deviceID string) {
	if err := s.events.Emit(event, deviceID); err != nil {
		nuts.L.Errorf("[DeviceService] Failed to emit %s for %s: %v", event, deviceID, err)
	}
}

func (s *DeviceService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
