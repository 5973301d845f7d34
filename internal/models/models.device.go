// FilePath: internal/models/models.device.go
package models

import "time"

// Device represents an airflow sensor unit. OwnerID is empty for unclaimed devices.
type Device struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	HVACLocation string    `json:"hvac_location" db:"hvac_location"`
	OwnerID      string    `json:"owner_id,omitempty" db:"owner_id" readxs:"owner,system" writexs:"system"`
	DeviceMAC    string    `json:"device_mac" db:"device_mac"`
	Claimed      bool      `json:"claimed" db:"claimed"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// IsClaimed follows the backend convention: a device is taken when either
// the claimed flag or an owner is present.
func (d *Device) IsClaimed() bool {
	return d.Claimed || d.OwnerID != ""
}

// DeviceUpdate carries the user-editable device fields
type DeviceUpdate struct {
	Name         *string `json:"name,omitempty"`
	HVACLocation *string `json:"hvac_location,omitempty"`
}

// ClaimRequest names the hardware id printed on the device
type ClaimRequest struct {
	DeviceMAC string `json:"device_mac"`
}
