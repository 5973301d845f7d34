package service

import (
	"fmt"

	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// Device lifecycle events
const (
	EventDeviceCreated   = "device.created"
	EventDeviceUpdated   = "device.updated"
	EventDeviceClaimed   = "device.claimed"
	EventDeviceUnclaimed = "device.unclaimed"
)

// DeviceEvents lists every lifecycle event a device can emit
var DeviceEvents = []string{EventDeviceCreated, EventDeviceUpdated, EventDeviceClaimed, EventDeviceUnclaimed}

// Service contains all repositories and service-wide dependencies
type Service struct {
	Devices  *DeviceService
	Orders   *OrderService
	Profiles *ProfileService

	events *nuts.EventEmitter
}

// New wires the services around a shared event emitter
func New(
	devices repository.DeviceRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	profiles repository.ProfileRepository,
) *Service {
	events := nuts.NewEventEmitter()
	return &Service{
		Devices:  &DeviceService{devices: devices, events: events},
		Orders:   &OrderService{products: products, orders: orders},
		Profiles: &ProfileService{profiles: profiles},
		events:   events,
	}
}

// Validate checks if all required repositories are initialized
func (s *Service) Validate() error {
	if s.Devices == nil || s.Devices.devices == nil {
		return ErrMissingRepository("devices")
	}
	if s.Orders == nil || s.Orders.products == nil {
		return ErrMissingRepository("products")
	}
	if s.Orders.orders == nil {
		return ErrMissingRepository("orders")
	}
	if s.Profiles == nil || s.Profiles.profiles == nil {
		return ErrMissingRepository("profiles")
	}
	return nil
}

// OnDeviceEvent registers a callback receiving the device id of every
// occurrence of event. name identifies the subscriber. Handlers run
// synchronously on the goroutine that emits the event.
func (s *Service) OnDeviceEvent(event, name string, handler func(deviceID string)) error {
	if _, err := s.events.On(event, name, handler); err != nil {
		return fmt.Errorf("subscribe %s to %s: %w", name, event, err)
	}
	return nil
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}
