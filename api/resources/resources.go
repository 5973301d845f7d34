// FilePath: api/resources/resources.go
package resources

import (
	"net/http"

	"github.com/airflowiq/hub/internal/service"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Readings    *ReadingHandlers
	Devices     *DeviceHandlers
	Orders      *OrderHandlers
	Profile     *ProfileHandlers
	HealthCheck func(w http.ResponseWriter, r *http.Request)
	Metrics     func(w http.ResponseWriter, r *http.Request)
}

// NewResources creates a new Resources instance
func NewResources(fetcher ReadingFetcher, svc *service.Service) *Resources {
	return &Resources{
		Readings: &ReadingHandlers{fetcher: fetcher, devices: svc.Devices},
		Devices:  &DeviceHandlers{devices: svc.Devices},
		Orders:   &OrderHandlers{orders: svc.Orders},
		Profile:  &ProfileHandlers{profiles: svc.Profiles},
	}
}

// SetHealthCheck sets the health check handler
func (r *Resources) SetHealthCheck(h func(w http.ResponseWriter, r *http.Request)) {
	r.HealthCheck = h
}

// SetMetrics sets the metrics handler
func (r *Resources) SetMetrics(h func(w http.ResponseWriter, r *http.Request)) {
	r.Metrics = h
}
