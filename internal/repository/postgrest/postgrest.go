// FilePath: internal/repository/postgrest/postgrest.go
package postgrest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/airflowiq/hub/internal/config"
	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/go-resty/resty/v2"
	nuts "github.com/vaudience/go-nuts"
)

const readingSelect = "id,device_id,recorded_at,temp_c,humidity,pressure_pa,windSpeed,rfid"

// Client queries the hosted REST data API (PostgREST dialect) and serves as
// both reading and ownership collaborator.
type Client struct {
	http          *resty.Client
	readingsTable string
	devicesTable  string
}

// row mirrors the JSON shape of the readings table
type row struct {
	ID         int64    `json:"id"`
	DeviceID   string   `json:"device_id"`
	RecordedAt string   `json:"recorded_at"`
	TempC      *float64 `json:"temp_c"`
	Humidity   *float64 `json:"humidity"`
	PressurePa *float64 `json:"pressure_pa"`
	WindSpeed  *float64 `json:"windSpeed"`
	RFID       *string  `json:"rfid"`
}

type idRow struct {
	ID string `json:"id"`
}

// New builds a client from config. The api key doubles as bearer token.
func New(cfg config.PostgRESTConfig, backend config.BackendConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")+"/rest/v1").
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200*time.Millisecond).
		SetHeader("apikey", cfg.APIKey).
		SetAuthToken(cfg.APIKey).
		SetHeader("Accept", "application/json")

	readings := backend.ReadingsTable
	if readings == "" {
		readings = "sensor_logs"
	}
	devices := backend.DevicesTable
	if devices == "" {
		devices = "devices"
	}
	return &Client{http: client, readingsTable: readings, devicesTable: devices}
}

func (c *Client) QueryReadings(ctx context.Context, q models.ReadingQuery) ([]models.SensorReading, error) {
	if len(q.DeviceIDs) == 0 {
		return []models.SensorReading{}, nil
	}
	direction := "asc"
	if !q.Ascending {
		direction = "desc"
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("select", readingSelect).
		SetQueryParam("device_id", inFilter(q.DeviceIDs)).
		SetQueryParam("order", "recorded_at."+direction)
	if q.Bounded() {
		req.SetQueryParam("recorded_at", "gte."+q.Since.UTC().Format(time.RFC3339Nano))
	}

	var rows []row
	if err := c.get(req.SetResult(&rows), c.readingsTable); err != nil {
		return nil, err
	}

	readings := make([]models.SensorReading, 0, len(rows))
	for _, r := range rows {
		ts, err := parseTimestamp(r.RecordedAt)
		if err != nil {
			return nil, errors.NewTransportError("malformed recorded_at in response", err)
		}
		readings = append(readings, models.SensorReading{
			ID:         r.ID,
			DeviceID:   r.DeviceID,
			RecordedAt: ts,
			TempC:      r.TempC,
			Humidity:   r.Humidity,
			PressurePa: r.PressurePa,
			WindSpeed:  r.WindSpeed,
			RFID:       r.RFID,
		})
	}
	return readings, nil
}

func (c *Client) MostRecentTimestamp(ctx context.Context, deviceIDs []string) (time.Time, bool, error) {
	if len(deviceIDs) == 0 {
		return time.Time{}, false, nil
	}
	var rows []row
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("select", "recorded_at").
		SetQueryParam("device_id", inFilter(deviceIDs)).
		SetQueryParam("order", "recorded_at.desc").
		SetQueryParam("limit", "1").
		SetResult(&rows)
	if err := c.get(req, c.readingsTable); err != nil {
		return time.Time{}, false, err
	}
	if len(rows) == 0 {
		return time.Time{}, false, nil
	}
	ts, err := parseTimestamp(rows[0].RecordedAt)
	if err != nil {
		return time.Time{}, false, errors.NewTransportError("malformed recorded_at in response", err)
	}
	return ts, true, nil
}

func (c *Client) OwnedDeviceIDs(ctx context.Context, userID string) ([]string, error) {
	var rows []idRow
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("select", "id").
		SetQueryParam("owner_id", "eq."+userID).
		SetQueryParam("order", "id.asc").
		SetResult(&rows)
	if err := c.get(req, c.devicesTable); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (c *Client) IsDeviceOwner(ctx context.Context, deviceID, userID string) (bool, error) {
	var rows []idRow
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("select", "id").
		SetQueryParam("id", "eq."+deviceID).
		SetQueryParam("owner_id", "eq."+userID).
		SetQueryParam("limit", "1").
		SetResult(&rows)
	if err := c.get(req, c.devicesTable); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (c *Client) get(req *resty.Request, table string) error {
	resp, err := req.Get("/" + table)
	if err != nil {
		return errors.NewTransportError("data api request failed", err)
	}
	if resp.IsError() {
		nuts.L.Warnf("[PostgREST] %s returned %d: %s", table, resp.StatusCode(), resp.String())
		return errors.NewTransportError(fmt.Sprintf("data api returned status %d", resp.StatusCode()), nil)
	}
	return nil
}

// inFilter renders a PostgREST in.() filter with quoted members
func inFilter(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = `"` + strings.ReplaceAll(id, `"`, `\"`) + `"`
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999",
}

// parseTimestamp accepts timestamptz and naive timestamps; naive ones are UTC
func parseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
