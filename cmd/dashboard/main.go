// FilePath: cmd/dashboard/main.go
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/airflowiq/hub/internal/config"
	"github.com/airflowiq/hub/internal/dashboard"
	"github.com/airflowiq/hub/internal/models"
	tm "github.com/buger/goterm"
	nuts "github.com/vaudience/go-nuts"
)

const help = "commands: a (all devices) | d <id>[,<id>...] | w <hours|all> | m <metric> | r (refresh) | q"

func main() {
	devicesFlag := flag.String("devices", "", "comma separated device ids, empty for all owned devices")
	windowFlag := flag.String("window", "", "window in hours or \"all\"; overrides dashboard.window_hours")
	metricFlag := flag.String("metric", "", "metric to chart: temp, humidity, pressure, windspeed")
	flag.Parse()

	nuts.InitVersion()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ids := cfg.Dashboard.DeviceIDs
	if *devicesFlag != "" {
		ids = strings.Split(*devicesFlag, ",")
	}
	window := models.LastHours(cfg.Dashboard.WindowHours)
	if *windowFlag != "" {
		if window, err = models.ParseWindow(*windowFlag); err != nil {
			log.Fatalf("Invalid window: %v", err)
		}
	}
	metricName := cfg.Dashboard.Metric
	if *metricFlag != "" {
		metricName = *metricFlag
	}
	metric, ok := models.ParseMetric(metricName)
	if !ok {
		log.Fatalf("Unknown metric %q", metricName)
	}

	client := dashboard.NewHubClient(cfg.Dashboard)
	session := dashboard.NewSession(client, cfg.Dashboard.UserID,
		dashboard.WithRefreshInterval(cfg.Dashboard.RefreshInterval),
		dashboard.WithInitialSelection(models.ScopeFromIDs(ids), window),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := session.Run(ctx); err != nil && err != context.Canceled {
			nuts.L.Errorf("[Dashboard] Session stopped: %v", err)
		}
	}()

	var devices []models.Device
	lookupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	devices, err = client.Devices(lookupCtx)
	cancel()
	if err != nil {
		nuts.L.Warnf("[Dashboard] Could not list devices: %v", err)
	}

	views, unsubscribe := session.Subscribe()
	defer unsubscribe()

	commands := make(chan string)
	go readCommands(commands)

	session.Refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case view := <-views:
			render(view, metric, devices)
		case line, open := <-commands:
			if !open {
				return
			}
			quit, next := dispatch(session, line, metric)
			if quit {
				return
			}
			if next != metric {
				metric = next
				render(session.Snapshot(), metric, devices)
			}
		}
	}
}

func readCommands(out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out <- strings.TrimSpace(scanner.Text())
	}
}

// dispatch applies one input line to the session and returns the metric to chart
func dispatch(session *dashboard.Session, line string, metric models.Metric) (bool, models.Metric) {
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch verb {
	case "q":
		return true, metric
	case "a":
		session.SelectAllDevices()
	case "d":
		ids := strings.Split(arg, ",")
		if len(ids) == 1 {
			session.SelectDevice(ids[0])
		} else {
			session.SelectDevices(ids...)
		}
	case "w":
		w, err := models.ParseWindow(arg)
		if err != nil {
			nuts.L.Warnf("[Dashboard] %v", err)
			break
		}
		session.SetWindow(w)
	case "m":
		if m, ok := models.ParseMetric(arg); ok {
			return false, m
		}
		nuts.L.Warnf("[Dashboard] Unknown metric %q", arg)
	case "r", "":
		session.Refresh()
	default:
		fmt.Println(help)
	}
	return false, metric
}

func render(view dashboard.View, metric models.Metric, devices []models.Device) {
	tm.Clear()
	tm.MoveCursor(1, 1)

	tm.Println(tm.Bold(fmt.Sprintf("AirflowIQ  %s  window %s", describeScope(view.Scope), view.Window)))
	if view.Loading {
		tm.Println(tm.Color("loading...", tm.YELLOW))
	}
	if view.Error != "" {
		tm.Println(tm.Color("error: "+view.Error, tm.RED))
	}
	if view.Warning != "" {
		tm.Println(tm.Color(view.Warning, tm.YELLOW))
	}

	if view.Averages != nil {
		table := tm.NewTable(0, 10, 2, ' ', 0)
		fmt.Fprintf(table, "Metric\tAverage\n")
		for _, m := range models.Metrics {
			fmt.Fprintf(table, "%s\t%s\n", m.Label(), formatFloat(view.Averages.Field(m)))
		}
		fmt.Fprintf(table, "Samples\t%d\n", view.Averages.Samples)
		tm.Println(table)
	}

	switch {
	case view.Multi != nil:
		renderMulti(*view.Multi, metric)
	case view.Series != nil:
		renderSeries(*view.Series, metric)
	}

	if len(devices) > 0 {
		names := make([]string, 0, len(devices))
		for _, d := range devices {
			names = append(names, fmt.Sprintf("%s (%s)", d.ID, d.Name))
		}
		tm.Println("devices: " + strings.Join(names, ", "))
	}
	tm.Printf("updated %s, stale results dropped %d\n", view.UpdatedAt.Format(time.Kitchen), view.Stale)
	tm.Println(help)
	tm.Flush()
}

func renderSeries(series models.Series, metric models.Metric) {
	if series.NoData() {
		tm.Println("no readings in this window")
		return
	}
	if series.Fallback {
		tm.Println(tm.Color("showing the most recent readings available", tm.CYAN))
	}

	data := new(tm.DataTable)
	data.AddColumn("Hours")
	data.AddColumn(metric.Label())
	start := series.Readings[0].RecordedAt
	points := 0
	for _, r := range series.Readings {
		if v, ok := metric.Value(r); ok {
			data.AddRow(r.RecordedAt.Sub(start).Hours(), v)
			points++
		}
	}
	// the chart needs two points to scale its axes
	if points < 2 {
		tm.Printf("%d reading(s) with %s\n", points, metric.Label())
		return
	}
	chart := tm.NewLineChart(tm.Width()-4, 16)
	tm.Println(chart.Draw(data))
}

func renderMulti(multi models.MultiSeries, metric models.Metric) {
	table := tm.NewTable(0, 10, 2, ' ', 0)
	fmt.Fprintf(table, "Device\tReadings\tLatest %s\tStatus\n", metric.Label())
	for _, id := range multi.DeviceIDs {
		series := multi.Series[id]
		latest := "-"
		for i := len(series.Readings) - 1; i >= 0; i-- {
			if v, ok := metric.Value(series.Readings[i]); ok {
				latest = fmt.Sprintf("%.2f", v)
				break
			}
		}
		status := "ok"
		if reason, failed := multi.Failures[id]; failed {
			status = "failed: " + reason
		} else if series.NoData() {
			status = "no data"
		}
		fmt.Fprintf(table, "%s\t%d\t%s\t%s\n", id, len(series.Readings), latest, status)
	}
	tm.Println(table)
}

func describeScope(scope models.Scope) string {
	switch scope.Kind {
	case models.ScopeAllOwned:
		return "all devices"
	default:
		return strings.Join(scope.DeviceIDs, ", ")
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
