package fetcher

import "github.com/airflowiq/hub/internal/models"

// Average computes the mean of every metric over the rows that carry it.
// rfid is taken from the last row (in the given ascending order) that has one.
// Fields absent from every row stay nil.
func Average(readings []models.SensorReading) models.Averages {
	var avg models.Averages
	if len(readings) == 0 {
		return avg
	}

	sums := make(map[models.Metric]float64, len(models.Metrics))
	counts := make(map[models.Metric]int, len(models.Metrics))
	for _, r := range readings {
		for _, m := range models.Metrics {
			if v, ok := m.Value(r); ok {
				sums[m] += v
				counts[m]++
			}
		}
		if r.RFID != nil {
			rfid := *r.RFID
			avg.RFID = &rfid
		}
	}

	mean := func(m models.Metric) *float64 {
		if counts[m] == 0 {
			return nil
		}
		v := sums[m] / float64(counts[m])
		return &v
	}
	avg.TempC = mean(models.MetricTemperature)
	avg.Humidity = mean(models.MetricHumidity)
	avg.PressurePa = mean(models.MetricPressure)
	avg.WindSpeed = mean(models.MetricWindSpeed)

	from := readings[0].RecordedAt
	to := readings[len(readings)-1].RecordedAt
	avg.From = &from
	avg.To = &to
	avg.Samples = len(readings)
	return avg
}
