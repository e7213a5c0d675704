package newroutes

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ExportConfig configures the exporting of the simulation.
type ExportConfig struct {
	Filename  string
	OutputDir string
	AsCSV     bool
	Timestamp bool
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV
}

func (c ExportConfig) path(kind string) string {
	name := c.Filename
	if c.Timestamp {
		t := time.Now()
		name = fmt.Sprintf("%s-%d-%02d-%02dT%02d.%02d.%02d", name, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	}
	return filepath.Join(c.OutputDir, fmt.Sprintf("%s-%s.csv", kind, name))
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// StreamStates writes the states read from the channel until it is closed.
// The channel is always drained, even when the file cannot be written.
func StreamStates(conf ExportConfig, stateChan <-chan SimState) (err error) {
	defer func() {
		for range stateChan {
		}
	}()
	f, err := os.Create(conf.path("states"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := csv.NewWriter(f)
	if err = w.Write([]string{"time", "plane", "x", "y", "vx", "vy", "distance", "hold"}); err != nil {
		return err
	}
	for state := range stateChan {
		record := []string{ftoa(state.Time), PlaneName(state.Plane), ftoa(state.X), ftoa(state.Y), ftoa(state.Vx), ftoa(state.Vy), ftoa(state.Distance), ftoa(state.Hold)}
		if err = w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteSchedule writes the routes and schedules of the scenario.
func WriteSchedule(conf ExportConfig, s *Scenario) (err error) {
	f, err := os.Create(conf.path("schedule"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := csv.NewWriter(f)
	if err = w.Write([]string{"plane", "start_x", "start_y", "end_x", "end_y", "departure", "arrival"}); err != nil {
		return err
	}
	for i, r := range s.Routes {
		record := []string{PlaneName(i), ftoa(r.StartX), ftoa(r.StartY), ftoa(r.EndX), ftoa(r.EndY), ftoa(r.Schedule.Departure), ftoa(r.Schedule.Arrival)}
		if err = w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
