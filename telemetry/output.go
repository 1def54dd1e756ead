package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/grapple/config"
)

// csvFile appends gocsv records, writing the header once.
type csvFile struct {
	name   string
	f      *os.File
	header bool
}

func (c *csvFile) write(records any) error {
	var err error
	if c.header {
		err = gocsv.MarshalWithoutHeaders(records, c.f)
	} else {
		err = gocsv.Marshal(records, c.f)
		c.header = err == nil
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", c.name, err)
	}
	return nil
}

// OutputManager writes run output into one directory. A nil manager
// discards everything, so callers need not check whether output is enabled.
type OutputManager struct {
	dir       string
	telemetry *csvFile
	perf      *csvFile
}

// NewOutputManager creates dir and its CSV files. It returns nil, nil when
// dir is empty.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	var err error
	if om.telemetry, err = om.create("telemetry.csv"); err != nil {
		return nil, err
	}
	if om.perf, err = om.create("perf.csv"); err != nil {
		om.Close()
		return nil, err
	}
	return om, nil
}

func (om *OutputManager) create(name string) (*csvFile, error) {
	f, err := os.Create(filepath.Join(om.dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvFile{name: name, f: f}, nil
}

// WriteConfig saves the effective configuration as config.yaml.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTelemetry appends a window to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	return om.telemetry.write([]WindowStats{stats})
}

// WritePerf appends a perf row to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int64) error {
	if om == nil {
		return nil
	}
	return om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd)})
}

// Dir returns the output directory.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes every file.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var errs []error
	for _, c := range []*csvFile{om.telemetry, om.perf} {
		if c != nil {
			errs = append(errs, c.f.Close())
		}
	}
	return errors.Join(errs...)
}
