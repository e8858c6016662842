// Package hwmon reads board temperatures from the Linux hwmon sysfs class.
package hwmon

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/benbjohnson/clock"

	"github.com/luki/sensorapp/internal/hardware"
	"github.com/luki/sensorapp/internal/sensor"
)

// DefaultRoot is where the kernel publishes hwmon chips.
const DefaultRoot = "/sys/class/hwmon"

// Input is one temperature input of a hwmon chip.
type Input struct {
	Chip  string // e.g. "coretemp"
	Dir   string // e.g. /sys/class/hwmon/hwmon3
	Label string // e.g. "Package id 0", or "temp1" when unlabelled
	Path  string // temp*_input file, millidegrees Celsius
}

// Key returns a unique identifier for this input.
func (in Input) Key() string {
	return in.Chip + "-" + filepath.Base(in.Dir) + "/" + in.Label
}

// Component returns the friendly name of the input's chip.
func (in Input) Component() string {
	return FriendlyName(in.Chip)
}

// Read returns the current temperature in °C.
func (in Input) Read() (float64, error) {
	b, err := os.ReadFile(in.Path)
	if err != nil {
		return 0, err
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", in.Path, err)
	}
	return milli / 1000.0, nil
}

// Discover lists every temperature input under root, ordered by chip
// directory and input file.
func Discover(root string) []Input {
	matches, _ := filepath.Glob(filepath.Join(root, "hwmon*", "name"))
	sort.Strings(matches)

	var inputs []Input
	for _, namePath := range matches {
		dir := filepath.Dir(namePath)
		nameBytes, err := os.ReadFile(namePath)
		if err != nil {
			continue
		}
		name := strings.TrimSpace(string(nameBytes))

		temps, _ := filepath.Glob(filepath.Join(dir, "temp*_input"))
		sort.Strings(temps)
		for _, path := range temps {
			base := strings.TrimSuffix(filepath.Base(path), "_input")
			label := base
			if b, err := os.ReadFile(filepath.Join(dir, base+"_label")); err == nil {
				label = strings.TrimSpace(string(b))
			}
			inputs = append(inputs, Input{Chip: name, Dir: dir, Label: label, Path: path})
		}
	}
	return inputs
}

// Select returns the first input whose chip name starts with chip, or the
// first input at all when chip is empty.
func Select(inputs []Input, chip string) (Input, bool) {
	for _, in := range inputs {
		if chip == "" || strings.HasPrefix(in.Chip, chip) {
			return in, true
		}
	}
	return Input{}, false
}

// NewThermometer returns a polled temperature source for the first matching
// input. The input is looked up again on every poll so a chip that loads
// late becomes available.
func NewThermometer(root, chip string, clk clock.Clock) *hardware.Poller[sensor.TemperatureData] {
	if root == "" {
		root = DefaultRoot
	}
	find := func() (Input, bool) { return Select(Discover(root), chip) }

	read := func() (*sensor.TemperatureData, error) {
		in, ok := find()
		if !ok {
			return nil, fmt.Errorf("no hwmon temperature input for %q under %s", chip, root)
		}
		c, err := in.Read()
		if err != nil {
			return nil, err
		}
		return &sensor.TemperatureData{Celsius: c}, nil
	}
	available := func() bool {
		_, ok := find()
		return ok
	}
	p := hardware.NewPoller(clk, read, available)
	p.SetUpdateInterval(sensor.ThermometerInterval)
	return p
}
