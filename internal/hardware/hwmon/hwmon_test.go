package hwmon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/luki/sensorapp/internal/sensor"
)

func writeChip(t *testing.T, root, dir, name string, files map[string]string) {
	t.Helper()
	d := filepath.Join(root, dir)
	if err := os.MkdirAll(d, 0o755); err != nil {
		t.Fatal(err)
	}
	files["name"] = name
	for f, v := range files {
		if err := os.WriteFile(filepath.Join(d, f), []byte(v+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func fixture(t *testing.T) string {
	root := t.TempDir()
	writeChip(t, root, "hwmon0", "acpitz", map[string]string{
		"temp1_input": "27800",
	})
	writeChip(t, root, "hwmon2", "coretemp", map[string]string{
		"temp1_input": "48000",
		"temp1_label": "Package id 0",
		"temp2_input": "46000",
		"temp2_label": "Core 0",
	})
	return root
}

func TestDiscover(t *testing.T) {
	inputs := Discover(fixture(t))
	if len(inputs) != 3 {
		t.Fatalf("expected 3 inputs, got %d", len(inputs))
	}
	if inputs[0].Label != "temp1" {
		t.Errorf("unlabelled input should fall back to file name, got %q", inputs[0].Label)
	}
	if inputs[1].Label != "Package id 0" || inputs[1].Component() != "CPU" {
		t.Errorf("unexpected input %+v", inputs[1])
	}
	if got := inputs[2].Key(); got != "coretemp-hwmon2/Core 0" {
		t.Errorf("Key() = %q", got)
	}

	temp, err := inputs[2].Read()
	if err != nil {
		t.Fatal(err)
	}
	if temp != 46.0 {
		t.Errorf("expected 46.0, got %.1f", temp)
	}
}

func TestSelect(t *testing.T) {
	inputs := Discover(fixture(t))

	in, ok := Select(inputs, "core")
	if !ok || in.Label != "Package id 0" {
		t.Errorf("Select(core) = %+v, %v", in, ok)
	}
	in, ok = Select(inputs, "")
	if !ok || in.Chip != "acpitz" {
		t.Errorf("Select(\"\") = %+v, %v", in, ok)
	}
	if _, ok := Select(inputs, "nvme"); ok {
		t.Error("nvme should not match")
	}
}

func TestThermometer(t *testing.T) {
	root := fixture(t)
	clk := clock.NewMock()

	src := NewThermometer(root, "coretemp", clk)
	if !src.Available() {
		t.Fatal("expected coretemp to be available")
	}
	if src.Interval() != time.Second {
		t.Errorf("interval = %v", src.Interval())
	}
	if NewThermometer(root, "amdgpu", clk).Available() {
		t.Error("amdgpu should be unavailable")
	}

	got := make(chan float64, 1)
	src.StartUpdates(func(r *sensor.TemperatureData, err error) {
		if err == nil && r != nil {
			got <- r.Celsius
		}
	})
	defer src.StopUpdates()
	clk.Add(time.Second)

	select {
	case c := <-got:
		if c != 48.0 {
			t.Errorf("expected 48.0, got %.1f", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reading")
	}
}

func TestFriendlyName(t *testing.T) {
	tests := map[string]string{
		"coretemp":    "CPU",
		"k10temp":     "CPU",
		"nvme":        "NVMe SSD",
		"BMP280":      "Environment",
		"mystery-0":   "Sensor",
		"cpu_thermal": "CPU",
	}
	for chip, want := range tests {
		if got := FriendlyName(chip); got != want {
			t.Errorf("FriendlyName(%q) = %q, want %q", chip, got, want)
		}
	}
}
