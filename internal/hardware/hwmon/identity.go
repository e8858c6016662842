package hwmon

import "strings"

// chipIdentityMap maps chip name prefixes to friendly component names.
var chipIdentityMap = []struct {
	prefix string
	name   string
}{
	{"coretemp", "CPU"},
	{"k10temp", "CPU"},
	{"zenpower", "CPU"},
	{"cpu_thermal", "CPU"},
	{"soc_thermal", "SoC"},
	{"amdgpu", "GPU (AMD)"},
	{"radeon", "GPU (AMD)"},
	{"nouveau", "GPU (NVIDIA)"},
	{"i915", "GPU (Intel)"},
	{"nvme", "NVMe SSD"},
	{"drivetemp", "HDD/SSD"},
	{"iwlwifi", "WiFi"},
	{"ath", "WiFi"},
	{"mt7", "WiFi"},
	{"pch", "PCH (Chipset)"},
	{"acpitz", "ACPI Thermal"},
	{"bme280", "Environment"},
	{"bmp280", "Environment"},
	{"sht3x", "Environment"},
	{"lm75", "Board"},
	{"tmp102", "Board"},
	{"it87", "Motherboard"},
	{"nct", "Motherboard"},
	{"thinkpad", "Laptop EC"},
	{"bat", "Battery"},
}

// FriendlyName returns a human-readable component name for a chip name.
func FriendlyName(chip string) string {
	lower := strings.ToLower(chip)
	for _, entry := range chipIdentityMap {
		if strings.HasPrefix(lower, entry.prefix) {
			return entry.name
		}
	}
	return "Sensor"
}
