package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// SlicerProfile holds the numeric settings gcodelens understands from a
// slicer-exported "key = value" profile (the PrusaSlicer config.ini
// style). Every field is optional; nil means the profile did not carry a
// usable value. Values a profile exports per extruder ("1.75,1.75") do not
// parse as a single number and stay nil.
type SlicerProfile struct {
	NozzleDiameterMM       *float64
	FilamentDiameterMM     *float64
	FilamentDensityGCM3    *float64
	MaxVolumetricSpeedMM3S *float64
	MaxPrintSpeedMMPerS    *float64
	LayerHeightMM          *float64
	FirstLayerHeightMM     *float64
	MaxLayerHeightMM       *float64
	MinLayerHeightMM       *float64
	MaxFanSpeedPct         *float64
}

var reSlicerLine = regexp.MustCompile(`^([^=]+?)\s*=\s*(.*)$`)

// LoadSlicerProfile reads and parses a slicer profile file.
func LoadSlicerProfile(path string) (*SlicerProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadingSlicerProfile, err)
	}
	defer f.Close()
	return ParseSlicerProfile(f)
}

// ParseSlicerProfile parses "key = value" lines from r. Blank lines and
// lines whose first non-space character is '#' are skipped; unknown keys
// are ignored.
func ParseSlicerProfile(r io.Reader) (*SlicerProfile, error) {
	raw := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(strings.TrimLeft(line, " \t"), "#") {
			continue
		}
		m := reSlicerLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		raw[strings.TrimSpace(m[1])] = strings.TrimSpace(m[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadingSlicerProfile, err)
	}

	p := &SlicerProfile{
		NozzleDiameterMM:       slicerFloat(raw, "nozzle_diameter"),
		FilamentDiameterMM:     slicerFloat(raw, "filament_diameter"),
		FilamentDensityGCM3:    slicerFloat(raw, "filament_density"),
		MaxVolumetricSpeedMM3S: slicerFloat(raw, "filament_max_volumetric_speed"),
		MaxPrintSpeedMMPerS:    slicerFloat(raw, "max_print_speed"),
		LayerHeightMM:          slicerFloat(raw, "layer_height"),
		FirstLayerHeightMM:     slicerFloat(raw, "first_layer_height"),
		MaxLayerHeightMM:       slicerFloat(raw, "max_layer_height"),
		MinLayerHeightMM:       slicerFloat(raw, "min_layer_height"),
		MaxFanSpeedPct:         slicerFloat(raw, "max_fan_speed"),
	}
	return p, nil
}

// slicerFloat looks a key up and best-effort parses its value: plain
// numbers, "20%" percentages, quoted numbers, and the nil/none sentinels.
// Anything else yields nil.
func slicerFloat(raw map[string]string, key string) *float64 {
	s, ok := raw[key]
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	switch strings.ToLower(s) {
	case "nil", "none":
		return nil
	}
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	if strings.HasSuffix(s, "%") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ApplySlicerProfile overrides the loaded configuration with the values a
// slicer profile carries, and retains the profile for report context.
// Profile values win over the YAML file: they describe the specific print
// being analyzed.
func (c *Config) ApplySlicerProfile(p *SlicerProfile) {
	if p == nil {
		return
	}
	c.Slicer = p
	if p.FilamentDiameterMM != nil {
		c.Profile.FilamentDiameterMM = *p.FilamentDiameterMM
	}
	if p.FilamentDensityGCM3 != nil {
		c.Profile.FilamentDensityGCM3 = *p.FilamentDensityGCM3
	}
	if p.MaxVolumetricSpeedMM3S != nil {
		c.Limits.MaxFlowMM3PerS = p.MaxVolumetricSpeedMM3S
	}
	if p.MaxPrintSpeedMMPerS != nil {
		c.Limits.MaxSpeedMMPerS = p.MaxPrintSpeedMMPerS
	}
	if p.MinLayerHeightMM != nil {
		c.Limits.MinLayerHeightMM = p.MinLayerHeightMM
	}
	if p.MaxLayerHeightMM != nil {
		c.Limits.MaxLayerHeightMM = p.MaxLayerHeightMM
	}
}
