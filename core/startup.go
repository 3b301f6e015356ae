package core

/*------------------------------------------------------------------
 *
 * Purpose:	Parse a radarkit.conf-style file into a RadarDesc.
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadRadarDesc parses path, a line-oriented text file of
// `KEYWORD value [value...]` lines (blank lines and lines beginning with #
// or * are ignored), into a RadarDesc seeded with DefaultRadarDesc's
// values.
func LoadRadarDesc(path string) (RadarDesc, error) {
	fp, err := os.Open(path)
	if err != nil {
		return RadarDesc{}, fmt.Errorf("radarkit: startup: open %s: %w", path, err)
	}
	defer fp.Close()

	desc := DefaultRadarDesc()

	line := 0
	scanner := bufio.NewScanner(fp)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || text[0] == '#' || text[0] == '*' {
			continue
		}

		fields := strings.Fields(text)
		keyword := fields[0]
		args := fields[1:]
		if err := applyRadarDescKeyword(&desc, keyword, args); err != nil {
			return RadarDesc{}, fmt.Errorf("radarkit: startup: %s line %d: %w", path, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return RadarDesc{}, fmt.Errorf("radarkit: startup: scan %s: %w", path, err)
	}
	return desc, nil
}

func applyRadarDescKeyword(desc *RadarDesc, keyword string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s: missing value", keyword)
	}
	switch {
	case strings.EqualFold(keyword, "NAME"):
		desc.Name = args[0]
	case strings.EqualFold(keyword, "PREFIX"):
		desc.Prefix = args[0]
	case strings.EqualFold(keyword, "PULSEBUFFERDEPTH"):
		return setUint32(&desc.PulseBufferDepth, keyword, args[0])
	case strings.EqualFold(keyword, "POSITIONBUFFERDEPTH"):
		return setUint32(&desc.PositionBufferDepth, keyword, args[0])
	case strings.EqualFold(keyword, "CONFIGBUFFERDEPTH"):
		return setUint32(&desc.ConfigBufferDepth, keyword, args[0])
	case strings.EqualFold(keyword, "RAYBUFFERDEPTH"):
		return setUint32(&desc.RayBufferDepth, keyword, args[0])
	case strings.EqualFold(keyword, "PULSEGATECAPACITY"):
		return setInt(&desc.PulseGateCapacity, keyword, args[0])
	case strings.EqualFold(keyword, "PULSETORAYRATIO"):
		return setInt(&desc.PulseToRayRatio, keyword, args[0])
	case strings.EqualFold(keyword, "COMPRESSORWORKERCOUNT"):
		return setInt(&desc.CompressorWorkerCount, keyword, args[0])
	case strings.EqualFold(keyword, "MOMENTWORKERCOUNT"):
		return setInt(&desc.MomentWorkerCount, keyword, args[0])
	case strings.EqualFold(keyword, "LATITUDE") || strings.EqualFold(keyword, "LAT"):
		return setFloat64(&desc.LatitudeDegrees, keyword, args[0])
	case strings.EqualFold(keyword, "LONGITUDE") || strings.EqualFold(keyword, "LON"):
		return setFloat64(&desc.LongitudeDegrees, keyword, args[0])
	case strings.EqualFold(keyword, "HEADING"):
		return setFloat64(&desc.HeadingDegrees, keyword, args[0])
	case strings.EqualFold(keyword, "HEIGHT"):
		return setFloat64(&desc.HeightMeters, keyword, args[0])
	default:
		// Unrecognized keywords are ignored rather than fatal, so config
		// files written for a newer version still load.
		return nil
	}
	return nil
}

func setUint32(dst *uint32, keyword, raw string) error {
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return fmt.Errorf("%s: %q is not a valid integer", keyword, raw)
	}
	*dst = uint32(v)
	return nil
}

func setInt(dst *int, keyword, raw string) error {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s: %q is not a valid integer", keyword, raw)
	}
	*dst = v
	return nil
}

func setFloat64(dst *float64, keyword, raw string) error {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("%s: %q is not a valid number", keyword, raw)
	}
	*dst = v
	return nil
}
