package core

/*------------------------------------------------------------------
 *
 * Purpose:	Write a completed Sweep out as a NetCDF classic-format
 *		(CDF-1) file, one file per product. Filenames use
 *		github.com/lestrrat-go/strftime, same as rkfile.go.
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lestrrat-go/strftime"
)

// productSymbol is the single-letter code the filename pattern calls
// <symbol>, and productVarName is the NetCDF variable name for each
// product this repo computes.
var productSymbol = [productCount]string{
	ProductZ: "Z", ProductV: "V", ProductW: "W",
	ProductD: "D", ProductP: "P", ProductR: "R",
	ProductK: "K", ProductS: "S",
}

var productVarName = [productCount]string{
	ProductZ: "Corrected_Reflectivity", ProductV: "Radial_Velocity", ProductW: "Spectrum_Width",
	ProductD: "Differential_Reflectivity", ProductP: "Differential_Phase", ProductR: "Correlation_Coefficient",
	ProductK: "Specific_Differential_Phase", ProductS: "Signal_Power",
}

// cdfMissing and cdfRangeFolded are the sentinel fill values named as
// globals (MissingData, RangeFolded).
const (
	cdfMissing     = float32(-99900)
	cdfRangeFolded = float32(-99901)
)

// SweepFileName formats <dataPath>/moment/YYYYMMDD/<prefix>-YYYYMMDD-HHMMSS-
// {E<elev>|A<az>|N<count>}-<symbol>.nc.
func SweepFileName(dataPath, prefix string, sweep *Sweep, symbol string) (string, error) {
	stamp, err := strftime.Format("%Y%m%d-%H%M%S", sweep.StartTime.Time())
	if err != nil {
		return "", fmt.Errorf("radarkit: sweepfile: strftime: %w", err)
	}
	day, err := strftime.Format("%Y%m%d", sweep.StartTime.Time())
	if err != nil {
		return "", fmt.Errorf("radarkit: sweepfile: strftime day: %w", err)
	}

	var scanTag string
	switch sweep.ScanType {
	case ScanRHI:
		scanTag = fmt.Sprintf("A%03.0f", float64(sweep.Rays[0].Header.StartAzimuth))
	case ScanPPI:
		scanTag = fmt.Sprintf("E%02.0f", float64(sweep.Rays[0].Header.StartElevation))
	default:
		scanTag = fmt.Sprintf("N%03d", len(sweep.Rays))
	}

	name := fmt.Sprintf("%s-%s-%s-%s.nc", prefix, stamp, scanTag, symbol)
	return filepath.Join(dataPath, "moment", day, name), nil
}

// WriteSweepFiles writes one NetCDF file per product the sweep carries,
// returning the paths written.
func WriteSweepFiles(dataPath, prefix string, sweep *Sweep, desc RadarDesc, cfg Config) ([]string, error) {
	if len(sweep.Rays) == 0 {
		return nil, fmt.Errorf("radarkit: sweepfile: empty sweep")
	}
	presence := sweep.Rays[0].Header.Presence

	var paths []string
	for prod := Product(0); prod < productCount; prod++ {
		if !presence.Has(prod) {
			continue
		}
		path, err := SweepFileName(dataPath, prefix, sweep, productSymbol[prod])
		if err != nil {
			return paths, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return paths, fmt.Errorf("radarkit: sweepfile: mkdir: %w", err)
		}
		if err := writeSweepFile(path, sweep, desc, cfg, prod); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// -- CDF-1 classic format encoding. See the public "NetCDF Classic Format
// Specification": magic, numrecs, dim_list, gatt_list, var_list, then each
// fixed-size variable's data laid out in var_list order, each padded to a
// 4-byte boundary.

type cdfDim struct {
	name string
	size int
}

type cdfAttr struct {
	name string
	val  interface{} // string, int32, or float64
}

type cdfVar struct {
	name  string
	dims  []int // indices into the dim list
	attrs []cdfAttr
	data  []float32
}

func writeSweepFile(path string, sweep *Sweep, desc RadarDesc, cfg Config, prod Product) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("radarkit: sweepfile: create %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	rayCount := len(sweep.Rays)
	gateCount := sweep.GateCount

	dims := []cdfDim{
		{"Azimuth", rayCount},
		{"Elevation", rayCount},
		{"Gate", gateCount},
	}
	azDim, elDim, gateDim := 0, 1, 2
	beamDim := azDim
	if sweep.ScanType == ScanRHI {
		beamDim = elDim
	}

	globals := sweepGlobals(sweep, desc, cfg, prod)

	azimuth := make([]float32, rayCount)
	elevation := make([]float32, rayCount)
	beamwidth := make([]float32, rayCount)
	gateWidth := make([]float32, gateCount)
	for i := range gateWidth {
		gateWidth[i] = sweep.GateSizeMeters
	}
	values := make([]float32, rayCount*gateCount)
	for i, ray := range sweep.Rays {
		azimuth[i] = ray.Header.StartAzimuth
		elevation[i] = ray.Header.StartElevation
		beamwidth[i] = ray.Header.EndAzimuth - ray.Header.StartAzimuth
		row := ray.Data[prod]
		for g := 0; g < gateCount; g++ {
			if g < len(row) {
				values[i*gateCount+g] = row[g]
			} else {
				values[i*gateCount+g] = cdfMissing
			}
		}
	}

	vars := []cdfVar{
		{"Azimuth", []int{beamDim}, nil, azimuth},
		{"Elevation", []int{beamDim}, nil, elevation},
		{"Beamwidth", []int{beamDim}, nil, beamwidth},
		{"GateWidth", []int{gateDim}, nil, gateWidth},
		{productVarName[prod], []int{beamDim, gateDim}, nil, values},
	}

	return encodeCDF1(w, dims, globals, vars, func() error { return w.Flush() })
}

func sweepGlobals(sweep *Sweep, desc RadarDesc, cfg Config, prod Product) []cdfAttr {
	return []cdfAttr{
		{"TypeName", productVarName[prod]},
		{"DataType", productSymbol[prod]},
		{"ScanType", scanTypeName(sweep.ScanType)},
		{"Latitude", desc.LatitudeDegrees},
		{"Longitude", desc.LongitudeDegrees},
		{"Heading", desc.HeadingDegrees},
		{"Height", desc.HeightMeters},
		{"Time", int32(sweep.StartTime.Sec)},
		{"FractionalTime", sweep.StartTime.Double - float64(int64(sweep.StartTime.Double))},
		{"Elevation", float64(sweep.Rays[0].Header.StartElevation)},
		{"Azimuth", float64(sweep.Rays[0].Header.StartAzimuth)},
		{"RangeToFirstGate", 0.0},
		{"MissingData", cdfMissing},
		{"RangeFolded", cdfRangeFolded},
		{"Nyquist_Vel-value", 0.0},
		{"radarName-value", desc.Name},
		{"vcp-value", int32(cfg.ScanType)},
		{"Waveform", cfg.WaveformName},
		{"PRF-value", firstOr(cfg.PRFHz, 0)},
		{"PulseWidth-value", 0.0},
		{"MaximumRange-value", float64(sweep.GateCount) * float64(sweep.GateSizeMeters)},
		{"NoiseH-value", cfg.NoiseH},
		{"NoiseV-value", cfg.NoiseV},
		{"CalibH-value", cfg.SystemZCal[ChannelH]},
		{"CalibV-value", cfg.SystemZCal[ChannelV]},
		{"CalibD1-value", 0.0},
		{"CalibP1-value", 0.0},
		{"CensorThreshold-value", cfg.SNRThreshold},
		{"CreatedBy", "RadarKit"},
	}
}

func scanTypeName(s ScanType) string {
	switch s {
	case ScanPPI:
		return "ppi"
	case ScanRHI:
		return "rhi"
	default:
		return "volume"
	}
}

func firstOr(xs []float64, fallback float64) float64 {
	if len(xs) == 0 {
		return fallback
	}
	return xs[0]
}

const (
	cdfNCDimension = 0x0A
	cdfNCVariable  = 0x0B
	cdfNCAttribute = 0x0C
	cdfNCFloat     = 5
	cdfNCChar      = 2
	cdfNCInt       = 4
	cdfNCDouble    = 6
)

func pad4(n int) int { return (4 - n%4) % 4 }

func writeCDFString(w *bufio.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, int32(len(s))); err != nil {
		return err
	}
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	_, err := w.Write(make([]byte, pad4(len(s))))
	return err
}

func writeCDFName(w *bufio.Writer, name string) error { return writeCDFString(w, name) }

func writeCDFAttrs(w *bufio.Writer, attrs []cdfAttr) error {
	if len(attrs) == 0 {
		if err := binary.Write(w, binary.BigEndian, int32(0)); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, int32(0))
	}
	if err := binary.Write(w, binary.BigEndian, int32(cdfNCAttribute)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, int32(len(attrs))); err != nil {
		return err
	}
	for _, a := range attrs {
		if err := writeCDFName(w, a.name); err != nil {
			return err
		}
		switch v := a.val.(type) {
		case string:
			if err := binary.Write(w, binary.BigEndian, int32(cdfNCChar)); err != nil {
				return err
			}
			if err := writeCDFString(w, v); err != nil {
				return err
			}
		case int32:
			if err := binary.Write(w, binary.BigEndian, int32(cdfNCInt)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.BigEndian, int32(1)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.BigEndian, v); err != nil {
				return err
			}
		case float32:
			if err := binary.Write(w, binary.BigEndian, int32(cdfNCFloat)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.BigEndian, int32(1)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.BigEndian, v); err != nil {
				return err
			}
		case float64:
			if err := binary.Write(w, binary.BigEndian, int32(cdfNCDouble)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.BigEndian, int32(1)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.BigEndian, v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("radarkit: sweepfile: unsupported attribute type %T", v)
		}
	}
	return nil
}

// encodeCDF1 writes a minimal CDF-1 classic file: no record variables, every
// listed variable is a fixed-size NC_FLOAT array. flush is called once all
// header and data bytes are queued.
func encodeCDF1(w *bufio.Writer, dims []cdfDim, globals []cdfAttr, vars []cdfVar, flush func() error) error {
	if _, err := w.WriteString("CDF\x01"); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, int32(0)); err != nil { // numrecs
		return err
	}

	if err := binary.Write(w, binary.BigEndian, int32(cdfNCDimension)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, int32(len(dims))); err != nil {
		return err
	}
	for _, d := range dims {
		if err := writeCDFName(w, d.name); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, int32(d.size)); err != nil {
			return err
		}
	}

	if err := writeCDFAttrs(w, globals); err != nil {
		return err
	}

	if err := binary.Write(w, binary.BigEndian, int32(cdfNCVariable)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, int32(len(vars))); err != nil {
		return err
	}

	offsets := make([]int64, len(vars))
	var offset int64
	sizes := make([]int, len(vars))
	for i, v := range vars {
		sizes[i] = len(v.data) * 4
		offsets[i] = offset
		offset += int64(sizes[i] + pad4(sizes[i]))
	}

	for i, v := range vars {
		if err := writeCDFName(w, v.name); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, int32(len(v.dims))); err != nil {
			return err
		}
		for _, d := range v.dims {
			if err := binary.Write(w, binary.BigEndian, int32(d)); err != nil {
				return err
			}
		}
		if err := writeCDFAttrs(w, v.attrs); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, int32(cdfNCFloat)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, int32(sizes[i])); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, int32(offsets[i])); err != nil {
			return err
		}
	}

	for i, v := range vars {
		if err := binary.Write(w, binary.BigEndian, v.data); err != nil {
			return fmt.Errorf("radarkit: sweepfile: write %s data: %w", v.name, err)
		}
		if _, err := w.Write(make([]byte, pad4(sizes[i]))); err != nil {
			return err
		}
	}

	return flush()
}

// CDFDocument is the decoded shape encodeCDF1 produces, used by tests and by
// any downstream reader that wants the raw global attributes and variables
// back without reconstructing a Sweep.
type CDFDocument struct {
	Dims    []cdfDim
	Globals map[string]interface{}
	Vars    map[string][]float32
}

// ReadSweepFile parses a file written by writeSweepFile/encodeCDF1. It
// understands only the subset this package writes: NC_FLOAT fixed-size
// variables, no record dimension.
func ReadSweepFile(path string) (*CDFDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("radarkit: sweepfile: open %s: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	magic := make([]byte, 4)
	if _, err := readFullCDF(r, magic); err != nil {
		return nil, err
	}
	if string(magic[:3]) != "CDF" {
		return nil, fmt.Errorf("radarkit: sweepfile: %s: bad magic", path)
	}

	var numrecs int32
	if err := binary.Read(r, binary.BigEndian, &numrecs); err != nil {
		return nil, err
	}

	dims, err := readCDFDims(r)
	if err != nil {
		return nil, err
	}
	globals, err := readCDFAttrs(r)
	if err != nil {
		return nil, err
	}

	vars, err := readCDFVars(r, dims)
	if err != nil {
		return nil, err
	}

	return &CDFDocument{Dims: dims, Globals: globals, Vars: vars}, nil
}

func readFullCDF(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func readCDFName(r *bufio.Reader) (string, error) {
	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := readFullCDF(r, buf); err != nil {
		return "", err
	}
	skip := make([]byte, pad4(int(n)))
	if _, err := readFullCDF(r, skip); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readCDFDims(r *bufio.Reader) ([]cdfDim, error) {
	var tag, count int32
	if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	dims := make([]cdfDim, count)
	for i := range dims {
		name, err := readCDFName(r)
		if err != nil {
			return nil, err
		}
		var size int32
		if err := binary.Read(r, binary.BigEndian, &size); err != nil {
			return nil, err
		}
		dims[i] = cdfDim{name: name, size: int(size)}
	}
	return dims, nil
}

func readCDFAttrs(r *bufio.Reader) (map[string]interface{}, error) {
	var tag, count int32
	if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	attrs := make(map[string]interface{}, count)
	for i := int32(0); i < count; i++ {
		name, err := readCDFName(r)
		if err != nil {
			return nil, err
		}
		var kind int32
		if err := binary.Read(r, binary.BigEndian, &kind); err != nil {
			return nil, err
		}
		switch kind {
		case cdfNCChar:
			s, err := readCDFName(r)
			if err != nil {
				return nil, err
			}
			attrs[name] = s
		case cdfNCInt:
			var n int32
			var v int32
			binary.Read(r, binary.BigEndian, &n)
			if err := binary.Read(r, binary.BigEndian, &v); err != nil {
				return nil, err
			}
			attrs[name] = v
		case cdfNCFloat:
			var n int32
			var v float32
			binary.Read(r, binary.BigEndian, &n)
			if err := binary.Read(r, binary.BigEndian, &v); err != nil {
				return nil, err
			}
			attrs[name] = v
		case cdfNCDouble:
			var n int32
			var v float64
			binary.Read(r, binary.BigEndian, &n)
			if err := binary.Read(r, binary.BigEndian, &v); err != nil {
				return nil, err
			}
			attrs[name] = v
		default:
			return nil, fmt.Errorf("radarkit: sweepfile: unsupported attribute kind %d", kind)
		}
	}
	return attrs, nil
}

func readCDFVars(r *bufio.Reader, dims []cdfDim) (map[string][]float32, error) {
	var tag, count int32
	if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}

	type pendingVar struct {
		name       string
		shape      []int32
		size, begin int32
	}
	pending := make([]pendingVar, count)
	for i := range pending {
		name, err := readCDFName(r)
		if err != nil {
			return nil, err
		}
		var ndims int32
		if err := binary.Read(r, binary.BigEndian, &ndims); err != nil {
			return nil, err
		}
		shape := make([]int32, ndims)
		if err := binary.Read(r, binary.BigEndian, &shape); err != nil {
			return nil, err
		}
		if _, err := readCDFAttrs(r); err != nil {
			return nil, err
		}
		var kind, size, begin int32
		binary.Read(r, binary.BigEndian, &kind)
		binary.Read(r, binary.BigEndian, &size)
		if err := binary.Read(r, binary.BigEndian, &begin); err != nil {
			return nil, err
		}
		pending[i] = pendingVar{name: name, shape: shape, size: size, begin: begin}
	}

	// Variable data immediately follows the header in var-list order
	// (encodeCDF1 never interleaves data with the header), each padded to a
	// 4-byte boundary.
	vars := make(map[string][]float32, len(pending))
	for _, v := range pending {
		count := int(v.size) / 4
		data := make([]float32, count)
		if err := binary.Read(r, binary.BigEndian, data); err != nil {
			return nil, fmt.Errorf("radarkit: sweepfile: read %s data: %w", v.name, err)
		}
		skip := make([]byte, pad4(int(v.size)))
		if _, err := readFullCDF(r, skip); err != nil {
			return nil, err
		}
		vars[v.name] = data
	}
	return vars, nil
}
