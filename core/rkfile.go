package core

/*------------------------------------------------------------------
 *
 * Purpose:	Raw-pulse file codec: a fixed FileHeader followed by a
 *		stream of PulseHeader + interleaved H/V I/Q records.
 *		Companion filenames use github.com/lestrrat-go/strftime
 *		against the file's start time.
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/lestrrat-go/strftime"
)

// RawPulseDataType distinguishes a raw-pulse file captured before or after
// matched filtering.
type RawPulseDataType uint8

const (
	RawFromTransceiver RawPulseDataType = iota
	AfterMatchedFilter
)

// RawFileHeader is the fixed header at the start of every raw-pulse file:
// a RadarDesc, a baseline Config and a data type.
type RawFileHeader struct {
	Desc     RadarDesc
	Baseline Config
	DataType RawPulseDataType
}

// rawFileNamePattern derives a companion filename's timestamp portion; a
// consistent stamp keeps the raw file alongside its sweep products on disk.
const rawFileNamePattern = "%Y%m%d-%H%M%S"

// RawFileName formats prefix-YYYYMMDD-HHMMSS.rkr for t, the capture's start
// time.
func RawFileName(prefix string, t WallTime) (string, error) {
	stamp, err := strftime.Format(rawFileNamePattern, t.Time())
	if err != nil {
		return "", fmt.Errorf("radarkit: rkfile: strftime: %w", err)
	}
	return fmt.Sprintf("%s-%s.rkr", prefix, stamp), nil
}

// RawFileWriter appends PulseHeader+I/Q records to a raw-pulse file, after
// writing the FileHeader exactly once.
type RawFileWriter struct {
	w           *bufio.Writer
	f           *os.File
	wroteHeader bool
}

// CreateRawFile creates path and writes header immediately.
func CreateRawFile(path string, header RawFileHeader) (*RawFileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("radarkit: rkfile: create %s: %w", path, err)
	}
	rw := &RawFileWriter{w: bufio.NewWriter(f), f: f}
	if err := rw.writeHeader(header); err != nil {
		f.Close()
		return nil, err
	}
	return rw, nil
}

func (rw *RawFileWriter) writeHeader(header RawFileHeader) error {
	if err := writeRadarDesc(rw.w, header.Desc); err != nil {
		return err
	}
	if err := writeConfig(rw.w, header.Baseline); err != nil {
		return err
	}
	if err := binary.Write(rw.w, binary.LittleEndian, header.DataType); err != nil {
		return fmt.Errorf("radarkit: rkfile: write data type: %w", err)
	}
	rw.wroteHeader = true
	return nil
}

// WritePulse appends one record: PulseHeader followed by
// 2×downSampledGateCount interleaved I/Q complex floats, channel H then V.
func (rw *RawFileWriter) WritePulse(p *Pulse, downSampledGateCount int) error {
	if !rw.wroteHeader {
		return fmt.Errorf("radarkit: rkfile: write pulse before header")
	}
	if err := binary.Write(rw.w, binary.LittleEndian, p.Header.fixed()); err != nil {
		return fmt.Errorf("radarkit: rkfile: write pulse header: %w", err)
	}
	if downSampledGateCount > len(p.Samples[ChannelH]) {
		downSampledGateCount = len(p.Samples[ChannelH])
	}
	if err := binary.Write(rw.w, binary.LittleEndian, p.Samples[ChannelH][:downSampledGateCount]); err != nil {
		return fmt.Errorf("radarkit: rkfile: write channel H: %w", err)
	}
	if err := binary.Write(rw.w, binary.LittleEndian, p.Samples[ChannelV][:downSampledGateCount]); err != nil {
		return fmt.Errorf("radarkit: rkfile: write channel V: %w", err)
	}
	return nil
}

// Close flushes any buffered bytes and closes the underlying file.
func (rw *RawFileWriter) Close() error {
	if err := rw.w.Flush(); err != nil {
		rw.f.Close()
		return fmt.Errorf("radarkit: rkfile: flush: %w", err)
	}
	return rw.f.Close()
}

// RawFileReader reads back a file written by RawFileWriter.
type RawFileReader struct {
	r      *bufio.Reader
	f      *os.File
	Header RawFileHeader
}

// OpenRawFile opens path and parses its FileHeader.
func OpenRawFile(path string) (*RawFileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("radarkit: rkfile: open %s: %w", path, err)
	}
	rr := &RawFileReader{r: bufio.NewReader(f), f: f}
	desc, err := readRadarDesc(rr.r)
	if err != nil {
		f.Close()
		return nil, err
	}
	rr.Header.Desc = desc
	cfg, err := readConfig(rr.r)
	if err != nil {
		f.Close()
		return nil, err
	}
	rr.Header.Baseline = cfg
	if err := binary.Read(rr.r, binary.LittleEndian, &rr.Header.DataType); err != nil {
		f.Close()
		return nil, fmt.Errorf("radarkit: rkfile: read data type: %w", err)
	}
	return rr, nil
}

// ReadPulse reads the next record into dst, whose sample arrays must
// already be sized to at least the encoded gate count. Returns io.EOF at
// end of stream; any trailing bytes that do not form a full record are
// reported as a wrapped error, leaving the caller to decide whether to
// treat it as fatal or as a warning.
func (rr *RawFileReader) ReadPulse(dst *Pulse) (int, error) {
	var hfixed pulseHeaderFixed
	if err := binary.Read(rr.r, binary.LittleEndian, &hfixed); err != nil {
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("radarkit: rkfile: trailing bytes: %w", err)
	}
	dst.Header = hfixed.toHeader()
	gateCount := int(dst.Header.GateCount)
	if gateCount > len(dst.Samples[ChannelH]) {
		gateCount = len(dst.Samples[ChannelH])
	}
	if err := binary.Read(rr.r, binary.LittleEndian, dst.Samples[ChannelH][:gateCount]); err != nil {
		return 0, fmt.Errorf("radarkit: rkfile: read channel H: %w", err)
	}
	if err := binary.Read(rr.r, binary.LittleEndian, dst.Samples[ChannelV][:gateCount]); err != nil {
		return 0, fmt.Errorf("radarkit: rkfile: read channel V: %w", err)
	}
	return gateCount, nil
}

// Close closes the underlying file.
func (rr *RawFileReader) Close() error { return rr.f.Close() }

// -- fixed-layout mirrors for binary.Write/Read, which requires every field
// to be a fixed-size type (no strings, slices, or maps).

type pulseHeaderFixed struct {
	Status           PulseStatus
	ID               uint32
	Tic              uint64
	TimeSec          uint32
	TimeUSec         uint32
	TimeDouble       float64
	ConfigIndex      uint32
	GateCount        uint16
	GateSizeMeters   float32
	AzimuthDegrees   float32
	ElevationDegrees float32
	Marker           Marker
	ScanType         ScanType
	PRFHz            float32
}

func (h PulseHeader) fixed() pulseHeaderFixed {
	return pulseHeaderFixed{
		Status: h.Status, ID: h.ID, Tic: h.Tic,
		TimeSec: h.Time.Sec, TimeUSec: h.Time.USec, TimeDouble: h.Time.Double,
		ConfigIndex: h.ConfigIndex, GateCount: h.GateCount, GateSizeMeters: h.GateSizeMeters,
		AzimuthDegrees: h.AzimuthDegrees, ElevationDegrees: h.ElevationDegrees,
		Marker: h.Marker, ScanType: h.ScanType, PRFHz: h.PRFHz,
	}
}

func (f pulseHeaderFixed) toHeader() PulseHeader {
	return PulseHeader{
		Status: f.Status, ID: f.ID, Tic: f.Tic,
		Time:        WallTime{Sec: f.TimeSec, USec: f.TimeUSec, Double: f.TimeDouble},
		ConfigIndex: f.ConfigIndex, GateCount: f.GateCount, GateSizeMeters: f.GateSizeMeters,
		AzimuthDegrees: f.AzimuthDegrees, ElevationDegrees: f.ElevationDegrees,
		Marker: f.Marker, ScanType: f.ScanType, PRFHz: f.PRFHz,
	}
}

// radarDescFixed mirrors RadarDesc without its Name/Prefix strings, which are
// written/read as length-prefixed byte runs immediately after.
type radarDescFixed struct {
	NameLength, PrefixLength uint16

	PulseBufferDepth      uint32
	PositionBufferDepth   uint32
	ConfigBufferDepth     uint32
	RayBufferDepth        uint32
	PulseGateCapacity     int64
	PulseToRayRatio       int64
	CompressorWorkerCount int64
	MomentWorkerCount     int64
	LatitudeDegrees       float64
	LongitudeDegrees      float64
	HeadingDegrees        float64
	HeightMeters          float64
}

func writeRadarDesc(w io.Writer, d RadarDesc) error {
	fixed := radarDescFixed{
		NameLength: uint16(len(d.Name)), PrefixLength: uint16(len(d.Prefix)),
		PulseBufferDepth: d.PulseBufferDepth, PositionBufferDepth: d.PositionBufferDepth,
		ConfigBufferDepth: d.ConfigBufferDepth, RayBufferDepth: d.RayBufferDepth,
		PulseGateCapacity: int64(d.PulseGateCapacity), PulseToRayRatio: int64(d.PulseToRayRatio),
		CompressorWorkerCount: int64(d.CompressorWorkerCount), MomentWorkerCount: int64(d.MomentWorkerCount),
		LatitudeDegrees: d.LatitudeDegrees, LongitudeDegrees: d.LongitudeDegrees,
		HeadingDegrees: d.HeadingDegrees, HeightMeters: d.HeightMeters,
	}
	if err := binary.Write(w, binary.LittleEndian, fixed); err != nil {
		return fmt.Errorf("radarkit: rkfile: write desc: %w", err)
	}
	if _, err := io.WriteString(w, d.Name); err != nil {
		return fmt.Errorf("radarkit: rkfile: write desc name: %w", err)
	}
	if _, err := io.WriteString(w, d.Prefix); err != nil {
		return fmt.Errorf("radarkit: rkfile: write desc prefix: %w", err)
	}
	return nil
}

func readRadarDesc(r io.Reader) (RadarDesc, error) {
	var fixed radarDescFixed
	if err := binary.Read(r, binary.LittleEndian, &fixed); err != nil {
		return RadarDesc{}, fmt.Errorf("radarkit: rkfile: read desc: %w", err)
	}
	name := make([]byte, fixed.NameLength)
	if _, err := io.ReadFull(r, name); err != nil {
		return RadarDesc{}, fmt.Errorf("radarkit: rkfile: read desc name: %w", err)
	}
	prefix := make([]byte, fixed.PrefixLength)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return RadarDesc{}, fmt.Errorf("radarkit: rkfile: read desc prefix: %w", err)
	}
	return RadarDesc{
		Name: string(name), Prefix: string(prefix),
		PulseBufferDepth: fixed.PulseBufferDepth, PositionBufferDepth: fixed.PositionBufferDepth,
		ConfigBufferDepth: fixed.ConfigBufferDepth, RayBufferDepth: fixed.RayBufferDepth,
		PulseGateCapacity: int(fixed.PulseGateCapacity), PulseToRayRatio: int(fixed.PulseToRayRatio),
		CompressorWorkerCount: int(fixed.CompressorWorkerCount), MomentWorkerCount: int(fixed.MomentWorkerCount),
		LatitudeDegrees: fixed.LatitudeDegrees, LongitudeDegrees: fixed.LongitudeDegrees,
		HeadingDegrees: fixed.HeadingDegrees, HeightMeters: fixed.HeightMeters,
	}, nil
}

// configFixed mirrors Config without its variable-length slices, which are
// written/read as a length-prefixed stream immediately after.
type configFixed struct {
	ID                    uint32
	SPRT                  float64
	NoiseH, NoiseV        float64
	SystemZCal            [2]float64
	SNRThreshold          float64
	SQIThreshold          float64
	SweepAzimuthDegrees   float64
	SweepElevationDegrees float64
	ScanType              ScanType
	PulseToRayRatio       int64
	GateSizeMeters        float64
	StartMarker           Marker
	WaveformNameLength    uint16
	PRFCount              uint16
	FilterCalCount        uint16
}

func writeConfig(w io.Writer, cfg Config) error {
	fixed := configFixed{
		ID: cfg.ID, SPRT: cfg.SPRT, NoiseH: cfg.NoiseH, NoiseV: cfg.NoiseV,
		SystemZCal: cfg.SystemZCal, SNRThreshold: cfg.SNRThreshold, SQIThreshold: cfg.SQIThreshold,
		SweepAzimuthDegrees: cfg.SweepAzimuthDegrees, SweepElevationDegrees: cfg.SweepElevationDegrees,
		ScanType: cfg.ScanType, PulseToRayRatio: int64(cfg.PulseToRayRatio), GateSizeMeters: cfg.GateSizeMeters,
		StartMarker: cfg.StartMarker, WaveformNameLength: uint16(len(cfg.WaveformName)),
		PRFCount: uint16(len(cfg.PRFHz)), FilterCalCount: uint16(len(cfg.FilterCal)),
	}
	if err := binary.Write(w, binary.LittleEndian, fixed); err != nil {
		return fmt.Errorf("radarkit: rkfile: write config: %w", err)
	}
	if _, err := io.WriteString(w, cfg.WaveformName); err != nil {
		return fmt.Errorf("radarkit: rkfile: write waveform name: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, cfg.PRFHz); err != nil {
		return fmt.Errorf("radarkit: rkfile: write prf: %w", err)
	}
	for _, cal := range cfg.FilterCal {
		if err := binary.Write(w, binary.LittleEndian, cal); err != nil {
			return fmt.Errorf("radarkit: rkfile: write filter cal: %w", err)
		}
	}
	return nil
}

func readConfig(r io.Reader) (Config, error) {
	var fixed configFixed
	if err := binary.Read(r, binary.LittleEndian, &fixed); err != nil {
		return Config{}, fmt.Errorf("radarkit: rkfile: read config: %w", err)
	}
	name := make([]byte, fixed.WaveformNameLength)
	if _, err := io.ReadFull(r, name); err != nil {
		return Config{}, fmt.Errorf("radarkit: rkfile: read waveform name: %w", err)
	}
	prf := make([]float64, fixed.PRFCount)
	if err := binary.Read(r, binary.LittleEndian, prf); err != nil {
		return Config{}, fmt.Errorf("radarkit: rkfile: read prf: %w", err)
	}
	cal := make([]FilterCalibration, fixed.FilterCalCount)
	for i := range cal {
		if err := binary.Read(r, binary.LittleEndian, &cal[i]); err != nil {
			return Config{}, fmt.Errorf("radarkit: rkfile: read filter cal %d: %w", i, err)
		}
	}
	return Config{
		ID: fixed.ID, PRFHz: prf, SPRT: fixed.SPRT, WaveformName: string(name),
		NoiseH: fixed.NoiseH, NoiseV: fixed.NoiseV, SystemZCal: fixed.SystemZCal, FilterCal: cal,
		SNRThreshold: fixed.SNRThreshold, SQIThreshold: fixed.SQIThreshold,
		SweepAzimuthDegrees: fixed.SweepAzimuthDegrees, SweepElevationDegrees: fixed.SweepElevationDegrees,
		ScanType: fixed.ScanType, PulseToRayRatio: int(fixed.PulseToRayRatio), GateSizeMeters: fixed.GateSizeMeters,
		StartMarker: fixed.StartMarker,
	}, nil
}
