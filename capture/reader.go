package capture

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/gait-sonify/gait"
)

const (
	// DefaultHeaderLines is the length of the metadata header written by the
	// capture device.
	DefaultHeaderLines = 215
	// DefaultAccelYColumn is the zero-based trunk accelY column.
	DefaultAccelYColumn = 5
	// DefaultGyroYColumn is the zero-based trunk gyroY column.
	DefaultGyroYColumn = 11
)

// ErrNoData is returned when a capture holds no data rows after its header.
var ErrNoData = errors.New("capture: no data rows")

// Option mutates reader construction parameters.
type Option func(*config) error

type config struct {
	headerLines int
	accelColumn int
	gyroColumn  int
}

func defaultConfig() config {
	return config{
		headerLines: DefaultHeaderLines,
		accelColumn: DefaultAccelYColumn,
		gyroColumn:  DefaultGyroYColumn,
	}
}

// WithHeaderLines sets how many lines precede the first data row.
func WithHeaderLines(n int) Option {
	return func(cfg *config) error {
		if n < 0 {
			return fmt.Errorf("capture header lines must be >= 0: %d", n)
		}

		cfg.headerLines = n

		return nil
	}
}

// WithColumns sets the zero-based accelY and gyroY columns.
func WithColumns(accel, gyro int) Option {
	return func(cfg *config) error {
		if accel < 0 || gyro < 0 {
			return fmt.Errorf("capture columns must be >= 0: accel=%d gyro=%d", accel, gyro)
		}

		cfg.accelColumn = accel
		cfg.gyroColumn = gyro

		return nil
	}
}

// Reader is a gait.Source over a capture stream.
type Reader struct {
	cfg    config
	csv    *csv.Reader
	closer io.Closer

	pending []string
	rows    int
	done    bool
	err     error
}

var _ gait.Source = (*Reader)(nil)

// Open opens the capture at path. The caller must Close the reader.
func Open(path string, opts ...Option) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("capture: open %s: %w", path, err)
	}

	r, err := newReader(f, f, opts...)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("capture: %s: %w", path, err)
	}

	return r, nil
}

// NewReader reads a capture from src. It skips the header and fails with
// ErrNoData when no data row follows.
func NewReader(src io.Reader, opts ...Option) (*Reader, error) {
	var closer io.Closer
	if c, ok := src.(io.Closer); ok {
		closer = c
	}

	return newReader(src, closer, opts...)
}

func newReader(src io.Reader, closer io.Closer, opts ...Option) (*Reader, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	br := bufio.NewReader(src)
	for range cfg.headerLines {
		if _, err := br.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrNoData
			}

			return nil, fmt.Errorf("capture: read header: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	r := &Reader{cfg: cfg, csv: cr, closer: closer}

	first, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoData
		}

		return nil, fmt.Errorf("capture: read first row: %w", err)
	}
	r.pending = append([]string(nil), first...)

	return r, nil
}

// Next returns the next sample. It returns false once the stream has ended;
// Err reports whether it ended on a malformed row.
func (r *Reader) Next() (gait.ImuSample, bool) {
	if r.done {
		return gait.ImuSample{}, false
	}

	record := r.pending
	r.pending = nil
	if record == nil {
		var err error
		record, err = r.csv.Read()
		if err != nil {
			r.finish(err)
			return gait.ImuSample{}, false
		}
	}

	sample, err := r.parse(record)
	if err != nil {
		r.finish(err)
		return gait.ImuSample{}, false
	}

	r.rows++

	return sample, true
}

func (r *Reader) parse(record []string) (gait.ImuSample, error) {
	accel, err := field(record, r.cfg.accelColumn)
	if err != nil {
		return gait.ImuSample{}, fmt.Errorf("capture: row %d accelY: %w", r.rows+1, err)
	}

	gyro, err := field(record, r.cfg.gyroColumn)
	if err != nil {
		return gait.ImuSample{}, fmt.Errorf("capture: row %d gyroY: %w", r.rows+1, err)
	}

	return gait.ImuSample{AccelY: accel, GyroY: gyro}, nil
}

var errBlankField = errors.New("blank field")

func field(record []string, col int) (float64, error) {
	if col >= len(record) {
		return 0, fmt.Errorf("missing column %d of %d", col, len(record))
	}

	s := strings.TrimSpace(record[col])
	if s == "" {
		return 0, errBlankField
	}

	return strconv.ParseFloat(s, 64)
}

func (r *Reader) finish(err error) {
	r.done = true
	// A blank field marks the end of recorded data.
	if errors.Is(err, io.EOF) || errors.Is(err, errBlankField) {
		return
	}

	r.err = err
}

// Rows returns the number of samples returned so far.
func (r *Reader) Rows() int { return r.rows }

// Done reports whether the stream has ended.
func (r *Reader) Done() bool { return r.done }

// Err returns the error that ended the stream early, or nil when it ended
// at the end of data.
func (r *Reader) Err() error { return r.err }

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	r.done = true
	if r.closer == nil {
		return nil
	}

	c := r.closer
	r.closer = nil

	return c.Close()
}

// ReadAll drains src into a slice of samples.
func ReadAll(src gait.Source) []gait.ImuSample {
	var out []gait.ImuSample
	for {
		s, ok := src.Next()
		if !ok {
			return out
		}
		out = append(out, s)
	}
}
