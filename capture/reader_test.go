package capture

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/gait-sonify/gait"
)

func header(n int) string {
	var b strings.Builder
	for i := range n {
		b.WriteString("# meta line ")
		b.WriteString(strconv.Itoa(i))
		b.WriteString(",x,y\n")
	}
	return b.String()
}

func row(accel, gyro string) string {
	fields := make([]string, 14)
	for i := range fields {
		fields[i] = "0.0"
	}
	fields[DefaultAccelYColumn] = accel
	fields[DefaultGyroYColumn] = gyro
	return strings.Join(fields, ",") + "\n"
}

func writeCapture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestOpenReadsSamples(t *testing.T) {
	path := writeCapture(t, header(DefaultHeaderLines)+
		row("-0.98", "0.12")+
		row("-1.02", "-0.5")+
		row(" -1.5 ", "3e-2"))

	r, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	samples := ReadAll(r)
	require.Len(t, samples, 3)
	assert.Equal(t, gait.ImuSample{AccelY: -0.98, GyroY: 0.12}, samples[0])
	assert.Equal(t, gait.ImuSample{AccelY: -1.02, GyroY: -0.5}, samples[1])
	assert.Equal(t, gait.ImuSample{AccelY: -1.5, GyroY: 0.03}, samples[2])

	assert.Equal(t, 3, r.Rows())
	assert.True(t, r.Done())
	assert.NoError(t, r.Err())

	_, ok := r.Next()
	assert.False(t, ok)
}

func TestBlankFieldEndsStream(t *testing.T) {
	path := writeCapture(t, header(DefaultHeaderLines)+
		row("-1", "0")+
		row("", "0")+
		row("-1", "0"))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Len(t, ReadAll(r), 1)
	assert.NoError(t, r.Err())
}

func TestMalformedRowEndsStreamWithError(t *testing.T) {
	tests := []struct {
		name string
		bad  string
	}{
		{name: "unparseable accel", bad: row("abc", "0")},
		{name: "unparseable gyro", bad: row("-1", "fast")},
		{name: "short row", bad: "1,2,3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(strings.NewReader(row("-1", "0") + tt.bad + row("-1", "0")), WithHeaderLines(0))
			require.NoError(t, err)

			assert.Len(t, ReadAll(r), 1)
			require.Error(t, r.Err())
			assert.Contains(t, r.Err().Error(), "row 2")
		})
	}
}

func TestNoData(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "header only", content: header(DefaultHeaderLines)},
		{name: "short header", content: header(10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(writeCapture(t, tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNoData), "err = %v", err)
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "capture: open")
}

func TestOptions(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), WithHeaderLines(-1))
	require.Error(t, err)

	_, err = NewReader(strings.NewReader(""), WithColumns(-1, 2))
	require.Error(t, err)

	r, err := NewReader(strings.NewReader("h\n1.5,2.5\n"), WithHeaderLines(1), WithColumns(1, 0))
	require.NoError(t, err)

	s, ok := r.Next()
	require.True(t, ok)
	assert.Equal(t, gait.ImuSample{AccelY: 2.5, GyroY: 1.5}, s)
	assert.NoError(t, r.Close())
}

func TestReaderDrivesDetector(t *testing.T) {
	var b strings.Builder
	for range 600 {
		b.WriteString(row("-1", "0.1"))
	}

	r, err := NewReader(strings.NewReader(b.String()), WithHeaderLines(0))
	require.NoError(t, err)

	d, err := gait.NewDetector()
	require.NoError(t, err)

	for d.ProcessNext(r) {
	}

	assert.True(t, d.Done())
	assert.Equal(t, 600, d.ElapsedSamples())
	assert.Empty(t, d.Events())
}
