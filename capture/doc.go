// Package capture reads recorded IMU captures and feeds them to the gait
// detector one sample at a time.
//
// A capture is a comma-separated text file: a fixed-length metadata header
// followed by one row per sample. The reader takes the trunk vertical
// acceleration and the trunk vertical angular rate from configurable
// columns. A blank or unparseable field, a short row, or the end of the
// file ends the stream.
package capture
