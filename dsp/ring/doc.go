// Package ring provides a fixed-capacity circular history with O(1) writes
// and "current / previous-by-N" reads.
//
// A [History] never grows: each write overwrites the oldest slot. Reads never
// fail; a delay larger than the capacity wraps modulo the capacity, and every
// slot reads as the fill value until it has been written.
package ring
