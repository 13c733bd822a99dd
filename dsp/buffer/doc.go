// Package buffer provides the multi-channel audio block that render stages
// write and mix into, plus a pool for scratch blocks.
//
// A [Block] stores one []float64 per channel. Processors accept either a
// whole Block or raw per-channel slices obtained through [Block.Channel].
package buffer
