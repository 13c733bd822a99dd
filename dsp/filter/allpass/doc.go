// Package allpass implements a multi-channel, variable-order feedforward/feedback
// allpass filter.
//
// Each channel applies
//
//	y[n] = g*x[n] + x[n-N] - g*y[n-N]
//
// where N is the current order. The order can change while audio is running.
// Delay-line contents are not reconciled on an order change, so a change
// mid-stream produces an audible discontinuity. Callers that need a clean
// switch should crossfade two banks themselves.
package allpass
