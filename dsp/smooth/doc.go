// Package smooth provides a one-pole exponential parameter smoother that
// hands a control value from an analysis goroutine to a real-time render
// goroutine.
//
// Exactly one goroutine calls [Parameter.Set] and exactly one goroutine calls
// [Parameter.Advance] and [Parameter.Current]. The target crosses between
// them through an atomic word; the smoothed value is owned by the reader.
// Neither side blocks or allocates.
package smooth
