// Package sonify turns gait metrics into sound.
//
// Map converts a ground-contact-time balance and a cadence into synthesis
// targets: carrier frequency, FM depth, pan, reverb amount and allpass
// orders. Engine joins the analysis side, which advances a gait.Detector
// one IMU sample per Tick, to the render side, which fills audio blocks in
// Render. The two sides may run on different goroutines; every value that
// crosses between them goes through a smooth.Parameter or an atomic.
package sonify
