// Package window generates the tapering windows used before spectral
// analysis of sensor histories.
package window
