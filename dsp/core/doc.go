// Package core holds the small numeric helpers and processing configuration
// shared by every stage of the gait sonification pipeline.
package core
