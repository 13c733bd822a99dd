package main

import (
	"fmt"
	"io"
	"text/tabwriter"
)

type summary struct {
	capture         string
	mode            string
	samples         int
	durationMs      float64
	events          int
	contacts        int
	balance         float64
	leftMs          float64
	rightMs         float64
	cadence         float64
	spectralCadence float64
	hasSpectral     bool
	blocks          int
	frames          int64
	sanitized       int64
	clampedOrders   int64
	feedSent        uint64
}

func (s *summary) print(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "capture\t%s\n", s.capture)
	fmt.Fprintf(tw, "mode\t%s\n", s.mode)
	fmt.Fprintf(tw, "samples\t%d (%.2f s)\n", s.samples, s.durationMs/1000)
	fmt.Fprintf(tw, "events\t%d\n", s.events)
	fmt.Fprintf(tw, "ground contacts\t%d\n", s.contacts)
	fmt.Fprintf(tw, "balance\t%.3f\n", s.balance)
	fmt.Fprintf(tw, "left / right contact\t%.1f / %.1f ms\n", s.leftMs, s.rightMs)
	fmt.Fprintf(tw, "cadence\t%.1f steps/min\n", s.cadence)
	if s.hasSpectral {
		fmt.Fprintf(tw, "spectral cadence\t%.1f steps/min\n", s.spectralCadence)
	} else {
		fmt.Fprintf(tw, "spectral cadence\tn/a\n")
	}
	fmt.Fprintf(tw, "blocks rendered\t%d\n", s.blocks)
	if s.frames > 0 {
		fmt.Fprintf(tw, "frames written\t%d\n", s.frames)
	}
	if s.sanitized > 0 {
		fmt.Fprintf(tw, "samples sanitized\t%d\n", s.sanitized)
	}
	if s.clampedOrders > 0 {
		fmt.Fprintf(tw, "allpass orders clamped\t%d\n", s.clampedOrders)
	}
	if s.feedSent > 0 {
		fmt.Fprintf(tw, "feed messages\t%d\n", s.feedSent)
	}
}
