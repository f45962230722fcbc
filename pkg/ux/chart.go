// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"
)

// seriesColors are assigned to chart series in order, close to the palette
// in output.go.
var seriesColors = []asciigraph.AnsiColor{
	asciigraph.CornflowerBlue,
	asciigraph.Goldenrod,
	asciigraph.MediumSeaGreen,
	asciigraph.LightSkyBlue,
	asciigraph.IndianRed,
}

// ChartSeries is one named line of values, aligned with Chart.Labels.
// NaN, infinite and negative values are missing points and leave a gap.
type ChartSeries struct {
	Name   string
	Values []float64
}

// Chart is a multi-series line plot over labelled points, e.g. elapsed
// time per dataset size.
type Chart struct {
	// Title is printed above the chart.
	Title string

	// Labels name the x positions, e.g. dataset sizes.
	Labels []string

	// Series are drawn in order, each in its own color.
	Series []ChartSeries

	// Unit is appended to printed values and names the y axis.
	Unit string

	// Width is the plot width in cells. Default: 40.
	Width int

	// Height is the plot height in rows. Default: 10.
	Height int

	// Format renders a value in machine mode. Default: %.3g.
	Format func(v float64) string
}

func missing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || v < 0
}

// Render draws the chart.
//
// Description:
//
//	The plot is drawn by asciigraph with the y axis starting at zero.
//	Missing points are gaps in their line. A series with no drawable
//	point is left out of the plot and named under it instead. In machine
//	mode the chart is a plain label/series/value listing with "n/a" for
//	missing points.
func (c Chart) Render() string {
	if GetPersonality().Level == PersonalityMachine {
		return c.listing()
	}

	var b strings.Builder
	if c.Title != "" {
		b.WriteString(Styles.Title.Render(c.Title))
		b.WriteByte('\n')
	}

	var (
		data    [][]float64
		legends []string
		colors  []asciigraph.AnsiColor
		empty   []string
	)
	for j, s := range c.Series {
		values, ok := c.points(s)
		if !ok {
			empty = append(empty, s.Name)
			continue
		}
		data = append(data, values)
		legends = append(legends, s.Name)
		colors = append(colors, seriesColors[j%len(seriesColors)])
	}
	if len(data) == 0 {
		b.WriteString(Styles.Muted.Render("no data"))
	} else {
		opts := []asciigraph.Option{
			asciigraph.Height(c.height()),
			asciigraph.LowerBound(0),
			asciigraph.Caption(c.caption()),
			asciigraph.SeriesLegends(legends...),
		}
		if len(c.Labels) > 1 {
			opts = append(opts, asciigraph.Width(c.width()))
		}
		if ShouldShowColors() {
			opts = append(opts, asciigraph.SeriesColors(colors...))
		}
		b.WriteString(asciigraph.PlotMany(data, opts...))
	}
	b.WriteByte('\n')

	if len(empty) > 0 {
		b.WriteString(Styles.Muted.Render("not measured: " + strings.Join(empty, ", ")))
		b.WriteByte('\n')
	}
	return b.String()
}

// points returns s aligned with Labels, missing points as NaN. ok is false
// when nothing is drawable.
func (c Chart) points(s ChartSeries) (values []float64, ok bool) {
	values = make([]float64, len(c.Labels))
	for i := range values {
		values[i] = math.NaN()
		if i < len(s.Values) && !missing(s.Values[i]) {
			values[i] = s.Values[i]
			ok = true
		}
	}
	return values, ok
}

// caption names the axes: the unit and the first and last labels.
func (c Chart) caption() string {
	if len(c.Labels) == 0 {
		return c.Unit
	}
	span := c.Labels[0]
	if n := len(c.Labels); n > 1 {
		span += " .. " + c.Labels[n-1]
	}
	if c.Unit == "" {
		return span
	}
	return fmt.Sprintf("%s over %s", c.Unit, span)
}

func (c Chart) width() int {
	if c.Width <= 0 {
		return 40
	}
	return c.Width
}

func (c Chart) height() int {
	if c.Height <= 0 {
		return 10
	}
	return c.Height
}

func (c Chart) listing() string {
	format := c.Format
	if format == nil {
		format = func(v float64) string { return fmt.Sprintf("%.3g", v) }
	}
	var b strings.Builder
	for i, label := range c.Labels {
		for _, s := range c.Series {
			text := "n/a"
			if i < len(s.Values) && !missing(s.Values[i]) {
				text = format(s.Values[i]) + c.Unit
			}
			fmt.Fprintf(&b, "%s\t%s\t%s\n", label, s.Name, text)
		}
	}
	return b.String()
}

// PrintChart writes c.Render() to the ux output.
func PrintChart(c Chart) {
	printf("%s", c.Render())
}
