// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// Visualization describes a live plot of scan data.
// Implementations: *LinePlot, *MatrixPlot.
type Visualization interface {
	VisualizationType() string
	PlotTitle() string
}

// LinePlot plots one or more Y ids against the X id.
type LinePlot struct {
	Title string
	X     string
	Y     []string
}

func (*LinePlot) VisualizationType() string { return "LinePlot" }
func (p *LinePlot) PlotTitle() string       { return p.Title }

// MatrixPlotType selects the matrix rendering.
type MatrixPlotType string

const (
	MatrixPlot2D MatrixPlotType = "2D"
	MatrixPlot3D MatrixPlotType = "3D"
)

// MatrixPlot plots Z over the X/Y grid.
type MatrixPlot struct {
	Title string
	X     string
	Y     string
	Z     string
	Type  MatrixPlotType
}

func (*MatrixPlot) VisualizationType() string { return "MatrixPlot" }
func (p *MatrixPlot) PlotTitle() string       { return p.Title }
