// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"fmt"

	"github.com/psi-fda/scanmodel/internal/model"
	"gopkg.in/yaml.v3"
)

// The dump view mirrors the XML structure with the same names, so a dump can be
// compared against the source document by eye. Polymorphic members carry their
// schema type name under "type".

type configView struct {
	NumberOfExecution int              `yaml:"numberOfExecution"`
	FailOnSensorError bool             `yaml:"failOnSensorError"`
	Data              *dataView        `yaml:"data,omitempty"`
	Description       *string          `yaml:"description,omitempty"`
	Variables         []variableView   `yaml:"variables,omitempty"`
	Scan              scanView         `yaml:"scan"`
	Visualizations    []map[string]any `yaml:"visualizations,omitempty"`
}

type dataView struct {
	Format   string `yaml:"format"`
	FileName string `yaml:"fileName,omitempty"`
}

type variableView struct {
	Name        string  `yaml:"name"`
	Value       float64 `yaml:"value"`
	Description string  `yaml:"description,omitempty"`
}

type scanView struct {
	Cycles      int              `yaml:"cycles"`
	PreActions  []map[string]any `yaml:"preActions,omitempty"`
	Dimensions  []dimensionView  `yaml:"dimensions,omitempty"`
	PostActions []map[string]any `yaml:"postActions,omitempty"`
}

type dimensionView struct {
	Zigzag      bool             `yaml:"zigzag"`
	DataGroup   bool             `yaml:"dataGroup"`
	PreActions  []map[string]any `yaml:"preActions,omitempty"`
	Positioners []map[string]any `yaml:"positioners"`
	Actions     []map[string]any `yaml:"actions,omitempty"`
	Guard       []conditionView  `yaml:"guard,omitempty"`
	Detectors   []map[string]any `yaml:"detectors,omitempty"`
	PostActions []map[string]any `yaml:"postActions,omitempty"`
}

type conditionView struct {
	Channel   string `yaml:"channel"`
	Value     string `yaml:"value"`
	ValueType string `yaml:"valueType"`
}

func dumpYAML(cfg *model.Configuration) ([]byte, error) {
	view := configView{
		NumberOfExecution: cfg.NumberOfExecution,
		FailOnSensorError: cfg.FailOnSensorError,
		Description:       cfg.Description,
		Scan: scanView{
			Cycles:      cfg.Scan.Cycles,
			PreActions:  actionViews(cfg.Scan.PreActions),
			PostActions: actionViews(cfg.Scan.PostActions),
		},
	}
	if cfg.Data != nil {
		view.Data = &dataView{Format: string(cfg.Data.Format), FileName: cfg.Data.FileName}
	}
	for _, v := range cfg.Variables {
		view.Variables = append(view.Variables, variableView(v))
	}
	for _, d := range cfg.Scan.Dimensions {
		view.Scan.Dimensions = append(view.Scan.Dimensions, dimensionViewOf(d))
	}
	for _, v := range cfg.Visualizations {
		view.Visualizations = append(view.Visualizations, visualizationView(v))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func dimensionViewOf(d model.DiscreteStepDimension) dimensionView {
	view := dimensionView{
		Zigzag:      d.Zigzag,
		DataGroup:   d.DataGroup,
		PreActions:  actionViews(d.PreActions),
		Actions:     actionViews(d.Actions),
		PostActions: actionViews(d.PostActions),
	}
	if d.Guard != nil {
		for _, c := range d.Guard.Conditions {
			view.Guard = append(view.Guard, conditionView{Channel: c.Channel, Value: c.Value, ValueType: string(c.Type)})
		}
	}
	for _, p := range d.Positioners {
		view.Positioners = append(view.Positioners, positionerView(p))
	}
	for _, det := range d.Detectors {
		view.Detectors = append(view.Detectors, detectorView(det))
	}
	return view
}

func actionViews(actions []model.Action) []map[string]any {
	var out []map[string]any
	for _, action := range actions {
		m := map[string]any{"type": action.ActionType()}
		switch a := action.(type) {
		case *model.ChannelAction:
			m["channel"] = a.Channel
			m["value"] = a.Value
			m["operation"] = string(a.Operation)
			m["valueType"] = string(a.Type)
			if a.Timeout != nil {
				m["timeout"] = *a.Timeout
			}
			if a.Delay != nil {
				m["delay"] = *a.Delay
			}
		case *model.ShellAction:
			m["command"] = a.Command
			m["exitValue"] = a.ExitValue
			m["checkExitValue"] = a.CheckExitValue
		}
		out = append(out, m)
	}
	return out
}

func positionerView(p model.Positioner) map[string]any {
	b := p.Base()
	m := map[string]any{
		"type":         p.PositionerType(),
		"id":           b.ID,
		"name":         b.Name,
		"settlingTime": b.SettlingTime,
		"doneValue":    b.DoneValue,
		"doneDelay":    b.DoneDelay,
		"asynchronous": b.Asynchronous,
	}
	if b.Readback != "" {
		m["readback"] = b.Readback
	}
	if b.Done != "" {
		m["done"] = b.Done
	}
	switch pos := p.(type) {
	case *model.LinearPositioner:
		m["start"] = pos.Start
		m["end"] = pos.End
		m["stepSize"] = pos.StepSize
	case *model.ArrayPositioner:
		m["positions"] = pos.Positions
	}
	return m
}

func detectorView(d model.Detector) map[string]any {
	m := map[string]any{"type": d.DetectorType(), "id": d.DetectorID()}
	switch det := d.(type) {
	case *model.ScalarDetector:
		m["name"] = det.Name
		m["valueType"] = string(det.Type)
	case *model.ArrayDetector:
		m["name"] = det.Name
		m["arraySize"] = det.ArraySize
	}
	return m
}

func visualizationView(v model.Visualization) map[string]any {
	m := map[string]any{"type": v.VisualizationType()}
	if v.PlotTitle() != "" {
		m["title"] = v.PlotTitle()
	}
	switch plot := v.(type) {
	case *model.LinePlot:
		m["x"] = plot.X
		m["y"] = plot.Y
	case *model.MatrixPlot:
		m["x"] = plot.X
		m["y"] = plot.Y
		m["z"] = plot.Z
		m["plotType"] = string(plot.Type)
	}
	return m
}
