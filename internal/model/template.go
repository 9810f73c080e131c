// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// Template returns a configuration that uses every element type of the model.
// It is the starting point written by configgen -template.
func Template() *Configuration {
	description := "Two dimensional sample scan"
	timeout := 10.0
	delay := 0.5

	motorX := NewLinearPositioner("motorX", "X:MOTOR", 0, 10, 0.5)
	motorX.Readback = "X:MOTOR.RBV"
	motorX.Done = "X:MOTOR.DMOV"
	motorX.SettlingTime = 0.1

	motorY := NewArrayPositioner("motorY", "Y:MOTOR", -1.5, 0, 1.5, 3)
	motorY.Asynchronous = true

	inner := NewDimension(motorX)
	inner.Zigzag = true
	inner.Actions = []Action{&ChannelAction{
		Channel:   "DET:TRIGGER",
		Value:     "1",
		Operation: OperationPutq,
		Type:      ValueTypeInteger,
		Delay:     &delay,
	}}
	inner.Guard = &Guard{Conditions: []GuardCondition{
		{Channel: "BEAM:CURRENT:OK", Value: "1", Type: ValueTypeInteger},
	}}
	inner.Detectors = []Detector{
		NewScalarDetector("intensity", "DET:INTENSITY"),
		&ArrayDetector{ID: "spectrum", Name: "DET:SPECTRUM", ArraySize: 1024},
		&Timestamp{ID: "time"},
	}

	outer := NewDimension(motorY)
	outer.DataGroup = true
	outer.PreActions = []Action{NewChannelAction("SHUTTER", "open")}
	outer.Detectors = []Detector{NewScalarDetector("temperature", "SAMPLE:TEMP")}
	outer.PostActions = []Action{NewChannelAction("SHUTTER", "closed")}

	wait := NewChannelAction("BEAM:READY", "1")
	wait.Operation = OperationWait
	wait.Timeout = &timeout

	cleanup := NewShellAction("/usr/local/bin/archive-scan")
	cleanup.ExitValue = 0
	cleanup.CheckExitValue = false

	cfg := New()
	cfg.Data = &Data{Format: DataFormatTXT, FileName: "sample_scan"}
	cfg.Description = &description
	cfg.Variables = []Variable{
		{Name: "energy", Value: 8.9, Description: "Photon energy in keV"},
		{Name: "offset", Value: -0.25},
	}
	cfg.Scan = Scan{
		Cycles:      2,
		PreActions:  []Action{wait},
		Dimensions:  []DiscreteStepDimension{inner, outer},
		PostActions: []Action{cleanup},
	}
	cfg.Visualizations = []Visualization{
		&LinePlot{Title: "Intensity", X: "motorX", Y: []string{"intensity", "temperature"}},
		&MatrixPlot{Title: "Map", X: "motorX", Y: "motorY", Z: "intensity", Type: MatrixPlot2D},
	}
	return cfg
}
