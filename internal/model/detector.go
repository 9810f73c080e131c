// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// Detector is read at every step of a dimension.
// Implementations: *ScalarDetector, *ArrayDetector, *Timestamp.
type Detector interface {
	DetectorType() string
	DetectorID() string
}

// ScalarDetector reads a single value from a channel.
type ScalarDetector struct {
	ID   string
	Name string
	Type ValueType
}

// NewScalarDetector returns a scalar detector reading doubles.
func NewScalarDetector(id, name string) *ScalarDetector {
	return &ScalarDetector{ID: id, Name: name, Type: ValueTypeDouble}
}

func (*ScalarDetector) DetectorType() string { return "ScalarDetector" }
func (d *ScalarDetector) DetectorID() string { return d.ID }

// ArrayDetector reads a waveform of ArraySize elements.
type ArrayDetector struct {
	ID        string
	Name      string
	ArraySize int
}

func (*ArrayDetector) DetectorType() string { return "ArrayDetector" }
func (d *ArrayDetector) DetectorID() string { return d.ID }

// Timestamp records the time of each step.
type Timestamp struct {
	ID string
}

func (*Timestamp) DetectorType() string { return "Timestamp" }
func (d *Timestamp) DetectorID() string { return d.ID }
