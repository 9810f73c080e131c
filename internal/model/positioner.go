// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// PositionerBase carries the attributes shared by all positioners.
type PositionerBase struct {
	ID           string
	Name         string
	Readback     string
	SettlingTime float64
	Done         string
	DoneValue    string
	DoneDelay    float64
	Asynchronous bool
}

// Positioner moves an axis through a set of positions.
// Implementations: *LinearPositioner, *ArrayPositioner.
type Positioner interface {
	PositionerType() string
	Base() *PositionerBase
}

// LinearPositioner steps from Start to End by StepSize.
type LinearPositioner struct {
	PositionerBase
	Start    float64
	End      float64
	StepSize float64
}

// NewLinearPositioner returns a linear positioner with schema defaults applied.
func NewLinearPositioner(id, name string, start, end, stepSize float64) *LinearPositioner {
	return &LinearPositioner{
		PositionerBase: newPositionerBase(id, name),
		Start:          start,
		End:            end,
		StepSize:       stepSize,
	}
}

func (*LinearPositioner) PositionerType() string   { return "LinearPositioner" }
func (p *LinearPositioner) Base() *PositionerBase { return &p.PositionerBase }

// ArrayPositioner visits an explicit list of positions.
type ArrayPositioner struct {
	PositionerBase
	Positions []float64
}

// NewArrayPositioner returns an array positioner with schema defaults applied.
func NewArrayPositioner(id, name string, positions ...float64) *ArrayPositioner {
	return &ArrayPositioner{
		PositionerBase: newPositionerBase(id, name),
		Positions:      positions,
	}
}

func (*ArrayPositioner) PositionerType() string   { return "ArrayPositioner" }
func (p *ArrayPositioner) Base() *PositionerBase { return &p.PositionerBase }

func newPositionerBase(id, name string) PositionerBase {
	return PositionerBase{ID: id, Name: name, DoneValue: "1"}
}
