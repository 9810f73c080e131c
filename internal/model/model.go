// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model defines the typed scan configuration persisted by the codec.
//
// The types mirror the bundled model-v1.xsd one to one. Attributes with a
// schema default are plain values (see New for the defaults). Optional numeric
// attributes without a default are pointers; optional string attributes are
// plain strings where "" means absent.
//
// Repeated members are slices. A nil and an empty slice are written the same
// way, and a configuration read back from XML always holds nil for members with
// no elements.
package model

// Namespace is the XML namespace qualifying every element of a configuration document.
const Namespace = "http://www.psi.ch/~ebner/models/scan/1.0"

// RootElement is the local name of the document root.
const RootElement = "configuration"

// Configuration is the root of a scan configuration.
type Configuration struct {
	NumberOfExecution int
	FailOnSensorError bool

	Data           *Data
	Description    *string
	Variables      []Variable
	Scan           Scan
	Visualizations []Visualization
}

// Data describes where and how scan data is written.
type Data struct {
	Format   DataFormat
	FileName string
}

// DataFormat is the serialization format of recorded data.
type DataFormat string

// DataFormatTXT is the only format defined by schema v1.
const DataFormatTXT DataFormat = "txt"

// Variable is a named numeric value usable by scan actions.
type Variable struct {
	Name        string
	Value       float64
	Description string
}

// Scan holds the scan body and the actions around it.
type Scan struct {
	Cycles      int
	PreActions  []Action
	Dimensions  []DiscreteStepDimension
	PostActions []Action
}

// DiscreteStepDimension moves one or more positioners step by step and
// reads the detectors at every step.
type DiscreteStepDimension struct {
	Zigzag      bool
	DataGroup   bool
	PreActions  []Action
	Positioners []Positioner
	Actions     []Action
	Guard       *Guard
	Detectors   []Detector
	PostActions []Action
}

// Guard gates a step on channel conditions.
type Guard struct {
	Conditions []GuardCondition
}

// GuardCondition requires a channel to hold a value.
type GuardCondition struct {
	Channel string
	Value   string
	Type    ValueType
}

// ValueType is the type a channel value is interpreted as.
type ValueType string

const (
	ValueTypeString  ValueType = "String"
	ValueTypeInteger ValueType = "Integer"
	ValueTypeDouble  ValueType = "Double"
)

// New returns a configuration with every schema default applied.
func New() *Configuration {
	return &Configuration{
		NumberOfExecution: 1,
		FailOnSensorError: true,
		Scan:              Scan{Cycles: 1},
	}
}

// NewDimension returns a dimension with schema defaults applied.
func NewDimension(positioners ...Positioner) DiscreteStepDimension {
	return DiscreteStepDimension{Positioners: positioners}
}
