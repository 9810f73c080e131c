// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package codec

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/psi-fda/scanmodel/internal/model"
)

const xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// invalidTextError reports model text that XML cannot represent, or that would
// not read back unchanged.
type invalidTextError struct {
	field  string
	reason string
}

func (e *invalidTextError) Error() string {
	reason := e.reason
	if reason == "" {
		reason = "contains characters not allowed in XML"
	}
	return e.field + " " + reason
}

// encoder writes a configuration element by element. The first error sticks and
// turns every later call into a no-op.
type encoder struct {
	enc *xml.Encoder
	err error
}

// encode renders cfg as an indented, namespace-qualified document.
func encode(cfg *model.Configuration) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	e := &encoder{enc: xml.NewEncoder(&buf)}
	e.enc.Indent("", "  ")

	e.configuration(cfg)
	if e.err != nil {
		return nil, e.err
	}
	if err := e.enc.Close(); err != nil {
		return nil, fmt.Errorf("flush xml encoder: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func (e *encoder) start(name string, attrs attrList) {
	if e.err != nil {
		return
	}
	if attrs.err != nil {
		e.err = attrs.err
		return
	}
	e.err = e.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs.list})
}

func (e *encoder) end(name string) {
	if e.err != nil {
		return
	}
	e.err = e.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

func (e *encoder) empty(name string, attrs attrList) {
	e.start(name, attrs)
	e.end(name)
}

func (e *encoder) text(name, field, value string) {
	if e.err != nil {
		return
	}
	if !isXMLText(value) {
		e.err = &invalidTextError{field: field}
		return
	}
	e.start(name, attrList{})
	if e.err == nil {
		e.err = e.enc.EncodeToken(xml.CharData(value))
	}
	e.end(name)
}

func (e *encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *encoder) configuration(cfg *model.Configuration) {
	var a attrList
	a.str("xmlns", model.Namespace)
	a.str("xmlns:xsi", xsiNamespace)
	a.integer("numberOfExecution", cfg.NumberOfExecution)
	a.boolean("failOnSensorError", cfg.FailOnSensorError)
	e.start(model.RootElement, a)

	if cfg.Data != nil {
		var da attrList
		da.str("format", string(cfg.Data.Format))
		da.optStr("fileName", cfg.Data.FileName)
		e.empty("data", da)
	}
	if cfg.Description != nil {
		e.text("description", "description", *cfg.Description)
	}
	for _, v := range cfg.Variables {
		var va attrList
		va.token("name", v.Name)
		va.double("value", v.Value)
		va.optStr("description", v.Description)
		e.empty("variable", va)
	}
	e.scan(cfg.Scan)
	for _, v := range cfg.Visualizations {
		e.visualization(v)
	}

	e.end(model.RootElement)
}

func (e *encoder) scan(s model.Scan) {
	var a attrList
	a.integer("cycles", s.Cycles)
	e.start("scan", a)
	e.actions("preAction", s.PreActions)
	for _, d := range s.Dimensions {
		e.dimension(d)
	}
	e.actions("postAction", s.PostActions)
	e.end("scan")
}

func (e *encoder) dimension(d model.DiscreteStepDimension) {
	var a attrList
	a.boolean("zigzag", d.Zigzag)
	a.boolean("dataGroup", d.DataGroup)
	e.start("dimension", a)

	e.actions("preAction", d.PreActions)
	for _, p := range d.Positioners {
		e.positioner(p)
	}
	e.actions("action", d.Actions)
	if d.Guard != nil {
		e.start("guard", attrList{})
		for _, c := range d.Guard.Conditions {
			var ca attrList
			ca.str("channel", c.Channel)
			ca.str("value", c.Value)
			ca.str("type", string(c.Type))
			e.empty("condition", ca)
		}
		e.end("guard")
	}
	for _, det := range d.Detectors {
		e.detector(det)
	}
	e.actions("postAction", d.PostActions)

	e.end("dimension")
}

func (e *encoder) actions(name string, actions []model.Action) {
	for _, action := range actions {
		var a attrList
		switch act := action.(type) {
		case *model.ChannelAction:
			if act == nil {
				e.fail(fmt.Errorf("encode %s: nil %T", name, action))
				return
			}
			a.xsiType(act.ActionType())
			a.str("channel", act.Channel)
			a.str("value", act.Value)
			a.str("operation", string(act.Operation))
			a.str("type", string(act.Type))
			a.optDouble("timeout", act.Timeout)
			a.optDouble("delay", act.Delay)
		case *model.ShellAction:
			if act == nil {
				e.fail(fmt.Errorf("encode %s: nil %T", name, action))
				return
			}
			a.xsiType(act.ActionType())
			a.str("command", act.Command)
			a.integer("exitValue", act.ExitValue)
			a.boolean("checkExitValue", act.CheckExitValue)
		default:
			e.fail(fmt.Errorf("encode %s: unsupported action %T", name, action))
			return
		}
		e.empty(name, a)
	}
}

func (e *encoder) positioner(p model.Positioner) {
	switch pos := p.(type) {
	case *model.LinearPositioner:
		if pos == nil {
			break
		}
		e.start("positioner", positionerAttrs(p))
		e.text("start", "positioner start", formatDouble(pos.Start))
		e.text("end", "positioner end", formatDouble(pos.End))
		e.text("stepSize", "positioner stepSize", formatDouble(pos.StepSize))
		e.end("positioner")
		return
	case *model.ArrayPositioner:
		if pos == nil {
			break
		}
		values := make([]string, len(pos.Positions))
		for i, v := range pos.Positions {
			values[i] = formatDouble(v)
		}
		e.start("positioner", positionerAttrs(p))
		e.text("positions", "positioner positions", strings.Join(values, " "))
		e.end("positioner")
		return
	}
	e.fail(fmt.Errorf("encode positioner: unsupported positioner %T", p))
}

// positionerAttrs renders the shared attributes of a non-nil positioner.
func positionerAttrs(p model.Positioner) attrList {
	b := p.Base()
	var a attrList
	a.xsiType(p.PositionerType())
	a.token("id", b.ID)
	a.str("name", b.Name)
	a.optStr("readback", b.Readback)
	a.double("settlingTime", b.SettlingTime)
	a.optStr("done", b.Done)
	a.str("doneValue", b.DoneValue)
	a.double("doneDelay", b.DoneDelay)
	a.boolean("asynchronous", b.Asynchronous)
	return a
}

func (e *encoder) detector(d model.Detector) {
	var a attrList
	switch det := d.(type) {
	case *model.ScalarDetector:
		if det == nil {
			break
		}
		a.xsiType(det.DetectorType())
		a.token("id", det.ID)
		a.str("name", det.Name)
		a.str("type", string(det.Type))
		e.empty("detector", a)
		return
	case *model.ArrayDetector:
		if det == nil {
			break
		}
		a.xsiType(det.DetectorType())
		a.token("id", det.ID)
		a.str("name", det.Name)
		a.integer("arraySize", det.ArraySize)
		e.empty("detector", a)
		return
	case *model.Timestamp:
		if det == nil {
			break
		}
		a.xsiType(det.DetectorType())
		a.token("id", det.ID)
		e.empty("detector", a)
		return
	}
	e.fail(fmt.Errorf("encode detector: unsupported detector %T", d))
}

func (e *encoder) visualization(v model.Visualization) {
	var a attrList
	switch plot := v.(type) {
	case *model.LinePlot:
		if plot == nil {
			break
		}
		a.xsiType(plot.VisualizationType())
		a.optStr("title", plot.Title)
		a.token("x", plot.X)
		a.tokens("y", plot.Y)
		e.empty("visualization", a)
		return
	case *model.MatrixPlot:
		if plot == nil {
			break
		}
		a.xsiType(plot.VisualizationType())
		a.optStr("title", plot.Title)
		a.token("x", plot.X)
		a.token("y", plot.Y)
		a.token("z", plot.Z)
		a.str("type", string(plot.Type))
		e.empty("visualization", a)
		return
	}
	e.fail(fmt.Errorf("encode visualization: unsupported visualization %T", v))
}

// attrList collects attributes in schema order.
type attrList struct {
	list []xml.Attr
	err  error
}

func (a *attrList) str(name, value string) {
	if a.err != nil {
		return
	}
	if !isXMLText(value) {
		a.err = &invalidTextError{field: "attribute " + name}
		return
	}
	// Readers normalize literal and escaped line breaks alike to spaces.
	if strings.ContainsAny(value, "\t\n\r") {
		a.err = &invalidTextError{field: "attribute " + name, reason: "contains a tab or line break"}
		return
	}
	a.list = append(a.list, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

// token writes an xs:ID or xs:IDREF value. Readers collapse its whitespace, so
// only already collapsed values survive a round trip.
func (a *attrList) token(name, value string) {
	if a.err == nil && value != collapseSpace(value) {
		a.err = &invalidTextError{field: "attribute " + name, reason: "is not whitespace-collapsed"}
		return
	}
	a.str(name, value)
}

// tokens writes an xs:IDREFS list. Entries must be non-empty and free of spaces.
func (a *attrList) tokens(name string, values []string) {
	for _, v := range values {
		if a.err == nil && (v == "" || strings.ContainsAny(v, " \t\n\r")) {
			a.err = &invalidTextError{field: "attribute " + name, reason: fmt.Sprintf("entry %q is not a single reference", v)}
			return
		}
	}
	a.str(name, strings.Join(values, " "))
}

func (a *attrList) optStr(name, value string) {
	if value != "" {
		a.str(name, value)
	}
}

// xsiType names the concrete schema type of a polymorphic element. The document
// default namespace is the model namespace, so the bare local name resolves.
func (a *attrList) xsiType(typeName string) {
	a.str("xsi:type", typeName)
}

func (a *attrList) integer(name string, v int) {
	a.str(name, strconv.Itoa(v))
}

func (a *attrList) boolean(name string, v bool) {
	a.str(name, strconv.FormatBool(v))
}

func (a *attrList) double(name string, v float64) {
	a.str(name, formatDouble(v))
}

func (a *attrList) optDouble(name string, v *float64) {
	if v != nil {
		a.double(name, *v)
	}
}
