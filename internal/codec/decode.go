// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package codec

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/psi-fda/scanmodel/internal/model"
)

// decoder maps a document that already passed schema validation onto the model.
// Structural checks here only guard against drift between this mapping and the
// bundled schema; they are not a substitute for validation.
type decoder struct {
	d *xml.Decoder
}

func decode(data []byte) (*model.Configuration, error) {
	xd := xml.NewDecoder(bytes.NewReader(data))
	xd.Strict = true
	// Disable entity expansion beyond the predefined XML entities.
	xd.Entity = make(map[string]string)

	d := &decoder{d: xd}
	root, err := d.root()
	if err != nil {
		return nil, err
	}
	return d.configuration(root)
}

func (d *decoder) root() (xml.StartElement, error) {
	for {
		tok, err := d.d.Token()
		if err != nil {
			if err == io.EOF {
				return xml.StartElement{}, fmt.Errorf("decode configuration: no root element")
			}
			return xml.StartElement{}, fmt.Errorf("decode configuration: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			if start.Name.Space != model.Namespace || start.Name.Local != model.RootElement {
				return start, fmt.Errorf("decode configuration: unexpected root {%s}%s", start.Name.Space, start.Name.Local)
			}
			return start, nil
		}
	}
}

// children calls fn for every child element of the current element. fn must
// consume the element it is given. children returns after the closing tag.
func (d *decoder) children(fn func(xml.StartElement) error) error {
	for {
		tok, err := d.d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := fn(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// text returns the character content of the current element and consumes its end tag.
func (d *decoder) text() (string, error) {
	var sb strings.Builder
	for {
		tok, err := d.d.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			return "", fmt.Errorf("unexpected element %s in text content", t.Name.Local)
		case xml.EndElement:
			return sb.String(), nil
		}
	}
}

func unexpected(parent string, el xml.StartElement) error {
	return fmt.Errorf("decode %s: unexpected element %s", parent, el.Name.Local)
}

func (d *decoder) configuration(start xml.StartElement) (*model.Configuration, error) {
	a := newAttrReader(start)
	cfg := &model.Configuration{
		NumberOfExecution: a.integer("numberOfExecution", 1),
		FailOnSensorError: a.boolean("failOnSensorError", true),
	}
	if err := a.Err(); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	err := d.children(func(el xml.StartElement) error {
		switch el.Name.Local {
		case "data":
			data, err := d.data(el)
			if err != nil {
				return err
			}
			cfg.Data = &data
		case "description":
			s, err := d.text()
			if err != nil {
				return fmt.Errorf("decode description: %w", err)
			}
			cfg.Description = &s
		case "variable":
			v, err := d.variable(el)
			if err != nil {
				return err
			}
			cfg.Variables = append(cfg.Variables, v)
		case "scan":
			s, err := d.scan(el)
			if err != nil {
				return err
			}
			cfg.Scan = s
		case "visualization":
			v, err := d.visualization(el)
			if err != nil {
				return err
			}
			cfg.Visualizations = append(cfg.Visualizations, v)
		default:
			return unexpected("configuration", el)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (d *decoder) data(start xml.StartElement) (model.Data, error) {
	a := newAttrReader(start)
	data := model.Data{
		Format:   model.DataFormat(a.str("format", string(model.DataFormatTXT))),
		FileName: a.str("fileName", ""),
	}
	if err := a.Err(); err != nil {
		return data, fmt.Errorf("decode data: %w", err)
	}
	return data, d.d.Skip()
}

func (d *decoder) variable(start xml.StartElement) (model.Variable, error) {
	a := newAttrReader(start)
	v := model.Variable{
		Name:        a.token("name"),
		Value:       a.double("value", 0),
		Description: a.str("description", ""),
	}
	if err := a.Err(); err != nil {
		return v, fmt.Errorf("decode variable: %w", err)
	}
	return v, d.d.Skip()
}

func (d *decoder) scan(start xml.StartElement) (model.Scan, error) {
	a := newAttrReader(start)
	s := model.Scan{Cycles: a.integer("cycles", 1)}
	if err := a.Err(); err != nil {
		return s, fmt.Errorf("decode scan: %w", err)
	}

	err := d.children(func(el xml.StartElement) error {
		switch el.Name.Local {
		case "preAction":
			act, err := d.action(el)
			if err != nil {
				return err
			}
			s.PreActions = append(s.PreActions, act)
		case "dimension":
			dim, err := d.dimension(el)
			if err != nil {
				return err
			}
			s.Dimensions = append(s.Dimensions, dim)
		case "postAction":
			act, err := d.action(el)
			if err != nil {
				return err
			}
			s.PostActions = append(s.PostActions, act)
		default:
			return unexpected("scan", el)
		}
		return nil
	})
	return s, err
}

func (d *decoder) dimension(start xml.StartElement) (model.DiscreteStepDimension, error) {
	a := newAttrReader(start)
	dim := model.DiscreteStepDimension{
		Zigzag:    a.boolean("zigzag", false),
		DataGroup: a.boolean("dataGroup", false),
	}
	if err := a.Err(); err != nil {
		return dim, fmt.Errorf("decode dimension: %w", err)
	}

	err := d.children(func(el xml.StartElement) error {
		switch el.Name.Local {
		case "preAction", "action", "postAction":
			act, err := d.action(el)
			if err != nil {
				return err
			}
			switch el.Name.Local {
			case "preAction":
				dim.PreActions = append(dim.PreActions, act)
			case "action":
				dim.Actions = append(dim.Actions, act)
			default:
				dim.PostActions = append(dim.PostActions, act)
			}
		case "positioner":
			p, err := d.positioner(el)
			if err != nil {
				return err
			}
			dim.Positioners = append(dim.Positioners, p)
		case "guard":
			g, err := d.guard()
			if err != nil {
				return err
			}
			dim.Guard = g
		case "detector":
			det, err := d.detector(el)
			if err != nil {
				return err
			}
			dim.Detectors = append(dim.Detectors, det)
		default:
			return unexpected("dimension", el)
		}
		return nil
	})
	return dim, err
}

func (d *decoder) action(start xml.StartElement) (model.Action, error) {
	a := newAttrReader(start)
	var act model.Action
	switch t := a.xsiType(); t {
	case "ChannelAction":
		act = &model.ChannelAction{
			Channel:   a.str("channel", ""),
			Value:     a.str("value", ""),
			Operation: model.ChannelOperation(a.str("operation", string(model.OperationPut))),
			Type:      model.ValueType(a.str("type", string(model.ValueTypeString))),
			Timeout:   a.optDouble("timeout"),
			Delay:     a.optDouble("delay"),
		}
	case "ShellAction":
		act = &model.ShellAction{
			Command:        a.str("command", ""),
			ExitValue:      a.integer("exitValue", 0),
			CheckExitValue: a.boolean("checkExitValue", true),
		}
	default:
		return nil, fmt.Errorf("decode %s: unknown action type %q", start.Name.Local, t)
	}
	if err := a.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", start.Name.Local, err)
	}
	return act, d.d.Skip()
}

func (d *decoder) positioner(start xml.StartElement) (model.Positioner, error) {
	a := newAttrReader(start)
	base := model.PositionerBase{
		ID:           a.token("id"),
		Name:         a.str("name", ""),
		Readback:     a.str("readback", ""),
		SettlingTime: a.double("settlingTime", 0),
		Done:         a.str("done", ""),
		DoneValue:    a.str("doneValue", "1"),
		DoneDelay:    a.double("doneDelay", 0),
		Asynchronous: a.boolean("asynchronous", false),
	}
	typ := a.xsiType()
	if err := a.Err(); err != nil {
		return nil, fmt.Errorf("decode positioner: %w", err)
	}

	switch typ {
	case "LinearPositioner":
		p := &model.LinearPositioner{PositionerBase: base}
		err := d.children(func(el xml.StartElement) error {
			s, err := d.text()
			if err != nil {
				return err
			}
			v, err := parseDouble(s)
			if err != nil {
				return fmt.Errorf("decode positioner %s: %w", el.Name.Local, err)
			}
			switch el.Name.Local {
			case "start":
				p.Start = v
			case "end":
				p.End = v
			case "stepSize":
				p.StepSize = v
			default:
				return unexpected("positioner", el)
			}
			return nil
		})
		return p, err
	case "ArrayPositioner":
		p := &model.ArrayPositioner{PositionerBase: base}
		err := d.children(func(el xml.StartElement) error {
			if el.Name.Local != "positions" {
				return unexpected("positioner", el)
			}
			s, err := d.text()
			if err != nil {
				return err
			}
			for _, field := range strings.Fields(s) {
				v, err := parseDouble(field)
				if err != nil {
					return fmt.Errorf("decode positioner positions: %w", err)
				}
				p.Positions = append(p.Positions, v)
			}
			return nil
		})
		return p, err
	default:
		return nil, fmt.Errorf("decode positioner: unknown positioner type %q", typ)
	}
}

func (d *decoder) guard() (*model.Guard, error) {
	g := &model.Guard{}
	err := d.children(func(el xml.StartElement) error {
		if el.Name.Local != "condition" {
			return unexpected("guard", el)
		}
		a := newAttrReader(el)
		c := model.GuardCondition{
			Channel: a.str("channel", ""),
			Value:   a.str("value", ""),
			Type:    model.ValueType(a.str("type", string(model.ValueTypeString))),
		}
		if err := a.Err(); err != nil {
			return fmt.Errorf("decode guard condition: %w", err)
		}
		g.Conditions = append(g.Conditions, c)
		return d.d.Skip()
	})
	return g, err
}

func (d *decoder) detector(start xml.StartElement) (model.Detector, error) {
	a := newAttrReader(start)
	var det model.Detector
	switch t := a.xsiType(); t {
	case "ScalarDetector":
		det = &model.ScalarDetector{
			ID:   a.token("id"),
			Name: a.str("name", ""),
			Type: model.ValueType(a.str("type", string(model.ValueTypeDouble))),
		}
	case "ArrayDetector":
		det = &model.ArrayDetector{
			ID:        a.token("id"),
			Name:      a.str("name", ""),
			ArraySize: a.integer("arraySize", 0),
		}
	case "Timestamp":
		det = &model.Timestamp{ID: a.token("id")}
	default:
		return nil, fmt.Errorf("decode detector: unknown detector type %q", t)
	}
	if err := a.Err(); err != nil {
		return nil, fmt.Errorf("decode detector: %w", err)
	}
	return det, d.d.Skip()
}

func (d *decoder) visualization(start xml.StartElement) (model.Visualization, error) {
	a := newAttrReader(start)
	var v model.Visualization
	switch t := a.xsiType(); t {
	case "LinePlot":
		v = &model.LinePlot{
			Title: a.str("title", ""),
			X:     a.token("x"),
			Y:     strings.Fields(a.str("y", "")),
		}
	case "MatrixPlot":
		v = &model.MatrixPlot{
			Title: a.str("title", ""),
			X:     a.token("x"),
			Y:     a.token("y"),
			Z:     a.token("z"),
			Type:  model.MatrixPlotType(a.str("type", string(model.MatrixPlot2D))),
		}
	default:
		return nil, fmt.Errorf("decode visualization: unknown visualization type %q", t)
	}
	if err := a.Err(); err != nil {
		return nil, fmt.Errorf("decode visualization: %w", err)
	}
	return v, d.d.Skip()
}

// attrReader reads unqualified attributes of one element. Lexical errors stick
// and are reported by Err.
type attrReader struct {
	attrs map[string]string
	typ   string
	err   error
}

func newAttrReader(start xml.StartElement) *attrReader {
	r := &attrReader{attrs: make(map[string]string, len(start.Attr))}
	for _, attr := range start.Attr {
		switch {
		case attr.Name.Space == xsiNamespace && attr.Name.Local == "type":
			r.typ = attr.Value
		case attr.Name.Space == "":
			r.attrs[attr.Name.Local] = normalizeAttr(attr.Value)
		}
	}
	return r
}

func (r *attrReader) Err() error { return r.err }

func (r *attrReader) fail(name string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("attribute %s: %w", name, err)
	}
}

func (r *attrReader) str(name, def string) string {
	if v, ok := r.attrs[name]; ok {
		return v
	}
	return def
}

// token reads a whitespace-collapsed attribute such as xs:ID or xs:IDREF.
func (r *attrReader) token(name string) string {
	return collapseSpace(r.attrs[name])
}

func (r *attrReader) integer(name string, def int) int {
	s, ok := r.attrs[name]
	if !ok {
		return def
	}
	v, err := parseInt(s)
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *attrReader) boolean(name string, def bool) bool {
	s, ok := r.attrs[name]
	if !ok {
		return def
	}
	v, err := parseBool(s)
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *attrReader) double(name string, def float64) float64 {
	s, ok := r.attrs[name]
	if !ok {
		return def
	}
	v, err := parseDouble(s)
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *attrReader) optDouble(name string) *float64 {
	if _, ok := r.attrs[name]; !ok {
		return nil
	}
	v := r.double(name, 0)
	return &v
}

// xsiType returns the local part of xsi:type. The validator has already
// resolved the QName against the model namespace.
func (r *attrReader) xsiType() string {
	t := strings.TrimSpace(r.typ)
	if i := strings.IndexByte(t, ':'); i >= 0 {
		t = t[i+1:]
	}
	return t
}
