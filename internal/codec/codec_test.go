// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	xsderrors "github.com/jacoelho/xsd/errors"
	xglog "github.com/psi-fda/scanmodel/internal/log"
	"github.com/psi-fda/scanmodel/internal/metrics"
	"github.com/psi-fda/scanmodel/internal/model"
	"github.com/psi-fda/scanmodel/internal/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalDoc = `<?xml version="1.0" encoding="UTF-8"?>
<configuration xmlns="http://www.psi.ch/~ebner/models/scan/1.0">
  <scan/>
</configuration>
`

const minimalEncoded = `<?xml version="1.0" encoding="UTF-8"?>
<configuration xmlns="http://www.psi.ch/~ebner/models/scan/1.0" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" numberOfExecution="1" failOnSensorError="true">
  <scan cycles="1"></scan>
</configuration>
`

func newTestCodec(opts ...Option) *Codec {
	base := []Option{WithLogger(zerolog.Nop()), WithRecorder(metrics.Nop{})}
	return New(append(base, opts...)...)
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func requireKind(t *testing.T, err error, want Kind) {
	t.Helper()
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok, "expected classified error, got %v", err)
	assert.Equal(t, want, kind, "error: %v", err)
	assert.ErrorIs(t, err, want.sentinel())
}

func TestLoad_MinimalDocument(t *testing.T) {
	c := newTestCodec()
	cfg, err := c.Load(context.Background(), writeDoc(t, "minimal.xml", minimalDoc))
	require.NoError(t, err)

	assert.Equal(t, model.New(), cfg)
	assert.Nil(t, cfg.Data)
	assert.Nil(t, cfg.Description)
	assert.Empty(t, cfg.Variables)
	assert.Empty(t, cfg.Visualizations)
}

func TestSave_MinimalDocumentIsExact(t *testing.T) {
	c := newTestCodec()
	path := filepath.Join(t.TempDir(), "out.xml")

	require.NoError(t, c.Save(context.Background(), model.New(), path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, minimalEncoded, string(got))
}

func TestSave_RoundTripsTemplate(t *testing.T) {
	c := newTestCodec()
	path := filepath.Join(t.TempDir(), "template.xml")
	want := model.Template()

	require.NoError(t, c.Save(context.Background(), want, path))
	got, err := c.Load(context.Background(), path)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_IsByteIdenticalAcrossSaves(t *testing.T) {
	c := newTestCodec()
	dir := t.TempDir()
	first := filepath.Join(dir, "first.xml")
	second := filepath.Join(dir, "second.xml")

	require.NoError(t, c.Save(context.Background(), model.Template(), first))
	loaded, err := c.Load(context.Background(), first)
	require.NoError(t, err)
	require.NoError(t, c.Save(context.Background(), loaded, second))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	again, err := c.Marshal(model.Template())
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

func TestSave_OutputIsIndentedAndQualified(t *testing.T) {
	data, err := newTestCodec().Marshal(model.Template())
	require.NoError(t, err)

	doc := string(data)
	assert.True(t, strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`+"\n<configuration "))
	assert.Contains(t, doc, `xmlns="`+model.Namespace+`"`)
	assert.Contains(t, doc, "\n  <scan cycles=\"2\">")
	assert.Contains(t, doc, "\n    <dimension zigzag=\"true\" dataGroup=\"false\">")
	assert.Contains(t, doc, `xsi:type="LinearPositioner"`)
	assert.True(t, strings.HasSuffix(doc, "</configuration>\n"))
}

func TestSave_OverwritesExistingFile(t *testing.T) {
	c := newTestCodec()
	path := writeDoc(t, "existing.xml", "stale content")

	require.NoError(t, c.Save(context.Background(), model.New(), path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, minimalEncoded, string(got))
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Kind
	}{
		{
			name: "unknown element",
			doc: `<configuration xmlns="http://www.psi.ch/~ebner/models/scan/1.0">
  <scan/>
  <bogus/>
</configuration>`,
			want: KindValidation,
		},
		{
			name: "wrong root",
			doc:  `<config xmlns="http://www.psi.ch/~ebner/models/scan/1.0"><scan/></config>`,
			want: KindValidation,
		},
		{
			name: "wrong namespace",
			doc:  `<configuration xmlns="urn:other"><scan/></configuration>`,
			want: KindValidation,
		},
		{
			name: "no namespace",
			doc:  `<configuration><scan/></configuration>`,
			want: KindValidation,
		},
		{
			name: "missing scan",
			doc:  `<configuration xmlns="http://www.psi.ch/~ebner/models/scan/1.0"/>`,
			want: KindValidation,
		},
		{
			name: "missing required attribute",
			doc: `<configuration xmlns="http://www.psi.ch/~ebner/models/scan/1.0"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <scan><preAction xsi:type="ChannelAction" value="1"/></scan>
</configuration>`,
			want: KindValidation,
		},
		{
			name: "zero executions",
			doc:  `<configuration xmlns="http://www.psi.ch/~ebner/models/scan/1.0" numberOfExecution="0"><scan/></configuration>`,
			want: KindValidation,
		},
		{
			name: "abstract action without type",
			doc:  `<configuration xmlns="http://www.psi.ch/~ebner/models/scan/1.0"><scan><preAction/></scan></configuration>`,
			want: KindValidation,
		},
		{
			name: "unknown reference",
			doc: `<configuration xmlns="http://www.psi.ch/~ebner/models/scan/1.0"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <scan/>
  <visualization xsi:type="LinePlot" x="missing" y="missing"/>
</configuration>`,
			want: KindValidation,
		},
		{
			name: "unclosed tag",
			doc:  `<configuration xmlns="http://www.psi.ch/~ebner/models/scan/1.0"><scan>`,
			want: KindMalformedDocument,
		},
		{
			name: "mismatched tags",
			doc:  `<configuration xmlns="http://www.psi.ch/~ebner/models/scan/1.0"><scan></configuration>`,
			want: KindMalformedDocument,
		},
		{
			name: "empty file",
			doc:  "",
			want: KindMalformedDocument,
		},
		{
			name: "not xml",
			doc:  "numberOfExecution: 1\n",
			want: KindMalformedDocument,
		},
	}

	c := newTestCodec()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := c.Load(context.Background(), writeDoc(t, "doc.xml", tt.doc))
			assert.Nil(t, cfg)
			requireKind(t, err, tt.want)
		})
	}
}

func TestLoad_ValidationCitesOffendingElement(t *testing.T) {
	doc := `<configuration xmlns="http://www.psi.ch/~ebner/models/scan/1.0">
  <scan/>
  <bogus/>
</configuration>`
	_, err := newTestCodec().Load(context.Background(), writeDoc(t, "extra.xml", doc))
	requireKind(t, err, KindValidation)

	violations := Violations(err)
	require.NotEmpty(t, violations)
	cited := false
	for _, v := range violations {
		if strings.Contains(v.Error(), "bogus") || v.Line == 3 {
			cited = true
		}
	}
	assert.True(t, cited, "no violation points at <bogus>: %v", violations)

	_, ok := xsderrors.AsValidations(err)
	assert.True(t, ok, "engine diagnostics must stay reachable")
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.xml")
	_, err := newTestCodec().Load(context.Background(), path)

	requireKind(t, err, KindMalformedDocument)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), path)
}

func TestLoad_AppliesSchemaDefaults(t *testing.T) {
	doc := `<configuration xmlns="http://www.psi.ch/~ebner/models/scan/1.0"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <data/>
  <variable name="v"/>
  <scan>
    <dimension>
      <positioner xsi:type="LinearPositioner" id="p" name="P">
        <start>0</start><end>1</end><stepSize>0.5</stepSize>
      </positioner>
      <guard><condition channel="C" value="1"/></guard>
      <detector xsi:type="ScalarDetector" id="d" name="D"/>
    </dimension>
    <postAction xsi:type="ChannelAction" channel="C" value="x"/>
    <postAction xsi:type="ShellAction" command="true"/>
  </scan>
  <visualization xsi:type="MatrixPlot" x="p" y="p" z="d"/>
</configuration>`

	cfg, err := newTestCodec().Load(context.Background(), writeDoc(t, "defaults.xml", doc))
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.NumberOfExecution)
	assert.True(t, cfg.FailOnSensorError)
	require.NotNil(t, cfg.Data)
	assert.Equal(t, model.DataFormatTXT, cfg.Data.Format)
	assert.Equal(t, []model.Variable{{Name: "v"}}, cfg.Variables)
	assert.Equal(t, 1, cfg.Scan.Cycles)

	require.Len(t, cfg.Scan.Dimensions, 1)
	dim := cfg.Scan.Dimensions[0]
	assert.False(t, dim.Zigzag)
	assert.False(t, dim.DataGroup)
	assert.Equal(t, []model.Positioner{model.NewLinearPositioner("p", "P", 0, 1, 0.5)}, dim.Positioners)
	assert.Equal(t, &model.Guard{Conditions: []model.GuardCondition{{Channel: "C", Value: "1", Type: model.ValueTypeString}}}, dim.Guard)
	assert.Equal(t, []model.Detector{model.NewScalarDetector("d", "D")}, dim.Detectors)

	assert.Equal(t, []model.Action{
		model.NewChannelAction("C", "x"),
		model.NewShellAction("true"),
	}, cfg.Scan.PostActions)
	assert.Equal(t, []model.Visualization{
		&model.MatrixPlot{X: "p", Y: "p", Z: "d", Type: model.MatrixPlot2D},
	}, cfg.Visualizations)
}

func TestLoad_AcceptsPrefixedTypesAndNamespaces(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<m:configuration xmlns:m="http://www.psi.ch/~ebner/models/scan/1.0"
    xmlns:i="http://www.w3.org/2001/XMLSchema-instance" numberOfExecution="3">
  <m:scan>
    <m:preAction i:type="m:ShellAction" command="echo start" exitValue="2"/>
  </m:scan>
</m:configuration>`

	cfg, err := newTestCodec().Load(context.Background(), writeDoc(t, "prefixed.xml", doc))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.NumberOfExecution)
	assert.Equal(t, []model.Action{
		&model.ShellAction{Command: "echo start", ExitValue: 2, CheckExitValue: true},
	}, cfg.Scan.PreActions)
}

func TestSave_InvalidModelWritesNothing(t *testing.T) {
	blank := model.New()
	blank.Variables = []model.Variable{{Name: ""}}

	badRef := model.New()
	badRef.Visualizations = []model.Visualization{&model.LinePlot{X: "nowhere", Y: []string{"nowhere"}}}

	dupID := model.New()
	dupID.Variables = []model.Variable{{Name: "a"}, {Name: "a"}}

	noPositioner := model.New()
	noPositioner.Scan.Dimensions = []model.DiscreteStepDimension{model.NewDimension()}

	control := model.New()
	control.Description = new(string)
	*control.Description = "bell \a"

	tests := []struct {
		name string
		cfg  *model.Configuration
	}{
		{name: "zero value", cfg: &model.Configuration{}},
		{name: "empty id", cfg: blank},
		{name: "dangling reference", cfg: badRef},
		{name: "duplicate id", cfg: dupID},
		{name: "dimension without positioner", cfg: noPositioner},
		{name: "control character", cfg: control},
	}

	c := newTestCodec()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.xml")
			err := c.Save(context.Background(), tt.cfg, path)
			requireKind(t, err, KindValidation)

			_, statErr := os.Stat(path)
			assert.ErrorIs(t, statErr, os.ErrNotExist)
		})
	}
}

func TestSave_RejectsValuesThatWouldNotReadBack(t *testing.T) {
	with := func(mutate func(cfg *model.Configuration)) *model.Configuration {
		cfg := model.New()
		mutate(cfg)
		return cfg
	}
	dimension := func(p model.Positioner, d ...model.Detector) model.DiscreteStepDimension {
		dim := model.NewDimension(p)
		dim.Detectors = d
		return dim
	}

	tests := []struct {
		name string
		cfg  *model.Configuration
	}{
		{
			name: "padded variable name",
			cfg: with(func(cfg *model.Configuration) {
				cfg.Variables = []model.Variable{{Name: " zz "}}
			}),
		},
		{
			name: "padded positioner id",
			cfg: with(func(cfg *model.Configuration) {
				cfg.Scan.Dimensions = []model.DiscreteStepDimension{
					dimension(model.NewLinearPositioner("motorX ", "X:SET", 0, 1, 0.5)),
				}
			}),
		},
		{
			name: "padded detector id",
			cfg: with(func(cfg *model.Configuration) {
				cfg.Scan.Dimensions = []model.DiscreteStepDimension{
					dimension(model.NewLinearPositioner("motorX", "X:SET", 0, 1, 0.5), &model.Timestamp{ID: " time"}),
				}
			}),
		},
		{
			name: "padded plot reference",
			cfg: with(func(cfg *model.Configuration) {
				cfg.Visualizations = []model.Visualization{&model.LinePlot{X: " motorX", Y: []string{"motorX"}}}
			}),
		},
		{
			name: "reference list entry with space",
			cfg: with(func(cfg *model.Configuration) {
				cfg.Visualizations = []model.Visualization{&model.LinePlot{X: "motorX", Y: []string{"a b"}}}
			}),
		},
		{
			name: "empty reference list entry",
			cfg: with(func(cfg *model.Configuration) {
				cfg.Visualizations = []model.Visualization{&model.LinePlot{X: "motorX", Y: []string{""}}}
			}),
		},
		{
			name: "line break in attribute",
			cfg: with(func(cfg *model.Configuration) {
				cfg.Variables = []model.Variable{{Name: "gain", Description: "first\nsecond"}}
			}),
		},
		{
			name: "tab in action value",
			cfg: with(func(cfg *model.Configuration) {
				cfg.Scan.PreActions = []model.Action{model.NewChannelAction("X:SET", "1\t2")}
			}),
		},
	}

	c := newTestCodec()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.xml")
			err := c.Save(context.Background(), tt.cfg, path)
			requireKind(t, err, KindValidation)

			_, statErr := os.Stat(path)
			assert.ErrorIs(t, statErr, os.ErrNotExist)
		})
	}
}

func TestSave_NilVariantsFailWithoutPanic(t *testing.T) {
	with := func(mutate func(cfg *model.Configuration)) *model.Configuration {
		cfg := model.New()
		mutate(cfg)
		return cfg
	}
	var (
		linear *model.LinearPositioner
		array  *model.ArrayPositioner
		scalar *model.ScalarDetector
		stamp  *model.Timestamp
		action *model.ChannelAction
		shell  *model.ShellAction
		line   *model.LinePlot
		matrix *model.MatrixPlot
	)
	motor := model.NewLinearPositioner("motorX", "X:SET", 0, 1, 0.5)

	tests := []struct {
		name string
		cfg  *model.Configuration
	}{
		{name: "linear positioner", cfg: with(func(cfg *model.Configuration) {
			cfg.Scan.Dimensions = []model.DiscreteStepDimension{model.NewDimension(linear)}
		})},
		{name: "array positioner", cfg: with(func(cfg *model.Configuration) {
			cfg.Scan.Dimensions = []model.DiscreteStepDimension{model.NewDimension(array)}
		})},
		{name: "untyped positioner", cfg: with(func(cfg *model.Configuration) {
			cfg.Scan.Dimensions = []model.DiscreteStepDimension{model.NewDimension(nil)}
		})},
		{name: "scalar detector", cfg: with(func(cfg *model.Configuration) {
			dim := model.NewDimension(motor)
			dim.Detectors = []model.Detector{scalar}
			cfg.Scan.Dimensions = []model.DiscreteStepDimension{dim}
		})},
		{name: "timestamp", cfg: with(func(cfg *model.Configuration) {
			dim := model.NewDimension(motor)
			dim.Detectors = []model.Detector{stamp}
			cfg.Scan.Dimensions = []model.DiscreteStepDimension{dim}
		})},
		{name: "channel action", cfg: with(func(cfg *model.Configuration) {
			cfg.Scan.PreActions = []model.Action{action}
		})},
		{name: "shell action", cfg: with(func(cfg *model.Configuration) {
			cfg.Scan.PostActions = []model.Action{shell}
		})},
		{name: "line plot", cfg: with(func(cfg *model.Configuration) {
			cfg.Visualizations = []model.Visualization{line}
		})},
		{name: "matrix plot", cfg: with(func(cfg *model.Configuration) {
			cfg.Visualizations = []model.Visualization{matrix}
		})},
	}

	c := newTestCodec()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.xml")
			var err error
			require.NotPanics(t, func() { err = c.Save(context.Background(), tt.cfg, path) })
			require.Error(t, err)
			assert.Contains(t, err.Error(), "encode")

			_, statErr := os.Stat(path)
			assert.ErrorIs(t, statErr, os.ErrNotExist)
		})
	}
}

func TestLoad_NormalizesAttributeWhitespace(t *testing.T) {
	doc := "<configuration xmlns=\"http://www.psi.ch/~ebner/models/scan/1.0\">\n" +
		"  <variable name=\" gain \" value=\"2\" description=\"first\nsecond\tthird\"/>\n" +
		"  <scan/>\n" +
		"</configuration>\n"

	c := newTestCodec()
	cfg, err := c.Load(context.Background(), writeDoc(t, "spaces.xml", doc))
	require.NoError(t, err)
	require.Len(t, cfg.Variables, 1)
	assert.Equal(t, "gain", cfg.Variables[0].Name)
	assert.Equal(t, "first second third", cfg.Variables[0].Description)

	path := filepath.Join(t.TempDir(), "again.xml")
	require.NoError(t, c.Save(context.Background(), cfg, path))
	again, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, again); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_EmptySlicesReadBackAsNil(t *testing.T) {
	c := newTestCodec()
	path := filepath.Join(t.TempDir(), "empty.xml")

	want := model.New()
	want.Variables = []model.Variable{}
	want.Visualizations = []model.Visualization{}
	want.Scan.PreActions = []model.Action{}

	require.NoError(t, c.Save(context.Background(), want, path))
	got, err := c.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Nil(t, got.Variables)
	assert.Nil(t, got.Visualizations)
	assert.Nil(t, got.Scan.PreActions)
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_InvalidModelKeepsExistingFile(t *testing.T) {
	path := writeDoc(t, "keep.xml", minimalDoc)

	err := newTestCodec().Save(context.Background(), &model.Configuration{}, path)
	requireKind(t, err, KindValidation)

	got, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, minimalDoc, string(got))
}

func TestSave_NilModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nil.xml")
	err := newTestCodec().Save(context.Background(), nil, path)

	assert.ErrorIs(t, err, ErrNilModel)
	_, ok := KindOf(err)
	assert.False(t, ok)
}

func TestSave_UnsupportedVariantPassesThrough(t *testing.T) {
	cfg := model.New()
	cfg.Scan.PreActions = []model.Action{nil}

	err := newTestCodec().Save(context.Background(), cfg, filepath.Join(t.TempDir(), "x.xml"))
	require.Error(t, err)
	_, ok := KindOf(err)
	assert.False(t, ok, "encoding bugs are not classified: %v", err)
}

func TestSave_UnwritableDestination(t *testing.T) {
	t.Run("parent is a file", func(t *testing.T) {
		parent := writeDoc(t, "not-a-dir", "keep me")
		path := filepath.Join(parent, "out.xml")

		err := newTestCodec().Save(context.Background(), model.New(), path)
		requireKind(t, err, KindWrite)

		got, readErr := os.ReadFile(parent)
		require.NoError(t, readErr)
		assert.Equal(t, "keep me", string(got))
	})

	t.Run("missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "out.xml")
		err := newTestCodec().Save(context.Background(), model.New(), path)
		requireKind(t, err, KindWrite)
	})

	t.Run("read-only directory", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("directory permissions are not enforced for root")
		}
		dir := t.TempDir()
		path := filepath.Join(dir, "out.xml")
		require.NoError(t, os.WriteFile(path, []byte(minimalDoc), 0o600))
		require.NoError(t, os.Chmod(dir, 0o500))
		t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

		err := newTestCodec().Save(context.Background(), model.Template(), path)
		requireKind(t, err, KindWrite)

		got, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, minimalDoc, string(got))
	})
}

func TestSchemaLoadFailure(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{name: "missing resource", fsys: fstest.MapFS{}},
		{name: "truncated resource", fsys: fstest.MapFS{
			schema.SchemaName: {Data: []byte(`<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">`)},
		}},
		{name: "not a schema", fsys: fstest.MapFS{
			schema.SchemaName: {Data: []byte("plain text")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCodec(WithValidator(schema.New(tt.fsys, schema.SchemaName)))
			path := writeDoc(t, "doc.xml", minimalDoc)

			for range 2 {
				_, err := c.Load(context.Background(), path)
				requireKind(t, err, KindSchemaLoad)

				err = c.Save(context.Background(), model.New(), path)
				requireKind(t, err, KindSchemaLoad)
			}

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, minimalDoc, string(got))
		})
	}
}

func TestCodec_ConcurrentUse(t *testing.T) {
	c := newTestCodec()
	dir := t.TempDir()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := filepath.Join(dir, "cfg-"+string(rune('a'+i))+".xml")
			if err := c.Save(context.Background(), model.Template(), path); err != nil {
				errs <- err
				return
			}
			if _, err := c.Load(context.Background(), path); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestPackageLevelLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg.xml")
	require.NoError(t, Save(model.Template(), path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Scan.Cycles)
}

type recordingRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingRecorder) ObserveOperation(op, result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op+":"+result)
}

func TestCodec_RecordsOperations(t *testing.T) {
	rec := &recordingRecorder{}
	c := newTestCodec(WithRecorder(rec))
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.xml")

	require.NoError(t, c.Save(context.Background(), model.New(), path))
	_, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	_, err = c.Load(context.Background(), filepath.Join(dir, "absent.xml"))
	require.Error(t, err)

	assert.Equal(t, []string{
		"save:" + metrics.ResultOK,
		"load:" + metrics.ResultOK,
		"load:" + KindMalformedDocument.String(),
	}, rec.calls)
}

func TestCodec_LogsClassifiedFailures(t *testing.T) {
	var buf bytes.Buffer
	c := newTestCodec(WithLogger(zerolog.New(&buf)))
	ctx := xglog.ContextWithOperationID(context.Background(), "op-42")
	path := filepath.Join(t.TempDir(), "absent.xml")

	_, err := c.Load(ctx, path)
	require.Error(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "codec.load_failed", entry[xglog.FieldEvent])
	assert.Equal(t, KindMalformedDocument.String(), entry[xglog.FieldKind])
	assert.Equal(t, path, entry[xglog.FieldPath])
	assert.Equal(t, schema.SchemaName, entry[xglog.FieldSchema])
	assert.Equal(t, "op-42", entry[xglog.FieldOperationID])
}
