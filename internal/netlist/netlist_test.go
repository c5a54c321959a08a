package netlist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"schem-tracer/internal/config"
	"schem-tracer/internal/pins"
	"schem-tracer/internal/terminal"
	"schem-tracer/internal/text"
	"schem-tracer/internal/vector"
	"schem-tracer/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(x, y float64) geometry.Point2D { return geometry.Point2D{X: x, Y: y} }

func wire(id int, pts ...geometry.Point2D) vector.Primitive {
	return vector.Primitive{ID: id, Kind: vector.KindPath, Path: &vector.Path{Points: pts}}
}

func ring(id int, c geometry.Point2D) vector.Primitive {
	return vector.Primitive{ID: id, Kind: vector.KindCircle, Circle: &vector.Circle{Center: c, Radius: 3}}
}

func model(t *testing.T, prims []vector.Primitive, groups ...vector.StructuralGroup) *vector.Model {
	t.Helper()
	m := &vector.Model{Page: vector.PageInfo{Number: 1}, Primitives: prims, Groups: groups}
	require.NoError(t, m.Validate())
	return m
}

func term(id int, group, label string, c geometry.Point2D) terminal.Terminal {
	return terminal.Terminal{PrimitiveID: id, Group: group, Label: label, Center: c, Radius: 3}
}

// plcWiring: one wire from -X1:1 to the PLC pin, a second group holding only -X2:PE.
func plcWiring(t *testing.T) (*vector.Model, []terminal.Terminal, []pins.Pin) {
	m := model(t,
		[]vector.Primitive{
			ring(1, pt(100, 100)),
			wire(2, pt(103, 100), pt(300, 100)),
			ring(3, pt(100, 200)),
			wire(4, pt(103, 200), pt(150, 200)),
		},
		vector.StructuralGroup{ID: 10, Members: []int{1, 2}},
		vector.StructuralGroup{ID: 20, Members: []int{3, 4}},
	)
	terms := []terminal.Terminal{
		term(1, "-X1", "1", pt(100, 100)),
		term(3, "-X2", "PE", pt(100, 200)),
	}
	pinList := []pins.Pin{{Region: "PLC-1", Label: "DI0", Position: pt(300, 100)}}
	return m, terms, pinList
}

func TestResolvePLCWiring(t *testing.T) {
	m, terms, pinList := plcWiring(t)
	res := Resolve(m, terms, pinList, config.Default())

	require.Len(t, res.Nets, 2)
	assert.Equal(t, "NET-001", res.Nets[0].ID)
	assert.Equal(t, []string{"-X1:1", "PLC-1:DI0"}, ids(res.Nets[0].Members))
	assert.False(t, res.Nets[0].SingleEnded)
	assert.Equal(t, "-X1:1", res.Nets[0].Name)
	assert.Equal(t, []int{10}, res.Nets[0].Groups)

	assert.Equal(t, "NET-002", res.Nets[1].ID)
	assert.Equal(t, []string{"-X2:PE"}, ids(res.Nets[1].Members))
	assert.True(t, res.Nets[1].SingleEnded)
	assert.Empty(t, res.Orphans)
	assert.Len(t, res.SingleEnded(), 1)
}

func ids(ms []Member) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func TestSameGroupLabelStaysSeparate(t *testing.T) {
	m := model(t,
		[]vector.Primitive{wire(1, pt(0, 0), pt(50, 0)), wire(2, pt(0, 100), pt(50, 100))},
		vector.StructuralGroup{ID: 1, Members: []int{1}},
		vector.StructuralGroup{ID: 2, Members: []int{2}},
	)
	terms := []terminal.Terminal{
		term(-1, "-X1", "1", pt(53, 0)),
		term(-1, "-X1", "1", pt(53, 100)),
	}
	res := Resolve(m, terms, nil, config.Default())
	require.Len(t, res.Nets, 2)
	assert.True(t, res.Nets[0].SingleEnded)
	assert.True(t, res.Nets[1].SingleEnded)
}

func TestSharedEntityMergesGroups(t *testing.T) {
	// a terminal sitting where two separately extracted wires meet
	m := model(t,
		[]vector.Primitive{
			wire(1, pt(0, 0), pt(97, 0)),
			wire(2, pt(103, 0), pt(200, 0)),
			wire(3, pt(500, 500), pt(600, 500)),
		},
		vector.StructuralGroup{ID: 1, Members: []int{1}},
		vector.StructuralGroup{ID: 2, Members: []int{2}},
		vector.StructuralGroup{ID: 3, Members: []int{3}},
	)
	terms := []terminal.Terminal{
		term(-1, "-X1", "5", pt(100, 0)),
		term(-1, "-X1", "6", pt(0, 0)),
		term(-1, "-X1", "7", pt(200, 0)),
	}
	res := Resolve(m, terms, nil, config.Default())
	require.Len(t, res.Nets, 1)
	assert.Equal(t, []int{1, 2}, res.Nets[0].Groups)
	assert.Equal(t, []string{"-X1:5", "-X1:6", "-X1:7"}, ids(res.Nets[0].Members))
}

func TestOrphansAndPartition(t *testing.T) {
	m, terms, pinList := plcWiring(t)
	terms = append(terms, term(-1, "", "9", pt(900, 900)))
	pinList = append(pinList, pins.Pin{Region: "K1", Position: pt(1000, 0)})

	res := Resolve(m, terms, pinList, config.Default())
	require.Len(t, res.Orphans, 2)
	assert.Equal(t, ElementTerminal, res.Orphans[0].Type)
	assert.Equal(t, ":9", res.Orphans[0].ID)
	assert.True(t, res.Orphans[0].Partial)
	assert.Equal(t, ElementPin, res.Orphans[1].Type)

	seen := make(map[string]int)
	for _, n := range res.Nets {
		require.NotEmpty(t, n.Members)
		for _, mem := range n.Members {
			seen[fmt.Sprintf("%s@%v", mem.ID, mem.Position)]++
		}
	}
	for _, mem := range res.Orphans {
		seen[fmt.Sprintf("%s@%v", mem.ID, mem.Position)]++
	}
	assert.Len(t, seen, len(terms)+len(pinList))
	for k, n := range seen {
		assert.Equal(t, 1, n, k)
	}
}

func TestEmptyInput(t *testing.T) {
	res := Resolve(nil, nil, nil, config.Default())
	assert.Empty(t, res.Nets)
	assert.Empty(t, res.Orphans)
	assert.NotNil(t, res.Nets)

	m := model(t, []vector.Primitive{wire(1, pt(0, 0), pt(1, 0))}, vector.StructuralGroup{ID: 1, Members: []int{1}})
	assert.Empty(t, Resolve(m, nil, nil, config.Default()).Nets)
}

func TestForkSuspects(t *testing.T) {
	// a T junction split into two groups at the branch point
	m := model(t,
		[]vector.Primitive{
			wire(1, pt(0, 0), pt(200, 0)),
			wire(2, pt(100, 1), pt(100, 100)),
			wire(3, pt(0, 300), pt(100, 300)),
		},
		vector.StructuralGroup{ID: 1, Members: []int{1}},
		vector.StructuralGroup{ID: 2, Members: []int{2}},
		vector.StructuralGroup{ID: 3, Members: []int{3}},
	)
	terms := []terminal.Terminal{
		term(-1, "-X1", "1", pt(-3, 0)),
		term(-1, "-X1", "2", pt(100, 103)),
		term(-1, "-X1", "3", pt(-3, 300)),
	}
	res := Resolve(m, terms, nil, config.Default())
	require.Len(t, res.Nets, 3)
	require.Len(t, res.ForkSuspects, 1)
	assert.Equal(t, []string{"NET-001", "NET-002"}, res.ForkSuspects[0].Nets)
}

func TestDeterministic(t *testing.T) {
	m, terms, pinList := plcWiring(t)
	var first []byte
	for i := 0; i < 20; i++ {
		res := Resolve(m, terms, pinList, config.Default())
		data, err := json.Marshal(res)
		require.NoError(t, err)
		if first == nil {
			first = data
			continue
		}
		assert.Equal(t, first, data)
	}

	// input order does not matter
	rev := []terminal.Terminal{terms[1], terms[0]}
	a, _ := json.Marshal(Resolve(m, terms, pinList, config.Default()).Nets)
	b, _ := json.Marshal(Resolve(m, rev, pinList, config.Default()).Nets)
	assert.Equal(t, a, b)
}

func TestReportFormat(t *testing.T) {
	m, terms, pinList := plcWiring(t)
	terms = append(terms, term(-1, "", "", pt(900, 900)))
	terms[0].LabelConflict = &text.Disagreement{
		Chosen: text.Match{Text: "1", Origin: text.OriginEmbedded},
		Other:  text.Match{Text: "7", Origin: text.OriginOCR},
	}
	res := Resolve(m, terms, pinList, config.Default())
	r := NewReport("run-1", m, terms, pinList, res, false)

	assert.Equal(t, 3, r.Stats.Terminals)
	assert.Equal(t, 2, r.Stats.Labeled)
	assert.Equal(t, 2, r.Stats.Nets)
	assert.Equal(t, 1, r.Stats.SingleEnded)
	assert.Equal(t, 1, r.Stats.Orphans)
	require.Len(t, r.LabelConflicts, 1)
	assert.Equal(t, Conflict{Terminal: "-X1:1", Embedded: "1", OCR: "7"}, r.LabelConflicts[0])

	var buf bytes.Buffer
	require.NoError(t, r.Format(&buf))
	out := buf.String()
	assert.Contains(t, out, "NET-001 -X1:1")
	assert.Contains(t, out, "NET-002 -X2:PE  [single-ended]")
	assert.Contains(t, out, "PLC-1:DI0")
	assert.Contains(t, out, "Orphans")
	assert.Contains(t, out, "OCR fallback unavailable")
	assert.Contains(t, out, `embedded "1", OCR "7"`)
}

func label(s string, cx, cy float64) text.Run {
	w := 2.0 * float64(len(s))
	return text.Run{Text: s, BBox: geometry.NewRect(cx-w/2, cy-2, w, 4)}
}

// busbarPage: a rail with only a partial terminal on it, a rail ending on a
// complete terminal, and a short stub wired to an unlabelled pin.
func busbarPage(t *testing.T) (*vector.Model, []terminal.Terminal, []pins.Pin) {
	m := model(t,
		[]vector.Primitive{
			ring(1, pt(50, 300)),
			wire(2, pt(53, 300), pt(500, 300)),
			ring(3, pt(50, 400)),
			wire(4, pt(53, 400), pt(500, 400)),
			wire(5, pt(600, 500), pt(620, 500)),
		},
		vector.StructuralGroup{ID: 10, Members: []int{1, 2}},
		vector.StructuralGroup{ID: 20, Members: []int{3, 4}},
		vector.StructuralGroup{ID: 30, Members: []int{5}},
	)
	m.Page.Width = 842
	terms := []terminal.Terminal{
		term(1, "-X5", "", pt(50, 300)),
		term(3, "-X6", "1", pt(50, 400)),
	}
	pinList := []pins.Pin{{Region: "K1", Position: pt(620, 500)}}
	return m, terms, pinList
}

func TestNameBusbars(t *testing.T) {
	cfg := config.Default()
	m, terms, pinList := busbarPage(t)
	layer := text.NewLayer([]text.Run{
		label("+24V", 60, 292),
		label("L1", 150, 280),    // nearer the window centre, further from the line
		label("/12.3", 120, 295), // cross reference
		label("-X5", 90, 297),    // group marker
		label("0V", 60, 392),
		label("+5V", 605, 495),
	}, cfg.YTolerance)

	res := Resolve(m, terms, pinList, cfg)
	require.Len(t, res.Nets, 3)
	require.NoError(t, NameBusbars(context.Background(), res, m.Page.Width, nil, layer, cfg))

	assert.Equal(t, "+24V", res.Nets[0].Busbar)
	assert.Equal(t, "+24V", res.Nets[0].Name)

	// a complete terminal outranks the rail label
	assert.Equal(t, "0V", res.Nets[1].Busbar)
	assert.Equal(t, "-X6:1", res.Nets[1].Name)

	// too short to be a rail
	assert.Empty(t, res.Nets[2].Busbar)
	assert.Equal(t, res.Nets[2].ID, res.Nets[2].Name)

	var buf bytes.Buffer
	require.NoError(t, NewReport("r", m, nil, nil, res, false).Format(&buf))
	assert.Contains(t, buf.String(), "NET-001 +24V  [single-ended]")
	assert.Contains(t, buf.String(), "NET-002 -X6:1 (0V)  [single-ended]")
}

func TestNameBusbarsSkips(t *testing.T) {
	cfg := config.Default()
	m, terms, pinList := busbarPage(t)
	layer := text.NewLayer([]text.Run{label("+24V", 60, 292)}, cfg.YTolerance)

	tests := []struct {
		name    string
		regions []pins.Region
		cfg     config.DetectionConfig
	}{
		{"label inside a region", []pins.Region{pins.NewRegion("K1", geometry.NewRect(40, 280, 40, 15))}, cfg},
		{"line on a region frame", []pins.Region{pins.NewRegion("K1", geometry.NewRect(300, 297, 100, 80))}, cfg},
		{"disabled", nil, func() config.DetectionConfig { c := cfg; c.BusbarLabels = false; return c }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(m, terms, pinList, tt.cfg)
			require.NoError(t, NameBusbars(context.Background(), res, m.Page.Width, tt.regions, layer, tt.cfg))
			assert.Empty(t, res.Nets[0].Busbar)
			assert.Equal(t, "NET-001", res.Nets[0].Name)
		})
	}

	res := Resolve(m, terms, pinList, cfg)
	assert.NoError(t, NameBusbars(context.Background(), res, m.Page.Width, nil, nil, cfg))
	assert.NoError(t, NameBusbars(context.Background(), nil, m.Page.Width, nil, layer, cfg))
}

func TestPickNamePriority(t *testing.T) {
	partial := Member{Type: ElementTerminal, ID: "-X1:", Partial: true}
	pin := Member{Type: ElementPin, ID: "K1:A1"}
	full := Member{Type: ElementTerminal, ID: "-X1:4"}

	assert.Equal(t, "NET-007", pickName("NET-007", []Member{partial}, ""))
	assert.Equal(t, "L1", pickName("NET-007", []Member{partial}, "L1"))
	assert.Equal(t, "K1:A1", pickName("NET-007", []Member{partial, pin}, "L1"))
	assert.Equal(t, "-X1:4", pickName("NET-007", []Member{full, pin}, "L1"))
}

func TestRailLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+24V", "+24V", true},
		{"=A1/L1", "L1", true},
		{"PE", "PE", true},
		{"24VDC", "24VDC", true},
		{"/12.3", "", false},
		{"K1", "", false},
		{"A/", "", false},
	}
	for _, tt := range tests {
		got, ok := railLabel(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestUnionFind(t *testing.T) {
	uf := newUnionFind(6)
	uf.union(0, 1)
	uf.union(2, 3)
	uf.union(1, 3)
	assert.Equal(t, uf.find(0), uf.find(2))
	assert.NotEqual(t, uf.find(0), uf.find(4))
	assert.NotEqual(t, uf.find(4), uf.find(5))
}
