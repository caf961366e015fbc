package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lunfardo314/easysym/expr"
	"github.com/lunfardo314/easysym/symfun"
	"gopkg.in/yaml.v3"
)

// Job describes one evaluation session: an expression, how its parameters are
// bound, a sample grid for the free parameter and a sequence of slider moves
type Job struct {
	// Expression is infix text or a JSON tree
	Expression string `yaml:"expression"`

	// Tree is the expression as a YAML tree, used when Expression is empty
	Tree map[string]interface{} `yaml:"tree"`

	// Symbols fixes the parameter order. Empty means free symbols ordered by name
	Symbols []string `yaml:"symbols"`

	// Functions are numfl definitions available to the expression
	Functions string `yaml:"functions"`

	Bind map[string]BindSpec `yaml:"bind"`

	// Context holds initial values of dynamic parameters
	Context map[string]float64 `yaml:"context"`

	Grid    Grid                 `yaml:"grid"`
	Sliders []map[string]float64 `yaml:"sliders"`

	// SliderEvery is the pause between two slider moves
	SliderEvery string `yaml:"slider_every"`
}

type Grid struct {
	From  float64 `yaml:"from"`
	To    float64 `yaml:"to"`
	Steps int     `yaml:"steps"`
}

// BindSpec is a number (frozen value), 'dynamic' or 'free'
type BindSpec struct {
	State symfun.BindingState
}

func (b *BindSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: binding must be a number, 'dynamic' or 'free'", node.Line)
	}
	switch strings.ToLower(node.Value) {
	case "dynamic":
		b.State = symfun.Dynamic()
		return nil
	case "free":
		b.State = symfun.Free()
		return nil
	}
	var v float64
	if err := node.Decode(&v); err != nil {
		return fmt.Errorf("line %d: binding must be a number, 'dynamic' or 'free': %w", node.Line, err)
	}
	b.State = symfun.Frozen(v)
	return nil
}

func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading job %s: %w", path, err)
	}
	return ParseJob(data, path)
}

func ParseJob(data []byte, path string) (*Job, error) {
	ret := &Job{
		SliderEvery: "5ms",
	}
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if ret.Expression == "" && ret.Tree == nil {
		return nil, fmt.Errorf("%s: either 'expression' or 'tree' is required", path)
	}
	if ret.Grid.Steps < 0 {
		return nil, fmt.Errorf("%s: grid.steps must not be negative", path)
	}
	if _, err := ret.sliderEvery(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ret, nil
}

func (j *Job) sliderEvery() (time.Duration, error) {
	ret, err := time.ParseDuration(j.SliderEvery)
	if err != nil {
		return 0, fmt.Errorf("slider_every: %w", err)
	}
	return ret, nil
}

// declaredSymbols creates one symbol per name in Symbols
func (j *Job) declaredSymbols() []*expr.Symbol {
	if len(j.Symbols) == 0 {
		return nil
	}
	return expr.Symbols(j.Symbols...)
}

// readExpression tries the readers one after another: infix text first, then
// JSON text, then the YAML tree. An ambiguous name stops the chain
func (j *Job) readExpression(tab *expr.SymbolTable) (expr.Expr, error) {
	var res expr.ParseResult
	switch {
	case j.Expression != "":
		res = expr.ParseWithTable(j.Expression, tab)
		if res.Status == expr.ParseFailed && strings.HasPrefix(strings.TrimSpace(j.Expression), "{") {
			var tree map[string]interface{}
			if err := json.Unmarshal([]byte(j.Expression), &tree); err != nil {
				return nil, fmt.Errorf("expression is neither infix (%v) nor JSON (%v)", res.Err, err)
			}
			res = expr.FromJSON(tree, tab)
		}
	default:
		res = expr.FromJSON(j.Tree, tab)
	}

	switch res.Status {
	case expr.ParseOk:
		return res.Expr, nil
	case expr.ParseAmbiguous:
		return nil, fmt.Errorf("name '%s' is ambiguous: %d symbols share it", res.Name, len(res.Candidates))
	}
	return nil, fmt.Errorf("can't read expression: %w", res.Err)
}

func (j *Job) bindings() []symfun.Binding {
	ret := make([]symfun.Binding, 0, len(j.Bind))
	for _, name := range sortedKeys(j.Bind) {
		ret = append(ret, symfun.Binding{Key: name, State: j.Bind[name].State})
	}
	return ret
}

func (g Grid) points() []float64 {
	switch g.Steps {
	case 0:
		return nil
	case 1:
		return []float64{g.From}
	}
	ret := make([]float64, g.Steps)
	step := (g.To - g.From) / float64(g.Steps-1)
	for i := range ret {
		ret[i] = g.From + float64(i)*step
	}
	ret[g.Steps-1] = g.To
	return ret
}
