package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lunfardo314/easysym/config"
	"github.com/lunfardo314/easysym/util/testutil"
	"github.com/stretchr/testify/require"
)

const job1 = `
expression: a*x^2 + b
symbols: [x, a, b]
bind:
  a: 2
  b: dynamic
context:
  b: 1
grid: {from: 0, to: 2, steps: 3}
sliders:
  - {b: 10}
  - {b: 20}
  - {b: 30}
slider_every: 1ms
`

func TestParseJob(t *testing.T) {
	t.Run("1", func(t *testing.T) {
		job, err := ParseJob([]byte(job1), "job1.yaml")
		require.NoError(t, err)
		require.EqualValues(t, []string{"x", "a", "b"}, job.Symbols)
		require.True(t, job.Bind["a"].State.IsFrozen())
		require.True(t, job.Bind["b"].State.IsDynamic())
		require.EqualValues(t, []float64{0, 1, 2}, job.Grid.points())
		require.EqualValues(t, 3, len(job.Sliders))
	})
	t.Run("invalid", func(t *testing.T) {
		for _, src := range []string{
			"symbols: [x]",
			"expression: x\nbind: {x: [1]}",
			"expression: x\nbind: {x: often}",
			"expression: x\ngrid: {steps: -1}",
			"expression: x\nslider_every: never",
		} {
			_, err := ParseJob([]byte(src), "bad.yaml")
			require.Error(t, err, src)
		}
	})
}

func TestReadExpression(t *testing.T) {
	t.Run("json text", func(t *testing.T) {
		job, err := ParseJob([]byte(`expression: '{"type":"add","terms":[{"type":"sym","name":"x"},{"type":"num","value":1}]}'`), "job.yaml")
		require.NoError(t, err)
		cfg := config.Default()
		var out bytes.Buffer
		job.Grid = Grid{From: 1, To: 1, Steps: 1}
		require.NoError(t, run(job, cfg, testutil.NewSimpleLogger(false), &out))
		require.Contains(t, out.String(), "samples: 1:2")
	})
	t.Run("yaml tree", func(t *testing.T) {
		job, err := ParseJob([]byte(`
tree:
  type: func
  name: sin
  args:
    - {type: sym, name: x}
grid: {from: 0, to: 0, steps: 1}
`), "job.yaml")
		require.NoError(t, err)
		var out bytes.Buffer
		require.NoError(t, run(job, config.Default(), testutil.NewSimpleLogger(false), &out))
		require.Contains(t, out.String(), "samples: 0:0")
	})
	t.Run("ambiguous", func(t *testing.T) {
		job, err := ParseJob([]byte("expression: x + 1\nsymbols: [x, x]"), "job.yaml")
		require.NoError(t, err)
		err = run(job, config.Default(), testutil.NewSimpleLogger(false), &bytes.Buffer{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "ambiguous")
	})
	t.Run("failed", func(t *testing.T) {
		job, err := ParseJob([]byte("expression: x + * 1"), "job.yaml")
		require.NoError(t, err)
		err = run(job, config.Default(), testutil.NewSimpleLogger(false), &bytes.Buffer{})
		require.Error(t, err)
	})
}

func TestRun(t *testing.T) {
	for _, substrate := range []string{config.SubstrateTimer, config.SubstrateWaitingRoom, config.SubstrateEventLoop} {
		t.Run(substrate, func(t *testing.T) {
			job, err := ParseJob([]byte(job1), "job1.yaml")
			require.NoError(t, err)
			cfg := config.Default()
			cfg.Debounce.Substrate = substrate
			cfg.Debounce.RateLimit = 50
			cfg.Debounce.PollPeriod = "1ms"

			var out bytes.Buffer
			require.NoError(t, run(job, cfg, testutil.NewSimpleLogger(true), &out))
			t.Logf("\n%s", out.String())
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			require.Contains(t, lines[1], "def fn(x, a, b)")
			require.EqualValues(t, "samples: 0:1 1:3 2:9", lines[3])
			require.EqualValues(t, "after move #2 samples: 0:30 1:32 2:38", lines[len(lines)-1])
		})
	}
	t.Run("custom functions", func(t *testing.T) {
		job, err := ParseJob([]byte(`
expression: sq(x) + 1
functions: |
  def sq(v) = mul(v, v)
grid: {from: 3, to: 3, steps: 1}
`), "job.yaml")
		require.NoError(t, err)
		var out bytes.Buffer
		require.NoError(t, run(job, config.Default(), testutil.NewSimpleLogger(false), &out))
		require.Contains(t, out.String(), "samples: 3:10")
	})
	t.Run("unknown context name", func(t *testing.T) {
		job, err := ParseJob([]byte("expression: x\ncontext: {y: 1}"), "job.yaml")
		require.NoError(t, err)
		require.Error(t, run(job, config.Default(), testutil.NewSimpleLogger(false), &bytes.Buffer{}))
	})
}
