// symeval compiles a symbolic expression, samples it on a grid and re-evaluates
// it while simulated sliders change its dynamic parameters.
//
// Usage:
//
//	symeval -job job.yaml [-config symeval.yaml] [-debug]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lunfardo314/easysym/config"
	"github.com/lunfardo314/easysym/debounce"
	"github.com/lunfardo314/easysym/expr"
	"github.com/lunfardo314/easysym/symfun"
	"github.com/lunfardo314/easysym/util/eventloop"
	"github.com/lunfardo314/easysym/util/waitingroom"
	"go.uber.org/zap"
)

func main() {
	jobPath := flag.String("job", "", "job file (YAML)")
	configPath := flag.String("config", "", "config file (YAML), defaults are used if omitted")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	if *jobPath == "" {
		fmt.Fprintln(os.Stderr, "-job is required")
		flag.Usage()
		os.Exit(2)
	}
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *debug {
		cfg.Log.Debug = true
	}
	log, err := cfg.Log.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	job, err := LoadJob(*jobPath)
	if err != nil {
		log.Fatal(err)
	}
	if err = run(job, cfg, log, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(job *Job, cfg *config.Config, log *zap.SugaredLogger, out io.Writer) error {
	cache, err := symfun.NewCache(cfg.Cache.Capacity, log)
	if err != nil {
		return err
	}
	declared := job.declaredSymbols()
	tab := expr.NewSymbolTable(declared...)
	e, err := job.readExpression(tab)
	if err != nil {
		return err
	}
	opts := []symfun.CompileOption{symfun.WithLogger(log.Named("compile"))}
	if job.Functions != "" {
		opts = append(opts, symfun.WithFunctionSource(job.Functions))
	}
	fun, err := cache.Compile(e, declared, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n%s\n", fun, fun.Source())

	live := symfun.NewLiveContext()
	bySymbolName := make(map[string]*expr.Symbol)
	for _, p := range fun.Signature().Params() {
		bySymbolName[p.Symbol.Name()] = p.Symbol
		bySymbolName[p.Name] = p.Symbol
	}
	setValues := func(values map[string]float64) error {
		for _, name := range sortedKeys(values) {
			sym, ok := bySymbolName[name]
			if !ok {
				return fmt.Errorf("context: '%s' is not a parameter of %s", name, fun)
			}
			live.Set(sym, values[name])
		}
		return nil
	}
	if err = setValues(job.Context); err != nil {
		return err
	}
	bound, err := fun.Freeze(job.bindings()...)
	if err != nil {
		return err
	}
	bound = bound.SetParameterContext(live)
	fmt.Fprintf(out, "bound: %s\n", bound)

	xs := job.Grid.points()
	if err = sample(bound, xs, out); err != nil {
		return err
	}
	if len(job.Sliders) == 0 {
		return nil
	}
	return slide(job, cfg, log, out, bound, xs, setValues)
}

func sample(bound *symfun.BoundFunction, xs []float64, out io.Writer) error {
	if len(xs) == 0 {
		v, err := bound.Call()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "value: %s\n", formatFloat(v))
		return nil
	}
	ys, err := bound.Map(xs)
	if err != nil {
		return err
	}
	parts := make([]string, len(xs))
	for i := range xs {
		parts[i] = formatFloat(xs[i]) + ":" + formatFloat(ys[i])
	}
	fmt.Fprintf(out, "samples: %s\n", strings.Join(parts, " "))
	return nil
}

// slide moves the sliders one after another and lets a debouncer re-sample the
// function. Only the last state of the sliders is guaranteed to be sampled
func slide(job *Job, cfg *config.Config, log *zap.SugaredLogger, out io.Writer, bound *symfun.BoundFunction, xs []float64, setValues func(map[string]float64) error) error {
	substrate, stop, err := newSubstrate(cfg, log)
	if err != nil {
		return err
	}
	defer stop()

	last := len(job.Sliders) - 1
	done := make(chan struct{})
	d, err := debounce.New[int](func(move int) error {
		fmt.Fprintf(out, "after move #%d ", move)
		if err := sample(bound, xs, out); err != nil {
			return err
		}
		if move == last {
			close(done)
		}
		return nil
	}, cfg.Debounce.RateLimit,
		debounce.WithSubstrate(substrate),
		debounce.WithLogger(log),
		debounce.WithName("sliders"),
		debounce.OnError(func(err error) {
			fmt.Fprintf(out, "failed: %v\n", err)
		}),
	)
	if err != nil {
		return err
	}
	defer d.Close()

	every, _ := job.sliderEvery()
	for i, move := range job.Sliders {
		if err = setValues(move); err != nil {
			return err
		}
		d.Request(i)
		time.Sleep(every)
	}
	select {
	case <-done:
	case <-time.After(10*d.Interval() + time.Second):
		return fmt.Errorf("last slider move was not evaluated")
	}
	log.Infof("sliders: %s", d.Stats())
	return nil
}

func newSubstrate(cfg *config.Config, log *zap.SugaredLogger) (debounce.Substrate, func(), error) {
	switch cfg.Debounce.Substrate {
	case config.SubstrateWaitingRoom:
		period, err := cfg.Debounce.Poll()
		if err != nil {
			return nil, nil, err
		}
		wr := waitingroom.Create(period)
		return wr, wr.Stop, nil
	case config.SubstrateEventLoop:
		l := eventloop.New(log)
		return l, l.Stop, nil
	}
	return waitingroom.Timer{}, func() {}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func sortedKeys[V any](m map[string]V) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
