package main

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/sarchlab/sdramsim/datarecording"
	"github.com/sarchlab/sdramsim/monitoring"
	"github.com/sarchlab/sdramsim/sdram"
	"github.com/sarchlab/sdramsim/sdram/acceptancetests/memtester"
	"github.com/sarchlab/sdramsim/sdram/chip"
	"github.com/sarchlab/sdramsim/sim"
	"github.com/sarchlab/sdramsim/simulation"
	"github.com/sarchlab/sdramsim/tracing"
)

func newRunCmd() *cobra.Command {
	cfg := config{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the memory tester until every word is read back.",
		Long: `Run builds the controller, the device model and the memory ` +
			`tester, runs until the tester has read back every word it ` +
			`wrote, and prints a summary. It fails if any read returned ` +
			`wrong data or the device saw a timing violation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}

			return runTest(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	addCommonFlags(runCmd, &cfg)

	flags := runCmd.Flags()
	flags.IntVar(&cfg.NumAccess, "num-access",
		envInt("SDRAMSIM_NUM_ACCESS", 1000), "Number of words to write")
	flags.BoolVar(&cfg.Monitor, "monitor",
		envBool("SDRAMSIM_MONITOR", false), "Serve the monitoring web page")
	flags.IntVar(&cfg.MonitorPort, "monitor-port",
		envInt("SDRAMSIM_MONITOR_PORT", 0), "Port of the monitoring server")
	flags.BoolVar(&cfg.OpenBrowser, "open-browser", false,
		"Open the monitoring page in a browser")
	flags.StringVar(&cfg.Record, "record",
		envString("SDRAMSIM_RECORD", ""),
		"Record commands into this SQLite file, without extension")
	flags.StringVar(&cfg.ClickHouse, "clickhouse",
		envString("SDRAMSIM_CLICKHOUSE", ""),
		"Record commands into the ClickHouse server at this DSN")
	flags.BoolVar(&cfg.Trace, "trace",
		envBool("SDRAMSIM_TRACE", false), "Record request and refresh tasks")
	flags.BoolVar(&cfg.LogCommands, "log-commands", false,
		"Print every command issued to the device")
	flags.BoolVar(&cfg.LogEvents, "log-events", false,
		"Print every event the engine handles")
	flags.BoolVar(&cfg.LogRequests, "log-requests", false,
		"Print every request the memory tester makes")
	flags.BoolVar(&cfg.ParallelIDs, "parallel-ids",
		envBool("SDRAMSIM_PARALLEL_IDS", false),
		"Use IDs that are unique across runs, for sharing a trace database")
	flags.Uint64Var(&cfg.MaxCycles, "max-cycles", 0,
		"Stop after this many cycles, 0 for no limit")

	return runCmd
}

func addCommonFlags(cmd *cobra.Command, cfg *config) {
	flags := cmd.Flags()

	flags.Uint32Var(&cfg.MaxAddress, "max-address",
		uint32(envInt("SDRAMSIM_MAX_ADDRESS", 1<<20)),
		"Word addresses are drawn from [0, max-address)")
	flags.Int64Var(&cfg.Seed, "seed",
		int64(envInt("SDRAMSIM_SEED", 1)), "Seed of the memory tester")
	flags.Float64Var(&cfg.FreqMHz, "freq-mhz",
		envFloat("SDRAMSIM_FREQ_MHZ", 100), "Controller clock in MHz")
}

// testbench is everything a run is made of.
type testbench struct {
	engine  sim.Engine
	sim     *simulation.Simulation
	device  *chip.Chip
	tester  *memtester.Tester
	comp    *sdram.Comp
	counter *sdram.CommandCounter
	latency *tracing.LatencyTracer
	refresh *tracing.BusyTimeTracer
	steps   *tracing.StepCountTracer
	bar     *monitoring.ProgressBar
	cycles  uint64
}

// buildTestbench assembles a run. The loggers that the log flags turn on
// write to logOut.
func buildTestbench(cfg config, logOut io.Writer) (*testbench, error) {
	tb := &testbench{
		counter: sdram.NewCommandCounter(),
	}

	if cfg.ParallelIDs {
		sim.UseParallelIDGenerator()
	} else {
		sim.UseSequentialIDGenerator()
	}

	if cfg.recording() || cfg.Monitor {
		b := simulation.MakeBuilder().WithOutputFileName(cfg.Record)

		if cfg.ClickHouse != "" {
			recorder, err := datarecording.NewClickHouse(cfg.ClickHouse, 0)
			if err != nil {
				return nil, err
			}

			b = b.WithDataRecorder(recorder)
		}

		if cfg.Monitor {
			b = b.WithMonitorPort(cfg.MonitorPort)
		} else {
			b = b.WithoutMonitoring()
		}

		tb.sim = b.Build()
		tb.engine = tb.sim.GetEngine()
	} else {
		tb.engine = sim.NewSerialEngine()
	}

	if cfg.LogEvents {
		tb.engine.AcceptHook(sim.NewEventLogger(log.New(logOut, "", 0)))
	}

	testerBuilder := memtester.MakeBuilder().
		WithSeed(cfg.Seed).
		WithMaxAddress(cfg.MaxAddress).
		WithNumAccess(cfg.NumAccess)

	if cfg.LogRequests {
		testerBuilder = testerBuilder.WithLogger(log.New(logOut, "", 0))
	}

	tb.tester = testerBuilder.Build()

	builder := sdram.MakeBuilder().
		WithEngine(tb.engine).
		WithFreq(cfg.freq()).
		WithClient(tb.tester).
		WithStopCondition(tb.shouldStop(cfg)).
		WithAdditionalHooks(tb.counter)

	tb.device = chip.New(chipConfig(builder.CycleTiming()))
	builder = builder.WithDevice(tb.device)

	if cfg.LogCommands {
		builder = builder.WithAdditionalHooks(
			sdram.NewCommandLogger(log.New(logOut, "", 0)))
	}

	if tb.sim != nil {
		builder = builder.WithAdditionalHooks(
			sdram.NewCommandRecorder(tb.sim.GetDataRecorder()))
	}

	tb.comp = builder.Build("SDRAM")

	tb.latency = tracing.NewLatencyTracer(tb.engine, cfg.freq(),
		tracing.KindFilter(sdram.TaskKindRequest))
	tb.refresh = tracing.NewBusyTimeTracer(tb.engine, cfg.freq(),
		tracing.KindFilter(sdram.TaskKindRefresh))
	tb.steps = tracing.NewStepCountTracer(
		tracing.KindFilter(sdram.TaskKindRequest))
	tracing.CollectTrace(tb.comp, tb.latency)
	tracing.CollectTrace(tb.comp, tb.refresh)
	tracing.CollectTrace(tb.comp, tb.steps)
	tb.engine.RegisterSimulationEndHandler(tb.refresh)

	if tb.sim != nil {
		tb.sim.RegisterComponent(tb.comp)

		if cfg.Trace {
			tracing.CollectTrace(tb.comp, tb.sim.GetVisTracer())
		} else {
			tb.sim.GetVisTracer().StopTracing()
		}

		if m := tb.sim.GetMonitor(); m != nil {
			tb.bar = m.CreateProgressBar("Memory test", uint64(2*cfg.NumAccess))
		}
	}

	return tb, nil
}

// shouldStop is checked by the controller at every cycle, while it holds its
// own lock, so it must not call back into the controller.
func (tb *testbench) shouldStop(cfg config) func() bool {
	return func() bool {
		tb.cycles++

		if tb.bar != nil && tb.cycles%1024 == 0 {
			tb.bar.SetFinished(uint64(tb.tester.Writes() + tb.tester.Reads()))
		}

		if cfg.MaxCycles > 0 && tb.cycles > cfg.MaxCycles {
			return true
		}

		return tb.tester.Done()
	}
}

func runTest(cfg config, out, logOut io.Writer) error {
	tb, err := buildTestbench(cfg, logOut)
	if err != nil {
		return err
	}

	if tb.sim != nil {
		defer tb.sim.Terminate()

		if cfg.OpenBrowser {
			if err := tb.sim.GetMonitor().OpenBrowser(); err != nil {
				fmt.Fprintf(logOut, "cannot open browser: %v\n", err)
			}
		}
	}

	tb.comp.Start()

	if err := tb.engine.Run(); err != nil {
		return err
	}

	tb.engine.Finished()

	if tb.bar != nil {
		tb.bar.SetFinished(uint64(tb.tester.Writes() + tb.tester.Reads()))
		tb.sim.GetMonitor().CompleteProgressBar(tb.bar)
	}

	printSummary(out, tb)

	return tb.verdict()
}

func printSummary(out io.Writer, tb *testbench) {
	fmt.Fprintf(out, "cycles: %d\n", tb.comp.Cycle())
	fmt.Fprintf(out, "time: %.9f s\n", tb.engine.CurrentTime())
	fmt.Fprintf(out, "events handled: %d\n", tb.engine.Handled())

	for kind := sdram.CommandKind(1); kind < sdram.NumCmdKind; kind++ {
		fmt.Fprintf(out, "%s: %d\n", kind, tb.counter.Count(kind))
	}

	for _, step := range sdram.RequestSteps {
		fmt.Fprintf(out, "%s: %d\n", step, tb.steps.StepCount(step))
	}

	fmt.Fprintf(out, "average request latency: %.2f cycles (%.9f s)\n",
		tb.latency.AverageCycles(), tb.latency.AverageTime())
	fmt.Fprintf(out, "max request latency: %d cycles\n",
		tb.latency.MaxCycles())
	fmt.Fprintf(out, "time in refresh: %d cycles (%.9f s)\n",
		tb.refresh.BusyCycles(), tb.refresh.BusyTime())

	fmt.Fprintf(out, "writes: %d\n", tb.tester.Writes())
	fmt.Fprintf(out, "reads: %d\n", tb.tester.Reads())
	fmt.Fprintf(out, "mismatches: %d\n", len(tb.tester.Mismatches()))
	fmt.Fprintf(out, "violations: %d\n", len(tb.device.Violations()))

	for _, v := range tb.device.Violations() {
		fmt.Fprintf(out, "  %s\n", v)
	}
}

func (tb *testbench) verdict() error {
	if n := len(tb.tester.Mismatches()); n > 0 {
		return fmt.Errorf("%d reads returned wrong data", n)
	}

	if n := len(tb.device.Violations()); n > 0 {
		return fmt.Errorf("the device saw %d violations", n)
	}

	if !tb.tester.Done() {
		return fmt.Errorf("stopped after %d cycles before the test finished",
			tb.comp.Cycle())
	}

	return nil
}
