package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sarchlab/sdramsim/sdram"
	"github.com/sarchlab/sdramsim/sdram/chip"
	"github.com/sarchlab/sdramsim/sim"
)

type config struct {
	NumAccess   int
	MaxAddress  uint32
	Seed        int64
	FreqMHz     float64
	MaxCycles   uint64
	Monitor     bool
	MonitorPort int
	OpenBrowser bool
	Record      string
	ClickHouse  string
	Trace       bool
	LogCommands bool
	LogEvents   bool
	LogRequests bool
	ParallelIDs bool
}

func envString(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}

	return def
}

func envInt(name string, def int) int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignoring %s=%q: %v\n", name, v, err)
		return def
	}

	return i
}

func envFloat(name string, def float64) float64 {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignoring %s=%q: %v\n", name, v, err)
		return def
	}

	return f
}

func envBool(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignoring %s=%q: %v\n", name, v, err)
		return def
	}

	return b
}

func (c config) validate() error {
	if c.NumAccess <= 0 {
		return fmt.Errorf("num-access must be positive, got %d", c.NumAccess)
	}

	if c.MaxAddress == 0 {
		return fmt.Errorf("max-address must be positive")
	}

	capacity := sdram.DefaultMapper().Capacity()
	if uint64(c.MaxAddress) > capacity {
		return fmt.Errorf("max-address %d exceeds the capacity of %d words",
			c.MaxAddress, capacity)
	}

	if c.FreqMHz <= 0 {
		return fmt.Errorf("freq-mhz must be positive, got %f", c.FreqMHz)
	}

	if c.MonitorPort != 0 && !c.Monitor {
		return fmt.Errorf("monitor-port requires --monitor")
	}

	if c.OpenBrowser && !c.Monitor {
		return fmt.Errorf("open-browser requires --monitor")
	}

	if c.Record != "" && c.ClickHouse != "" {
		return fmt.Errorf("record and clickhouse cannot be used together")
	}

	if c.Trace && !c.recording() && !c.Monitor {
		return fmt.Errorf("trace requires --record, --clickhouse or --monitor")
	}

	return nil
}

func (c config) recording() bool {
	return c.Record != "" || c.ClickHouse != ""
}

func (c config) freq() sim.Freq {
	return sim.Freq(c.FreqMHz) * sim.MHz
}

func chipConfig(t sdram.CycleTiming) chip.Config {
	return chip.Config{
		PowerUpCycles: t.PowerUp,
		TRP:           t.TRP,
		TRFC:          t.TRFC,
		TRCD:          t.TRCD,
		TMRD:          t.TMRD,
		MaxRefreshGap: t.MaxRefreshGap(),
	}
}
