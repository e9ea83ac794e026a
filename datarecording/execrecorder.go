package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// execInfo is one property of the program execution.
type execInfo struct {
	Property string
	Value    string
}

// execRecorder records how and when the program ran into the exec_info
// table.
type execRecorder struct {
	tableName string
	recorder  DataRecorder
	entries   []execInfo
}

const execTimeFormat = "2006-01-02 15:04:05.000000000"

func newExecRecorder(recorder DataRecorder) *execRecorder {
	e := &execRecorder{
		tableName: "exec_info",
		recorder:  recorder,
	}

	e.recorder.CreateTable(e.tableName, execInfo{})

	return e
}

// Start logs the current execution.
func (e *execRecorder) Start() {
	e.entries = append(e.entries,
		execInfo{"Start Time", time.Now().Format(execTimeFormat)},
		execInfo{"Command", strings.Join(os.Args, " ")},
	)

	ex, err := os.Executable()
	if err == nil {
		e.entries = append(e.entries,
			execInfo{"Working Directory", filepath.Dir(ex)})
	}
}

// End writes the collected properties along with the exit time.
func (e *execRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(e.tableName, entry)
	}

	e.recorder.InsertData(e.tableName,
		execInfo{"End Time", time.Now().Format(execTimeFormat)})

	e.entries = nil
}
