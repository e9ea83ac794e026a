package sim

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator hands out the IDs of events, trace tasks and progress bars.
type IDGenerator interface {
	Generate() string
}

var idGeneratorMutex sync.Mutex
var sequentialIDs = &sequentialIDGenerator{}
var idGenerator IDGenerator = sequentialIDs

// UseSequentialIDGenerator makes IDs decimal numbers counting up from 1, so
// two runs with the same seed trace the same IDs. This is the default.
func UseSequentialIDGenerator() {
	setIDGenerator(sequentialIDs)
}

// UseParallelIDGenerator makes IDs xid strings that are unique across runs
// and processes, so that several runs can share one trace database.
func UseParallelIDGenerator() {
	setIDGenerator(parallelIDGenerator{})
}

// Switching generators never repeats an ID. The sequential counter is never
// reset and an xid is 20 characters long, far more digits than the counter
// reaches.
func setIDGenerator(g IDGenerator) {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	idGenerator = g
}

// GetIDGenerator returns the ID generator selected last.
func GetIDGenerator() IDGenerator {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	return idGenerator
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	return strconv.FormatUint(atomic.AddUint64(&g.nextID, 1), 10)
}

type parallelIDGenerator struct{}

func (parallelIDGenerator) Generate() string {
	return xid.New().String()
}
