package memtester

import (
	"log"
	"math/rand"
)

// A Builder can build testers.
type Builder struct {
	seed       int64
	maxAddress uint32
	numAccess  int
	logger     *log.Logger
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		seed:       1,
		maxAddress: 1 << 16,
		numAccess:  1000,
	}
}

// WithSeed sets the seed of the random source.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithMaxAddress sets the word address range, exclusive.
func (b Builder) WithMaxAddress(maxAddress uint32) Builder {
	b.maxAddress = maxAddress
	return b
}

// WithNumAccess sets the number of writes.
func (b Builder) WithNumAccess(n int) Builder {
	b.numAccess = n
	return b
}

// WithLogger prints every request the tester makes and every mismatch it
// finds. Without a logger the tester is silent.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a new tester.
func (b Builder) Build() *Tester {
	if b.maxAddress == 0 {
		panic("max address must be positive")
	}

	if b.numAccess <= 0 {
		panic("number of accesses must be positive")
	}

	return &Tester{
		rng:        rand.New(rand.NewSource(b.seed)),
		logger:     b.logger,
		maxAddress: b.maxAddress,
		writeLeft:  b.numAccess,
		known:      make(map[uint32]uint32),
	}
}
