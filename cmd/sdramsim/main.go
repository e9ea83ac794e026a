// Command sdramsim runs an SDRAM controller against a device model and a
// memory tester.
package main

import (
	"github.com/joho/godotenv"
	"github.com/tebeka/atexit"
)

func main() {
	// A missing .env file is fine. Flags and the environment still apply.
	_ = godotenv.Load()

	err := newRootCmd().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
