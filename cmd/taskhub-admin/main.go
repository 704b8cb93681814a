package main

import (
	"github.com/turtacn/taskhub/cmd/cli"
)

// main delegates to the cli package.
func main() {
	cli.Execute()
}
