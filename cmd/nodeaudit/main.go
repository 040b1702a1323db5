package main

import (
	"nodeaudit/internal/cli"
)

func main() {
	cli.Execute()
}
