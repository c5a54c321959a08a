// Package main provides the entry point for the schem-tracer command.
package main

import (
	"log"

	"schem-tracer/internal/cli"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cli.Execute()
}
