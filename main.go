// Package main provides the entry point for cnnsim.
// cnnsim is a cycle-accurate fixed-point CNN inference datapath simulator.
//
// For the full CLI, use: go run ./cmd/cnnsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("cnnsim - Fixed-Point CNN Datapath Simulator")
	fmt.Println("")
	fmt.Println("Usage: cnnsim [options] <input.csv> <weights.csv> [expected.csv]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to layer configuration JSON file")
	fmt.Println("  -gap       Idle cycles inserted between input windows")
	fmt.Println("  -csv       Print outputs as CSV instead of a report")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/cnnsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/cnnsim' instead.")
	}
}
