// Package main provides the entry point for mvm, a stack-oriented
// word-addressed virtual machine.
//
// For the full CLI, use: go run ./cmd/mvm
package main

import "fmt"

func main() {
	fmt.Println("mvm - word-addressed virtual machine")
	fmt.Println("")
	fmt.Println("Usage: mvm [-p] <file.bof>")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/mvm' for the full CLI.")
}
