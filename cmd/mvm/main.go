// Command mvm loads a binary object file and either lists its
// disassembly (-p) or executes it.
package main

import (
	"fmt"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/coursevm/mvm/emu"
	"github.com/coursevm/mvm/loader"
	"github.com/coursevm/mvm/machine"
)

func main() {
	optPrint := getopt.BoolLong("print", 'p', "Print listing and exit, without executing")
	getopt.Parse()

	args := getopt.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: mvm [-p] <file.bof>")
		os.Exit(1)
	}
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		fatal(err)
	}
	defer f.Close()

	if *optPrint {
		runListing(f, path)
		return
	}
	runExecute(f, path)
}

func runListing(f *os.File, path string) {
	m, header, err := loader.Load(f, path)
	if err != nil {
		fatal(err)
	}

	if err := emu.PrintListing(os.Stdout, m, header.TextLength); err != nil {
		fatal(err)
	}
	os.Exit(0)
}

func runExecute(f *os.File, path string) {
	m, _, err := loader.Load(f, path)
	if err != nil {
		fatal(err)
	}

	x := emu.NewExecutor(m)
	code, err := x.Run()
	if err != nil {
		fatal(err)
	}
	os.Exit(code)
}

// fatal is the single sink for every condition the error-handling design
// treats as fatal: print a one-line diagnostic to stderr and exit
// nonzero. The executor and loader never recover from these themselves.
func fatal(err error) {
	if fe, ok := err.(*machine.FatalError); ok {
		fmt.Fprintln(os.Stderr, fe.Error())
	} else {
		fmt.Fprintln(os.Stderr, err.Error())
	}
	os.Exit(1)
}
