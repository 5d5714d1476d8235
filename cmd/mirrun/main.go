package main

import (
	"fmt"
	"os"

	"github.com/davidkellis/mir-interp/pkg/driver"
)

const cliToolVersion = "mirrun 0.0.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "--help", "-h":
		printUsage()
		return 0
	case "--version", "-V":
		fmt.Println(cliToolVersion)
		return 0
	}

	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "mirrun: unexpected arguments: %v\n", args[1:])
		return 1
	}

	return driver.Run(args[0])
}

func printUsage() {
	fmt.Println("usage: mirrun <module-tree.yaml>")
	fmt.Println()
	fmt.Println(cliToolVersion)
}
