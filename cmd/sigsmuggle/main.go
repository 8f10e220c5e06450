// Package main provides the sigsmuggle CLI.
package main

import "github.com/mesh-intelligence/sigsmuggle/internal/cli"

func main() {
	cli.Execute()
}
