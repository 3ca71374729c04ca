// Package main provides murmurctl, the operator command line for Murmur.
package main

import (
	"os"

	"github.com/murmurapp/murmur-server/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
