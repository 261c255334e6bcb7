// Package main is campusctl, the offline directory and availability tool.
package main

import (
	"os"
	_ "time/tzdata" // reference timezone without system zoneinfo

	"github.com/garyellow/campus-assist-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
