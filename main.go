package main

import (
	"os"

	"github.com/Sussexdowns/Foodshare/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
