package main

import (
	"os"

	"github.com/kilianp07/datagrid/cmd"
	"github.com/kilianp07/datagrid/core/monitoring"
)

func main() {
	defer monitoring.Recover()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
