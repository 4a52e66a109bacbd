package main

import (
	"context"
	"os"

	"github.com/arxaplan/cutout/cmd"
	"github.com/charmbracelet/fang"
)

func main() {
	root := cmd.NewRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(cmd.Version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
