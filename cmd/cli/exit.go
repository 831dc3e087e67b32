package main

import (
	"io"

	"github.com/fieldprobe/fieldprobe/pkg/output/exitcode"
	"github.com/fieldprobe/fieldprobe/pkg/ui"
)

// fail prints err and returns its exit code.
func fail(w io.Writer, err error) int {
	ui.PrintError(w, err.Error())
	return exitcode.FromError(err).Int()
}
