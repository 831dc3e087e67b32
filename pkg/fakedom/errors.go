package fakedom

import (
	"errors"

	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
)

var (
	// ErrFieldGone is returned for fields removed from the document.
	ErrFieldGone = inputvalidation.ErrFieldGone

	// ErrScript indicates a reaction script failed to compile or run.
	ErrScript = errors.New("fakedom: reaction script failed")
)
