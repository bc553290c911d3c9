package voltstore

import (
	"errors"
	"fmt"
)

var (
	errBadDecayTag  = errors.New("unrecognized decay level tag")
	errBadMagic     = errors.New("bad magic")
	errBadVersion   = errors.New("unsupported version")
	errTruncated    = errors.New("truncated data")
	errBadRole      = errors.New("unrecognized slot role tag")
	errBadDiscourse = errors.New("unrecognized discourse type tag")
)

func wrapStorage(context string, err error) error {
	return fmt.Errorf("voltstore: %s: %w: %w", context, err, ErrStorage)
}

func wrapSortedRun(context string, err error) error {
	return fmt.Errorf("voltstore: %s: %w: %w", context, err, ErrSortedRun)
}

func wrapStrand(context string, err error) error {
	return fmt.Errorf("voltstore: %s: %w: %w", context, err, ErrStrand)
}
