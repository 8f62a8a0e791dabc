package importer

import "errors"

var (
	// ErrSaverRequired is returned when a saver is not provided.
	ErrSaverRequired = errors.New("saver required")

	// ErrLineTooLong is returned when an input line exceeds the maximum line size.
	ErrLineTooLong = errors.New("input line too long")
)
