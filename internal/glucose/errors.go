package glucose

import "errors"

// Error variables for the analysis pipeline.
var (
	// ErrMalformedInput is fatal: a corrupt store cannot be trusted
	// by any downstream stage.
	ErrMalformedInput = errors.New("malformed input")

	// ErrInsufficientData is recovered per meal: the record is
	// skipped and a warning is surfaced.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNoData is recovered per summary category: the average is
	// reported as unavailable.
	ErrNoData = errors.New("no data")

	ErrEmptyStore     = errors.New("reading store is empty")
	ErrConfigFileRead = errors.New("cannot read config file")
	ErrConfigInvalid  = errors.New("invalid config")
	ErrUnknownColumn  = errors.New("column not found in header")
)
