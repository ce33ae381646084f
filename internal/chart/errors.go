package chart

import "errors"

var (
	// ErrInvalidChart is returned for unusable chart metadata: unknown chart type,
	// missing Y selection, or a Y count the chart type cannot draw.
	ErrInvalidChart = errors.New("invalid chart")

	// ErrMissingColumn is returned when an axis column does not exist after the transform pipeline.
	ErrMissingColumn = errors.New("missing column")
)
