package pipeline

import "errors"

var (
	ErrEmptyInput       = errors.New("no references left after trimming")
	ErrInvalidBatchSize = errors.New("batch size must be a positive integer")
)
