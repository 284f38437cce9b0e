package processing

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrProcessingInProgress = errors.New("processing in progress")
)

const (
	ErrorCodeExtractionTimeout = "EXTRACTION_TIMEOUT"
	ErrorCodeSchemaMismatch    = "SCHEMA_MISMATCH"
	ErrorCodeTextExtraction    = "TEXT_EXTRACTION"
	ErrorCodeStorage           = "STORAGE"
	ErrorCodeInternal          = "INTERNAL"
)
