package observability

import (
	"go.uber.org/zap"
)

// Field aliases keep call sites free of a direct zap import.
//
//nolint:gochecknoglobals // Function aliases
var (
	String   = zap.String
	Int      = zap.Int
	Bool     = zap.Bool
	Error    = zap.Error
	Duration = zap.Duration
)
