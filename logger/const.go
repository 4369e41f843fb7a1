package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a typed log field.
type Field = zapcore.Field

// Field constructors, re-exported so callers need not import zap.

var (
	Int      = zap.Int
	Int64    = zap.Int64
	Float64  = zap.Float64
	Bool     = zap.Bool
	String   = zap.String
	Strings  = zap.Strings
	Duration = zap.Duration
	Error    = zap.Error
	Any      = zap.Any
)
