package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a typed key/value attached to an entry.
type Field = zapcore.Field

func String(key, value string) Field {
	return zap.String(key, value)
}

func Int(key string, value int) Field {
	return zap.Int(key, value)
}

func Int64(key string, value int64) Field {
	return zap.Int64(key, value)
}

func Float64(key string, value float64) Field {
	return zap.Float64(key, value)
}

func Bool(key string, value bool) Field {
	return zap.Bool(key, value)
}

func Duration(key string, value time.Duration) Field {
	return zap.Duration(key, value)
}

// Err is the conventional "error" field.
func Err(err error) Field {
	return zap.Error(err)
}

// Any picks an encoding by reflection. Prefer the typed constructors.
func Any(key string, value any) Field {
	return zap.Any(key, value)
}
