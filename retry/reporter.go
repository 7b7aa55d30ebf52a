package retry

import (
	"context"

	"github.com/LeonPucin/dash-core/logger"
)

// ErrorReporter receives exhaustion errors when Config.ReportExhaustion is
// set, in addition to the error returned from Run. Implementations must be
// safe for concurrent use and must not panic.
type ErrorReporter interface {
	CaptureException(ctx context.Context, err error, tags map[string]string)
}

// ReporterFunc adapts a function to ErrorReporter.
type ReporterFunc func(ctx context.Context, err error, tags map[string]string)

func (f ReporterFunc) CaptureException(ctx context.Context, err error, tags map[string]string) {
	f(ctx, err, tags)
}

// logReporter is the default reporter: an error-level log entry.
type logReporter struct {
	log *logger.Logger
}

func (r *logReporter) CaptureException(ctx context.Context, err error, tags map[string]string) {
	fields := make([]logger.Field, 0, len(tags)+1)
	for k, v := range tags {
		fields = append(fields, logger.String(k, v))
	}
	fields = append(fields, logger.Err(err))

	_ = r.log.WithContext(ctx).Error("unhandled retry exhaustion", fields...)
}
