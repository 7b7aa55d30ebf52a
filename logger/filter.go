package logger

import (
	"path"
	"strings"

	"go.uber.org/zap/zapcore"
)

// serviceFilter drops debug entries whose logger name is not enabled.
type serviceFilter struct {
	zapcore.Core
	match matcher
}

func newServiceFilter(core zapcore.Core, patterns []string) zapcore.Core {
	m := newMatcher(patterns)
	if m.all() {
		return core
	}
	return &serviceFilter{Core: core, match: m}
}

func (f *serviceFilter) With(fields []zapcore.Field) zapcore.Core {
	return &serviceFilter{Core: f.Core.With(fields), match: f.match}
}

func (f *serviceFilter) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.Level < zapcore.InfoLevel && !f.match.enabled(ent.LoggerName) {
		return ce
	}
	return f.Core.Check(ent, ce)
}

type matcher struct {
	include []string
	exclude []string
}

func newMatcher(patterns []string) matcher {
	var m matcher
	for _, p := range patterns {
		for _, part := range strings.Split(p, ",") {
			part = strings.TrimSpace(part)
			switch {
			case part == "":
			case strings.HasPrefix(part, "-"):
				m.exclude = append(m.exclude, part[1:])
			default:
				m.include = append(m.include, part)
			}
		}
	}
	return m
}

func (m matcher) all() bool {
	return len(m.include) == 0 && len(m.exclude) == 0
}

func (m matcher) enabled(name string) bool {
	for _, p := range m.exclude {
		if ok, _ := path.Match(p, name); ok {
			return false
		}
	}
	if len(m.include) == 0 {
		return true
	}
	for _, p := range m.include {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}
