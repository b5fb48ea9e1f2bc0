package logging

import (
	"sort"
	"sync"
)

// Registry tracks named loggers so that their levels can be changed from configuration.
type Registry struct {
	mu       sync.RWMutex
	loggers  map[string]Logger
	patterns []levelPattern
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		loggers: make(map[string]Logger),
	}
}

// Register will either return an existing logger for `name` or register `logger` under that
// name and configure it based on the current patterns.
func (lr *Registry) Register(name string, logger Logger) Logger {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if existing, ok := lr.loggers[name]; ok {
		return existing
	}
	lr.loggers[name] = logger
	if level, ok := lr.matchLevel(name); ok {
		logger.SetLevel(level)
	}
	return logger
}

// LoggerNamed returns the logger registered under name.
func (lr *Registry) LoggerNamed(name string) (Logger, bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok := lr.loggers[name]
	return logger, ok
}

// Names returns the registered logger names in sorted order.
func (lr *Registry) Names() []string {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	names := make([]string, 0, len(lr.loggers))
	for name := range lr.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UpdateConfig replaces the pattern set and re-levels every registered logger. Loggers matched
// by no pattern go back to INFO; for overlapping patterns the last one wins. Invalid patterns are
// skipped with a warning on errorLogger.
func (lr *Registry) UpdateConfig(logConfig []LoggerPatternConfig, errorLogger Logger) error {
	patterns := make([]levelPattern, 0, len(logConfig))
	for _, lpc := range logConfig {
		if !ValidatePattern(lpc.Pattern) {
			errorLogger.Warnw("failed to validate a pattern", "pattern", lpc.Pattern)
			continue
		}
		p, err := compilePattern(lpc)
		if err != nil {
			return err
		}
		patterns = append(patterns, p)
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.patterns = patterns
	for name, logger := range lr.loggers {
		level, ok := lr.matchLevel(name)
		if !ok {
			level = INFO
		}
		logger.SetLevel(level)
	}
	return nil
}

// matchLevel must be called with lr.mu held.
func (lr *Registry) matchLevel(name string) (Level, bool) {
	for i := len(lr.patterns) - 1; i >= 0; i-- {
		if lr.patterns[i].matcher.MatchString(name) {
			return lr.patterns[i].level, true
		}
	}
	return INFO, false
}
