package config

import (
	"context"
	"path/filepath"
	"reflect"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/services/firecontrol"
	"github.com/ftcshooter/firecontrol/utils"
)

// A Watcher re-reads a config file whenever it changes and delivers every config that reads and
// validates cleanly. Configs that fail are logged and skipped.
type Watcher struct {
	path    string
	logger  logging.Logger
	fsw     *fsnotify.Watcher
	configs chan *Config
	workers *utils.StoppableWorkers
}

// NewWatcher starts watching the file at path. The directory is watched rather than the file so
// that editors which replace the file on save are still seen.
func NewWatcher(path string, logger logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "watching %q", path), fsw.Close())
	}
	w := &Watcher{
		path:    abs,
		logger:  logger,
		fsw:     fsw,
		configs: make(chan *Config),
	}
	w.workers = utils.NewStoppableWorkers(w.watch)
	return w, nil
}

// Config returns the channel new configs are delivered on.
func (w *Watcher) Config() <-chan *Config {
	return w.configs
}

func (w *Watcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("config watcher error", "error", err)
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Read(w.path, w.logger)
			if err != nil {
				w.logger.Warnw("ignoring changed config", "path", w.path, "error", err)
				continue
			}
			w.logger.Infow("config changed", "path", w.path)
			select {
			case <-ctx.Done():
				return
			case w.configs <- cfg:
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return multierr.Combine(w.fsw.Close(), w.workers.Stop())
}

// GoalUpdater accepts new goal positions.
type GoalUpdater interface {
	UpdateGoals(goals map[string]firecontrol.GoalConfig, selected string) error
}

// ApplyLive applies the parts of next that can change while running: the goals and the logger
// levels. Any other difference from prev only takes effect on restart and is logged.
func ApplyLive(prev, next *Config, goals GoalUpdater, registry *logging.Registry, logger logging.Logger) error {
	err := goals.UpdateGoals(next.FireControl.Goals, next.FireControl.Goal)
	err = multierr.Append(err, registry.UpdateConfig(next.Log, logger))
	if prev != nil && !restartEquivalent(prev, next) {
		logger.Warn("config changes outside goals and log levels apply on restart")
	}
	return err
}

func restartEquivalent(a, b *Config) bool {
	ac, bc := *a, *b
	ac.FireControl.Goals, bc.FireControl.Goals = nil, nil
	ac.FireControl.Goal, bc.FireControl.Goal = "", ""
	ac.Log, bc.Log = nil, nil
	ac.ConfigFilePath, bc.ConfigFilePath = "", ""
	return reflect.DeepEqual(ac, bc)
}
