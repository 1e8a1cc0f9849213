package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-signalpatch/pkg/logging"
	"github.com/dd0wney/cluso-signalpatch/pkg/metrics"
	"github.com/dd0wney/cluso-signalpatch/pkg/pipeline"
)

const defaultDebounce = 500 * time.Millisecond

// fileWatcher reports changes to a set of files or glob patterns, one
// callback per burst of events.
type fileWatcher struct {
	fs       *fsnotify.Watcher
	patterns []string
	debounce time.Duration
	logger   logging.Logger
}

func newFileWatcher(targets []string, debounce time.Duration, logger logging.Logger) (*fileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &fileWatcher{fs: fsw, debounce: debounce, logger: logger}

	dirs := make(map[string]bool)
	for _, t := range targets {
		if t == "" {
			continue
		}
		pattern := filepath.Clean(t)
		dir := filepath.Dir(pattern)
		if doublestar.ValidatePathPattern(pattern) && isGlob(pattern) {
			dir, _ = doublestar.SplitPattern(filepath.ToSlash(pattern))
			dir = filepath.FromSlash(dir)
		}
		w.patterns = append(w.patterns, pattern)
		if dirs[dir] {
			continue
		}
		// Editors replace files by rename, so the directory is watched.
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	if len(w.patterns) == 0 {
		fsw.Close()
		return nil, errors.New("nothing to watch")
	}
	return w, nil
}

func isGlob(p string) bool {
	for _, c := range p {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

func (w *fileWatcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(ev.Name)
	for _, p := range w.patterns {
		if p == name {
			return true
		}
		if ok, _ := doublestar.PathMatch(p, name); ok {
			return true
		}
	}
	return false
}

// Run calls fn after every burst of relevant events until ctx is done.
func (w *fileWatcher) Run(ctx context.Context, fn func(context.Context)) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("change detected", logging.Path(ev.Name), logging.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logging.Error(err))

		case <-fire:
			fire = nil
			fn(ctx)
		}
	}
}

// Close stops watching.
func (w *fileWatcher) Close() error {
	return w.fs.Close()
}

func newWatchCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rerun the pipeline whenever the proposal or tuning file changes",
		Long: `Watch runs the pipeline once, then again after every change to the
proposal (a file or glob pattern) or the tuning policy file.`,
		Args: cobra.NoArgs,
	}
	rf := addRunFlags(cmd)
	debounce := cmd.Flags().Duration("debounce", defaultDebounce, "Quiet period before rerunning")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := rf.resolve(cmd.Flags())
		if err != nil {
			return err
		}
		if cfg.Proposal == "" {
			return errors.New("watch needs --proposal")
		}
		if _, err := os.Stat(cfg.Proposal); err != nil && !isGlob(cfg.Proposal) {
			return fmt.Errorf("watch needs a proposal file or pattern: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := g.logger().With(logging.Component("watch"))
		opts, err := cfg.options(ctx, logger)
		if err != nil {
			return err
		}
		// One registry across reruns so counters accumulate.
		opts.Metrics = metrics.NewRegistry()

		runOnce := func(ctx context.Context) {
			report, err := pipeline.Run(ctx, opts)
			if report != nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderSummary(report))
			}
			if err != nil {
				logger.Error("run failed", logging.Error(err))
			}
		}

		w, err := newFileWatcher([]string{cfg.Proposal, cfg.Tuning}, *debounce, logger)
		if err != nil {
			return err
		}
		defer w.Close()

		runOnce(ctx)
		logger.Info("watching for changes", logging.Path(cfg.Proposal))
		return w.Run(ctx, runOnce)
	}
	return cmd
}
