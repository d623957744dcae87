package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grugscript/grug/internal/runtime"
	"github.com/grugscript/grug/pkg/grug"
	"github.com/spf13/cobra"
)

var (
	watchModAPI    string
	watchDLLRoot   string
	watchInterval  time.Duration
	watchTimeLimit time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <mods-dir>",
	Short: "Watch a mod directory and recompile changed files on a poll loop",
	Long: `Continuously walk a mods directory, recompile any new or changed
mod file, and report every reload until interrupted.

This exercises the exact cycle the game host runs via pkg/grug.Init and
pkg/grug.Engine.RegenerateModifiedMods, so it is also useful as a
standalone smoke test of the watcher against a real mod tree.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchModAPI, "mod-api", "mod_api.json", "path to the mod API manifest")
	watchCmd.Flags().StringVar(&watchDLLRoot, "dll-root", "", "directory to compile .so files into (default: <mods-dir>-dlls)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Second, "poll interval")
	watchCmd.Flags().DurationVar(&watchTimeLimit, "on-fn-time-limit", 16*time.Millisecond, "on_ function time budget")
}

func runWatch(cmd *cobra.Command, args []string) error {
	modsRoot := args[0]
	dllRoot := watchDLLRoot
	if dllRoot == "" {
		dllRoot = modsRoot + "-dlls"
	}

	engine, err := grug.Init(watchErrorHandler, watchModAPI, modsRoot, dllRoot, watchTimeLimit)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "filesystem notifications unavailable (%v), falling back to polling only\n", err)
		fsWatcher = nil
	} else {
		defer fsWatcher.Close()
		if err := addRecursiveWatches(fsWatcher, modsRoot); err != nil {
			fmt.Fprintf(os.Stderr, "failed to watch %s (%v), falling back to polling only\n", modsRoot, err)
			fsWatcher.Close()
			fsWatcher = nil
		}
	}

	fmt.Printf("Watching %s (writing to %s), polling every %s. Ctrl-C to stop.\n", modsRoot, dllRoot, watchInterval)

	regenerate := func() {
		if err := engine.RegenerateModifiedMods(); err != nil {
			reportCompileError(err)
			return
		}
		for _, entry := range engine.ReloadQueue() {
			fmt.Printf("reloaded %s\n", entry.Path)
		}
		for _, entry := range engine.ResourceReloadQueue() {
			fmt.Printf("resource changed %s\n", entry.Path)
		}
		if fsWatcher != nil {
			// A reload may have created new mod directories; watch those too.
			if err := addRecursiveWatches(fsWatcher, modsRoot); err != nil {
				fmt.Fprintf(os.Stderr, "failed to extend watches under %s: %v\n", modsRoot, err)
			}
		}
	}

	// fsnotify wakes the loop as soon as a file changes instead of waiting
	// for the next tick; debounce a short burst of events (a save often
	// fires several) into a single regenerate call. The ticker stays as
	// the source of truth so a missed or coalesced event never stalls
	// reloading — events only make reloads arrive sooner, never replace
	// the poll-driven recompile decision inside Watcher.Regenerate.
	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		var events chan fsnotify.Event
		var errs chan error
		if fsWatcher != nil {
			events = fsWatcher.Events
			errs = fsWatcher.Errors
		}

		select {
		case <-sigCh:
			fmt.Println("Stopping.")
			return nil
		case <-ticker.C:
			regenerate()
		case <-events:
			if debounce == nil {
				debounce = time.NewTimer(50 * time.Millisecond)
			} else {
				debounce.Reset(50 * time.Millisecond)
			}
			debounceC = debounce.C
		case err := <-errs:
			fmt.Fprintf(os.Stderr, "filesystem watch error: %v\n", err)
		case <-debounceC:
			debounceC = nil
			regenerate()
		}
	}
}

// addRecursiveWatches registers every directory under root with w, so a
// change anywhere in the mod tree (not just its top level) wakes the poll
// loop early. Missing directories (e.g. one just removed by a reload) are
// skipped rather than treated as fatal.
func addRecursiveWatches(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	})
}

func watchErrorHandler(kind runtime.ErrorKind, fnName, fnPath string) {
	fmt.Fprintf(os.Stderr, "runtime error: %s in %s (%s)\n", kind, fnName, fnPath)
}
