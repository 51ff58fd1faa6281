package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/studyboard/studyverify/constants/lipgloss"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rescan the workspace whenever exercise files change",
	Long: `The 'watch' command runs a scan, then watches the workspace directories and runs a full
scan again (rewriting the manifest) after changes settle. Stop it with Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		debounce, _ := cmd.Flags().GetDuration("debounce")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer rootDependencies.Logger.Sync()

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		return handleWatchCommand(ctx, rootDependencies, debounce, os.Stdout)
	},
}

func init() {
	watchCmd.Flags().Duration("debounce", 500*time.Millisecond, "Quiet period after the last change before rescanning")

	rootCmd.AddCommand(watchCmd)
}

func handleWatchCommand(ctx context.Context, rootDependencies *RootDependencies, debounce time.Duration, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer watcher.Close()

	addWatches(watcher, rootDependencies)

	if err := handleScanCommand(rootDependencies, out); err != nil {
		return err
	}
	fmt.Fprintln(out, lipgloss.Info.Render("Watching for changes..."))

	manifestPath, _ := filepath.Abs(rootDependencies.Config.Output.Path)

	var timer *time.Timer
	var rescan <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			fmt.Fprintln(out, lipgloss.Yellow.Render("Stopped watching."))
			printSnapshotStats(out, rootDependencies)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isRelevantEvent(event, manifestPath) {
				continue
			}
			rootDependencies.Logger.Debug("workspace changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			rescan = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			rootDependencies.Logger.Warn("file watcher error", zap.Error(err))

		case <-rescan:
			rescan = nil
			// New week or exercises folders may have appeared
			addWatches(watcher, rootDependencies)
			if err := handleScanCommand(rootDependencies, out); err != nil {
				return err
			}
		}
	}
}

// printSnapshotStats reports how often a rescan found the previous snapshot to compare against.
func printSnapshotStats(out io.Writer, rootDependencies *RootDependencies) {
	if !rootDependencies.Config.EnableCache {
		return
	}
	stats := rootDependencies.Analyzer.GetPerformanceStats()
	requests, _ := stats["total_requests"].(int64)
	hitRate, _ := stats["hit_rate_percent"].(float64)
	fmt.Fprintln(out, lipgloss.Gray.Render(fmt.Sprintf("Snapshot lookups: %d (%.0f%% found a previous scan)", requests, hitRate)))
}

func addWatches(watcher *fsnotify.Watcher, rootDependencies *RootDependencies) {
	for _, dir := range rootDependencies.Analyzer.WatchDirs() {
		if err := watcher.Add(dir); err != nil {
			rootDependencies.Logger.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
		}
	}
}

// isRelevantEvent drops chmod-only events and the manifest's own writes.
func isRelevantEvent(event fsnotify.Event, manifestPath string) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".manifest-") {
		return false
	}
	if abs, err := filepath.Abs(event.Name); err == nil && abs == manifestPath {
		return false
	}
	return true
}
