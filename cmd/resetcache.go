package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/studyboard/studyverify/constants/lipgloss"
)

// resetCacheCmd represents the reset-cache command
var resetCacheCmd = &cobra.Command{
	Use:   "reset-cache",
	Short: "Reset the workspace snapshot cache",
	Long: `The 'reset-cache' command removes the snapshots stored in the '.cache' directory.
Snapshots only drive the "(changed)" markers in the checklist; the next scan after a reset
shows no markers and records a fresh baseline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		stats, _ := cmd.Flags().GetBool("stats")
		maxAge, _ := cmd.Flags().GetDuration("max-age")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer rootDependencies.Logger.Sync()

		handleResetCacheCommand(rootDependencies, force, stats, maxAge)
		return nil
	},
}

func init() {
	resetCacheCmd.Flags().BoolP("force", "f", false, "Force cache reset without confirmation")
	resetCacheCmd.Flags().BoolP("stats", "s", false, "Show cache statistics instead of resetting")
	resetCacheCmd.Flags().Duration("max-age", 0, "Only remove snapshots older than this (e.g. 168h)")

	rootCmd.AddCommand(resetCacheCmd)
}

func handleResetCacheCommand(rootDependencies *RootDependencies, force bool, showStats bool, maxAge time.Duration) {
	if showStats {
		fmt.Println(lipgloss.Info.Render("Cache Statistics:"))
		cacheStats, err := rootDependencies.Analyzer.GetCacheStats()
		if err != nil {
			fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("Warning: Could not show statistics: %v", err)))
			return
		}
		if enabled, ok := cacheStats["cache_enabled"].(bool); !ok || !enabled {
			fmt.Println("  Cache is disabled")
			return
		}
		if dir, ok := cacheStats["cache_dir"].(string); ok {
			fmt.Printf("  Cache Directory: %s\n", dir)
		}
		if files, ok := cacheStats["cache_files"].(int); ok {
			fmt.Printf("  Snapshots: %d\n", files)
		}
		if size, ok := cacheStats["total_size"].(int64); ok {
			fmt.Printf("  Total Size: %.2f KB\n", float64(size)/1024)
		}
		return
	}

	if !rootDependencies.Config.EnableCache {
		fmt.Println(lipgloss.Yellow.Render("Cache is disabled. No cache to reset."))
		return
	}

	if !force {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Are you sure you want to reset the workspace snapshots? (y/N): ")
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println(lipgloss.Yellow.Render("Cache reset cancelled."))
			return
		}
	}

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true)

	spinnerInstance, _ := spinner.Start("Resetting snapshot cache...")

	if maxAge > 0 {
		removed, err := rootDependencies.Analyzer.CleanExpiredCache(maxAge)
		spinnerInstance.Stop()
		fmt.Print("\r")
		if err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error cleaning cache: %v", err)))
			return
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✓ Removed %d snapshots older than %s", removed, maxAge)))
		return
	}

	err := rootDependencies.Analyzer.ClearCache()
	spinnerInstance.Stop()
	fmt.Print("\r")
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error resetting cache: %v", err)))
		return
	}

	fmt.Println(lipgloss.Green.Render("✓ Snapshot cache has been successfully reset!"))
}
