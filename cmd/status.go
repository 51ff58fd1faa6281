package cmd

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/studyboard/studyverify/code_analyzer/models"
	"github.com/studyboard/studyverify/constants/lipgloss"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show progress from the last written manifest",
	Long: `The 'status' command reads the manifest produced by the last scan and prints the summary
and the per-day completion table. It never rescans the workspace or modifies the manifest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer rootDependencies.Logger.Sync()

		return handleStatusCommand(rootDependencies, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func handleStatusCommand(rootDependencies *RootDependencies, out io.Writer) error {
	manifest, err := rootDependencies.Analyzer.ReadManifest(rootDependencies.Config.Output.Path, manifestFormat(rootDependencies.Config))
	if err != nil {
		return fmt.Errorf("no manifest to show, run a scan first: %w", err)
	}

	summary := manifest.Summary
	info := fmt.Sprintf("Generated: %s\nCompleted: %d of %d exercises (%d%%)",
		manifest.GeneratedAt.Format("2006-01-02 15:04:05 UTC"),
		summary.CompletedExercises, summary.TotalExercises, summary.CompletionRate)
	if manifest.Revision != "" {
		info += fmt.Sprintf("\nRevision: %s", manifest.Revision)
	}
	fmt.Fprintln(out, lipgloss.BoxStyle.Render(info))

	if len(manifest.DayStatus) == 0 {
		fmt.Fprintln(out, lipgloss.Gray.Render("No day-numbered exercises found."))
		return nil
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(dayTable(manifest)).Srender()
	if err != nil {
		return fmt.Errorf("failed to render day table: %w", err)
	}
	fmt.Fprintln(out, table)

	return nil
}

func dayTable(manifest *models.Manifest) pterm.TableData {
	data := pterm.TableData{{"Day", "Status", "File"}}
	for _, day := range slices.Sorted(maps.Keys(manifest.DayStatus)) {
		status := manifest.DayStatus[day]
		label := "pending"
		if status.Complete {
			label = "done"
		}
		data = append(data, []string{strconv.Itoa(day), label, status.File})
	}
	return data
}
