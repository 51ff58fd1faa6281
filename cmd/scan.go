package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/pterm/pterm"
	"github.com/studyboard/studyverify/code_analyzer/models"
	"github.com/studyboard/studyverify/constants/lipgloss"
)

func handleScanCommand(rootDependencies *RootDependencies, out io.Writer) error {
	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").WithDelay(100).WithRemoveWhenDone(true)
	spinnerScan, _ := spinner.Start("Scanning workspace...")

	manifest, err := rootDependencies.Analyzer.ScanWorkspace()

	spinnerScan.Stop()
	fmt.Print("\r")

	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	changed := rootDependencies.Analyzer.ChangedFiles(manifest)
	printChecklist(out, manifest, changed)

	outputPath := rootDependencies.Config.Output.Path
	if err := rootDependencies.Analyzer.WriteManifest(manifest, outputPath, manifestFormat(rootDependencies.Config)); err != nil {
		return fmt.Errorf("cannot write manifest: %w", err)
	}

	fmt.Fprintln(out, lipgloss.Green.Render(fmt.Sprintf("Manifest written to %s", outputPath)))
	return nil
}

// printChecklist renders every exercise grouped by quarter and week, followed by the totals.
func printChecklist(out io.Writer, manifest *models.Manifest, changed map[string]bool) {
	for _, groupIndex := range slices.Sorted(maps.Keys(manifest.Quarters)) {
		group := manifest.Quarters[groupIndex]
		fmt.Fprintln(out, lipgloss.Heading.Render(fmt.Sprintf("Quarter %d: %s", groupIndex, group.Folder)))

		if len(group.Weeks) == 0 {
			fmt.Fprintln(out, lipgloss.Gray.Render("  no weeks yet"))
			continue
		}

		for _, weekIndex := range slices.Sorted(maps.Keys(group.Weeks)) {
			week := group.Weeks[weekIndex]
			fmt.Fprintf(out, "  Week %d (%s)\n", weekIndex, week.Folder)

			if len(week.Exercises) == 0 {
				fmt.Fprintln(out, lipgloss.Gray.Render("    no exercises"))
				continue
			}

			for _, name := range slices.Sorted(maps.Keys(week.Exercises)) {
				status := week.Exercises[name]
				fmt.Fprintf(out, "    %s\n", describeExercise(name, status, changed[status.Path]))
			}
		}
	}

	summary := manifest.Summary
	fmt.Fprintln(out, lipgloss.BoxStyle.Render(fmt.Sprintf("Completed %d of %d exercises (%d%%)",
		summary.CompletedExercises, summary.TotalExercises, summary.CompletionRate)))
}

func describeExercise(name string, status models.ExerciseStatus, changed bool) string {
	var line string
	switch {
	case status.Error != "":
		line = lipgloss.Yellow.Render(fmt.Sprintf("⚠ %s: unreadable (%s)", name, status.Error))
	case status.Complete:
		line = lipgloss.Green.Render("✓ "+name) +
			lipgloss.Gray.Render(fmt.Sprintf(" %d/%d functions", status.CompletedFunctions, status.TotalFunctions))
	default:
		line = lipgloss.Red.Render("✗ "+name) +
			lipgloss.Gray.Render(fmt.Sprintf(" %d incomplete patterns", status.IncompleteMatches))
	}

	if changed {
		line += lipgloss.BlueSky.Render(" (changed)")
	}
	return line
}
