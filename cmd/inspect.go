package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/studyboard/studyverify/code_analyzer"
	"github.com/studyboard/studyverify/code_analyzer/models"
	"github.com/studyboard/studyverify/constants/lipgloss"
	"github.com/studyboard/studyverify/utils"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file|->",
	Short: "Explain how a single exercise file is classified",
	Long: `The 'inspect' command classifies one exercise file and prints the matched placeholder and
implementation rules, then every top-level function with its own verdict. Scaffolding
functions (test_, check_, run_ prefixes and main) are listed but never counted.
Pass '-' to classify source read from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showCode, _ := cmd.Flags().GetBool("code")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer rootDependencies.Logger.Sync()

		return handleInspectCommand(rootDependencies, args[0], showCode, os.Stdin, os.Stdout)
	},
}

func init() {
	inspectCmd.Flags().Bool("code", true, "Print each function body with syntax highlighting")

	rootCmd.AddCommand(inspectCmd)
}

func handleInspectCommand(rootDependencies *RootDependencies, path string, showCode bool, in io.Reader, out io.Writer) error {
	var outcome models.ClassificationOutcome
	if path == "-" {
		content, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("failed to read standard input: %w", err)
		}
		outcome = models.Analyzed{
			File: models.ExerciseFile{
				RelativePath: "<stdin>",
				Content:      content,
				ContentHash:  code_analyzer.ContentHash(content),
				LineCount:    code_analyzer.CountLines(content),
			},
			Result: rootDependencies.Analyzer.ClassifyContent(content),
		}
	} else {
		outcome = rootDependencies.Analyzer.AnalyzeFile(path)
	}

	switch o := outcome.(type) {
	case models.Unreadable:
		return fmt.Errorf("cannot inspect %s: %s", o.RelativePath, o.Reason)

	case models.Analyzed:
		result := o.Result

		verdict := lipgloss.Red.Render("incomplete")
		if result.IsComplete {
			verdict = lipgloss.Green.Render("complete")
		}

		header := fmt.Sprintf("%s\nhash %s, %d lines\nverdict: %s\nfunctions: %d/%d implemented",
			o.File.RelativePath, o.File.ContentHash, o.File.LineCount, verdict, result.CompletedFunctions, result.TotalFunctions)
		fmt.Fprintln(out, lipgloss.BoxStyle.Render(header))

		fmt.Fprintf(out, "Placeholder rules (%d): %s\n", result.IncompleteMatches, ruleList(result.MatchedIncomplete))
		fmt.Fprintf(out, "Implementation rules (%d): %s\n\n", result.CompleteMatches, ruleList(result.MatchedComplete))

		language := utils.LanguageForFile(path)
		for _, fn := range result.Functions {
			fmt.Fprintln(out, describeFunction(fn))
			if showCode {
				if err := utils.RenderCode(out, strings.TrimRight(fn.BodyText, "\n")+"\n", language, rootDependencies.Config.Theme); err != nil {
					return fmt.Errorf("error rendering %s: %w", fn.Name, err)
				}
				fmt.Fprintln(out)
			}
		}
		return nil

	default:
		return fmt.Errorf("unexpected classification outcome %T", outcome)
	}
}

func describeFunction(fn models.FunctionVerdict) string {
	switch {
	case fn.Skipped:
		return lipgloss.Gray.Render(fmt.Sprintf("- %s (scaffolding, not counted)", fn.Name))
	case fn.Complete:
		reason := fmt.Sprintf("%d implementation rules", fn.CompleteMatches)
		if fn.StringAssignment {
			reason += ", string assignment"
		}
		return lipgloss.Green.Render(fmt.Sprintf("✓ %s", fn.Name)) + lipgloss.Gray.Render(" "+reason)
	default:
		return lipgloss.Red.Render(fmt.Sprintf("✗ %s", fn.Name)) +
			lipgloss.Gray.Render(fmt.Sprintf(" %d placeholder / %d implementation rules", fn.IncompleteMatches, fn.CompleteMatches))
	}
}

func ruleList(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
