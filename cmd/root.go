package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/studyboard/studyverify/code_analyzer"
	"github.com/studyboard/studyverify/code_analyzer/contracts"
	"github.com/studyboard/studyverify/config"
	"github.com/studyboard/studyverify/constants/lipgloss"
	"github.com/studyboard/studyverify/utils"
	"go.uber.org/zap"
)

// RootDependencies is everything a subcommand needs after configuration is loaded.
type RootDependencies struct {
	Config   *config.Config
	Cwd      string
	Analyzer contracts.ICodeAnalyzer
	Logger   *zap.Logger
}

var rootCmd = &cobra.Command{
	Use:   "studyverify",
	Short: "Verify curriculum exercises and write the progress manifest.",
	Long: `studyverify walks the exercise workspace (quarters, weeks, exercises), decides for every
exercise file whether it holds a real implementation or an untouched template, prints a
checklist, and writes the manifest that the study dashboard reads for completion badges.

Individual unreadable files are reported in the manifest; only a failure to write the
manifest itself makes the command exit with a non-zero status.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			fmt.Println(config.DefaultConfig.Version)
			return nil
		}

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer rootDependencies.Logger.Sync()

		return handleScanCommand(rootDependencies, os.Stdout)
	},
}

// Execute runs the root command and exits non-zero on a systemic failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}
}

func init() {
	config.InitFlags(rootCmd)
}

func handleRootCommand(cmd *cobra.Command) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	cfg, err := config.LoadConfigs(cmd.Root(), cwd)
	if err != nil {
		return nil, err
	}

	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return newRootDependencies(cfg, cwd, logger), nil
}

func newRootDependencies(cfg *config.Config, cwd string, logger *zap.Logger) *RootDependencies {
	return &RootDependencies{
		Config:   cfg,
		Cwd:      cwd,
		Analyzer: code_analyzer.NewCodeAnalyzer(analyzerOptions(cfg, cwd), logger),
		Logger:   logger,
	}
}

func analyzerOptions(cfg *config.Config, cwd string) code_analyzer.Options {
	return code_analyzer.Options{
		Root:             cfg.Workspace.Root,
		Groups:           cfg.Workspace.Groups,
		ExercisesDir:     cfg.Workspace.ExercisesDir,
		Extension:        cfg.Workspace.Extension,
		WeeksPerGroup:    cfg.Workspace.WeeksPerGroup,
		SessionsPerWeek:  cfg.Workspace.SessionsPerWeek,
		FunctionParser:   cfg.Workspace.FunctionParser,
		ScaffoldPrefixes: cfg.Workspace.ScaffoldPrefixes,
		EntryPoint:       cfg.Workspace.EntryPoint,
		EnableCache:      cfg.EnableCache,
		CacheDir:         filepath.Join(cwd, ".cache"),
		StampRevision:    cfg.Workspace.StampRevision,
	}
}

// manifestFormat resolves the configured format, falling back to the output file extension.
func manifestFormat(cfg *config.Config) string {
	return code_analyzer.ResolveFormat(cfg.Output.Format, cfg.Output.Path)
}
