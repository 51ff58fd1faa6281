package code_analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/studyboard/studyverify/code_analyzer/contracts"
	"github.com/studyboard/studyverify/code_analyzer/models"
	"github.com/studyboard/studyverify/utils"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Options describes the workspace layout and classifier settings.
type Options struct {
	Root             string
	Groups           []string
	ExercisesDir     string
	Extension        string
	WeeksPerGroup    int
	SessionsPerWeek  int
	FunctionParser   string
	ScaffoldPrefixes []string
	EntryPoint       string
	EnableCache      bool
	CacheDir         string
	StampRevision    bool
}

// CodeAnalyzer walks a workspace of exercise files and builds the verification manifest.
type CodeAnalyzer struct {
	opts         Options
	classifier   *Classifier
	cacheManager *CacheManager
	cacheOnce    sync.Once
	logger       *zap.Logger
}

type weekDir struct {
	name  string
	index int
}

// NewCodeAnalyzer initializes a new CodeAnalyzer.
func NewCodeAnalyzer(opts Options, logger *zap.Logger) contracts.ICodeAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ExercisesDir == "" {
		opts.ExercisesDir = "exercises"
	}
	if opts.Extension == "" {
		opts.Extension = ".py"
	}

	return &CodeAnalyzer{
		opts:       opts,
		classifier: NewClassifier(NewFunctionExtractor(opts.FunctionParser), opts.ScaffoldPrefixes, opts.EntryPoint),
		logger:     logger,
	}
}

// cache opens the snapshot store on first use; nil when caching is off or the store cannot be created.
func (analyzer *CodeAnalyzer) cache() *CacheManager {
	analyzer.cacheOnce.Do(func() {
		if !analyzer.opts.EnableCache {
			return
		}
		cacheManager, err := NewCacheManager(analyzer.opts.CacheDir)
		if err != nil {
			// Fallback to no change tracking if cache initialization fails
			analyzer.logger.Warn("failed to initialize cache manager", zap.Error(err))
			return
		}
		analyzer.cacheManager = cacheManager
	})
	return analyzer.cacheManager
}

// ScanWorkspace classifies every exercise file under the configured groups, one file at a time.
// Missing directories yield empty branches. The manifest is always built from scratch.
func (analyzer *CodeAnalyzer) ScanWorkspace() (*models.Manifest, error) {
	root := analyzer.opts.Root

	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", root)
	} else if err != nil {
		analyzer.logger.Warn("workspace root not found, reporting an empty workspace", zap.String("root", root))
	}

	ignorePatterns, err := utils.GetIgnorePatterns(root)
	if err != nil {
		analyzer.logger.Warn("ignore file skipped", zap.Error(err))
		ignorePatterns = nil
	}

	manifest := &models.Manifest{
		GeneratedAt: time.Now().UTC(),
		Quarters:    make(map[int]*models.GroupResult),
		DayStatus:   make(map[int]models.DayStatus),
	}

	for i, folder := range analyzer.opts.Groups {
		groupIndex := ParseGroupIndex(folder, i+1)
		group, exists := manifest.Quarters[groupIndex]
		if exists {
			analyzer.logger.Warn("group folders share an index, merging their weeks",
				zap.Int("group", groupIndex),
				zap.String("kept", group.Folder),
				zap.String("merged", folder))
		} else {
			group = &models.GroupResult{
				Folder: folder,
				Weeks:  make(map[int]*models.WeekResult),
			}
			manifest.Quarters[groupIndex] = group
		}

		for _, week := range analyzer.listWeeks(filepath.Join(root, folder)) {
			weekResult, exists := group.Weeks[week.index]
			if exists {
				analyzer.logger.Warn("week folders share an index, merging their exercises",
					zap.String("group", folder),
					zap.Int("week", week.index),
					zap.String("kept", weekResult.Folder),
					zap.String("merged", week.name))
			} else {
				weekResult = &models.WeekResult{
					Folder:    week.name,
					Exercises: make(map[string]models.ExerciseStatus),
				}
				group.Weeks[week.index] = weekResult
			}

			exercisesPath := filepath.Join(folder, week.name, analyzer.opts.ExercisesDir)
			for _, name := range analyzer.listExercises(exercisesPath, ignorePatterns) {
				outcome := analyzer.AnalyzeFile(filepath.Join(root, exercisesPath, name))
				status := models.NewExerciseStatus(outcome)
				key := name
				if _, taken := weekResult.Exercises[key]; taken {
					key = week.name + "/" + name
					if _, taken := weekResult.Exercises[key]; taken {
						key = folder + "/" + key
					}
				}
				weekResult.Exercises[key] = status

				manifest.Summary.TotalExercises++
				if status.Complete {
					manifest.Summary.CompletedExercises++
				}

				if day, ok := ParseDayIndex(name); ok {
					absolute := AbsoluteDay(groupIndex, week.index, day, analyzer.opts.WeeksPerGroup, analyzer.opts.SessionsPerWeek)
					manifest.DayStatus[absolute] = models.DayStatus{
						Complete: status.Complete,
						File:     status.Path,
					}
				}

				if unreadable, ok := outcome.(models.Unreadable); ok {
					analyzer.logger.Warn("exercise unreadable",
						zap.String("file", unreadable.RelativePath),
						zap.String("reason", unreadable.Reason))
				} else {
					analyzer.logger.Debug("exercise classified",
						zap.String("file", status.Path),
						zap.Bool("complete", status.Complete),
						zap.Int("incomplete", status.IncompleteMatches),
						zap.Int("complete_rules", status.CompleteMatches),
						zap.Int("functions", status.TotalFunctions),
						zap.Int("completed_functions", status.CompletedFunctions))
				}
			}
		}
	}

	manifest.Summary.CompletionRate = models.CompletionRate(manifest.Summary.CompletedExercises, manifest.Summary.TotalExercises)

	if analyzer.opts.StampRevision {
		if revision, err := utils.NewGitOperations(root).Revision(); err == nil {
			manifest.Revision = revision
		} else {
			analyzer.logger.Debug("no git revision for workspace", zap.Error(err))
		}
	}

	return manifest, nil
}

// AnalyzeFile reads and classifies one exercise file. Read failures become Unreadable.
func (analyzer *CodeAnalyzer) AnalyzeFile(path string) models.ClassificationOutcome {
	relativePath := analyzer.relativePath(path)

	info, err := os.Stat(path)
	if err != nil {
		return models.Unreadable{RelativePath: relativePath, Reason: fmt.Sprintf("failed to stat file: %v", err)}
	}
	if info.IsDir() {
		return models.Unreadable{RelativePath: relativePath, Reason: "path is a directory"}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return models.Unreadable{RelativePath: relativePath, Reason: fmt.Sprintf("failed to read file: %v", err)}
	}

	return models.Analyzed{
		File: models.ExerciseFile{
			RelativePath:   relativePath,
			Content:        content,
			ContentHash:    ContentHash(content),
			LineCount:      CountLines(content),
			LastModifiedAt: info.ModTime().UTC(),
		},
		Result: analyzer.classifier.Classify(content),
	}
}

// ClassifyContent classifies source text that did not come from the workspace.
func (analyzer *CodeAnalyzer) ClassifyContent(content []byte) models.ClassificationResult {
	return analyzer.classifier.Classify(content)
}

// listWeeks returns the week directories of a group, in lexicographic order.
func (analyzer *CodeAnalyzer) listWeeks(groupDir string) []weekDir {
	entries, err := os.ReadDir(groupDir)
	if err != nil {
		return nil
	}

	var weeks []weekDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if index, ok := ParseWeekIndex(entry.Name()); ok {
			weeks = append(weeks, weekDir{name: entry.Name(), index: index})
		}
	}
	return weeks
}

// listExercises returns the exercise file names inside a root-relative exercises directory.
func (analyzer *CodeAnalyzer) listExercises(exercisesPath string, ignorePatterns []string) []string {
	entries, err := os.ReadDir(filepath.Join(analyzer.opts.Root, exercisesPath))
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), analyzer.opts.Extension) {
			continue
		}
		relativePath := filepath.ToSlash(filepath.Join(exercisesPath, entry.Name()))
		if utils.IsDefaultIgnored(relativePath) || utils.IsIgnored(relativePath, ignorePatterns) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names
}

// WatchDirs lists the existing directories whose changes can alter the manifest.
func (analyzer *CodeAnalyzer) WatchDirs() []string {
	root := analyzer.opts.Root
	var dirs []string
	if info, err := os.Stat(root); err == nil && info.IsDir() {
		dirs = append(dirs, root)
	}

	for _, folder := range analyzer.opts.Groups {
		groupDir := filepath.Join(root, folder)
		if info, err := os.Stat(groupDir); err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, groupDir)

		for _, week := range analyzer.listWeeks(groupDir) {
			weekPath := filepath.Join(groupDir, week.name)
			dirs = append(dirs, weekPath)
			exercisesDir := filepath.Join(weekPath, analyzer.opts.ExercisesDir)
			if info, err := os.Stat(exercisesDir); err == nil && info.IsDir() {
				dirs = append(dirs, exercisesDir)
			}
		}
	}
	return dirs
}

// WriteManifest persists the manifest as JSON or YAML, replacing any previous file atomically.
func (analyzer *CodeAnalyzer) WriteManifest(manifest *models.Manifest, path string, format string) error {
	var data []byte
	var err error

	switch ResolveFormat(format, path) {
	case FormatYAML:
		data, err = yaml.Marshal(manifest)
	case FormatJSON:
		data, err = json.MarshalIndent(manifest, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("unsupported manifest format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary manifest: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set manifest permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace manifest %s: %w", path, err)
	}

	return nil
}

// ReadManifest loads a manifest written by WriteManifest with the same format setting.
func (analyzer *CodeAnalyzer) ReadManifest(path string, format string) (*models.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest models.Manifest
	switch ResolveFormat(format, path) {
	case FormatYAML:
		err = yaml.Unmarshal(data, &manifest)
	case FormatJSON:
		err = json.Unmarshal(data, &manifest)
	default:
		return nil, fmt.Errorf("unsupported manifest format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}

	return &manifest, nil
}

// ResolveFormat returns the manifest encoding for a format setting: the setting itself when given,
// otherwise the extension of path, otherwise JSON. Unknown settings are returned lowercased.
func ResolveFormat(format string, path string) string {
	switch strings.ToLower(format) {
	case FormatJSON:
		return FormatJSON
	case FormatYAML, "yml":
		return FormatYAML
	case "":
	default:
		return strings.ToLower(format)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ChangedFiles reports which exercises changed content since the previous scan, then
// records the current scan as the new baseline. Without a previous snapshot nothing is marked.
func (analyzer *CodeAnalyzer) ChangedFiles(manifest *models.Manifest) map[string]bool {
	changed := make(map[string]bool)
	cacheManager := analyzer.cache()
	if cacheManager == nil || manifest == nil {
		return changed
	}

	key := analyzer.snapshotKey()
	previous, found := cacheManager.GetProjectSnapshot(key)

	current := &models.ProjectSnapshot{
		RootDir:   analyzer.opts.Root,
		Timestamp: manifest.GeneratedAt,
		Files:     make(map[string]models.FileSnapshot),
	}

	for _, group := range manifest.Quarters {
		for _, week := range group.Weeks {
			for _, status := range week.Exercises {
				snapshot := models.FileSnapshot{
					RelativePath: status.Path,
					Lines:        status.Lines,
					Hash:         status.Hash,
				}
				if status.LastModified != nil {
					snapshot.ModTime = *status.LastModified
				}
				current.Files[status.Path] = snapshot

				if found {
					if before, ok := previous.Files[status.Path]; !ok || before.Hash != status.Hash {
						changed[status.Path] = true
					}
				}
			}
		}
	}

	if err := cacheManager.SetProjectSnapshot(key, current); err != nil {
		analyzer.logger.Warn("failed to store workspace snapshot", zap.Error(err))
	}

	return changed
}

func (analyzer *CodeAnalyzer) ClearCache() error {
	cacheManager := analyzer.cache()
	if cacheManager == nil {
		return fmt.Errorf("cache is disabled")
	}
	return cacheManager.ClearCache()
}

func (analyzer *CodeAnalyzer) CleanExpiredCache(maxAge time.Duration) (int, error) {
	cacheManager := analyzer.cache()
	if cacheManager == nil {
		return 0, fmt.Errorf("cache is disabled")
	}
	return cacheManager.CleanExpiredCache(maxAge)
}

func (analyzer *CodeAnalyzer) GetCacheStats() (map[string]interface{}, error) {
	cacheManager := analyzer.cache()
	if cacheManager == nil {
		return map[string]interface{}{"cache_enabled": false}, nil
	}
	return cacheManager.GetCacheStats()
}

// GetPerformanceStats returns the snapshot lookup counters of this process.
func (analyzer *CodeAnalyzer) GetPerformanceStats() map[string]interface{} {
	cacheManager := analyzer.cache()
	if cacheManager == nil {
		return (&CacheManager{}).GetPerformanceStats()
	}
	return cacheManager.GetPerformanceStats()
}

func (analyzer *CodeAnalyzer) snapshotKey() string {
	root := analyzer.opts.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return "snapshot:" + root
}

func (analyzer *CodeAnalyzer) relativePath(path string) string {
	relativePath, err := filepath.Rel(analyzer.opts.Root, path)
	if err != nil {
		relativePath = path
	}
	return filepath.ToSlash(relativePath)
}

// ContentHash is the short fingerprint shown next to each exercise.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(content))
}

// CountLines counts newline-delimited lines; an empty file has one (empty) line.
func CountLines(content []byte) int {
	return strings.Count(string(content), "\n") + 1
}
