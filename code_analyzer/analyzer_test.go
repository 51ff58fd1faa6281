package code_analyzer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/studyboard/studyverify/code_analyzer/models"
	"github.com/studyboard/studyverify/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	completeExercise   = "def double(x):\n    return x * 2\n"
	incompleteExercise = "def solve(x):\n    pass\n"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func testOptions(root string) Options {
	return Options{
		Root:            root,
		Groups:          []string{"quarter1-foundations", "quarter2-data-structures"},
		ExercisesDir:    "exercises",
		Extension:       ".py",
		WeeksPerGroup:   13,
		SessionsPerWeek: 4,
		FunctionParser:  ParserRegex,
	}
}

// newTestWorkspace lays out one quarter with two weeks; the second quarter is left missing.
func newTestWorkspace(t *testing.T) string {
	t.Helper()
	utils.ClearIgnoreCache()
	root := t.TempDir()

	week1 := filepath.Join(root, "quarter1-foundations", "week1", "exercises")
	writeFile(t, filepath.Join(week1, "day1_intro.py"), completeExercise)
	writeFile(t, filepath.Join(week1, "day2_loops.py"), incompleteExercise)
	writeFile(t, filepath.Join(week1, "notes.txt"), "not an exercise")
	writeFile(t, filepath.Join(week1, "__pycache__", "day1_intro.cpython-312.pyc"), "")

	week2 := filepath.Join(root, "quarter1-foundations", "week2", "exercises")
	writeFile(t, filepath.Join(week2, "day3_strings.py"), completeExercise)
	writeFile(t, filepath.Join(week2, "bonus.py"), incompleteExercise)

	// not a week folder
	writeFile(t, filepath.Join(root, "quarter1-foundations", "resources", "exercises", "day1.py"), completeExercise)

	return root
}

func newTestAnalyzer(opts Options) *CodeAnalyzer {
	return NewCodeAnalyzer(opts, zap.NewNop()).(*CodeAnalyzer)
}

func TestScanWorkspace_BuildsManifest(t *testing.T) {
	root := newTestWorkspace(t)
	analyzer := newTestAnalyzer(testOptions(root))

	manifest, err := analyzer.ScanWorkspace()
	require.NoError(t, err)

	require.Len(t, manifest.Quarters, 2)
	quarter1 := manifest.Quarters[1]
	require.NotNil(t, quarter1)
	assert.Equal(t, "quarter1-foundations", quarter1.Folder)
	require.Len(t, quarter1.Weeks, 2)

	week1 := quarter1.Weeks[1]
	require.Len(t, week1.Exercises, 2)
	intro := week1.Exercises["day1_intro.py"]
	assert.True(t, intro.Complete)
	assert.Equal(t, "quarter1-foundations/week1/exercises/day1_intro.py", intro.Path)
	assert.Equal(t, ContentHash([]byte(completeExercise)), intro.Hash)
	assert.Equal(t, 3, intro.Lines)
	assert.NotNil(t, intro.LastModified)
	assert.Empty(t, intro.Error)
	assert.False(t, week1.Exercises["day2_loops.py"].Complete)

	quarter2 := manifest.Quarters[2]
	require.NotNil(t, quarter2)
	assert.Empty(t, quarter2.Weeks)

	assert.Equal(t, models.Summary{TotalExercises: 4, CompletedExercises: 2, CompletionRate: 50}, manifest.Summary)

	assert.Equal(t, map[int]models.DayStatus{
		1: {Complete: true, File: "quarter1-foundations/week1/exercises/day1_intro.py"},
		2: {Complete: false, File: "quarter1-foundations/week1/exercises/day2_loops.py"},
		7: {Complete: true, File: "quarter1-foundations/week2/exercises/day3_strings.py"},
	}, manifest.DayStatus)
	assert.Empty(t, manifest.Revision)
}

func TestScanWorkspace_IsIdempotent(t *testing.T) {
	root := newTestWorkspace(t)
	analyzer := newTestAnalyzer(testOptions(root))

	first, err := analyzer.ScanWorkspace()
	require.NoError(t, err)
	second, err := analyzer.ScanWorkspace()
	require.NoError(t, err)

	assert.Equal(t, first.Quarters, second.Quarters)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.DayStatus, second.DayStatus)
}

func TestScanWorkspace_EmptyWorkspace(t *testing.T) {
	analyzer := newTestAnalyzer(testOptions(filepath.Join(t.TempDir(), "missing")))

	manifest, err := analyzer.ScanWorkspace()
	require.NoError(t, err)

	assert.Equal(t, 0, manifest.Summary.TotalExercises)
	assert.Equal(t, 0, manifest.Summary.CompletionRate)
	assert.Empty(t, manifest.DayStatus)
	assert.Len(t, manifest.Quarters, 2)
}

func TestScanWorkspace_RootIsAFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "workspace")
	writeFile(t, root, "")

	_, err := newTestAnalyzer(testOptions(root)).ScanWorkspace()
	assert.Error(t, err)
}

func TestScanWorkspace_UnreadableFileIsRecorded(t *testing.T) {
	root := newTestWorkspace(t)
	exercises := filepath.Join(root, "quarter1-foundations", "week1", "exercises")
	require.NoError(t, os.Symlink(filepath.Join(root, "nowhere.py"), filepath.Join(exercises, "day4_broken.py")))

	manifest, err := newTestAnalyzer(testOptions(root)).ScanWorkspace()
	require.NoError(t, err)

	broken := manifest.Quarters[1].Weeks[1].Exercises["day4_broken.py"]
	assert.False(t, broken.Complete)
	assert.NotEmpty(t, broken.Error)
	assert.Equal(t, "quarter1-foundations/week1/exercises/day4_broken.py", broken.Path)
	assert.Equal(t, 5, manifest.Summary.TotalExercises)
	assert.Equal(t, models.DayStatus{Complete: false, File: broken.Path}, manifest.DayStatus[4])
}

func TestScanWorkspace_RespectsIgnoreFile(t *testing.T) {
	root := newTestWorkspace(t)
	writeFile(t, filepath.Join(root, utils.IgnoreFileName), "# drafts\nbonus.py\n")

	manifest, err := newTestAnalyzer(testOptions(root)).ScanWorkspace()
	require.NoError(t, err)

	assert.NotContains(t, manifest.Quarters[1].Weeks[2].Exercises, "bonus.py")
	assert.Equal(t, 3, manifest.Summary.TotalExercises)
}

func TestScanWorkspace_CompletedNeverExceedsTotal(t *testing.T) {
	root := newTestWorkspace(t)
	manifest, err := newTestAnalyzer(testOptions(root)).ScanWorkspace()
	require.NoError(t, err)

	assert.LessOrEqual(t, manifest.Summary.CompletedExercises, manifest.Summary.TotalExercises)
	for _, group := range manifest.Quarters {
		for _, week := range group.Weeks {
			for _, status := range week.Exercises {
				assert.LessOrEqual(t, status.CompletedFunctions, status.TotalFunctions)
			}
		}
	}
}

func TestAnalyzeFile_Outcomes(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "day1.py")
	writeFile(t, path, completeExercise)
	analyzer := newTestAnalyzer(testOptions(root))

	analyzed, ok := analyzer.AnalyzeFile(path).(models.Analyzed)
	require.True(t, ok)
	assert.Equal(t, "day1.py", analyzed.File.RelativePath)
	assert.True(t, analyzed.Result.IsComplete)

	unreadable, ok := analyzer.AnalyzeFile(filepath.Join(root, "missing.py")).(models.Unreadable)
	require.True(t, ok)
	assert.Equal(t, "missing.py", unreadable.RelativePath)
	assert.NotEmpty(t, unreadable.Reason)

	_, ok = analyzer.AnalyzeFile(root).(models.Unreadable)
	assert.True(t, ok)
}

func TestClassifyContent(t *testing.T) {
	analyzer := newTestAnalyzer(testOptions(t.TempDir()))

	assert.True(t, analyzer.ClassifyContent([]byte(completeExercise)).IsComplete)
	assert.False(t, analyzer.ClassifyContent([]byte(incompleteExercise)).IsComplete)
}

func TestWriteManifest_RoundTrip(t *testing.T) {
	root := newTestWorkspace(t)
	analyzer := newTestAnalyzer(testOptions(root))
	manifest, err := analyzer.ScanWorkspace()
	require.NoError(t, err)

	for _, tc := range []struct{ file, format string }{
		{"verification.json", FormatJSON},
		{"verification.yaml", FormatYAML},
	} {
		t.Run(tc.format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data", tc.file)
			require.NoError(t, analyzer.WriteManifest(manifest, path, tc.format))

			loaded, err := analyzer.ReadManifest(path, tc.format)
			require.NoError(t, err)
			assert.Equal(t, manifest.Summary, loaded.Summary)
			assert.Equal(t, manifest.DayStatus, loaded.DayStatus)
			assert.True(t, manifest.GeneratedAt.Equal(loaded.GeneratedAt))
			assert.Equal(t, manifest.Quarters[1].Weeks[1].Exercises["day1_intro.py"].Hash,
				loaded.Quarters[1].Weeks[1].Exercises["day1_intro.py"].Hash)

			entries, err := os.ReadDir(filepath.Dir(path))
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestWriteManifest_Errors(t *testing.T) {
	analyzer := newTestAnalyzer(testOptions(t.TempDir()))
	manifest := &models.Manifest{GeneratedAt: time.Now().UTC()}

	blocker := filepath.Join(t.TempDir(), "blocker")
	writeFile(t, blocker, "")
	assert.Error(t, analyzer.WriteManifest(manifest, filepath.Join(blocker, "verification.json"), FormatJSON))

	assert.Error(t, analyzer.WriteManifest(manifest, filepath.Join(t.TempDir(), "verification.toml"), "toml"))

	_, err := analyzer.ReadManifest(filepath.Join(t.TempDir(), "absent.json"), "")
	assert.Error(t, err)
}

func TestWriteManifest_FormatResolution(t *testing.T) {
	analyzer := newTestAnalyzer(testOptions(t.TempDir()))
	manifest := &models.Manifest{GeneratedAt: time.Now().UTC(), Summary: models.Summary{TotalExercises: 3}}
	dir := t.TempDir()

	upper := filepath.Join(dir, "upper.yaml")
	require.NoError(t, analyzer.WriteManifest(manifest, upper, "YAML"))
	data, err := os.ReadFile(upper)
	require.NoError(t, err)
	assert.Contains(t, string(data), "totalExercises: 3")

	// an explicit format wins over the extension, for reading as well as writing
	mismatched := filepath.Join(dir, "mismatched.json")
	require.NoError(t, analyzer.WriteManifest(manifest, mismatched, "yaml"))
	loaded, err := analyzer.ReadManifest(mismatched, "yaml")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Summary.TotalExercises)

	loaded, err = analyzer.ReadManifest(upper, "")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Summary.TotalExercises)

	_, err = analyzer.ReadManifest(upper, "toml")
	assert.Error(t, err)
}

func TestResolveFormat(t *testing.T) {
	assert.Equal(t, FormatYAML, ResolveFormat("YAML", "v.json"))
	assert.Equal(t, FormatYAML, ResolveFormat("yml", "v.json"))
	assert.Equal(t, FormatJSON, ResolveFormat("Json", "v.yaml"))
	assert.Equal(t, FormatYAML, ResolveFormat("", "v.YML"))
	assert.Equal(t, FormatJSON, ResolveFormat("", "v.json"))
	assert.Equal(t, FormatJSON, ResolveFormat("", "verification"))
	assert.Equal(t, "toml", ResolveFormat("TOML", "v.json"))
}

func TestWriteManifest_IsWorldReadable(t *testing.T) {
	analyzer := newTestAnalyzer(testOptions(t.TempDir()))
	path := filepath.Join(t.TempDir(), "verification.json")

	require.NoError(t, analyzer.WriteManifest(&models.Manifest{GeneratedAt: time.Now().UTC()}, path, FormatJSON))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestScanWorkspace_WeekFoldersSharingAnIndexAreMerged(t *testing.T) {
	root := t.TempDir()
	group := filepath.Join(root, "quarter1-foundations")
	writeFile(t, filepath.Join(group, "week1", "exercises", "day1_intro.py"), completeExercise)
	writeFile(t, filepath.Join(group, "week1", "exercises", "day2_loops.py"), incompleteExercise)
	writeFile(t, filepath.Join(group, "week01", "exercises", "day1_intro.py"), incompleteExercise)
	writeFile(t, filepath.Join(group, "week01", "exercises", "day3_strings.py"), completeExercise)

	manifest, err := newTestAnalyzer(testOptions(root)).ScanWorkspace()
	require.NoError(t, err)

	require.Len(t, manifest.Quarters[1].Weeks, 1)
	week := manifest.Quarters[1].Weeks[1]
	assert.Equal(t, "week01", week.Folder)

	listed := 0
	for _, g := range manifest.Quarters {
		for _, w := range g.Weeks {
			listed += len(w.Exercises)
		}
	}
	assert.Equal(t, 4, manifest.Summary.TotalExercises)
	assert.Equal(t, manifest.Summary.TotalExercises, listed)

	assert.Equal(t, "quarter1-foundations/week01/exercises/day1_intro.py", week.Exercises["day1_intro.py"].Path)
	assert.Equal(t, "quarter1-foundations/week1/exercises/day1_intro.py", week.Exercises["week1/day1_intro.py"].Path)
	assert.Contains(t, week.Exercises, "day2_loops.py")
	assert.Contains(t, week.Exercises, "day3_strings.py")
}

func TestScanWorkspace_GroupFoldersSharingAnIndexAreMerged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "quarter1-a", "week1", "exercises", "day1_intro.py"), completeExercise)
	writeFile(t, filepath.Join(root, "quarter1-b", "week1", "exercises", "day1_intro.py"), incompleteExercise)
	writeFile(t, filepath.Join(root, "quarter1-b", "week2", "exercises", "day1_next.py"), completeExercise)

	opts := testOptions(root)
	opts.Groups = []string{"quarter1-a", "quarter1-b"}
	manifest, err := newTestAnalyzer(opts).ScanWorkspace()
	require.NoError(t, err)

	require.Len(t, manifest.Quarters, 1)
	group := manifest.Quarters[1]
	assert.Equal(t, "quarter1-a", group.Folder)
	require.Len(t, group.Weeks, 2)
	assert.Contains(t, group.Weeks[1].Exercises, "day1_intro.py")
	assert.Equal(t, "quarter1-b/week1/exercises/day1_intro.py", group.Weeks[1].Exercises["week1/day1_intro.py"].Path)
	assert.Equal(t, 3, manifest.Summary.TotalExercises)
}

func TestCacheDirectoryCreatedOnFirstUse(t *testing.T) {
	root := newTestWorkspace(t)
	opts := testOptions(root)
	opts.EnableCache = true
	opts.CacheDir = filepath.Join(t.TempDir(), ".cache")
	analyzer := newTestAnalyzer(opts)

	manifest, err := analyzer.ScanWorkspace()
	require.NoError(t, err)
	analyzer.AnalyzeFile(filepath.Join(root, "quarter1-foundations", "week1", "exercises", "day1_intro.py"))
	_, err = analyzer.ReadManifest(filepath.Join(t.TempDir(), "absent.json"), "")
	require.Error(t, err)

	_, err = os.Stat(opts.CacheDir)
	assert.True(t, os.IsNotExist(err))

	analyzer.ChangedFiles(manifest)
	info, err := os.Stat(opts.CacheDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	perf := analyzer.GetPerformanceStats()
	assert.Equal(t, int64(1), perf["total_requests"])
	assert.Equal(t, int64(1), perf["cache_misses"])
}

func TestPerformanceStatsWithCacheDisabled(t *testing.T) {
	perf := newTestAnalyzer(testOptions(t.TempDir())).GetPerformanceStats()
	assert.Equal(t, int64(0), perf["total_requests"])
}

func TestChangedFiles(t *testing.T) {
	root := newTestWorkspace(t)
	opts := testOptions(root)
	opts.EnableCache = true
	opts.CacheDir = t.TempDir()
	analyzer := newTestAnalyzer(opts)

	manifest, err := analyzer.ScanWorkspace()
	require.NoError(t, err)
	assert.Empty(t, analyzer.ChangedFiles(manifest))

	manifest, err = analyzer.ScanWorkspace()
	require.NoError(t, err)
	assert.Empty(t, analyzer.ChangedFiles(manifest))

	writeFile(t, filepath.Join(root, "quarter1-foundations", "week1", "exercises", "day2_loops.py"), completeExercise)
	writeFile(t, filepath.Join(root, "quarter1-foundations", "week2", "exercises", "day4_new.py"), completeExercise)

	manifest, err = analyzer.ScanWorkspace()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{
		"quarter1-foundations/week1/exercises/day2_loops.py": true,
		"quarter1-foundations/week2/exercises/day4_new.py":   true,
	}, analyzer.ChangedFiles(manifest))
}

func TestCacheDisabled(t *testing.T) {
	analyzer := newTestAnalyzer(testOptions(t.TempDir()))

	assert.Empty(t, analyzer.ChangedFiles(&models.Manifest{}))
	assert.Error(t, analyzer.ClearCache())
	_, err := analyzer.CleanExpiredCache(time.Hour)
	assert.Error(t, err)

	stats, err := analyzer.GetCacheStats()
	require.NoError(t, err)
	assert.Equal(t, false, stats["cache_enabled"])
}

func TestWatchDirs(t *testing.T) {
	root := newTestWorkspace(t)
	dirs := newTestAnalyzer(testOptions(root)).WatchDirs()

	group := filepath.Join(root, "quarter1-foundations")
	assert.Equal(t, []string{
		root,
		group,
		filepath.Join(group, "week1"),
		filepath.Join(group, "week1", "exercises"),
		filepath.Join(group, "week2"),
		filepath.Join(group, "week2", "exercises"),
	}, dirs)
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 1, CountLines(nil))
	assert.Equal(t, 1, CountLines([]byte("x = 1")))
	assert.Equal(t, 2, CountLines([]byte("x = 1\n")))
	assert.Equal(t, 3, CountLines([]byte("a\nb\nc")))
}
