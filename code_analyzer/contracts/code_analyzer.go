package contracts

import (
	"time"

	"github.com/studyboard/studyverify/code_analyzer/models"
)

type ICodeAnalyzer interface {
	ScanWorkspace() (*models.Manifest, error)
	AnalyzeFile(path string) models.ClassificationOutcome
	ClassifyContent(content []byte) models.ClassificationResult
	WriteManifest(manifest *models.Manifest, path string, format string) error
	ReadManifest(path string, format string) (*models.Manifest, error)
	ChangedFiles(manifest *models.Manifest) map[string]bool
	WatchDirs() []string
	ClearCache() error
	CleanExpiredCache(maxAge time.Duration) (int, error)
	GetCacheStats() (map[string]interface{}, error)
	GetPerformanceStats() map[string]interface{}
}
