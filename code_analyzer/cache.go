package code_analyzer

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/studyboard/studyverify/code_analyzer/models"
	"github.com/zeebo/xxh3"
)

// CacheEntry represents a cached item with metadata
type CacheEntry struct {
	Data      interface{}
	Timestamp time.Time
	Key       string
}

// FileCache stores gob-encoded entries as individual files in one directory
type FileCache struct {
	cacheDir string
	mutex    sync.RWMutex
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	LastResetTime time.Time
	mutex         sync.RWMutex
}

// CacheManager keeps the per-workspace snapshots used for change detection between scans.
type CacheManager struct {
	fileCache *FileCache
	stats     *CacheStats
}

// NewCacheManager creates a new cache manager instance
// If cacheDir is empty, it defaults to ".cache" in the current working directory
func NewCacheManager(cacheDir string) (*CacheManager, error) {
	gob.Register(&models.ProjectSnapshot{})
	gob.Register(models.FileSnapshot{})

	if cacheDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		cacheDir = filepath.Join(cwd, ".cache")
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &CacheManager{
		fileCache: &FileCache{cacheDir: cacheDir},
		stats: &CacheStats{
			LastResetTime: time.Now(),
		},
	}, nil
}

// generateCacheKey creates a file name for a cache key
func (fc *FileCache) generateCacheKey(key string) string {
	return fmt.Sprintf("%016x.cache", xxh3.HashString(key))
}

func (fc *FileCache) getCachePath(cacheKey string) string {
	return filepath.Join(fc.cacheDir, cacheKey)
}

func (fc *FileCache) read(key string) (*CacheEntry, bool) {
	data, err := os.ReadFile(fc.getCachePath(fc.generateCacheKey(key)))
	if err != nil {
		return nil, false
	}

	var entry CacheEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, false
	}
	return &entry, true
}

func (fc *FileCache) write(key string, data interface{}) error {
	entry := CacheEntry{
		Data:      data,
		Timestamp: time.Now(),
		Key:       key,
	}

	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(entry); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := os.WriteFile(fc.getCachePath(fc.generateCacheKey(key)), buffer.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// SetProjectSnapshot stores the snapshot for a workspace root
func (cm *CacheManager) SetProjectSnapshot(key string, snapshot *models.ProjectSnapshot) error {
	cm.fileCache.mutex.Lock()
	defer cm.fileCache.mutex.Unlock()

	return cm.fileCache.write(key, snapshot)
}

// GetProjectSnapshot retrieves the snapshot stored for a workspace root
func (cm *CacheManager) GetProjectSnapshot(key string) (*models.ProjectSnapshot, bool) {
	cm.fileCache.mutex.RLock()
	defer cm.fileCache.mutex.RUnlock()

	entry, found := cm.fileCache.read(key)
	if !found {
		cm.recordCacheMiss()
		return nil, false
	}

	if snapshot, ok := entry.Data.(*models.ProjectSnapshot); ok {
		cm.recordCacheHit()
		return snapshot, true
	}

	cm.recordCacheMiss()
	return nil, false
}

// ClearCache removes every cache file
func (cm *CacheManager) ClearCache() error {
	cm.fileCache.mutex.Lock()
	defer cm.fileCache.mutex.Unlock()

	files, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(cm.fileCache.cacheDir, file.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete cache file: %w", err)
		}
	}

	return nil
}

// CleanExpiredCache removes cache entries older than specified duration
func (cm *CacheManager) CleanExpiredCache(maxAge time.Duration) (int, error) {
	cm.fileCache.mutex.Lock()
	defer cm.fileCache.mutex.Unlock()

	files, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		cachePath := filepath.Join(cm.fileCache.cacheDir, file.Name())
		data, err := os.ReadFile(cachePath)
		if err != nil {
			continue
		}

		var entry CacheEntry
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
			// Unreadable entries are garbage
			if os.Remove(cachePath) == nil {
				removed++
			}
			continue
		}

		if entry.Timestamp.Before(cutoff) {
			if os.Remove(cachePath) == nil {
				removed++
			}
		}
	}

	return removed, nil
}

// GetCacheStats returns cache statistics
func (cm *CacheManager) GetCacheStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	files, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var totalSize int64
	count := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		totalSize += info.Size()
		count++
	}

	stats["cache_enabled"] = true
	stats["cache_files"] = count
	stats["total_size"] = totalSize
	stats["cache_dir"] = cm.fileCache.cacheDir

	return stats, nil
}
