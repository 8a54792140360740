// Package storage archives analysis artifacts: the raw AI responses behind
// each scoring run and exported report documents. Operators use the archive
// to debug extraction failures without replaying AI calls.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Store is implemented by the filesystem and S3 backends.
type Store interface {
	SaveResponse(raw, slug string) (string, error)
	SaveReport(data []byte, slug string) (string, error)
	ReadResponse(path string) (string, error)
	ReadReport(path string) ([]byte, error)
	DeleteResponse(path string) error
	DeleteReport(path string) error
}

// Config contains filesystem storage configuration
type Config struct {
	BasePath string // Base directory for all archived files
}

// DefaultConfig returns default storage configuration
func DefaultConfig() Config {
	return Config{
		BasePath: "./archive",
	}
}

// Storage handles filesystem archive operations
type Storage struct {
	config Config
}

var _ Store = (*Storage)(nil)

// New creates a new Storage instance
func New(config Config) (*Storage, error) {
	// Create base directory if it doesn't exist
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base archive directory: %w", err)
	}

	return &Storage{
		config: config,
	}, nil
}

// SaveResponse archives a raw AI response under responses/YYYY/MM/slug.txt.
// Returns the relative file path from the base directory.
func (s *Storage) SaveResponse(raw, slug string) (string, error) {
	return s.save([]byte(raw), "responses", slug, ".txt")
}

// SaveReport archives an exported report document under
// reports/YYYY/MM/slug.json. Returns the relative file path from the base
// directory.
func (s *Storage) SaveReport(data []byte, slug string) (string, error) {
	return s.save(data, "reports", slug, ".json")
}

// save writes data under kind/YYYY/MM/slug+ext, appending a numeric suffix
// when the name is taken.
func (s *Storage) save(data []byte, kind, slug, ext string) (string, error) {
	now := time.Now()
	year := fmt.Sprintf("%04d", now.Year())
	month := fmt.Sprintf("%02d", int(now.Month()))

	dirPath := filepath.Join(s.config.BasePath, kind, year, month)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	filename := slug + ext
	filePath := filepath.Join(dirPath, filename)

	counter := 1
	for fileExists(filePath) {
		filename = fmt.Sprintf("%s-%d%s", slug, counter, ext)
		filePath = filepath.Join(dirPath, filename)
		counter++
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", kind, err)
	}

	relPath, err := filepath.Rel(s.config.BasePath, filePath)
	if err != nil {
		return "", fmt.Errorf("failed to get relative path: %w", err)
	}

	return relPath, nil
}

// ReadResponse reads an archived AI response
func (s *Storage) ReadResponse(relPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.config.BasePath, relPath))
	if err != nil {
		return "", fmt.Errorf("failed to read response file: %w", err)
	}
	return string(data), nil
}

// ReadReport reads an archived report document
func (s *Storage) ReadReport(relPath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.config.BasePath, relPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}
	return data, nil
}

// DeleteResponse deletes an archived AI response
func (s *Storage) DeleteResponse(relPath string) error {
	if err := os.Remove(filepath.Join(s.config.BasePath, relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete response file: %w", err)
	}
	return nil
}

// DeleteReport deletes an archived report document
func (s *Storage) DeleteReport(relPath string) error {
	if err := os.Remove(filepath.Join(s.config.BasePath, relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete report file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
