package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/roach88/asyncmock/internal/harness"
)

// LoadError is a problem with the scenario directory itself.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ScenarioFile is one scenario file and the result of loading it.
type ScenarioFile struct {
	// Path is the file path as found under the scenario directory.
	Path string

	// Scenario is nil when Err is set.
	Scenario *harness.Scenario
	Err      error
}

// FindScenarioFiles returns the .yaml and .yml files under dir in lexical
// order. Hidden files and directories and golden/ directories are skipped.
//
// A non-empty filter is a doublestar glob matched against the path relative
// to dir (e.g. "greet/**") and against the bare scenario file name without
// extension (e.g. "greet_*").
func FindScenarioFiles(dir, filter string) ([]string, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scenario directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing scenario directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}
	if filter != "" && !doublestar.ValidatePattern(filter) {
		return nil, &LoadError{Code: ErrCodeBadFilter, Message: fmt.Sprintf("invalid filter pattern %q", filter)}
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(name, ".") || name == "golden") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			if !matchFilter(filter, filepath.ToSlash(rel), strings.TrimSuffix(name, ext)) {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}

	return files, nil
}

// matchFilter reports whether the relative path or the bare name matches.
// The pattern was validated up front, so Match errors cannot occur.
func matchFilter(pattern, rel, name string) bool {
	if ok, _ := doublestar.Match(pattern, rel); ok {
		return true
	}
	ok, _ := doublestar.Match(pattern, name)
	return ok
}

// LoadScenarios finds and loads every scenario under dir. A file that fails
// to load is returned with Err set; only directory problems are errors.
func LoadScenarios(dir, filter string) ([]ScenarioFile, error) {
	paths, err := FindScenarioFiles(dir, filter)
	if err != nil {
		return nil, err
	}

	files := make([]ScenarioFile, 0, len(paths))
	for _, path := range paths {
		s, err := harness.LoadScenario(path)
		files = append(files, ScenarioFile{Path: path, Scenario: s, Err: err})
	}
	return files, nil
}

// goldenFilePath returns the path to the golden file for a scenario file:
// golden/<file name>.golden next to it.
func goldenFilePath(scenarioFile string) string {
	return filepath.Join(filepath.Dir(scenarioFile), "golden", fileStem(scenarioFile)+".golden")
}

// fileStem is the file name without directory or extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
