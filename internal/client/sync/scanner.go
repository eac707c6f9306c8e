package sync

import (
	"bufio"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/openmined/syncbox/internal/utils"
)

// syncIgnoreFile holds user-supplied extra exclusion patterns in the sync root.
const syncIgnoreFile = ".syncignore"

var defaultIgnoreLines = []string{
	// syncbox internals
	"/" + StateFileName,
	"/" + lockFileName,
	syncIgnoreFile,
	// hidden files and directories
	".*",
	// temporary/backup files
	"@*",
	"*~",
	// generated artifacts
	"*.pyc",
	"*.pyo",
	// environment-reserved top-level directories
	"/temp/",
	"/site*/",
}

// LocalFile is one upload candidate produced by a scan.
type LocalFile struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Scanner walks the local tree and applies the inclusion rules. Paths that
// never pass the scanner never enter the delta algorithm.
type Scanner struct {
	rootDir string
	ignore  *gitignore.GitIgnore
}

func NewScanner(rootDir string) *Scanner {
	s := &Scanner{rootDir: rootDir}
	s.loadIgnoreRules()
	return s
}

func (s *Scanner) loadIgnoreRules() {
	ignoreLines := defaultIgnoreLines

	// append user rules if a .syncignore exists
	ignorePath := filepath.Join(s.rootDir, syncIgnoreFile)
	if utils.FileExists(ignorePath) {
		file, err := os.Open(ignorePath)
		if err != nil {
			slog.Warn("failed to open ignore file", "path", ignorePath, "error", err)
		} else {
			defer file.Close()
			rules := 0
			scanner := bufio.NewScanner(file)
			for scanner.Scan() {
				line := scanner.Text()
				if line != "" {
					ignoreLines = append(ignoreLines, line)
					rules++
				}
			}
			if err := scanner.Err(); err != nil {
				slog.Warn("error reading ignore file", "path", ignorePath, "error", err)
			} else if rules > 0 {
				slog.Info("loaded ignore file", "path", ignorePath, "rules", rules)
			}
		}
	}

	s.ignore = gitignore.CompileIgnoreLines(ignoreLines...)
}

// ShouldIgnore reports whether a root-relative slash path is excluded.
func (s *Scanner) ShouldIgnore(relPath string) bool {
	return s.ignore.MatchesPath(relPath)
}

// Scan walks the tree under the root and returns the current filtered file
// list keyed by relative path.
func (s *Scanner) Scan() (map[string]LocalFile, error) {
	files := make(map[string]LocalFile)

	err := filepath.WalkDir(s.rootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walk error: %w", walkErr)
		}

		if path == s.rootDir {
			return nil
		}

		relPath, err := filepath.Rel(s.rootDir, path)
		if err != nil {
			return fmt.Errorf("walk rel path: %w", err)
		}
		relPath = utils.NormPath(relPath)

		if d.IsDir() {
			if s.ShouldIgnore(relPath + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if s.ShouldIgnore(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			slog.Warn("failed to stat file, skipping", "path", path, "error", err)
			return nil
		}

		files[relPath] = LocalFile{
			Path:    relPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("local scan failed: %w", err)
	}

	return files, nil
}
