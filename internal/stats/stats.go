// Package stats implements spec.md §6's persisted statistics layout,
// grounded on the original source's modules/UserStatisticsModule.cpp: a
// per-user directory of UTF-8 CSV files under a staging root, each file
// carrying the five-column header contract (username, characters
// learned, time per character, features unlocked, emailadress) and the
// row-level invariant that the whitespace-token counts of "characters
// learned" and "time per character" match.
package stats

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/signalsfoundry/murmurhf/internal/errs"
)

// requiredHeaderTokens are matched case-insensitively against the first
// line of an ingested file, per spec.md §6.
var requiredHeaderTokens = []string{
	"username",
	"characters learned",
	"time per character",
	"features unlocked",
	"emailadress",
}

// Store roots statistics ingestion at a single staging directory, laid
// out as <root>/<user-name>/<file>.
type Store struct {
	root string
}

// Open returns a Store rooted at root, creating it if it does not exist
// yet (mirrors ensureDirectoryExists).
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0777); err != nil {
		return nil, errs.New(errs.StoreError, "stats.Open", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) userDir(userName string) string {
	return filepath.Join(s.root, userName)
}

// Ingest validates fileData as a statistics CSV file and, if valid,
// writes it to <root>/<userName>/<fileName>, mirroring
// processUserStatsFile. Validation runs before the user directory is
// created, so a rejected file creates nothing on disk.
func (s *Store) Ingest(userName, fileName string, fileData []byte) error {
	if userName == "" || fileName == "" {
		return errs.New(errs.ValidationError, "stats.Ingest", fmt.Errorf("empty user name or file name"))
	}
	if strings.ContainsAny(fileName, `/\`) {
		return errs.New(errs.ValidationError, "stats.Ingest", fmt.Errorf("file name %q must not contain path separators", fileName))
	}

	if err := Validate(fileData); err != nil {
		return err
	}

	dir := s.userDir(userName)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errs.New(errs.StoreError, "stats.Ingest", err)
	}

	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, fileData, 0666); err != nil {
		return errs.New(errs.StoreError, "stats.Ingest", err)
	}

	log.Printf("stats: ingested %d bytes for user %q into %s", len(fileData), userName, path)
	return nil
}

// HasStats reports whether userName has at least one ingested file.
func (s *Store) HasStats(userName string) bool {
	entries, err := os.ReadDir(s.userDir(userName))
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() {
			return true
		}
	}
	return false
}

// Files returns userName's ingested file names, most recently modified
// first, mirroring getUserStatsFiles's QDir::Time ordering.
func (s *Store) Files(userName string) ([]string, error) {
	entries, err := os.ReadDir(s.userDir(userName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.New(errs.StoreError, "stats.Files", err)
	}

	type fileInfo struct {
		name    string
		modTime time.Time
	}
	var files []fileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{e.Name(), info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.name
	}
	return out, nil
}

// Validate checks fileData against spec.md §6's header-and-row contract
// without writing anything, mirroring validateStatsFile.
func Validate(fileData []byte) error {
	lines := splitNonEmptyLines(fileData)
	if len(lines) == 0 {
		return errs.New(errs.ValidationError, "stats.Validate", fmt.Errorf("empty statistics file"))
	}

	header := strings.ToLower(lines[0])
	for _, tok := range requiredHeaderTokens {
		if !strings.Contains(header, tok) {
			return errs.New(errs.ValidationError, "stats.Validate", fmt.Errorf("header missing required token %q", tok))
		}
	}

	for i, line := range lines[1:] {
		fields := strings.Split(line, ",")
		if len(fields) < 5 {
			return errs.New(errs.ValidationError, "stats.Validate", fmt.Errorf("row %d has %d fields, want at least 5", i+1, len(fields)))
		}

		charactersLearned := strings.TrimSpace(fields[1])
		timePerCharacter := strings.TrimSpace(fields[2])
		if charactersLearned == "" {
			continue
		}

		characters := strings.Fields(charactersLearned)
		times := strings.Fields(timePerCharacter)
		if len(characters) != len(times) {
			return errs.New(errs.ValidationError, "stats.Validate", fmt.Errorf(
				"row %d: characters learned has %d tokens, time per character has %d", i+1, len(characters), len(times)))
		}
	}

	return nil
}

// splitNonEmptyLines mirrors QString::split(Qt::SkipEmptyParts) over '\n',
// also trimming a trailing '\r' so CRLF input does not corrupt the header
// match.
func splitNonEmptyLines(data []byte) []string {
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRightFunc(scanner.Text(), unicode.IsSpace)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
