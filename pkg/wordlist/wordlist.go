// Package wordlist loads newline-delimited lists: payload catalogs,
// user-agent lists and target URL lists. Gzip-compressed files are
// detected by their .gz suffix.
package wordlist

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/waymap/waymap/pkg/finding"
)

// maxLineSize bounds a single entry; longer lines fail the load.
const maxLineSize = 1024 * 1024

// Wordlist represents a loaded list.
type Wordlist struct {
	Name   string    `json:"name"`
	Path   string    `json:"path"`
	Words  []string  `json:"words,omitempty"`
	Size   int       `json:"size"`
	Loaded time.Time `json:"loaded"`
}

// Options controls how lines are interpreted.
type Options struct {
	// SkipComments drops lines whose first non-space byte is '#'.
	// Payload catalogs leave this off since '#' opens SQL comments.
	SkipComments bool

	// Dedupe drops repeated entries, keeping the first occurrence.
	Dedupe bool
}

// LoadFile reads the list at path. Every failure is a
// *finding.DefinitionLoadError naming the path.
func LoadFile(path string, opts Options) (*Wordlist, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, finding.NewDefinitionLoadError(path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return nil, finding.NewDefinitionLoadError(path, fmt.Errorf("gzip: %w", err))
		}
		defer gzReader.Close()
		reader = gzReader
	}

	words, err := ReadLines(reader, opts)
	if err != nil {
		return nil, finding.NewDefinitionLoadError(path, err)
	}

	return &Wordlist{
		Name:   filepath.Base(path),
		Path:   path,
		Words:  words,
		Size:   len(words),
		Loaded: time.Now(),
	}, nil
}

// ReadLines splits r into trimmed, non-empty lines.
func ReadLines(r io.Reader, opts Options) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if opts.SkipComments && strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading list: %w", err)
	}

	if opts.Dedupe {
		words = Deduplicate(words)
	}
	return words, nil
}

// Parse is ReadLines over an in-memory string, used for embedded lists.
func Parse(data string, opts Options) []string {
	// strings.Reader never fails and embedded lines are short.
	words, _ := ReadLines(strings.NewReader(data), opts)
	return words
}

// Deduplicate returns words without repeats, preserving first-seen order.
func Deduplicate(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	result := make([]string, 0, len(words))

	for _, word := range words {
		if _, ok := seen[word]; !ok {
			seen[word] = struct{}{}
			result = append(result, word)
		}
	}

	return result
}
