// Package loader provides ASCII hex text program/data image loading for
// the RV32IM pipeline.
package loader

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Program represents a loaded instruction/data image pair ready for
// execution.
type Program struct {
	// Instructions holds one 32-bit little-endian word per line of the
	// instruction image, in word-address order (line k -> word-address k).
	Instructions []uint32
	// DataWords holds one word per line of the data image, loaded
	// sequentially from word-address 0 of data memory.
	DataWords []uint32
}

// Load parses an instruction image and a data image and returns a
// Program ready for loading into instruction/data memory.
//
// Both images are line-oriented ASCII hex text: one 32-bit word per
// line, an optional "0x" prefix, blank lines ignored (§6). The
// instruction image's most significant hex digit comes first; the
// decoded word is little-endian.
func Load(instPath, dataPath string) (*Program, error) {
	instructions, err := loadHexWords(instPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load instruction image: %w", err)
	}

	dataWords, err := loadHexWords(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load data image: %w", err)
	}

	return &Program{
		Instructions: instructions,
		DataWords:    dataWords,
	}, nil
}

// loadHexWords scans path line by line, parsing each non-blank line as a
// 32-bit hex word.
func loadHexWords(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var words []uint32
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		line = strings.TrimPrefix(line, "0x")
		line = strings.TrimPrefix(line, "0X")

		word, err := strconv.ParseUint(line, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: malformed hex word %q: %w", path, lineNo, line, err)
		}
		words = append(words, uint32(word))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return words, nil
}
