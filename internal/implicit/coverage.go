package implicit

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RoaringBitmap/roaring/v2"
)

// DefaultCoverageFile is the JSON export of the coverage database.
const DefaultCoverageFile = ".husk_coverage.json"

// coverageDocument mirrors the JSON export of a coverage run: per-file
// executed lines, either as an explicit line list or as a base64 bitfield
// ("numbits", bit N set means line N executed).
type coverageDocument struct {
	Files map[string]coverageFile `json:"files"`
}

type coverageFile struct {
	ExecutedLines []int  `json:"executed_lines"`
	Numbits       string `json:"numbits"`
}

// LoadCoverage ingests coverage data. A missing file disables the override.
// Returns whether any line hits were loaded.
func (t *Tracker) LoadCoverage(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read coverage file: %w", err)
	}

	var doc coverageDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("failed to decode coverage file: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	loaded := false
	for file, cov := range doc.Files {
		base := filepath.Base(file)
		bm, ok := t.coverage[base]
		if !ok {
			bm = roaring.New()
			t.coverage[base] = bm
		}
		for _, line := range cov.ExecutedLines {
			if line >= 0 {
				bm.Add(uint32(line))
				loaded = true
			}
		}
		if cov.Numbits != "" {
			raw, err := base64.StdEncoding.DecodeString(cov.Numbits)
			if err != nil {
				continue
			}
			for byteIdx, b := range raw {
				for bitIdx := 0; bitIdx < 8; bitIdx++ {
					if b&(1<<bitIdx) != 0 {
						bm.Add(uint32(byteIdx*8 + bitIdx))
						loaded = true
					}
				}
			}
		}
	}
	return loaded, nil
}

// CoveredLines returns how many executed lines are recorded for a file
// basename.
func (t *Tracker) CoveredLines(basename string) uint64 {
	if bm, ok := t.coverage[basename]; ok {
		return bm.GetCardinality()
	}
	return 0
}
