package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

var frameFilePattern = regexp.MustCompile(`^frame_(\d{8})_`)

type counterRecord struct {
	LastFrame int    `json:"last_frame"`
	Updated   string `json:"updated"`
}

// NextGlobalFrame returns the next dataset-wide frame number. It takes the
// maximum of the persisted counter file and a scan of the existing frame
// files, so a deleted or stale counter cannot cause numbering collisions.
func (l *Layout) NextGlobalFrame() int {
	max := 0

	entries, err := os.ReadDir(l.frames)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				if n := highestFrameNumber(filepath.Join(l.frames, e.Name())); n > max {
					max = n
				}
			}
		}
	}

	if data, err := os.ReadFile(l.counterPath); err == nil {
		var rec counterRecord
		if json.Unmarshal(data, &rec) == nil && rec.LastFrame > max {
			max = rec.LastFrame
		}
	}

	return max + 1
}

// UpdateGlobalFrame persists the highest frame number handed out so far.
func (l *Layout) UpdateGlobalFrame(lastFrame int) error {
	if err := os.MkdirAll(filepath.Dir(l.counterPath), 0o755); err != nil {
		return fmt.Errorf("output: create counter directory: %w", err)
	}
	data, err := json.MarshalIndent(counterRecord{
		LastFrame: lastFrame,
		Updated:   time.Now().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("output: encode frame counter: %w", err)
	}
	if err := os.WriteFile(l.counterPath, data, 0o644); err != nil {
		return fmt.Errorf("output: write frame counter %s: %w", l.counterPath, err)
	}
	return nil
}

func highestFrameNumber(dir string) int {
	max := 0
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if m := frameFilePattern.FindStringSubmatch(e.Name()); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > max {
				max = n
			}
		}
	}
	return max
}
