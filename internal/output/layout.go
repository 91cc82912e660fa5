// Output directory layout and allocation for extraction runs
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	extractionDirPattern = regexp.MustCompile(`^extraction_(\d{3})$`)
	flightFolderPattern  = regexp.MustCompile(`^flight_\d{8}_\d{6}$`)
)

// Layout manages the dataset output tree:
//
//	<base>/Extractions/<recording>/extraction_NNN/   per-run artifacts
//	<base>/Yolo_Training/Unfiltered_Images/<recording>/   plain frame dumps
//	<base>/Yolo_Training/.frame_counter.json   dataset-wide frame counter
type Layout struct {
	base        string
	extractions string
	frames      string
	counterPath string
	log         *logrus.Entry
}

func NewLayout(base string, log *logrus.Entry) *Layout {
	base = filepath.ToSlash(base)
	training := filepath.Join(base, "Yolo_Training")
	return &Layout{
		base:        base,
		extractions: filepath.Join(base, "Extractions"),
		frames:      filepath.Join(training, "Unfiltered_Images"),
		counterPath: filepath.Join(training, ".frame_counter.json"),
		log:         log,
	}
}

// Validate creates the base directory if missing and checks it is writable.
func (l *Layout) Validate() error {
	if err := os.MkdirAll(l.base, 0o755); err != nil {
		return fmt.Errorf("output: create base directory %s: %w", l.base, err)
	}
	probe := filepath.Join(l.base, ".write_test")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return fmt.Errorf("output: base directory %s is not writable: %w", l.base, err)
	}
	os.Remove(probe)
	return nil
}

// RecordingName derives the dataset key for a source file: the enclosing
// flight folder when the recording lives inside one, otherwise the file stem.
func RecordingName(sourcePath string) string {
	parent := filepath.Base(filepath.Dir(sourcePath))
	if flightFolderPattern.MatchString(parent) {
		return parent
	}
	stem := filepath.Base(sourcePath)
	if ext := filepath.Ext(stem); ext != "" {
		stem = strings.TrimSuffix(stem, ext)
	}
	if stem == "" || stem == "." {
		return "unknown_recording"
	}
	return stem
}

// NextExtractionDir allocates and creates the next numbered extraction
// directory for a recording (extraction_001, extraction_002, ...).
func (l *Layout) NextExtractionDir(recording string) (string, error) {
	parent := filepath.Join(l.extractions, recording)
	next := 1
	entries, err := os.ReadDir(parent)
	if err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if m := extractionDirPattern.FindStringSubmatch(e.Name()); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n >= next {
					next = n + 1
				}
			}
		}
	}

	dir := filepath.Join(parent, fmt.Sprintf("extraction_%03d", next))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("output: create extraction directory %s: %w", dir, err)
	}
	if l.log != nil {
		l.log.WithField("dir", dir).Info("allocated extraction directory")
	}
	return dir, nil
}

// FramesDir returns (creating if needed) the plain-frame output directory
// for a recording.
func (l *Layout) FramesDir(recording string) (string, error) {
	dir := filepath.Join(l.frames, recording)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("output: create frames directory %s: %w", dir, err)
	}
	return dir, nil
}

// DepthDirs are the per-kind subdirectories inside one extraction directory.
// Optional kinds are only created when the run will write them.
type DepthDirs struct {
	Root           string
	DepthMaps      string
	Heatmaps       string
	LeftRGB        string
	ConfidenceMaps string
}

func MakeDepthDirs(root string, withLeft, withConfidence bool) (DepthDirs, error) {
	d := DepthDirs{
		Root:      root,
		DepthMaps: filepath.Join(root, "depth_maps"),
		Heatmaps:  filepath.Join(root, "depth_heatmaps"),
	}
	dirs := []string{d.DepthMaps, d.Heatmaps}
	if withLeft {
		d.LeftRGB = filepath.Join(root, "left_rgb")
		dirs = append(dirs, d.LeftRGB)
	}
	if withConfidence {
		d.ConfidenceMaps = filepath.Join(root, "confidence_maps")
		dirs = append(dirs, d.ConfidenceMaps)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return DepthDirs{}, fmt.Errorf("output: create %s: %w", dir, err)
		}
	}
	return d, nil
}

// Artifact paths inside an extraction directory, keyed by the zero-padded
// extracted-frame counter (not the source frame index).

func (d DepthDirs) DepthMapPath(index int, ext string) string {
	return filepath.Join(d.DepthMaps, fmt.Sprintf("depth_%06d%s", index, ext))
}

func (d DepthDirs) HeatmapPath(index int) string {
	return filepath.Join(d.Heatmaps, fmt.Sprintf("heatmap_%06d.png", index))
}

func (d DepthDirs) LeftRGBPath(index int) string {
	return filepath.Join(d.LeftRGB, fmt.Sprintf("left_%06d.png", index))
}

func (d DepthDirs) ConfidencePath(index int) string {
	return filepath.Join(d.ConfidenceMaps, fmt.Sprintf("conf_%06d.png", index))
}

func (d DepthDirs) VideoPath() string {
	return filepath.Join(d.Root, "depth_heatmap.avi")
}

func (d DepthDirs) MetadataPath() string {
	return filepath.Join(d.Root, "depth_metadata.json")
}
