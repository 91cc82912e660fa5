package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var flightNamePattern = regexp.MustCompile(`flight_(\d{8})_(\d{6})`)

// FlightInfo identifies the recording session an extraction came from.
type FlightInfo struct {
	FolderName string `json:"folder_name"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	SourcePath string `json:"source_path"`
}

// FlightInfoFromPath fills date/time from a flight_YYYYMMDD_HHMMSS folder
// name when the source lives in one.
func FlightInfoFromPath(sourcePath string) FlightInfo {
	info := FlightInfo{
		FolderName: RecordingName(sourcePath),
		SourcePath: filepath.ToSlash(sourcePath),
	}
	if m := flightNamePattern.FindStringSubmatch(info.FolderName); m != nil {
		d, t := m[1], m[2]
		info.Date = d[0:4] + "-" + d[4:6] + "-" + d[6:8]
		info.Time = t[0:2] + ":" + t[2:4] + ":" + t[4:6]
	}
	return info
}

// DepthStatistics aggregates valid depth observations over a whole run.
type DepthStatistics struct {
	MinDetectedMeters float64 `json:"min_detected_meters"`
	MaxDetectedMeters float64 `json:"max_detected_meters"`
	AvgDetectedMeters float64 `json:"avg_detected_meters"`
	FramesWithDepth   int     `json:"frames_with_depth"`
}

// DepthSettings records the configuration a depth run was produced with.
type DepthSettings struct {
	RawFormat           string  `json:"raw_format"`
	MinDepthMeters      float64 `json:"min_depth_meters"`
	MaxDepthMeters      float64 `json:"max_depth_meters"`
	ConfidenceThreshold int     `json:"confidence_threshold"`
	AutoContrast        bool    `json:"auto_contrast"`
	LogScale            bool    `json:"log_scale"`
	EdgeBoost           bool    `json:"edge_boost"`
	CLAHE               bool    `json:"clahe"`
	ColorMap            string  `json:"color_map"`
	TemporalSmooth      bool    `json:"temporal_smooth"`
	MotionHighlight     bool    `json:"motion_highlight"`
	OverlayOnRGB        bool    `json:"overlay_on_rgb"`
	OverlayStrength     int     `json:"overlay_strength"`
}

// DepthMetadata is the summary record written as depth_metadata.json at the
// end of a depth extraction run.
type DepthMetadata struct {
	ExtractionDateTime string          `json:"extraction_datetime"`
	Flight             FlightInfo      `json:"flight"`
	Width              int             `json:"width"`
	Height             int             `json:"height"`
	SourceFPS          float64         `json:"source_fps"`
	FramesProcessed    int             `json:"frames_processed"`
	Settings           DepthSettings   `json:"settings"`
	Statistics         DepthStatistics `json:"statistics"`
	OutputVideo        string          `json:"output_video,omitempty"`
}

// FrameMetadata summarizes a plain frame extraction run.
type FrameMetadata struct {
	ExtractionDateTime   string     `json:"extraction_datetime"`
	Flight               FlightInfo `json:"flight"`
	Width                int        `json:"width"`
	Height               int        `json:"height"`
	SourceFPS            float64    `json:"source_fps"`
	TotalSourceFrames    int        `json:"total_source_frames"`
	CameraMode           string     `json:"camera_mode"`
	ImageFormat          string     `json:"image_format"`
	FrameInterval        int        `json:"frame_interval"`
	TotalExtractedFrames int        `json:"total_extracted_frames"`
	StartingFrameNumber  int        `json:"starting_frame_number"`
	EndingFrameNumber    int        `json:"ending_frame_number"`
	OutputDirectory      string     `json:"output_directory"`
}

// VideoMetadata summarizes a video extraction run.
type VideoMetadata struct {
	ExtractionDateTime string     `json:"extraction_datetime"`
	Flight             FlightInfo `json:"flight"`
	Width              int        `json:"width"`
	Height             int        `json:"height"`
	FPS                float64    `json:"fps"`
	TotalFrames        int        `json:"total_frames"`
	CameraMode         string     `json:"camera_mode"`
	Codec              string     `json:"codec"`
	OutputFiles        []string   `json:"output_files"`
}

// WriteJSON serializes any metadata record to path, indented for humans.
func WriteJSON(record any, path string) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("output: encode metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("output: write metadata %s: %w", path, err)
	}
	return nil
}

// Timestamp is the extraction datetime format shared by all records.
func Timestamp() string {
	return time.Now().Format(time.RFC3339)
}
