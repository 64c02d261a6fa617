package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sketchgen/capprep/internal/caption"
	"github.com/sketchgen/capprep/internal/dataset"
	"github.com/sketchgen/capprep/internal/logger"
	"github.com/sketchgen/capprep/internal/pairing"
)

// ErrNothingProcessed is returned when the run produced no caption rows.
var ErrNothingProcessed = errors.New("no captions were processed")

// ProcessService is the interactive consolidator: it locates a caption
// directory (prompting when needed), pairs captions with images by stem,
// normalizes the text through the multi-encoding reader, populates the
// train dir, and writes a simple image_id,caption manifest. It does not
// touch the catalog.
type ProcessService struct {
	in     *bufio.Reader
	out    io.Writer
	logger *logger.Logger
	cfg    ProcessConfig
}

// ProcessConfig holds configuration for the process service.
type ProcessConfig struct {
	SearchPaths  []string // Tried in order when the caption prompt is left empty
	ImagesDir    string
	TrainDir     string
	ManifestPath string
	MaxChars     int
}

// NewProcessService creates a new process service reading prompts from in
// and writing console output to out.
func NewProcessService(in io.Reader, out io.Writer, log *logger.Logger, cfg ProcessConfig) *ProcessService {
	if len(cfg.SearchPaths) == 0 {
		cfg.SearchPaths = []string{"./data/text/celeba-caption", "./data/text", "./data"}
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = caption.DefaultMaxChars
	}
	return &ProcessService{
		in:     bufio.NewReader(in),
		out:    out,
		logger: log,
		cfg:    cfg,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *ProcessService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// ProcessStats holds counters for a consolidation run.
type ProcessStats struct {
	TotalCaptions int
	Matched       int
	Unmatched     int
	Success       int
	Failed        int
	ManifestPath  string
	StartTime     time.Time
	EndTime       time.Time
}

// Run executes the interactive consolidation pipeline.
// Parameters:
//   - ctx: context for cancellation, checked between files.
//
// Returns:
//   - *ProcessStats: counters for the run.
//   - error: ErrNothingProcessed when no caption survived, other errors
//     for missing directories or unwritable outputs.
func (s *ProcessService) Run(ctx context.Context) (*ProcessStats, error) {
	stats := &ProcessStats{
		ManifestPath: s.cfg.ManifestPath,
		StartTime:    time.Now(),
	}

	input, err := s.prompt("Enter path (or press Enter for auto-search): ")
	if err != nil {
		return nil, err
	}
	captionsDir, err := s.findCaptionsDir(input)
	if err != nil {
		return nil, err
	}

	captions, err := pairing.ScanCaptions(captionsDir, true)
	if err != nil {
		return nil, fmt.Errorf("failed to scan caption dir: %w", err)
	}
	if len(captions) == 0 {
		return nil, fmt.Errorf("no .txt caption files found under %s", captionsDir)
	}
	stats.TotalCaptions = len(captions)
	fmt.Fprintf(s.out, "Found %d caption files in %s\n", len(captions), captionsDir)

	imagesDir, err := s.findImagesDir()
	if err != nil {
		return nil, err
	}
	images, err := pairing.ScanImages(imagesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan image dir: %w", err)
	}

	pairs, unmatched := pairing.MatchByStem(captions, images)
	stats.Matched = len(pairs)
	stats.Unmatched = len(unmatched)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no captions matched an image in %s", imagesDir)
	}

	writer, err := dataset.NewWriter(s.cfg.TrainDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create train dir: %w", err)
	}

	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		text, _, err := caption.ReadFile(p.CaptionPath)
		if err != nil {
			s.log(ctx).WithError(err).WithField(logger.FieldStem, pairing.Stem(p.CaptionPath)).Warn("Failed to read caption")
			stats.Failed++
			continue
		}

		normalized := caption.Normalize(text, s.cfg.MaxChars)
		if normalized == "" {
			stats.Failed++
			continue
		}

		imageName := filepath.Base(p.ImagePath)
		if _, err := writer.Place(p.ImagePath, imageName, normalized); err != nil {
			s.log(ctx).WithError(err).WithField(logger.FieldStem, pairing.Stem(p.CaptionPath)).Warn("Failed to place pair")
			stats.Failed++
			continue
		}

		rows = append(rows, []string{imageName, normalized})
		stats.Success++
	}

	if stats.Success == 0 {
		return stats, ErrNothingProcessed
	}

	if err := dataset.WriteManifest(s.cfg.ManifestPath, dataset.ColumnsSimple, rows); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	stats.EndTime = time.Now()

	fmt.Fprintln(s.out, "\nFirst 3 processed captions:")
	for i := 0; i < len(rows) && i < 3; i++ {
		fmt.Fprintf(s.out, "  %d. %s: %s\n", i+1, pairing.Stem(rows[i][0]), truncate(rows[i][1], 70))
	}
	fmt.Fprintf(s.out, "\nProcessing complete: %d captions processed, %d failed\n", stats.Success, stats.Failed)
	if stats.Unmatched > 0 {
		fmt.Fprintf(s.out, "Captions without a matching image: %d\n", stats.Unmatched)
	}
	fmt.Fprintf(s.out, "Saved to: %s\n", s.cfg.ManifestPath)

	return stats, nil
}

// prompt prints a label and reads one trimmed line. EOF counts as empty
// input so the command works when stdin is closed or piped.
func (s *ProcessService) prompt(label string) (string, error) {
	fmt.Fprint(s.out, label)
	line, err := s.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// findCaptionsDir resolves the caption directory from the prompt answer,
// falling back to the configured search paths on empty input.
func (s *ProcessService) findCaptionsDir(input string) (string, error) {
	if input != "" {
		if info, err := os.Stat(input); err == nil && info.IsDir() {
			return input, nil
		}
		return "", fmt.Errorf("caption path does not exist: %s", input)
	}

	for _, p := range s.cfg.SearchPaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			fmt.Fprintf(s.out, "Found caption directory: %s\n", p)
			return p, nil
		}
	}
	return "", fmt.Errorf("no caption directory found, searched: %s", strings.Join(s.cfg.SearchPaths, ", "))
}

// findImagesDir uses the configured image dir when it exists and prompts
// for a path otherwise.
func (s *ProcessService) findImagesDir() (string, error) {
	if info, err := os.Stat(s.cfg.ImagesDir); err == nil && info.IsDir() {
		return s.cfg.ImagesDir, nil
	}

	input, err := s.prompt("Enter image directory path: ")
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(input); err == nil && info.IsDir() {
		return input, nil
	}
	return "", fmt.Errorf("image directory does not exist: %s", input)
}
