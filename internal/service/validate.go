package service

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sketchgen/capprep/internal/caption"
	"github.com/sketchgen/capprep/internal/dataset"
	"github.com/sketchgen/capprep/internal/domain"
	"github.com/sketchgen/capprep/internal/logger"
	"github.com/sketchgen/capprep/internal/pairing"
	"github.com/sketchgen/capprep/internal/repository"
)

// ValidateService reviews a caption manifest before training: it samples
// rows for eyeballing, computes length and duplicate statistics, checks
// that the train dir pairs every image with a caption file, and can
// optionally hunt near-duplicate captions through the vector store.
type ValidateService struct {
	embedding  *EmbeddingService
	qdrant     *repository.QdrantRepository
	vectorRepo *repository.CaptionVectorRepository
	logger     *logger.Logger
	out        io.Writer
	cfg        ValidateConfig
}

// ValidateConfig holds configuration for the validate service. The
// embedding, qdrant, and vector repo dependencies may be nil when
// near-duplicate detection is disabled.
type ValidateConfig struct {
	SampleSize       int
	Seed             int64
	IdealMinWords    int
	IdealMaxWords    int
	TrainDir         string
	Collection       string
	NearDupEnabled   bool
	NearDupThreshold float32
}

// NewValidateService creates a new validate service writing console
// output to out.
func NewValidateService(
	embedding *EmbeddingService,
	qdrant *repository.QdrantRepository,
	vectorRepo *repository.CaptionVectorRepository,
	log *logger.Logger,
	out io.Writer,
	cfg ValidateConfig,
) *ValidateService {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 15
	}
	if cfg.IdealMinWords <= 0 {
		cfg.IdealMinWords = 10
	}
	if cfg.IdealMaxWords <= 0 {
		cfg.IdealMaxWords = 30
	}
	if cfg.NearDupThreshold <= 0 {
		cfg.NearDupThreshold = 0.97
	}
	return &ValidateService{
		embedding:  embedding,
		qdrant:     qdrant,
		vectorRepo: vectorRepo,
		logger:     log,
		out:        out,
		cfg:        cfg,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *ValidateService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// CaptionSample is one manifest row drawn for review.
type CaptionSample struct {
	ImageID string
	Caption string
	Words   int
}

// NearDupPair is a pair of captions whose embedding similarity reached
// the configured threshold. Stems are ordered so A < B.
type NearDupPair struct {
	StemA string
	StemB string
	Score float32
}

// ValidateReport holds everything the validation pass found.
type ValidateReport struct {
	ManifestPath    string
	CaptionColumn   string
	Stats           caption.Stats
	Samples         []CaptionSample
	MissingCaptions []string // train dir image stems without a caption file
	MissingImages   []string // train dir caption stems without an image file
	NearDups        []NearDupPair
	NearDupRan      bool
}

// Run validates the manifest at manifestPath and renders the report as
// console tables.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - manifestPath: caption CSV to validate.
//
// Returns:
//   - *ValidateReport: findings, also rendered to the output writer.
//   - error: non-nil when the manifest is unreadable or has no caption
//     column. Near-duplicate failures degrade to warnings.
func (s *ValidateService) Run(ctx context.Context, manifestPath string) (*ValidateReport, error) {
	m, err := dataset.ReadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	col, name, err := m.CaptionColumn()
	if err != nil {
		return nil, err
	}

	report := &ValidateReport{
		ManifestPath:  manifestPath,
		CaptionColumn: name,
	}

	captions := m.CaptionValues(col)
	report.Stats = caption.Compute(captions, caption.Band{Min: s.cfg.IdealMinWords, Max: s.cfg.IdealMaxWords})
	report.Samples = s.sample(m, col)

	s.renderSamples(report)
	s.renderStats(report)

	s.checkTrainDir(ctx, report)

	if s.cfg.NearDupEnabled {
		s.detectNearDups(ctx, m, col, report)
		s.renderNearDups(report)
	}

	s.renderRecommendation(report)

	return report, nil
}

// sample draws up to SampleSize rows with a fixed seed so review output is
// stable between runs on the same manifest.
func (s *ValidateService) sample(m *dataset.Manifest, col int) []CaptionSample {
	n := s.cfg.SampleSize
	if n > len(m.Rows) {
		n = len(m.Rows)
	}

	rng := rand.New(rand.NewSource(s.cfg.Seed))
	perm := rng.Perm(len(m.Rows))

	imgCol, hasImg := m.ImageColumn()
	samples := make([]CaptionSample, 0, n)
	for _, idx := range perm[:n] {
		row := m.Rows[idx]
		imageID := "row " + strconv.Itoa(idx+1)
		if hasImg && imgCol < len(row) {
			imageID = row[imgCol]
		}
		text := ""
		if col < len(row) {
			text = row[col]
		}
		samples = append(samples, CaptionSample{
			ImageID: imageID,
			Caption: text,
			Words:   caption.WordCount(text),
		})
	}
	return samples
}

func (s *ValidateService) renderSamples(report *ValidateReport) {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("CAPTION SAMPLES")
	tw.AppendHeader(table.Row{"#", "Image", "Words", "Caption"})
	for i, sm := range report.Samples {
		tw.AppendRow(table.Row{i + 1, sm.ImageID, sm.Words, truncate(sm.Caption, 70)})
	}
	fmt.Fprintln(s.out, tw.Render())
}

func (s *ValidateService) renderStats(report *ValidateReport) {
	st := report.Stats
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("STATISTICS")
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRow(table.Row{"Total captions", st.Count})
	tw.AppendRow(table.Row{"Chars avg", fmt.Sprintf("%.1f", st.Chars.Avg)})
	tw.AppendRow(table.Row{"Chars min", st.Chars.Min})
	tw.AppendRow(table.Row{"Chars max", st.Chars.Max})
	tw.AppendRow(table.Row{"Words avg", fmt.Sprintf("%.1f", st.Words.Avg)})
	tw.AppendRow(table.Row{"Words min", st.Words.Min})
	tw.AppendRow(table.Row{"Words max", st.Words.Max})
	tw.AppendRow(table.Row{
		fmt.Sprintf("Ideal (%d-%d words)", s.cfg.IdealMinWords, s.cfg.IdealMaxWords),
		fmt.Sprintf("%d (%.1f%%)", st.IdealCount, st.IdealPct),
	})
	tw.AppendRow(table.Row{"Duplicates", fmt.Sprintf("%d (%.2f%%)", st.Duplicates, st.DuplicatePct)})
	fmt.Fprintln(s.out, tw.Render())

	if st.Duplicates < 10 {
		fmt.Fprintln(s.out, "Good - very few duplicates!")
	}
}

// checkTrainDir verifies that every image in the train dir has a same-stem
// caption file and vice versa. A missing train dir skips the check.
func (s *ValidateService) checkTrainDir(ctx context.Context, report *ValidateReport) {
	if s.cfg.TrainDir == "" {
		return
	}
	if info, err := os.Stat(s.cfg.TrainDir); err != nil || !info.IsDir() {
		return
	}

	images, err := pairing.ScanImages(s.cfg.TrainDir)
	if err != nil {
		s.log(ctx).WithError(err).Warn("Failed to scan train dir images")
		return
	}
	capFiles, err := pairing.ScanCaptions(s.cfg.TrainDir, false)
	if err != nil {
		s.log(ctx).WithError(err).Warn("Failed to scan train dir captions")
		return
	}

	imgStems := make(map[string]bool, len(images))
	for _, f := range images {
		imgStems[pairing.Stem(f)] = true
	}
	capStems := make(map[string]bool, len(capFiles))
	for _, f := range capFiles {
		capStems[pairing.Stem(f)] = true
	}

	for stem := range imgStems {
		if !capStems[stem] {
			report.MissingCaptions = append(report.MissingCaptions, stem)
		}
	}
	for stem := range capStems {
		if !imgStems[stem] {
			report.MissingImages = append(report.MissingImages, stem)
		}
	}
	sort.Strings(report.MissingCaptions)
	sort.Strings(report.MissingImages)

	if len(report.MissingCaptions) == 0 && len(report.MissingImages) == 0 {
		fmt.Fprintf(s.out, "Train dir pairing OK: %d images, %d captions\n", len(imgStems), len(capStems))
		return
	}
	for _, stem := range report.MissingCaptions {
		fmt.Fprintf(s.out, "Image without caption: %s\n", stem)
	}
	for _, stem := range report.MissingImages {
		fmt.Fprintf(s.out, "Caption without image: %s\n", stem)
	}
}

// detectNearDups embeds every caption, upserts the vectors into the
// collection under deterministic point IDs, then searches each caption's
// neighbors and collects pairs at or above the threshold. Every failure
// degrades to a warning so validation still completes.
func (s *ValidateService) detectNearDups(ctx context.Context, m *dataset.Manifest, col int, report *ValidateReport) {
	if s.embedding == nil || s.qdrant == nil {
		s.log(ctx).Warn("Near-duplicate detection enabled but embedding or qdrant is not configured")
		return
	}

	if err := s.qdrant.EnsureCollection(ctx); err != nil {
		s.log(ctx).WithError(err).Warn("Near-duplicate detection skipped: collection unavailable")
		return
	}

	type capPoint struct {
		stem    string
		imageID string
		text    string
		vector  []float32
	}

	imgCol, hasImg := m.ImageColumn()
	points := make([]capPoint, 0, len(m.Rows))
	for i, row := range m.Rows {
		if col >= len(row) || strings.TrimSpace(row[col]) == "" {
			continue
		}
		stem := "row-" + strconv.Itoa(i+1)
		imageID := ""
		if hasImg && imgCol < len(row) {
			imageID = row[imgCol]
			stem = pairing.Stem(imageID)
		}
		points = append(points, capPoint{stem: stem, imageID: imageID, text: row[col]})
	}
	if len(points) == 0 {
		return
	}

	const batchSize = 64
	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}
		texts := make([]string, end-start)
		for i := start; i < end; i++ {
			texts[i-start] = points[i].text
		}
		vectors, err := s.embedding.EmbedBatch(ctx, texts)
		if err != nil {
			s.log(ctx).WithError(err).Warn("Near-duplicate detection aborted: embedding failed")
			return
		}
		for i := start; i < end; i++ {
			points[i].vector = vectors[i-start]
		}
	}

	for i := range points {
		p := &points[i]
		pointID := repository.PointIDForStem(p.stem)
		err := s.qdrant.Upsert(ctx, pointID, p.vector, &repository.CaptionPayload{
			Stem:      p.stem,
			ImageID:   p.imageID,
			Caption:   p.text,
			WordCount: caption.WordCount(p.text),
		})
		if err != nil {
			s.log(ctx).WithError(err).WithField(logger.FieldStem, p.stem).Warn("Near-duplicate detection aborted: upsert failed")
			return
		}
		s.recordVector(ctx, p.stem, pointID)
	}

	const topK = 5
	seen := make(map[string]bool)
	for i := range points {
		p := &points[i]
		stem := p.stem
		results, err := s.qdrant.Search(ctx, p.vector, topK, &repository.SearchFilters{ExcludeStem: &stem})
		if err != nil {
			s.log(ctx).WithError(err).Warn("Near-duplicate detection aborted: search failed")
			return
		}
		for _, res := range results {
			if res.Payload == nil || res.Score < s.cfg.NearDupThreshold {
				continue
			}
			a, b := p.stem, res.Payload.Stem
			if b < a {
				a, b = b, a
			}
			key := a + "\x00" + b
			if seen[key] {
				continue
			}
			seen[key] = true
			report.NearDups = append(report.NearDups, NearDupPair{StemA: a, StemB: b, Score: res.Score})
		}
	}

	sort.Slice(report.NearDups, func(i, j int) bool {
		if report.NearDups[i].Score != report.NearDups[j].Score {
			return report.NearDups[i].Score > report.NearDups[j].Score
		}
		return report.NearDups[i].StemA < report.NearDups[j].StemA
	})
	report.NearDupRan = true
}

// recordVector tracks the upserted vector in the catalog, best-effort.
func (s *ValidateService) recordVector(ctx context.Context, stem, pointID string) {
	if s.vectorRepo == nil {
		return
	}
	rec := &domain.CaptionVector{
		ID:             uuid.New().String(),
		Stem:           stem,
		Collection:     s.cfg.Collection,
		EmbeddingModel: s.embedding.GetModel(),
		QdrantPointID:  pointID,
		Status:         domain.CaptionVectorStatusActive,
	}
	if err := s.vectorRepo.Upsert(ctx, rec); err != nil {
		s.log(ctx).WithError(err).WithField(logger.FieldStem, stem).Warn("Failed to record caption vector")
	}
}

func (s *ValidateService) renderNearDups(report *ValidateReport) {
	if !report.NearDupRan {
		return
	}
	if len(report.NearDups) == 0 {
		fmt.Fprintf(s.out, "No near-duplicate captions at threshold %.2f\n", s.cfg.NearDupThreshold)
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("NEAR-DUPLICATE CAPTIONS")
	tw.AppendHeader(table.Row{"Stem A", "Stem B", "Similarity"})
	for _, d := range report.NearDups {
		tw.AppendRow(table.Row{d.StemA, d.StemB, fmt.Sprintf("%.4f", d.Score)})
	}
	fmt.Fprintln(s.out, tw.Render())
}

func (s *ValidateService) renderRecommendation(report *ValidateReport) {
	issues := len(report.MissingCaptions) + len(report.MissingImages) + len(report.NearDups)
	if issues > 0 {
		fmt.Fprintf(s.out, "\nFound %d pairing or duplication issues, review before training.\n", issues)
		return
	}
	fmt.Fprintln(s.out, "\nCaptions look ready for training!")
	if s.cfg.TrainDir != "" {
		fmt.Fprintf(s.out, "Data is in: %s\n", s.cfg.TrainDir)
	}
}
