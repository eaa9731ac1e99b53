// Package pipeline composes normalization, landmark placement, region edge
// analysis and age aggregation into the per-face wrinkle analysis.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"github.com/okian/wrinkles/internal/domain/age"
	"github.com/okian/wrinkles/internal/domain/edge"
	"github.com/okian/wrinkles/internal/domain/landmark"
	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/internal/domain/normalize"
	"github.com/okian/wrinkles/pkg/logger"
	"github.com/okian/wrinkles/pkg/metrics"
)

// Pipeline analyzes one face crop at a time. It holds no per-face state and
// is safe for concurrent use.
type Pipeline struct {
	width      int
	height     int
	thresholds []model.ThresholdPair
	log        logger.Logger
}

// New creates a Pipeline with the reference canonical size and thresholds.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		width:      normalize.DefaultWidth,
		height:     normalize.DefaultHeight,
		thresholds: edge.DefaultThresholds(),
		log:        logger.OrNop("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CanonicalSize returns the normalized face size.
func (p *Pipeline) CanonicalSize() image.Point { return image.Pt(p.width, p.height) }

// Analyze normalizes crop and measures its wrinkle density. The crop is only
// read; the caller keeps ownership of it.
func (p *Pipeline) Analyze(ctx context.Context, crop gocv.Mat) (model.WrinkleReport, error) {
	if err := ctx.Err(); err != nil {
		return model.WrinkleReport{}, fmt.Errorf("analyze: %w", err)
	}

	face, err := normalize.Normalize(crop, p.width, p.height)
	if err != nil {
		return model.WrinkleReport{}, fmt.Errorf("normalize: %w", err)
	}
	defer face.Close()

	return p.AnalyzeFace(ctx, face)
}

// AnalyzeFace measures an already normalized face. The five regions are
// analyzed concurrently and aggregated once all of them are done. Any region
// error other than a clip warning fails the whole face.
func (p *Pipeline) AnalyzeFace(ctx context.Context, face *normalize.Face) (model.WrinkleReport, error) {
	if face == nil {
		return model.WrinkleReport{}, fmt.Errorf("%w: nil face", model.ErrInvalidInput)
	}
	start := time.Now()

	regions := landmark.Compute(face.Width(), face.Height())
	results := make([]model.RegionResult, len(regions))

	g, gctx := errgroup.WithContext(ctx)
	for i, region := range regions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := edge.AnalyzeRegion(face, region, p.thresholds[i])
			if err != nil {
				return fmt.Errorf("region %s: %w", region.Landmark.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.WrinkleReport{}, err
	}

	report := model.WrinkleReport{
		FaceSize: image.Pt(face.Width(), face.Height()),
		Regions:  results,
	}
	percentages := make([]float64, len(results))
	for i, res := range results {
		percentages[i] = res.Percentage
		metrics.RecordRegionEdgePercentage(res.Landmark, res.Percentage)
		if res.Clipped {
			metrics.RecordRegionClipped(res.Landmark)
			report.Warnings = append(report.Warnings, res.Warning.Error())
			p.log.Warn(ctx, "region clipped to face bounds",
				logger.String("region", res.Landmark),
				logger.Any("bounds", res.Bounds),
				logger.Error(res.Warning))
		}
	}

	avg, category, err := age.Aggregate(percentages)
	if err != nil {
		return model.WrinkleReport{}, fmt.Errorf("aggregate: %w", err)
	}
	report.Average = avg
	report.Category = category

	p.log.Debug(ctx, "face analyzed",
		logger.Float64("average", avg),
		logger.String("category", category.String()),
		logger.Duration("took", time.Since(start)))
	return report, nil
}
