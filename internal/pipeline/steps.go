package pipeline

import (
	"context"
	"log/slog"

	"github.com/urachaosarena-lab/TerminalOne/internal/config"
	"github.com/urachaosarena-lab/TerminalOne/internal/model"
	"github.com/urachaosarena-lab/TerminalOne/internal/save"
)

// LoadStep reads and decodes the save file named by the report.
// This step populates the hero entries every later analysis reads from.
//
// Design decision: Loading is a separate step because:
// 1. It's the foundation every analysis step reads from
// 2. Its failure must abort the run before any count is produced
// 3. It keeps file I/O out of the analysis steps so they stay testable
type LoadStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// LoadStepOption configures a LoadStep.
type LoadStepOption func(*LoadStep)

// WithLoadLogger sets a custom logger for the load step.
func WithLoadLogger(logger *slog.Logger) LoadStepOption {
	return func(s *LoadStep) {
		s.logger = logger
	}
}

// NewLoadStep creates a new save-file loading step.
func NewLoadStep(opts ...LoadStepOption) *LoadStep {
	s := &LoadStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *LoadStep) Name() string {
	return "load"
}

// Do executes the load step.
// Any read, parse, or record-shape error is fatal for the whole audit.
func (s *LoadStep) Do(_ context.Context, report *model.Report) error {
	archive, err := save.Load(report.SaveFile)
	if err != nil {
		return err
	}

	report.Heroes = archive.Heroes
	report.Digest = archive.Digest
	report.TotalHeroes = archive.TotalHeroes()

	s.logger.Info("save file loaded",
		"file", report.SaveFile,
		"heroes", report.TotalHeroes,
	)

	return nil
}

// CensusStep tallies equipped-item formats across all heroes.
// It counts heroes holding at least one item, classifies every truthy
// equipped value as legacy or current format, and records each legacy
// value in discovery order for the migration listing.
//
// Design decision: The census is a single pass because the counters and
// the legacy listing must share one discovery order. Splitting them
// would require either two walks or a merge step, and the listing order
// is part of the report contract.
type CensusStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// CensusStepOption configures a CensusStep.
type CensusStepOption func(*CensusStep)

// WithCensusLogger sets a custom logger for the census step.
func WithCensusLogger(logger *slog.Logger) CensusStepOption {
	return func(s *CensusStep) {
		s.logger = logger
	}
}

// NewCensusStep creates a new format census step.
func NewCensusStep(opts ...CensusStepOption) *CensusStep {
	s := &CensusStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CensusStep) Name() string {
	return "census"
}

// Do executes the census step.
// Heroes whose equipped values are all empty contribute nothing here,
// matching the free-slot convention in which empty strings and empty
// objects both mean "nothing equipped".
func (s *CensusStep) Do(_ context.Context, report *model.Report) error {
	for _, entry := range report.Heroes {
		if !entry.Hero.HasEquippedItem() {
			continue
		}
		report.HeroesWithItems++

		for _, slot := range entry.Hero.Equipped {
			if !slot.Item.Truthy() {
				continue
			}

			switch slot.Item.Format {
			case model.FormatLegacy:
				report.LegacyCount++
				report.LegacyItems = append(report.LegacyItems, model.LegacyItemRecord{
					UserID: entry.UserID,
					Slot:   slot.Name,
					Value:  slot.Item.ID,
				})
				report.AddFinding(model.NewFinding(
					"legacy_item_format",
					"Legacy equipped item format",
					"Equipped value is a bare string identifier instead of a structured object",
					slot.Item.ID,
					entry.UserID+"/"+slot.Name,
				))
			case model.FormatCurrent:
				report.CurrentCount++
			default:
				report.UnrecognizedCount++
				report.AddFinding(model.NewFinding(
					"unrecognized_item_shape",
					"Unrecognized equipped value shape",
					"Equipped value is neither a string identifier nor a structured object",
					slot.Item.DisplayValue(),
					entry.UserID+"/"+slot.Name,
				))
			}
		}
	}

	s.logger.Info("census completed",
		"heroes_with_items", report.HeroesWithItems,
		"legacy", report.LegacyCount,
		"current", report.CurrentCount,
	)

	return nil
}

// RemovedItemStep flags equipped items whose identifier is on the
// removed-item deny list. Matches keep the full original value so the
// report can show the record exactly as the save file spells it.
//
// Design decision: The deny list is injected rather than read from a
// package constant because the list changes per game version, and batch
// runs may audit saves from different versions in one invocation.
type RemovedItemStep struct {
	// removed is the deny list of retired item identifiers.
	removed model.RemovedItemSet

	// logger for structured logging.
	logger *slog.Logger
}

// RemovedItemStepOption configures a RemovedItemStep.
type RemovedItemStepOption func(*RemovedItemStep)

// WithRemovedItemLogger sets a custom logger for the removed-item step.
func WithRemovedItemLogger(logger *slog.Logger) RemovedItemStepOption {
	return func(s *RemovedItemStep) {
		s.logger = logger
	}
}

// NewRemovedItemStep creates a new removed-item detection step.
func NewRemovedItemStep(removed model.RemovedItemSet, opts ...RemovedItemStepOption) *RemovedItemStep {
	s := &RemovedItemStep{
		removed: removed,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *RemovedItemStep) Name() string {
	return "removed_items"
}

// Do executes the removed-item detection step.
// Only legacy and current formats carry identifiers; other shapes are
// never matched. A structured value without a string id never matches
// either, because the empty identifier is not on any deny list.
func (s *RemovedItemStep) Do(_ context.Context, report *model.Report) error {
	report.RemovedItemSet = s.removed.Items()

	for _, entry := range report.Heroes {
		if !entry.Hero.HasEquippedItem() {
			continue
		}

		for _, slot := range entry.Hero.Equipped {
			if !slot.Item.Truthy() {
				continue
			}

			switch slot.Item.Format {
			case model.FormatLegacy, model.FormatCurrent:
				if !s.removed.Contains(slot.Item.ID) {
					continue
				}
				report.RemovedMatches = append(report.RemovedMatches, model.RemovedMatch{
					UserID: entry.UserID,
					Slot:   slot.Name,
					Item:   slot.Item,
				})
				report.AddFinding(model.NewFinding(
					"removed_item_equipped",
					"Removed item still equipped",
					"Equipped item identifier is on the removed-item deny list",
					slot.Item.DisplayValue(),
					entry.UserID+"/"+slot.Name,
				))
			}
		}
	}

	s.logger.Info("removed-item check completed",
		"matches", len(report.RemovedMatches),
	)

	return nil
}

// InventoryStep sums inventory sizes across all heroes.
type InventoryStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// InventoryStepOption configures an InventoryStep.
type InventoryStepOption func(*InventoryStep)

// WithInventoryLogger sets a custom logger for the inventory step.
func WithInventoryLogger(logger *slog.Logger) InventoryStepOption {
	return func(s *InventoryStep) {
		s.logger = logger
	}
}

// NewInventoryStep creates a new inventory totalling step.
func NewInventoryStep(opts ...InventoryStepOption) *InventoryStep {
	s := &InventoryStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *InventoryStep) Name() string {
	return "inventory"
}

// Do executes the inventory step.
// Inventory entries are counted, never inspected, so a hero carrying a
// removed item in its backpack is not flagged here.
func (s *InventoryStep) Do(_ context.Context, report *model.Report) error {
	for _, entry := range report.Heroes {
		report.InventoryTotal += entry.Hero.InventoryCount
	}

	s.logger.Info("inventory totalled",
		"items", report.InventoryTotal,
	)

	return nil
}

// SampleStep selects the leading heroes for the report's sample section.
// Samples follow document order, so two runs over the same file always
// show the same heroes.
type SampleStep struct {
	// size is the maximum number of heroes to sample.
	size int

	// logger for structured logging.
	logger *slog.Logger
}

// SampleStepOption configures a SampleStep.
type SampleStepOption func(*SampleStep)

// WithSampleLogger sets a custom logger for the sample step.
func WithSampleLogger(logger *slog.Logger) SampleStepOption {
	return func(s *SampleStep) {
		s.logger = logger
	}
}

// NewSampleStep creates a new hero sampling step.
// If size is zero or negative, the sample section stays empty.
func NewSampleStep(size int, opts ...SampleStepOption) *SampleStep {
	s := &SampleStep{
		size:   size,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *SampleStep) Name() string {
	return "sample"
}

// Do executes the sample step.
func (s *SampleStep) Do(_ context.Context, report *model.Report) error {
	for i, entry := range report.Heroes {
		if i >= s.size {
			break
		}
		report.Samples = append(report.Samples, model.HeroSample{
			UserID:         entry.UserID,
			Level:          entry.Hero.Level,
			Energy:         entry.Hero.Energy,
			MaxEnergy:      entry.Hero.MaxEnergy,
			Equipped:       entry.Hero.EquippedRaw,
			InventoryCount: entry.Hero.InventoryCount,
		})
	}

	s.logger.Debug("samples selected",
		"count", len(report.Samples),
	)

	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// RemovedItems is the deny list of retired item identifiers.
	RemovedItems []string

	// SampleSize is the number of heroes shown in the sample section.
	SampleSize int
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineRemovedItems sets the deny list for the pipeline.
func WithPipelineRemovedItems(ids []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.RemovedItems = ids
	}
}

// WithPipelineSampleSize sets the number of sampled heroes.
func WithPipelineSampleSize(size int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.SampleSize = size
	}
}

// DefaultPipeline creates a pipeline with all default steps configured.
// This is the standard pipeline for a full save-file audit.
//
// Design decision: We provide a default pipeline because:
// 1. Most users want the full audit
// 2. Reduces boilerplate in CLI
// 3. Ensures consistent ordering
//
// The first parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineSampleSize, etc).
func DefaultPipeline(pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		RemovedItems: append([]string(nil), config.DefaultRemovedItems...),
		SampleSize:   config.DefaultSampleSize,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	// Add steps in logical order
	p.AddSteps(
		NewLoadStep(),
		NewCensusStep(),
		NewRemovedItemStep(model.NewRemovedItemSet(cfg.RemovedItems)),
		NewInventoryStep(),
		NewSampleStep(cfg.SampleSize),
	)

	return p
}
