// Package ensemble coordinates a set of named models as a weighted
// committee. Each model is trained on its own split, scored with k-fold
// cross-validation, and weighted by inverse validation error so that
// better-generalising models dominate the combined prediction.
package ensemble

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slopewise/slopewise/core/model"
	"github.com/slopewise/slopewise/crossval"
	"github.com/slopewise/slopewise/metrics"
	"github.com/slopewise/slopewise/pkg/errors"
	"github.com/slopewise/slopewise/pkg/log"
	"github.com/slopewise/slopewise/pkg/telemetry"
	"github.com/slopewise/slopewise/store"
)

// weightEpsilon keeps inverse-error weights finite when a model's
// cross-validation error reaches zero on degenerate data.
const weightEpsilon = 1e-6

// TrainingReport summarises one model's training run.
type TrainingReport struct {
	Name       string                  `json:"name"`
	ID         string                  `json:"id"`
	Type       model.ModelType         `json:"type"`
	Train      model.EvaluationMetrics `json:"train"`
	Test       model.EvaluationMetrics `json:"test"`
	Validation crossval.Result         `json:"validation"`
	Duration   time.Duration           `json:"duration"`
}

// EnsembleResult is the weighted committee prediction.
type EnsembleResult struct {
	Prediction            float64            `json:"prediction"`
	Confidence            float64            `json:"confidence"`
	IndividualPredictions map[string]float64 `json:"individualPredictions"`
	ModelWeights          map[string]float64 `json:"modelWeights"`
}

// ComparisonRow pairs a model name with its held-out metrics for
// side-by-side reporting.
type ComparisonRow struct {
	Name      string                  `json:"name"`
	Type      model.ModelType         `json:"type"`
	Available bool                    `json:"available"`
	Trained   bool                    `json:"trained"`
	Weight    float64                 `json:"weight"`
	Test      model.EvaluationMetrics `json:"test"`
	CVScore   float64                 `json:"cvScore"`
}

// entry is one committee member. A member whose training failed stays
// registered with available=false and weight 0 so comparison reporting
// still sees it; only available members participate in predictions and
// weighting.
type entry struct {
	name      string
	id        string
	cfg       model.ModelConfig
	model     model.Model
	available bool
	weight    float64
	cvError   float64
	report    TrainingReport
}

// Pipeline owns the model committee. Safe for concurrent use.
type Pipeline struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string

	build        crossval.Builder
	trainTimeout time.Duration
	metrics      *telemetry.Metrics
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTrainTimeout bounds each model's training run.
func WithTrainTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.trainTimeout = d }
}

// WithTelemetry wires Prometheus collectors into the pipeline.
func WithTelemetry(m *telemetry.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates an empty pipeline around a model builder.
func NewPipeline(build crossval.Builder, opts ...Option) *Pipeline {
	p := &Pipeline{
		entries: make(map[string]*entry),
		build:   build,
		logger:  log.GetLoggerWithName("ensemble"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TrainModel trains one named model and registers it in the committee.
// The data is split into train and held-out test rows per the
// configuration's TestSize and seed; validation metrics come from k-fold
// cross-validation on the training rows. Retraining an existing name
// replaces it.
func (p *Pipeline) TrainModel(ctx context.Context, name string, cfg model.ModelConfig, data *model.TrainingData) (*TrainingReport, error) {
	if name == "" {
		return nil, errors.NewValidationError("name", "must not be empty", name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	if p.trainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.trainTimeout)
		defer cancel()
	}

	report, ent, err := p.trainOne(ctx, name, cfg, data)
	if err != nil {
		p.countFailure(name, cfg.Type)
		return nil, err
	}
	report.Duration = time.Since(start)
	ent.report = *report

	p.register(name, ent)
	p.reweight()

	if p.metrics != nil {
		p.metrics.TrainingsTotal.WithLabelValues(name, string(cfg.Type)).Inc()
		p.metrics.TrainingDuration.WithLabelValues(string(cfg.Type)).Observe(report.Duration.Seconds())
	}
	p.logger.Info("model trained",
		slog.String(log.ModelNameKey, name),
		slog.String(log.ModelTypeKey, string(cfg.Type)),
		slog.Float64(log.ScoreKey, report.Validation.MeanScore),
		slog.Int64(log.DurationMsKey, report.Duration.Milliseconds()),
	)
	return report, nil
}

func (p *Pipeline) trainOne(ctx context.Context, name string, cfg model.ModelConfig, data *model.TrainingData) (*TrainingReport, *entry, error) {
	trainSet, testSet := data.Split(cfg.TestSize, cfg.RandomSeed)

	m, err := p.build(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := m.Train(ctx, trainSet); err != nil {
		return nil, nil, err
	}

	trainMetrics, err := m.Evaluate(trainSet)
	if err != nil {
		return nil, nil, err
	}
	testMetrics, err := m.Evaluate(testSet)
	if err != nil {
		return nil, nil, err
	}
	cv, err := crossval.CrossValidate(ctx, p.build, cfg, trainSet, cfg.CVFolds)
	if err != nil {
		return nil, nil, err
	}

	report := &TrainingReport{
		Name:       name,
		ID:         uuid.NewString(),
		Type:       cfg.Type,
		Train:      trainMetrics,
		Test:       testMetrics,
		Validation: *cv,
	}
	ent := &entry{
		name:      name,
		id:        report.ID,
		cfg:       cfg.Clone(),
		model:     m,
		available: true,
		cvError:   cv.Metrics.MSE,
	}
	return report, ent, nil
}

// register inserts or replaces a member, keeping registration order.
func (p *Pipeline) register(name string, ent *entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.entries[name]; !exists {
		p.order = append(p.order, name)
	}
	p.entries[name] = ent
}

func (p *Pipeline) countFailure(name string, t model.ModelType) {
	if p.metrics != nil {
		p.metrics.TrainingFailures.WithLabelValues(name, string(t)).Inc()
	}
}

// TrainEnsemble trains every configuration and reweights the committee.
// Configurations without a name get "<type>_<index>". A model whose
// training fails is logged and left out; the ensemble trains as long as
// at least one member succeeds.
func (p *Pipeline) TrainEnsemble(ctx context.Context, configs []NamedConfig, data *model.TrainingData) ([]TrainingReport, error) {
	if len(configs) == 0 {
		return nil, errors.NewValidationError("configs", "must contain at least one model", nil)
	}

	reports := make([]TrainingReport, 0, len(configs))
	var firstErr error
	for i, nc := range configs {
		name := nc.Name
		if name == "" {
			name = fmt.Sprintf("%s_%d", nc.Config.Type, i)
		}
		report, err := p.TrainModel(ctx, name, nc.Config, data)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			p.logger.Warn("ensemble member failed to train",
				slog.String(log.ModelNameKey, name),
				log.ErrAttr(err),
			)
			p.register(name, &entry{name: name, cfg: nc.Config.Clone()})
			continue
		}
		reports = append(reports, *report)
	}

	if len(reports) == 0 {
		return nil, errors.Wrap(firstErr, "ensemble: no member trained successfully")
	}

	p.reweight()
	return reports, nil
}

// reweight assigns each available member a weight proportional to the
// inverse of its cross-validation error, normalised to sum to one.
// Unavailable members keep weight 0. Runs after every registration so
// the live weights always sum to one when any member is available.
func (p *Pipeline) reweight() {
	p.mu.Lock()
	defer p.mu.Unlock()

	var total float64
	for _, ent := range p.entries {
		if ent.available {
			total += 1 / (ent.cvError + weightEpsilon)
		}
	}
	for _, ent := range p.entries {
		if ent.available && total > 0 {
			ent.weight = (1 / (ent.cvError + weightEpsilon)) / total
		} else {
			ent.weight = 0
		}
	}
}

// Predict runs a single named model.
func (p *Pipeline) Predict(name string, features []float64) (*model.PredictionResult, error) {
	p.mu.RLock()
	ent, ok := p.entries[name]
	p.mu.RUnlock()
	if !ok {
		return nil, errors.NewModelNotFoundError(name)
	}
	if !ent.available {
		return nil, errors.NewNotTrainedError(name, "Predict")
	}

	result, err := ent.model.Predict(features)
	if err != nil {
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.PredictionsTotal.WithLabelValues(name).Inc()
	}
	return result, nil
}

// PredictEnsemble combines every member's prediction by weight. The
// combined confidence is the weighted mean of member confidences.
func (p *Pipeline) PredictEnsemble(features []float64) (*EnsembleResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	available := 0
	for _, ent := range p.entries {
		if ent.available {
			available++
		}
	}
	if available == 0 {
		return nil, errors.NewNoModelsAvailableError("ensemble.PredictEnsemble")
	}

	res := &EnsembleResult{
		IndividualPredictions: make(map[string]float64, available),
		ModelWeights:          make(map[string]float64, available),
	}
	for _, name := range p.order {
		ent := p.entries[name]
		if !ent.available {
			continue
		}
		r, err := ent.model.Predict(features)
		if err != nil {
			return nil, errors.Wrapf(err, "ensemble: member %s", name)
		}
		res.IndividualPredictions[name] = r.Prediction
		res.ModelWeights[name] = ent.weight
		res.Prediction += ent.weight * r.Prediction
		res.Confidence += ent.weight * r.Confidence
	}
	return res, nil
}

// EvaluateEnsemble scores the weighted committee prediction on a dataset.
func (p *Pipeline) EvaluateEnsemble(data *model.TrainingData) (model.EvaluationMetrics, error) {
	if err := data.Validate(); err != nil {
		return model.EvaluationMetrics{}, err
	}

	preds := make([]float64, data.NumSamples())
	for i, row := range data.Features {
		r, err := p.PredictEnsemble(row)
		if err != nil {
			return model.EvaluationMetrics{}, err
		}
		preds[i] = r.Prediction
	}
	return metrics.Evaluate(data.Labels, preds)
}

// ModelComparison reports every member's held-out metrics, best
// cross-validation score first.
func (p *Pipeline) ModelComparison() []ComparisonRow {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rows := make([]ComparisonRow, 0, len(p.entries))
	for _, name := range p.order {
		ent := p.entries[name]
		row := ComparisonRow{
			Name:      name,
			Type:      ent.cfg.Type,
			Available: ent.available,
			Weight:    ent.weight,
			Test:      ent.report.Test,
			CVScore:   ent.report.Validation.MeanScore,
		}
		if ent.model != nil {
			row.Trained = ent.model.IsTrained()
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CVScore > rows[j].CVScore })
	return rows
}

// Model returns the named member for direct use, e.g. by the explanation
// engine. The boolean reports whether the name exists.
func (p *Pipeline) Model(name string) (model.Model, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ent, ok := p.entries[name]
	if !ok || !ent.available {
		return nil, false
	}
	return ent.model, true
}

// ModelNames lists members in registration order.
func (p *Pipeline) ModelNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// GridSearch sweeps hyperparameters for one model type using the
// pipeline's builder. When the request carries no per-combination
// timeout the pipeline's training timeout applies.
func (p *Pipeline) GridSearch(ctx context.Context, req crossval.GridSearchRequest, data *model.TrainingData) (*crossval.GridSearchResult, error) {
	if req.TrainTimeout <= 0 {
		req.TrainTimeout = p.trainTimeout
	}
	return crossval.GridSearch(ctx, p.build, req, data)
}

// SaveModels writes a snapshot of every member to the store.
func (p *Pipeline) SaveModels(s *store.SnapshotStore) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, name := range p.order {
		ent := p.entries[name]
		snap := store.Snapshot{
			Name:   name,
			ID:     ent.id,
			Type:   string(ent.cfg.Type),
			Weight: ent.weight,
		}
		if ent.model != nil {
			snap.Trained = ent.model.IsTrained()
			snap.FeatureNames = ent.model.FeatureNames()
		}
		if err := s.Save(snap); err != nil {
			return errors.Wrapf(err, "ensemble: save %s", name)
		}
	}
	return nil
}

// LoadModels reads stored snapshots and retrains the named members on
// the given data. Snapshot weights are restored, then recomputed once
// retraining finishes so weights track the fresh cross-validation error.
func (p *Pipeline) LoadModels(ctx context.Context, s *store.SnapshotStore, configs map[string]model.ModelConfig, data *model.TrainingData) error {
	snaps, err := s.List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return errors.NewNoModelsAvailableError("ensemble.LoadModels")
	}

	for _, snap := range snaps {
		cfg, ok := configs[snap.Name]
		if !ok {
			p.logger.Warn("no configuration for stored model, skipping",
				slog.String(log.ModelNameKey, snap.Name))
			continue
		}
		if _, err := p.TrainModel(ctx, snap.Name, cfg, data); err != nil {
			return errors.Wrapf(err, "ensemble: restore %s", snap.Name)
		}
	}
	p.reweight()
	return nil
}

// NamedConfig pairs an optional member name with its configuration.
type NamedConfig struct {
	Name   string            `yaml:"name" json:"name"`
	Config model.ModelConfig `yaml:"config" json:"config"`
}
