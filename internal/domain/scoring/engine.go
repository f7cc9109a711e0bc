package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/dropsight/dropsight/internal/domain/product"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/logging"
	"github.com/dropsight/dropsight/pkg/errors"
	"github.com/dropsight/dropsight/pkg/types/common"
)

// ConfidenceConfig exposes the blend between the three confidence inputs.
// The exact weighting is deliberately configuration, not business law: the
// formula is a reconstruction and deployments may retune it.
type ConfidenceConfig struct {
	// CompletenessWeight blends the fraction of categories whose critical
	// sub-factors were all present against the critical-attribute ceiling;
	// higher values make confidence track data completeness more tightly.
	CompletenessWeight float64 `mapstructure:"completeness_weight"`

	// VarianceWeight scales the deduction for spread across category scores;
	// high variance suggests contradictory signals and lowers confidence.
	// Must not exceed CompletenessWeight, so that a removed critical
	// attribute always costs more than any variance swing it causes.
	VarianceWeight float64 `mapstructure:"variance_weight"`

	// CriticalPenalty is subtracted from the confidence ceiling for each
	// missing critical attribute (search volume, margin, competitor count).
	CriticalPenalty float64 `mapstructure:"critical_penalty"`

	// Floor is the minimum ceiling left after critical penalties.
	Floor float64 `mapstructure:"floor"`
}

// DefaultConfidenceConfig returns the standard blend: completeness dominates,
// variance moderates, each missing critical attribute drops the ceiling by 20
// points down to a floor of 20.
func DefaultConfidenceConfig() ConfidenceConfig {
	return ConfidenceConfig{
		CompletenessWeight: 0.6,
		VarianceWeight:     0.4,
		CriticalPenalty:    20,
		Floor:              20,
	}
}

// Validate rejects blends that would let confidence rise as critical
// attributes are removed from the input.
func (c ConfidenceConfig) Validate() error {
	if c.CompletenessWeight < 0 || c.CompletenessWeight > 1 {
		return errors.Validation(fmt.Sprintf("confidence completeness_weight must be in [0,1], got %g", c.CompletenessWeight))
	}
	if c.VarianceWeight < 0 || c.VarianceWeight > c.CompletenessWeight {
		return errors.Validation(fmt.Sprintf("confidence variance_weight must be in [0, completeness_weight], got %g", c.VarianceWeight))
	}
	if c.CriticalPenalty < 0 || c.CriticalPenalty > 100 {
		return errors.Validation(fmt.Sprintf("confidence critical_penalty must be in [0,100], got %g", c.CriticalPenalty))
	}
	if c.Floor < 0 || c.Floor > 100 {
		return errors.Validation(fmt.Sprintf("confidence floor must be in [0,100], got %g", c.Floor))
	}
	return nil
}

// Thresholds configures the recommendation ladder and the strength/weakness
// cutoffs.  Values are scores in [0,100].
type Thresholds struct {
	StronglyRecommendedMin float64 `mapstructure:"strongly_recommended_min"`
	RecommendedMin         float64 `mapstructure:"recommended_min"`
	ModerateMin            float64 `mapstructure:"moderate_min"`
	StrengthMin            float64 `mapstructure:"strength_min"`
	WeaknessMax            float64 `mapstructure:"weakness_max"`
}

// DefaultThresholds returns the standard ladder: ≥80 strongly recommended,
// ≥65 recommended, ≥50 moderate potential, below that not recommended;
// strengths at ≥80 and weaknesses at ≤40.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StronglyRecommendedMin: 80,
		RecommendedMin:         65,
		ModerateMin:            50,
		StrengthMin:            80,
		WeaknessMax:            40,
	}
}

// Validate rejects ladders that are out of range or out of order.
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"strongly_recommended_min": t.StronglyRecommendedMin,
		"recommended_min":          t.RecommendedMin,
		"moderate_min":             t.ModerateMin,
		"strength_min":             t.StrengthMin,
		"weakness_max":             t.WeaknessMax,
	} {
		if v < 0 || v > 100 {
			return errors.Validation(fmt.Sprintf("threshold %s must be in [0,100], got %.1f", name, v))
		}
	}
	if t.StronglyRecommendedMin < t.RecommendedMin || t.RecommendedMin < t.ModerateMin {
		return errors.Validation("recommendation thresholds must be non-increasing down the ladder")
	}
	return nil
}

// Engine orchestrates the five criterion scorers and the niche weight
// registry.  It is immutable after construction and safe for concurrent use;
// batch callers may fan ScoreProduct out across workers freely.
type Engine struct {
	scorers    []Scorer
	registry   *ProfileRegistry
	thresholds Thresholds
	confidence ConfidenceConfig
	logger     logging.Logger
}

// EngineOption customizes Engine construction.
type EngineOption func(*Engine)

// WithThresholds replaces the default recommendation ladder.
func WithThresholds(t Thresholds) EngineOption {
	return func(e *Engine) { e.thresholds = t }
}

// WithConfidenceConfig replaces the default confidence blend.
func WithConfidenceConfig(c ConfidenceConfig) EngineOption {
	return func(e *Engine) { e.confidence = c }
}

// WithScorers replaces the default criterion scorers (tests only; production
// always runs the canonical five).
func WithScorers(scorers []Scorer) EngineOption {
	return func(e *Engine) { e.scorers = scorers }
}

// NewEngine constructs a scoring engine over the given profile registry.
func NewEngine(registry *ProfileRegistry, log logging.Logger, opts ...EngineOption) (*Engine, error) {
	if registry == nil {
		return nil, errors.Internal("scoring engine requires a profile registry")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	e := &Engine{
		scorers:    DefaultScorers(),
		registry:   registry,
		thresholds: DefaultThresholds(),
		confidence: DefaultConfidenceConfig(),
		logger:     log.Named("scoring"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.thresholds.Validate(); err != nil {
		return nil, err
	}
	if err := e.confidence.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// ScoreProduct runs all criterion scorers, applies the niche weight profile,
// and derives confidence, recommendation, and explanation.  It returns a
// validation error for structurally invalid input and a computation error if
// a weight profile violates its sum invariant; missing optional data never
// fails the call.
func (e *Engine) ScoreProduct(ctx context.Context, rec product.Record, sources product.DataSourceBundle, opts Options) (*ScoreResult, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	in := Input{Product: rec, Sources: sources, Options: opts}
	var cs CategoryScores
	for _, s := range e.scorers {
		score := s.Score(ctx, in)
		switch s.Category() {
		case CategoryMarketPotential:
			cs.MarketPotential = score
		case CategoryCompetition:
			cs.Competition = score
		case CategoryProfitability:
			cs.Profitability = score
		case CategoryOperationalFit:
			cs.OperationalFit = score
		case CategoryTrendStability:
			cs.TrendStability = score
		}
	}

	profile := e.registry.Resolve(rec.Niche)
	if err := profile.Validate(); err != nil {
		// Weights not summing to 1 is an internal invariant violation: abort
		// rather than emit a plausible-looking wrong score.
		return nil, errors.Wrap(err, errors.ErrCodeComputation, "weight profile invariant violated")
	}

	var overall, weightSum float64
	for _, c := range AllCategories() {
		w := profile.Weights[c]
		overall += w * cs.byCategory(c).Score
		weightSum += w
	}
	overall = round2(overall / weightSum)

	conf := e.computeConfidence(rec, cs)
	label := e.recommendationFor(overall)
	strengths, weaknesses := e.splitStrengths(cs)

	result := &ScoreResult{
		ProductID:      rec.ID,
		Niche:          profile.Niche,
		OverallScore:   overall,
		CategoryScores: cs,
		Confidence:     conf,
		Recommendation: label,
		Strengths:      strengths,
		Weaknesses:     weaknesses,
		Explanation:    e.explain(rec, overall, conf, label, cs, strengths, weaknesses),
	}

	e.logger.Debug("scored product",
		logging.String("product_id", string(rec.ID)),
		logging.String("niche", profile.Niche),
		logging.Float64("overall", overall),
		logging.Float64("confidence", conf),
	)
	return result, nil
}

// criticalAttributes are the three inputs whose absence caps confidence
// regardless of everything else: search volume, margin, competitor count.
func criticalAttributes(rec product.Record) (missing []string) {
	if rec.Attributes.SearchVolume == nil {
		missing = append(missing, "search_volume")
	}
	if _, ok := rec.GrossMargin(); !ok {
		missing = append(missing, "gross_margin")
	}
	if rec.Attributes.CompetitorCount == nil {
		missing = append(missing, "competitor_count")
	}
	return missing
}

// computeConfidence blends (a) the fraction of categories with complete
// sub-factors, (b) the spread across those complete categories' scores, and
// (c) a ceiling lowered per missing critical attribute.  Monotonicity under
// critical-attribute removal holds by construction: removal makes its home
// category incomplete, so the blend loses at least one completeness share
// while the variance deduction, measured over complete categories only and
// capped at VarianceWeight times one share, can swing by strictly less.  A
// removal that leaves completeness unchanged cannot touch the deduction at
// all, because every critical attribute feeds exactly one scorer.
func (e *Engine) computeConfidence(rec product.Record, cs CategoryScores) float64 {
	all := cs.All()

	complete := make([]CategoryScore, 0, len(all))
	for _, c := range all {
		if !c.InsufficientData && len(c.MissingCritical) == 0 {
			complete = append(complete, c)
		}
	}
	completeness := float64(len(complete)) / float64(len(all)) * 100

	ceiling := 100 - e.confidence.CriticalPenalty*float64(len(criticalAttributes(rec)))
	if ceiling < e.confidence.Floor {
		ceiling = e.confidence.Floor
	}

	base := e.confidence.CompletenessWeight*completeness +
		(1-e.confidence.CompletenessWeight)*ceiling

	// Normalize the standard deviation against 50, the widest spread a set
	// of [0,100] values can reach.
	var spread float64
	if len(complete) > 1 {
		var mean float64
		for _, c := range complete {
			mean += c.Score
		}
		mean /= float64(len(complete))
		var variance float64
		for _, c := range complete {
			d := c.Score - mean
			variance += d * d
		}
		spread = common.Clamp(math.Sqrt(variance/float64(len(complete)))/50, 0, 1)
	}
	deduction := e.confidence.VarianceWeight * spread * 100 / float64(len(all))

	return round2(common.Clamp(math.Min(base-deduction, ceiling), 0, 100))
}

func (e *Engine) recommendationFor(overall float64) Recommendation {
	switch {
	case overall >= e.thresholds.StronglyRecommendedMin:
		return StronglyRecommended
	case overall >= e.thresholds.RecommendedMin:
		return Recommended
	case overall >= e.thresholds.ModerateMin:
		return ModeratePotential
	default:
		return NotRecommended
	}
}

func (e *Engine) splitStrengths(cs CategoryScores) (strengths, weaknesses []CategoryScore) {
	strengths = []CategoryScore{}
	weaknesses = []CategoryScore{}
	for _, c := range cs.All() {
		switch {
		case c.Score >= e.thresholds.StrengthMin:
			strengths = append(strengths, c)
		case c.Score <= e.thresholds.WeaknessMax:
			weaknesses = append(weaknesses, c)
		}
	}
	return strengths, weaknesses
}

// explain assembles the deterministic textual rationale.  Pure string
// templating over already-computed values: identical inputs always produce
// identical text.
func (e *Engine) explain(rec product.Record, overall, conf float64, label Recommendation, cs CategoryScores, strengths, weaknesses []CategoryScore) Explanation {
	name := rec.Name
	if name == "" {
		name = string(rec.ID)
	}

	summary := fmt.Sprintf("%s scores %.2f/100 in the %s niche: %s.",
		name, overall, rec.Niche, label)

	keyFactors := make([]string, 0, len(cs.All()))
	for _, c := range cs.All() {
		keyFactors = append(keyFactors, fmt.Sprintf("%s: %.2f (%s)", c.Category, c.Score, c.Description))
	}

	var confStmt string
	switch {
	case conf >= 80:
		confStmt = fmt.Sprintf("Confidence %.0f/100: assessment is backed by a complete signal set.", conf)
	case conf >= 55:
		confStmt = fmt.Sprintf("Confidence %.0f/100: some signals were missing or inconsistent; verify before committing spend.", conf)
	default:
		confStmt = fmt.Sprintf("Confidence %.0f/100: key attributes are missing; treat this score as preliminary.", conf)
	}
	if len(strengths) > 0 {
		confStmt += fmt.Sprintf(" Strongest area: %s.", strengths[0].Category)
	}
	if len(weaknesses) > 0 {
		confStmt += fmt.Sprintf(" Weakest area: %s.", weaknesses[0].Category)
	}

	return Explanation{
		Summary:             summary,
		KeyFactors:          keyFactors,
		ConfidenceStatement: confStmt,
	}
}
