package mmm

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/okian/mmx/internal/domain/series"
	"github.com/okian/mmx/internal/domain/transform"
)

// Default sampler configuration constants.
const (
	defaultDraws  = 2000
	defaultWarmup = 1000
	defaultChains = 2
	defaultSeed   = 42

	// rHatThreshold is the split R-hat above which a fit is rejected.
	rHatThreshold = 1.1

	// credibleMass bounds the reported central interval (95%).
	lowerQuantile = 0.025
	upperQuantile = 0.975

	// ctxCheckInterval bounds how often the sampler polls for cancellation.
	ctxCheckInterval = 256
)

// Bayesian is the posterior-sampling variant. It specifies a generative
// model y ~ N(alpha + X*beta, sigma) over the same transformed features as
// the linear variant and samples the posterior with a componentwise
// random-walk Metropolis kernel. Sampling is the only long-running
// operation in the system and belongs to the offline training path.
type Bayesian struct {
	decay  float64
	draws  int
	warmup int
	chains int
	seed   uint64
}

// BayesianOption applies a configuration option to the Bayesian estimator.
type BayesianOption func(*Bayesian)

// WithDraws sets the number of retained posterior draws per chain.
func WithDraws(draws int) BayesianOption {
	return func(b *Bayesian) {
		if draws > 0 {
			b.draws = draws
		}
	}
}

// WithWarmup sets the number of discarded warmup iterations per chain.
func WithWarmup(warmup int) BayesianOption {
	return func(b *Bayesian) {
		if warmup >= 0 {
			b.warmup = warmup
		}
	}
}

// WithChains sets the number of independent chains. At least two are
// required for the split R-hat diagnostic.
func WithChains(chains int) BayesianOption {
	return func(b *Bayesian) {
		if chains >= 2 {
			b.chains = chains
		}
	}
}

// WithSeed fixes the sampler seed. Identical seed and input produce
// identical fitted parameters.
func WithSeed(seed uint64) BayesianOption {
	return func(b *Bayesian) {
		b.seed = seed
	}
}

// NewBayesian creates the posterior-sampling variant.
func NewBayesian(decay float64, opts ...BayesianOption) *Bayesian {
	b := &Bayesian{
		decay:  decay,
		draws:  defaultDraws,
		warmup: defaultWarmup,
		chains: defaultChains,
		seed:   defaultSeed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Kind returns KindBayesian.
func (b *Bayesian) Kind() Kind { return KindBayesian }

// Fit samples the posterior over (alpha, betas, sigma) with priors
// alpha ~ N(mean(y), std(y)), beta_j ~ N(0, 1), sigma ~ HalfNormal(std(y)),
// mirroring the generative model's weakly informative defaults. The fit
// fails with ErrNotConverged when any parameter's split R-hat exceeds the
// threshold; a non-converged posterior is a training failure, never an
// artifact.
func (b *Bayesian) Fit(ctx context.Context, fm series.FeatureMatrix, target []float64) (*ModelArtifact, error) {
	if err := transform.ValidateDecay(b.decay); err != nil {
		return nil, err
	}
	if err := checkFit(fm, target); err != nil {
		return nil, err
	}

	n, p := fm.Rows(), len(fm.Names)
	x := mat.NewDense(n, p, fm.RowMajor())

	muY := stat.Mean(target, nil)
	sdY := stat.StdDev(target, nil)
	if sdY == 0 || math.IsNaN(sdY) {
		sdY = 1
	}

	alphaPrior := distuv.Normal{Mu: muY, Sigma: sdY}
	betaPrior := distuv.Normal{Mu: 0, Sigma: 1}

	dim := p + 2 // alpha, betas..., log(sigma)
	logPost := func(theta []float64) float64 {
		alpha := theta[0]
		logSigma := theta[dim-1]
		sigma := math.Exp(logSigma)

		beta := mat.NewVecDense(p, theta[1:dim-1])
		var mu mat.VecDense
		mu.MulVec(x, beta)

		var sumSq float64
		for i := 0; i < n; i++ {
			r := target[i] - alpha - mu.AtVec(i)
			sumSq += r * r
		}
		ll := -float64(n)*logSigma - sumSq/(2*sigma*sigma)

		lp := alphaPrior.LogProb(alpha)
		for _, bj := range theta[1 : dim-1] {
			lp += betaPrior.LogProb(bj)
		}
		lp += halfNormalLogProb(sigma, sdY)
		// Jacobian of the log(sigma) reparameterization.
		lp += logSigma

		return ll + lp
	}

	// Componentwise proposal scales shrink with n, roughly tracking the
	// posterior standard deviations of a linear model.
	steps := make([]float64, dim)
	steps[0] = 2.5 * sdY / math.Sqrt(float64(n))
	for j := 1; j < dim-1; j++ {
		steps[j] = 2.5 / math.Sqrt(float64(n))
	}
	steps[dim-1] = 2.5 / math.Sqrt(2*float64(n))

	// chainDraws[d][c] holds chain c's retained draws for parameter d.
	chainDraws := make([][][]float64, dim)
	for d := range chainDraws {
		chainDraws[d] = make([][]float64, b.chains)
	}
	var accepted, proposed int64

	for c := 0; c < b.chains; c++ {
		src := rand.NewSource(b.seed + uint64(c)*1000003)
		rng := rand.New(src)
		proposal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

		theta := make([]float64, dim)
		theta[0] = muY
		theta[dim-1] = math.Log(sdY)
		cur := logPost(theta)

		for d := range chainDraws {
			chainDraws[d][c] = make([]float64, 0, b.draws)
		}

		total := b.warmup + b.draws
		for iter := 0; iter < total; iter++ {
			if iter%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, fmt.Errorf("sampling cancelled: %w", err)
				}
			}
			for d := 0; d < dim; d++ {
				old := theta[d]
				theta[d] = old + steps[d]*proposal.Rand()
				next := logPost(theta)
				proposed++
				if math.Log(rng.Float64()) < next-cur {
					cur = next
					accepted++
				} else {
					theta[d] = old
				}
			}
			if iter >= b.warmup {
				for d := 0; d < dim; d++ {
					chainDraws[d][c] = append(chainDraws[d][c], theta[d])
				}
			}
		}
	}

	maxRHat := 0.0
	for d := 0; d < dim; d++ {
		if r := splitRHat(chainDraws[d]); r > maxRHat {
			maxRHat = r
		}
	}
	diag := &SamplerDiagnostics{
		Draws:          b.draws,
		Warmup:         b.warmup,
		Chains:         b.chains,
		Seed:           b.seed,
		MaxRHat:        maxRHat,
		AcceptanceRate: float64(accepted) / float64(proposed),
	}
	if maxRHat > rHatThreshold {
		return nil, fmt.Errorf("%w: max split R-hat %.4f exceeds %.2f", ErrNotConverged, maxRHat, rHatThreshold)
	}

	// Collapse the posterior into a fixed-shape summary: mean point
	// estimate plus central 95% interval per coefficient. Raw draws are
	// discarded so the serving path stays allocation-light.
	pooled := func(d int) []float64 {
		var out []float64
		for c := 0; c < b.chains; c++ {
			out = append(out, chainDraws[d][c]...)
		}
		return out
	}
	summarize := func(draws []float64) (mean float64, iv Interval) {
		mean = stat.Mean(draws, nil)
		sorted := append([]float64(nil), draws...)
		sort.Float64s(sorted)
		iv = Interval{
			Low:  stat.Quantile(lowerQuantile, stat.Empirical, sorted, nil),
			High: stat.Quantile(upperQuantile, stat.Empirical, sorted, nil),
		}
		return mean, iv
	}

	interceptMean, interceptIv := summarize(pooled(0))
	coefs := make([]float64, p)
	coefIvs := make([]Interval, p)
	for j := 0; j < p; j++ {
		coefs[j], coefIvs[j] = summarize(pooled(j + 1))
	}
	sigmaDraws := pooled(dim - 1)
	var sigmaMean float64
	for _, ls := range sigmaDraws {
		sigmaMean += math.Exp(ls)
	}
	sigmaMean /= float64(len(sigmaDraws))

	start, end := fm.Dates[0], fm.Dates[len(fm.Dates)-1]
	return &ModelArtifact{
		ID:           uuid.NewString(),
		Kind:         KindBayesian,
		AdstockDecay: b.decay,
		FeatureNames: append([]string(nil), fm.Names...),
		Fitted: FittedParameters{
			Intercept:            interceptMean,
			Coefficients:         coefs,
			InterceptInterval:    &interceptIv,
			CoefficientIntervals: coefIvs,
			NoiseSigma:           sigmaMean,
			Diagnostics:          diag,
		},
		TrainingRange: DateRange{Start: start, End: end},
		TrainedAt:     time.Now().UTC(),
	}, nil
}

// Predict uses the posterior means; it is as fast as the linear variant.
func (b *Bayesian) Predict(_ context.Context, art *ModelArtifact, fm series.FeatureMatrix) (series.Forecast, error) {
	if art != nil && art.Kind != KindBayesian {
		return nil, fmt.Errorf("%w: artifact is %q", ErrKindMismatch, art.Kind)
	}
	return predictWith(art, fm)
}

// halfNormalLogProb is the log density of a half-normal with scale s,
// expressed through the full normal plus the folding constant.
func halfNormalLogProb(x, s float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	return distuv.Normal{Mu: 0, Sigma: s}.LogProb(x) + math.Ln2
}
