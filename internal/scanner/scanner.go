// Package scanner ranks every symbol pair of a universe by return correlation,
// optionally annotating the leaders with a cointegration test.
package scanner

import (
	"context"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"statarb-go/internal/cointegration"
	"statarb-go/internal/stats"
)

// DefaultMinSamples is the shortest aligned series a pair needs to qualify.
const DefaultMinSamples = 30

// Options tunes a scan. The zero value scans with defaults and no threshold.
type Options struct {
	MinSamples        int     `yaml:"min_samples" json:"min_samples"`
	MinCorrelation    float64 `yaml:"min_correlation" json:"min_correlation"`
	UseLogReturns     bool    `yaml:"use_log_returns" json:"use_log_returns"`
	TopN              int     `yaml:"top_n" json:"top_n"`
	WithCointegration bool    `yaml:"with_cointegration" json:"with_cointegration"`
	Workers           int     `yaml:"workers" json:"workers"`
}

// Pair is one ranked candidate.
type Pair struct {
	SymbolA          string                `json:"symbol_a"`
	SymbolB          string                `json:"symbol_b"`
	Correlation      float64               `json:"correlation"`
	Samples          int                   `json:"samples"`
	Cointegration    *cointegration.Result `json:"cointegration,omitempty"`
	CointegrationErr string                `json:"cointegration_error,omitempty"`
}

// Name returns "A/B".
func (p Pair) Name() string { return p.SymbolA + "/" + p.SymbolB }

// Result summarises a scan.
type Result struct {
	TotalPairsScanned int    `json:"total_pairs_scanned"`
	QualifiedPairs    int    `json:"qualified_pairs"`
	Skipped           int    `json:"skipped"`
	TopPairs          []Pair `json:"top_pairs"`
}

type outcome struct {
	pair      Pair
	skipped   bool
	qualified bool
}

// Scan evaluates all C(n,2) pairs of universe. Fewer than two symbols yield an
// empty result. The only error is ctx cancellation; a degenerate pair is
// reported on the pair itself.
func Scan(ctx context.Context, universe map[string][]float64, opts Options) (Result, error) {
	if opts.MinSamples <= 0 {
		opts.MinSamples = DefaultMinSamples
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	symbols := make([]string, 0, len(universe))
	for sym := range universe {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	type job struct{ a, b string }
	var jobs []job
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			jobs = append(jobs, job{symbols[i], symbols[j]})
		}
	}

	outcomes := make([]outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for idx, jb := range jobs {
		idx, jb := idx, jb
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[idx] = evaluate(jb.a, jb.b, universe[jb.a], universe[jb.b], opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{TotalPairsScanned: len(jobs), TopPairs: []Pair{}}
	for _, o := range outcomes {
		if o.skipped {
			res.Skipped++
			continue
		}
		if o.qualified {
			res.QualifiedPairs++
			res.TopPairs = append(res.TopPairs, o.pair)
		}
	}
	sort.SliceStable(res.TopPairs, func(i, j int) bool {
		ai, aj := math.Abs(res.TopPairs[i].Correlation), math.Abs(res.TopPairs[j].Correlation)
		if ai != aj {
			return ai > aj
		}
		return res.TopPairs[i].Name() < res.TopPairs[j].Name()
	})
	if opts.TopN > 0 && len(res.TopPairs) > opts.TopN {
		res.TopPairs = res.TopPairs[:opts.TopN]
	}
	if opts.WithCointegration {
		annotate(ctx, universe, res.TopPairs, workers)
	}
	return res, nil
}

func evaluate(symA, symB string, a, b []float64, opts Options) outcome {
	a, b = stats.AlignTail(a, b)
	pair := Pair{SymbolA: symA, SymbolB: symB, Samples: len(a)}
	if len(a) < opts.MinSamples {
		return outcome{pair: pair, skipped: true}
	}
	var ra, rb []float64
	if opts.UseLogReturns {
		ra, rb = stats.LogReturns(a), stats.LogReturns(b)
	} else {
		ra, rb = stats.Returns(a), stats.Returns(b)
	}
	pair.Correlation = stats.Correlation(ra, rb)
	return outcome{pair: pair, qualified: math.Abs(pair.Correlation) >= opts.MinCorrelation}
}

func annotate(ctx context.Context, universe map[string][]float64, pairs []Pair, workers int) {
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range pairs {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			a, b := stats.AlignTail(universe[pairs[i].SymbolA], universe[pairs[i].SymbolB])
			res, err := cointegration.Test(a, b)
			if err != nil {
				pairs[i].CointegrationErr = err.Error()
				return nil
			}
			pairs[i].Cointegration = &res
			return nil
		})
	}
	_ = g.Wait()
}
