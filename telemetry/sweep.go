package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SweepRun is the outcome of one run in a threshold sweep.
type SweepRun struct {
	Threshold        float64 `csv:"threshold"`
	Seed             int64   `csv:"seed"`
	Ticks            int     `csv:"ticks"`
	Converged        bool    `csv:"converged"`
	Segregation      float64 `csv:"segregation"` // NaN when undefined
	InitialSeg       float64 `csv:"initial_segregation"`
	UnsatisfiedShare float64 `csv:"unsatisfied_share"`
	Relocations      int     `csv:"relocations"`
}

// SweepSummary aggregates the runs of one threshold.
type SweepSummary struct {
	Threshold       float64 `csv:"threshold"`
	Runs            int     `csv:"runs"`
	MeanSegregation float64 `csv:"mean_segregation"` // NaN when no run is defined
	StdSegregation  float64 `csv:"std_segregation"`  // Sample std; 0 for a single run
	MeanTicks       float64 `csv:"mean_ticks"`
	ConvergedShare  float64 `csv:"converged_share"`
}

// Summarize groups runs by threshold, in ascending threshold order.
// Runs with an undefined segregation are counted but left out of the
// segregation mean; a threshold with no defined run reports NaN.
func Summarize(runs []SweepRun) []SweepSummary {
	groups := make(map[float64][]SweepRun)
	for _, r := range runs {
		groups[r.Threshold] = append(groups[r.Threshold], r)
	}

	thresholds := make([]float64, 0, len(groups))
	for th := range groups {
		thresholds = append(thresholds, th)
	}
	sort.Float64s(thresholds)

	out := make([]SweepSummary, 0, len(thresholds))
	for _, th := range thresholds {
		group := groups[th]

		var segs, ticks []float64
		converged := 0
		for _, r := range group {
			if !math.IsNaN(r.Segregation) {
				segs = append(segs, r.Segregation)
			}
			ticks = append(ticks, float64(r.Ticks))
			if r.Converged {
				converged++
			}
		}

		s := SweepSummary{
			Threshold:      th,
			Runs:           len(group),
			MeanTicks:      stat.Mean(ticks, nil),
			ConvergedShare: float64(converged) / float64(len(group)),
		}
		switch len(segs) {
		case 0:
			s.MeanSegregation, s.StdSegregation = math.NaN(), math.NaN()
		case 1:
			s.MeanSegregation = segs[0]
		default:
			s.MeanSegregation, s.StdSegregation = stat.MeanStdDev(segs, nil)
		}
		out = append(out, s)
	}
	return out
}

// LogValue implements slog.LogValuer for structured logging.
func (s SweepSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("threshold", s.Threshold),
		slog.Int("runs", s.Runs),
		MetricAttr("mean_segregation", s.MeanSegregation),
		MetricAttr("std_segregation", s.StdSegregation),
		slog.Float64("mean_ticks", s.MeanTicks),
		slog.Float64("converged_share", s.ConvergedShare),
	)
}
