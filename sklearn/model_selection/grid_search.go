package model_selection

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/housecast/core/model"
	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/pkg/log"
)

// ParamGrid maps parameter names to the values to try.
type ParamGrid map[string][]interface{}

// Candidates enumerates every combination. Keys are sorted and the last key
// varies fastest, so the order is stable across runs. An empty grid yields a
// single empty candidate.
func (g ParamGrid) Candidates() ([]map[string]interface{}, error) {
	keys := make([]string, 0, len(g))
	for k, values := range g {
		if len(values) == 0 {
			return nil, errors.NewValidationError(k, "parameter grid entry has no values", values)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []map[string]interface{}{{}}
	for _, k := range keys {
		next := make([]map[string]interface{}, 0, len(out)*len(g[k]))
		for _, partial := range out {
			for _, v := range g[k] {
				c := make(map[string]interface{}, len(partial)+1)
				for pk, pv := range partial {
					c[pk] = pv
				}
				c[k] = v
				next = append(next, c)
			}
		}
		out = next
	}
	return out, nil
}

// CVResult holds the fold scores of one candidate.
type CVResult struct {
	Params     map[string]interface{}
	FoldScores []float64
	MeanScore  float64
	StdScore   float64
	Rank       int
	FitTime    time.Duration
}

// GridSearchCV evaluates every candidate of ParamGrid by cross-validation and
// optionally refits the best one on the full data.
type GridSearchCV struct {
	Estimator model.Regressor
	ParamGrid ParamGrid
	CV        Splitter
	Scoring   string
	Refit     bool

	// Workers bounds concurrent candidate evaluations. Zero means one.
	Workers int

	// OnCandidate is called after each candidate finishes. Calls are
	// serialized.
	OnCandidate func(done, total int)

	Results       []CVResult
	BestIndex     int
	BestParams    map[string]interface{}
	BestScore     float64
	BestEstimator model.Regressor

	logger log.Logger
}

// NewGridSearchCV creates a search with sklearn's defaults: 5-fold KFold
// without shuffling, refit enabled.
func NewGridSearchCV(estimator model.Regressor, grid ParamGrid, scoring string, logger log.Logger) *GridSearchCV {
	return &GridSearchCV{
		Estimator: estimator,
		ParamGrid: grid,
		CV:        NewKFold(5, false, 0),
		Scoring:   scoring,
		Refit:     true,
		Workers:   1,
		logger:    logger,
	}
}

func (gs *GridSearchCV) log() log.Logger {
	if gs.logger == nil {
		gs.logger = log.GetLoggerWithName("GridSearchCV")
	}
	return gs.logger
}

// Fit runs the search with a background context.
func (gs *GridSearchCV) Fit(X, y mat.Matrix) error {
	return gs.FitContext(context.Background(), X, y)
}

// FitContext runs the search. Results are stored by candidate index, so the
// winner does not depend on scheduling; ties go to the earliest candidate.
func (gs *GridSearchCV) FitContext(ctx context.Context, X, y mat.Matrix) error {
	if gs.Estimator == nil {
		return errors.NewValidationError("estimator", "must not be nil", nil)
	}
	candidates, err := gs.ParamGrid.Candidates()
	if err != nil {
		return err
	}
	scorer, err := GetScorer(gs.Scoring)
	if err != nil {
		return err
	}
	rows, _ := X.Dims()
	if yRows, _ := y.Dims(); yRows != rows {
		return errors.NewDimensionError("GridSearchCV.Fit", rows, yRows, 0)
	}
	cv := gs.CV
	if cv == nil {
		cv = NewKFold(5, false, 0)
	}
	folds, err := cv.Split(rows)
	if err != nil {
		return err
	}

	logger := gs.log()
	start := time.Now()
	logger.Info("Grid search started",
		log.OperationKey, log.OperationSearch,
		log.CandidatesKey, len(candidates),
		log.FoldsKey, len(folds),
		log.SamplesKey, rows,
	)

	data := splitFolds(X, y, folds)
	results := make([]CVResult, len(candidates))

	workers := gs.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	done := 0
	for i, params := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var res CVResult
			err := errors.SafeExecute("GridSearchCV.evaluate", func() (err error) {
				res, err = gs.evaluate(gctx, params, data, scorer)
				return err
			})
			if err != nil {
				return errors.Wrapf(err, "candidate %d %v", i, params)
			}
			results[i] = res

			mu.Lock()
			done++
			if gs.OnCandidate != nil {
				gs.OnCandidate(done, len(candidates))
			}
			mu.Unlock()

			logger.Debug("Candidate evaluated",
				log.HyperParamsKey, params,
				log.ScoreKey, res.MeanScore,
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	best := 0
	for i := 1; i < len(results); i++ {
		if better(results[i].MeanScore, results[best].MeanScore) {
			best = i
		}
	}
	rankResults(results)

	gs.Results = results
	gs.BestIndex = best
	gs.BestParams = results[best].Params
	gs.BestScore = results[best].MeanScore
	gs.BestEstimator = nil

	logger.Info("Grid search finished",
		log.OperationKey, log.OperationSearch,
		log.HyperParamsKey, gs.BestParams,
		log.ScoreKey, gs.BestScore,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	if !gs.Refit {
		return nil
	}
	est, err := gs.newCandidate(gs.BestParams)
	if err != nil {
		return err
	}
	if err := est.Fit(X, y); err != nil {
		return errors.Wrap(err, "refit best candidate")
	}
	gs.BestEstimator = est
	return nil
}

// Predict uses the refitted best estimator.
func (gs *GridSearchCV) Predict(X mat.Matrix) (mat.Matrix, error) {
	if gs.BestEstimator == nil {
		return nil, errors.NewNotFittedError("GridSearchCV", "Predict")
	}
	return gs.BestEstimator.Predict(X)
}

func (gs *GridSearchCV) newCandidate(params map[string]interface{}) (model.Regressor, error) {
	est, ok := gs.Estimator.Clone().(model.Regressor)
	if !ok {
		return nil, errors.NewModelError("GridSearchCV", "clone", fmt.Errorf("%T.Clone does not return a Regressor", gs.Estimator))
	}
	if err := est.SetParams(params); err != nil {
		return nil, err
	}
	return est, nil
}

func (gs *GridSearchCV) evaluate(ctx context.Context, params map[string]interface{}, data []foldData, scorer Scorer) (CVResult, error) {
	res := CVResult{Params: params, FoldScores: make([]float64, len(data))}
	start := time.Now()
	for f := range data {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		est, err := gs.newCandidate(params)
		if err != nil {
			return res, err
		}
		if err := est.Fit(data[f].XTrain, data[f].YTrain); err != nil {
			return res, errors.Wrapf(err, "fold %d", f)
		}
		pred, err := est.Predict(data[f].XTest)
		if err != nil {
			return res, errors.Wrapf(err, "fold %d", f)
		}
		score, err := scorer(data[f].YTest, pred)
		if err != nil {
			return res, errors.Wrapf(err, "fold %d", f)
		}
		res.FoldScores[f] = score
	}
	res.FitTime = time.Since(start)
	res.MeanScore, res.StdScore = stat.PopMeanStdDev(res.FoldScores, nil)
	return res, nil
}

// CrossValScore fits a clone of est on every fold and returns the test scores.
func CrossValScore(est model.Regressor, X, y mat.Matrix, cv Splitter, scoring string) ([]float64, error) {
	scorer, err := GetScorer(scoring)
	if err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	folds, err := cv.Split(rows)
	if err != nil {
		return nil, err
	}
	gs := &GridSearchCV{Estimator: est}
	res, err := gs.evaluate(context.Background(), map[string]interface{}{}, splitFolds(X, y, folds), scorer)
	if err != nil {
		return nil, err
	}
	return res.FoldScores, nil
}

type foldData struct {
	XTrain, YTrain *mat.Dense
	XTest, YTest   *mat.Dense
}

func splitFolds(X, y mat.Matrix, folds []Fold) []foldData {
	out := make([]foldData, len(folds))
	for i, f := range folds {
		out[i] = foldData{
			XTrain: Rows(X, f.TrainIndices),
			YTrain: Rows(y, f.TrainIndices),
			XTest:  Rows(X, f.TestIndices),
			YTest:  Rows(y, f.TestIndices),
		}
	}
	return out
}

// rankResults assigns sklearn-style "min" ranks: equal scores share the
// lowest rank.
// better reports whether score a beats score b. NaN loses to every number.
func better(a, b float64) bool {
	if math.IsNaN(b) {
		return !math.IsNaN(a)
	}
	return a > b
}

func rankResults(results []CVResult) {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return better(results[order[a]].MeanScore, results[order[b]].MeanScore)
	})
	for pos, idx := range order {
		rank := pos + 1
		if pos > 0 {
			prev := order[pos-1]
			if results[prev].MeanScore == results[idx].MeanScore || (math.IsNaN(results[prev].MeanScore) && math.IsNaN(results[idx].MeanScore)) {
				rank = results[prev].Rank
			}
		}
		results[idx].Rank = rank
	}
}
