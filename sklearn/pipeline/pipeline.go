// Package pipeline chains transformers and a final estimator behind the
// estimator interface, with sklearn-style "step__param" addressing.
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/housecast/core/model"
	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/pkg/log"
)

// Step is a named pipeline stage. Intermediate stages must implement
// model.Transformer; the last one must implement model.Estimator.
type Step struct {
	Name      string
	Estimator interface{}
}

// Pipeline is gob-encodable as long as every step type is registered with
// gob.Register.
type Pipeline struct {
	State   *model.StateManager
	Steps   []Step
	Verbose bool

	logger log.Logger
}

// New creates a pipeline from steps.
//
//	pipe := pipeline.New(
//	    pipeline.Step{Name: "regressor", Estimator: xgboost.NewXGBRegressor()},
//	)
func New(steps ...Step) *Pipeline {
	return &Pipeline{
		State: model.NewStateManager(),
		Steps: steps,
	}
}

// SetLogger replaces the logger.
func (p *Pipeline) SetLogger(l log.Logger) { p.logger = l }

func (p *Pipeline) log() log.Logger {
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("Pipeline")
	}
	return p.logger
}

func (p *Pipeline) validate() error {
	if len(p.Steps) == 0 {
		return errors.NewValidationError("steps", "pipeline has no steps", 0)
	}
	seen := make(map[string]bool, len(p.Steps))
	for i, step := range p.Steps {
		if step.Name == "" || strings.Contains(step.Name, "__") {
			return errors.NewValidationError("steps", "step names must be non-empty and must not contain '__'", step.Name)
		}
		if seen[step.Name] {
			return errors.NewValidationError("steps", "duplicate step name", step.Name)
		}
		seen[step.Name] = true

		if i < len(p.Steps)-1 {
			if _, ok := step.Estimator.(model.Transformer); !ok {
				return errors.NewValidationError("steps", "intermediate steps must be transformers", step.Name)
			}
		} else if _, ok := step.Estimator.(model.Estimator); !ok {
			return errors.NewValidationError("steps", "final step must implement Fit and Predict", step.Name)
		}
	}
	return nil
}

// Fit fits and applies every transformer in order, then fits the final
// estimator on the transformed data.
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	if err := p.validate(); err != nil {
		return err
	}
	if p.State == nil {
		p.State = model.NewStateManager()
	}
	p.State.Reset()

	Xt := X
	var err error
	for _, step := range p.Steps[:len(p.Steps)-1] {
		start := time.Now()
		Xt, err = step.Estimator.(model.Transformer).FitTransform(Xt)
		if err != nil {
			return errors.Wrapf(err, "failed to fit step '%s'", step.Name)
		}
		p.logStep(step.Name, start)
	}

	final := p.Steps[len(p.Steps)-1]
	start := time.Now()
	if err := final.Estimator.(model.Estimator).Fit(Xt, y); err != nil {
		return errors.Wrapf(err, "failed to fit final step '%s'", final.Name)
	}
	p.logStep(final.Name, start)

	rows, cols := X.Dims()
	p.State.SetDimensions(cols, rows)
	p.State.SetFitted()
	return nil
}

func (p *Pipeline) logStep(name string, start time.Time) {
	if !p.Verbose {
		return
	}
	p.log().Info("Pipeline step fitted",
		log.ComponentKey, name,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
}

// Predict transforms X through the fitted transformers and predicts with the
// final estimator.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	if p.State == nil {
		return nil, errors.NewNotFittedError("Pipeline", "Predict")
	}
	if err := p.State.RequireFitted("Pipeline", "Predict"); err != nil {
		return nil, err
	}
	if _, cols := X.Dims(); cols != p.nFeatures() {
		return nil, errors.NewDimensionError("Pipeline.Predict", p.nFeatures(), cols, 1)
	}

	Xt := X
	var err error
	for _, step := range p.Steps[:len(p.Steps)-1] {
		Xt, err = step.Estimator.(model.Transformer).Transform(Xt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to transform at step '%s'", step.Name)
		}
	}
	final := p.Steps[len(p.Steps)-1]
	pred, err := final.Estimator.(model.Estimator).Predict(Xt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to predict at step '%s'", final.Name)
	}
	return pred, nil
}

func (p *Pipeline) nFeatures() int {
	n, _ := p.State.GetDimensions()
	return n
}

// FitPredict fits the pipeline and predicts on the same data.
func (p *Pipeline) FitPredict(X, y mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X, y); err != nil {
		return nil, err
	}
	return p.Predict(X)
}

// NamedStep returns the estimator registered under name.
func (p *Pipeline) NamedStep(name string) (interface{}, bool) {
	for _, step := range p.Steps {
		if step.Name == name {
			return step.Estimator, true
		}
	}
	return nil, false
}

// FinalEstimator returns the last step's estimator.
func (p *Pipeline) FinalEstimator() interface{} {
	if len(p.Steps) == 0 {
		return nil
	}
	return p.Steps[len(p.Steps)-1].Estimator
}

// GetParams returns every step's parameters as "step__param".
func (p *Pipeline) GetParams() map[string]interface{} {
	params := map[string]interface{}{"verbose": p.Verbose}
	for _, step := range p.Steps {
		getter, ok := step.Estimator.(model.ParameterGetter)
		if !ok {
			continue
		}
		for key, value := range getter.GetParams() {
			params[step.Name+"__"+key] = value
		}
	}
	return params
}

// SetParams routes "step__param" keys to the named step. Keys without a
// step prefix address the pipeline itself; only "verbose" is accepted.
func (p *Pipeline) SetParams(params map[string]interface{}) error {
	byStep := make(map[string]map[string]interface{})
	for key, value := range params {
		name, param, nested := strings.Cut(key, "__")
		if !nested {
			if key != "verbose" {
				return errors.NewValidationError(key, "unknown Pipeline parameter", value)
			}
			b, ok := value.(bool)
			if !ok {
				return errors.NewValidationError(key, "must be a bool", value)
			}
			p.Verbose = b
			continue
		}
		if _, ok := p.NamedStep(name); !ok {
			return errors.NewValidationError(key, "no pipeline step named "+name, value)
		}
		if byStep[name] == nil {
			byStep[name] = make(map[string]interface{})
		}
		byStep[name][param] = value
	}

	for _, step := range p.Steps {
		stepParams, ok := byStep[step.Name]
		if !ok {
			continue
		}
		setter, ok := step.Estimator.(model.ParameterSetter)
		if !ok {
			return errors.NewValidationError(step.Name, "step does not accept parameters", fmt.Sprintf("%T", step.Estimator))
		}
		if err := setter.SetParams(stepParams); err != nil {
			return errors.Wrapf(err, "step '%s'", step.Name)
		}
	}
	return nil
}

// Clone returns an unfitted pipeline whose steps are clones of p's steps.
// Steps that do not implement model.Cloner are shared.
func (p *Pipeline) Clone() interface{} {
	steps := make([]Step, len(p.Steps))
	for i, step := range p.Steps {
		steps[i] = step
		if c, ok := step.Estimator.(model.Cloner); ok {
			steps[i].Estimator = c.Clone()
		}
	}
	clone := New(steps...)
	clone.Verbose = p.Verbose
	clone.logger = p.logger
	return clone
}

func (p *Pipeline) String() string {
	parts := make([]string, len(p.Steps))
	for i, step := range p.Steps {
		parts[i] = fmt.Sprintf("('%s', %v)", step.Name, step.Estimator)
	}
	return "Pipeline(steps=[" + strings.Join(parts, ", ") + "])"
}
