// Package model defines the interfaces shared by every estimator and
// transformer in housecast, plus the state and persistence helpers they use.
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is a supervised model: Fit on (X, y), then Predict.
type Estimator interface {
	Fitter
	Predictor
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// ParameterGetter is the interface for models that expose their hyperparameters.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
// Unknown keys and values of the wrong type are rejected.
type ParameterSetter interface {
	SetParams(params map[string]interface{}) error
}

// Cloner returns an unfitted copy carrying the same hyperparameters.
// Grid search clones the base estimator once per candidate and fold.
type Cloner interface {
	Clone() interface{}
}

// Regressor is the full contract grid search needs from a model.
type Regressor interface {
	Estimator
	ParameterGetter
	ParameterSetter
	Cloner
}
