// Package housecast predicts New York house listing prices.
//
// The offline pipeline cleans the published listings dataset, splits it 80/20
// with a fixed seed, one-hot encodes LOCALITY, and grid-searches a gradient
// boosted tree regressor on natural-log prices with 5-fold cross-validation.
// The winning pipeline, the fitted encoder and the held-out metrics (MAE, MSE,
// RMSE and R² in log space) are persisted as artifacts.
//
// The online service loads those artifacts once, validates each request
// against the schema ranges and the allowed localities, and answers with
// exp(prediction) in dollars.
//
// # Packages
//
//   - housing: dataset loading, schema and the cleaning stages
//   - frame: label-preserving table on top of gota
//   - preprocessing: feature encoder (numeric passthrough plus one-hot)
//   - sklearn/xgboost: histogram gradient boosted regression trees
//   - sklearn/pipeline, sklearn/model_selection: pipeline, split, k-fold and grid search
//   - training: the end-to-end training run
//   - artifact: atomic artifact persistence on an afero filesystem
//   - serving: predictor and HTTP handlers
//   - report: dataset analytics and charts
//   - config: viper-backed configuration
//
// # Usage
//
//	housecast train --config housecast.yaml
//	housecast predict --beds 3 --bath 2 --sqft 1400 --locality Brooklyn
//	housecast serve --addr :8000
//	housecast report --charts charts/
package housecast
