// Package model_selection provides data splitting, cross-validation and
// hyperparameter search for estimators that implement model.Regressor.
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/housecast/pkg/errors"
)

// TrainTestSplit shuffles [0, n) with a seeded PCG source and returns the
// train and test positions. The test set is the first ceil(testSize*n)
// positions of the permutation.
func TrainTestSplit(n int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("with n_samples=%d and test_size=%g the train or test set would be empty", n, testSize))
	}

	r := rand.New(rand.NewPCG(seed, seed))
	perm := r.Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// Rows copies the given rows of X, in order, into a new matrix.
func Rows(X mat.Matrix, indices []int) *mat.Dense {
	_, cols := X.Dims()
	out := mat.NewDense(len(indices), cols, nil)
	row := make([]float64, cols)
	for i, idx := range indices {
		mat.Row(row, idx, X)
		out.SetRow(i, row)
	}
	return out
}
