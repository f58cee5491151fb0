package model_selection

import (
	"fmt"
	"math/rand/v2"

	"github.com/YuminosukeSato/housecast/pkg/errors"
)

// Splitter produces cross-validation folds over n samples.
type Splitter interface {
	Split(n int) ([]Fold, error)
	GetNSplits() int
}

// Fold is one train/test partition of sample positions.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits samples into NSplits consecutive folds. The first n%NSplits
// folds get one extra sample.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a k-fold splitter.
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of folds.
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test positions for each fold. It fails with
// ErrNoValidFolds when there are fewer samples than folds.
func (kf *KFold) Split(n int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, errors.NewValidationError("cv_folds", "must be at least 2", kf.NSplits)
	}
	if n < kf.NSplits {
		return nil, errors.Wrapf(errors.ErrNoValidFolds,
			"cannot have number of splits %d greater than the number of samples %d", kf.NSplits, n)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.RandomSeed, kf.RandomSeed))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits
	inTest := make([]bool, n)

	current := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		test := append([]int(nil), indices[current:current+testSize]...)
		for _, idx := range test {
			inTest[idx] = true
		}

		train := make([]int, 0, n-testSize)
		for _, idx := range indices {
			if !inTest[idx] {
				train = append(train, idx)
			}
		}
		for _, idx := range test {
			inTest[idx] = false
		}

		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		current += testSize
	}
	return folds, nil
}

func (kf *KFold) String() string {
	return fmt.Sprintf("KFold(n_splits=%d, shuffle=%t)", kf.NSplits, kf.Shuffle)
}
