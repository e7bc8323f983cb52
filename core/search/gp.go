package search

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// gaussianProcess is an exact Gaussian-process regressor over unit-cube
// inputs with an RBF kernel. Observations are normalized before fitting
// so the prior (zero mean, unit variance) stays meaningful across
// objective scales.
type gaussianProcess struct {
	lengthscale float64
	noise       float64

	x     [][]float64
	yMean float64
	yStd  float64

	chol   mat.Cholesky
	alpha  *mat.VecDense
	fitted bool
}

func newGaussianProcess(lengthscale, noise float64) *gaussianProcess {
	return &gaussianProcess{
		lengthscale: lengthscale,
		noise:       noise,
	}
}

// Fit trains the model on unit-cube inputs and objective values
func (gp *gaussianProcess) Fit(x [][]float64, y []float64) error {
	n := len(x)
	if n == 0 {
		return fmt.Errorf("gaussian process requires at least one observation")
	}
	if len(y) != n {
		return fmt.Errorf("input/output length mismatch: %d vs %d", n, len(y))
	}

	gp.x = make([][]float64, n)
	for i, xi := range x {
		gp.x[i] = append([]float64(nil), xi...)
	}

	gp.yMean, gp.yStd = meanStd(y)

	normalized := make([]float64, n)
	for i, v := range y {
		normalized[i] = (v - gp.yMean) / gp.yStd
	}

	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := gp.kernel(gp.x[i], gp.x[j])
			if i == j {
				v += gp.noise
			}
			k.SetSym(i, j, v)
		}
	}

	if ok := gp.chol.Factorize(k); !ok {
		return fmt.Errorf("kernel matrix is not positive definite")
	}

	gp.alpha = mat.NewVecDense(n, nil)
	if err := gp.chol.SolveVecTo(gp.alpha, mat.NewVecDense(n, normalized)); err != nil {
		return fmt.Errorf("solving for kernel weights: %w", err)
	}

	gp.fitted = true
	return nil
}

// Predict returns the posterior mean and variance at a unit-cube point.
// Before fitting it returns the prior (0, 1).
func (gp *gaussianProcess) Predict(x []float64) (mean, variance float64) {
	if !gp.fitted {
		return 0, 1
	}

	n := len(gp.x)
	ks := mat.NewVecDense(n, nil)
	for i := range gp.x {
		ks.SetVec(i, gp.kernel(x, gp.x[i]))
	}

	mean = mat.Dot(ks, gp.alpha)*gp.yStd + gp.yMean

	v := mat.NewVecDense(n, nil)
	if err := gp.chol.SolveVecTo(v, ks); err != nil {
		return mean, gp.yStd * gp.yStd
	}

	normVar := 1 + gp.noise - mat.Dot(ks, v)
	if normVar < 1e-12 {
		normVar = 1e-12
	}
	return mean, normVar * gp.yStd * gp.yStd
}

func (gp *gaussianProcess) kernel(a, b []float64) float64 {
	return math.Exp(-squaredDistance(a, b) / (2 * gp.lengthscale * gp.lengthscale))
}

func meanStd(values []float64) (mean, std float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	for _, v := range values {
		diff := v - mean
		std += diff * diff
	}
	std = math.Sqrt(std / float64(len(values)))
	if std < 1e-12 {
		std = 1
	}
	return mean, std
}
