package control

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// KalmanFilter is a linear Kalman filter with an identity state model and direct observation of
// every state. X is the state estimate and P its covariance.
type KalmanFilter struct {
	X *mat.VecDense // System State Matrix
	P *mat.Dense    // Covariance Matrix

	q         *mat.Dense
	initState []float64
	initCov   float64
}

// NewKalmanFilter returns a filter starting at initialState with covariance initialCovariance*I
// and a process noise of processNoise*I added on every Predict.
func NewKalmanFilter(initialState []float64, initialCovariance, processNoise float64) (*KalmanFilter, error) {
	n := len(initialState)
	if n == 0 {
		return nil, errors.New("kalman filter needs at least one state")
	}
	if initialCovariance < 0 {
		return nil, errors.Errorf("initial covariance must not be negative, got %v", initialCovariance)
	}
	if !(processNoise >= 0) {
		return nil, errors.Errorf("process noise must not be negative, got %v", processNoise)
	}
	kF := &KalmanFilter{
		q:         scaledIdentity(n, processNoise),
		initState: append([]float64(nil), initialState...),
		initCov:   initialCovariance,
	}
	kF.Reset()
	return kF, nil
}

func scaledIdentity(n int, s float64) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, s)
	}
	return d
}

// Reset restores the initial state and covariance.
func (kF *KalmanFilter) Reset() {
	n := len(kF.initState)
	kF.X = mat.NewVecDense(n, append([]float64(nil), kF.initState...))
	kF.P = scaledIdentity(n, kF.initCov)
}

// Predict propagates the covariance through the identity model: P = P + Q.
func (kF *KalmanFilter) Predict() {
	kF.P.Add(kF.P, kF.q)
}

// Update fuses a direct measurement z of the state with measurement noise r*I.
func (kF *KalmanFilter) Update(z []float64, r float64) error {
	n := kF.X.Len()
	if len(z) != n {
		return errors.Errorf("measurement has %d values, state has %d", len(z), n)
	}
	innovation := mat.NewVecDense(n, nil)
	innovation.SubVec(mat.NewVecDense(n, append([]float64(nil), z...)), kF.X)
	return kF.UpdateInnovation(innovation.RawVector().Data, r)
}

// UpdateInnovation applies an already computed innovation (measurement minus state), for callers
// that need to wrap it first.
func (kF *KalmanFilter) UpdateInnovation(innovation []float64, r float64) error {
	n := kF.X.Len()
	if len(innovation) != n {
		return errors.Errorf("innovation has %d values, state has %d", len(innovation), n)
	}
	if !(r > 0) {
		return errors.Errorf("measurement noise must be greater than zero, got %v", r)
	}

	// S = P + R
	var s mat.Dense
	s.Add(kF.P, scaledIdentity(n, r))
	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return errors.Wrap(err, "innovation covariance is singular")
	}
	// K = P S^-1
	var k mat.Dense
	k.Mul(kF.P, &sInv)

	var correction mat.VecDense
	correction.MulVec(&k, mat.NewVecDense(n, append([]float64(nil), innovation...)))
	kF.X.AddVec(kF.X, &correction)

	// P = (I - K) P
	var iMinusK mat.Dense
	iMinusK.Sub(scaledIdentity(n, 1), &k)
	var p mat.Dense
	p.Mul(&iMinusK, kF.P)
	kF.P = &p
	return nil
}

// State returns a copy of the state estimate.
func (kF *KalmanFilter) State() []float64 {
	out := make([]float64, kF.X.Len())
	copy(out, kF.X.RawVector().Data)
	return out
}

// Variance returns the i-th diagonal element of the covariance.
func (kF *KalmanFilter) Variance(i int) float64 {
	return kF.P.At(i, i)
}

// SetState overwrites the i-th element of the state estimate.
func (kF *KalmanFilter) SetState(i int, v float64) {
	kF.X.SetVec(i, v)
}
