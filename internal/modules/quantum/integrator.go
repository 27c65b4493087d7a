package quantum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/epoch-iith/qmashup/internal/domain"
)

// stepper advances the amplitude (re + i·im) by one coherent step in place
type stepper interface {
	step(re, im []float64)
}

func newStepper(kind IntegratorKind, h mat.Symmetric, dt float64) (stepper, error) {
	switch kind {
	case IntegratorExact:
		return newSpectralStep(h, dt)
	default:
		return newEulerStep(h, dt), nil
	}
}

// eulerStep: ψ ← ψ - i(Hψ)dt, i.e. re += dt·H·im, im -= dt·H·re
type eulerStep struct {
	h   mat.Symmetric
	dt  float64
	hRe *mat.VecDense
	hIm *mat.VecDense
}

func newEulerStep(h mat.Symmetric, dt float64) *eulerStep {
	n, _ := h.Dims()
	return &eulerStep{
		h:   h,
		dt:  dt,
		hRe: mat.NewVecDense(n, nil),
		hIm: mat.NewVecDense(n, nil),
	}
}

func (s *eulerStep) step(re, im []float64) {
	n := len(re)
	s.hRe.MulVec(s.h, mat.NewVecDense(n, re))
	s.hIm.MulVec(s.h, mat.NewVecDense(n, im))

	hr := s.hRe.RawVector().Data
	hi := s.hIm.RawVector().Data
	for i := 0; i < n; i++ {
		re[i] += s.dt * hi[i]
		im[i] -= s.dt * hr[i]
	}
}

// spectralStep applies U = e^{-iHdt} = C - iS with C = V cos(Λdt) Vᵀ and
// S = V sin(Λdt) Vᵀ, both real, precomputed once per evolution.
type spectralStep struct {
	c, s               *mat.Dense
	cRe, cIm, sRe, sIm *mat.VecDense
}

func newSpectralStep(h mat.Symmetric, dt float64) (*spectralStep, error) {
	n, _ := h.Dims()

	var eig mat.EigenSym
	if ok := eig.Factorize(h, true); !ok {
		return nil, fmt.Errorf("%w: eigen decomposition did not converge", domain.ErrDegenerateInput)
	}
	values := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	cosD := make([]float64, n)
	sinD := make([]float64, n)
	for i, lambda := range values {
		cosD[i] = math.Cos(lambda * dt)
		sinD[i] = math.Sin(lambda * dt)
	}

	var tmp mat.Dense
	c := mat.NewDense(n, n, nil)
	tmp.Mul(&vecs, mat.NewDiagDense(n, cosD))
	c.Mul(&tmp, vecs.T())

	s := mat.NewDense(n, n, nil)
	tmp.Mul(&vecs, mat.NewDiagDense(n, sinD))
	s.Mul(&tmp, vecs.T())

	return &spectralStep{
		c:   c,
		s:   s,
		cRe: mat.NewVecDense(n, nil),
		cIm: mat.NewVecDense(n, nil),
		sRe: mat.NewVecDense(n, nil),
		sIm: mat.NewVecDense(n, nil),
	}, nil
}

func (s *spectralStep) step(re, im []float64) {
	n := len(re)
	reVec := mat.NewVecDense(n, re)
	imVec := mat.NewVecDense(n, im)
	s.cRe.MulVec(s.c, reVec)
	s.cIm.MulVec(s.c, imVec)
	s.sRe.MulVec(s.s, reVec)
	s.sIm.MulVec(s.s, imVec)

	cr := s.cRe.RawVector().Data
	ci := s.cIm.RawVector().Data
	sr := s.sRe.RawVector().Data
	si := s.sIm.RawVector().Data
	for i := 0; i < n; i++ {
		re[i] = cr[i] + si[i]
		im[i] = ci[i] - sr[i]
	}
}
