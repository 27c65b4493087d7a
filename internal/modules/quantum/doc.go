// Package quantum simulates a continuous-time quantum walk (CTQW) with an
// environment-assisted decoherence term over the segment graph.
//
// The walk state is a complex amplitude vector ψ held as separate real and
// imaginary slices so every matrix product stays on gonum's real BLAS paths.
// Each step records |ψ|² before updating, applies one coherent step, mixes ψ
// toward the environment vector η and renormalises.
//
// The canonical coherent step is first-order explicit Euler, ψ ← ψ - iHψ·dt.
// The exact spectral propagator e^{-iHdt} is available as a named variant,
// but trajectories are only comparable when produced by the same integrator.
package quantum
