package integrators

import "testing"

// chain is a rod of n equal cells with unit conductance between neighbours.
type chain struct{ n int }

func (c *chain) Len() int { return c.n }
func (c *chain) Derive(x, dx []float64) {
	for i := range x {
		flow := 0.0
		if i > 0 {
			flow += x[i-1] - x[i]
		}
		if i < c.n-1 {
			flow += x[i+1] - x[i]
		}
		dx[i] = flow
	}
}

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	sys := &decay{k: 1}
	x := []float64{1.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integrator.Step(sys, x, x, 0.01)
	}
}

func BenchmarkEuler_Chain100(b *testing.B) {
	integrator := NewEuler()
	sys := &chain{n: 100}
	x := make([]float64, 100)
	for i := range x {
		x[i] = float64(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integrator.Step(sys, x, x, 0.1)
	}
}
