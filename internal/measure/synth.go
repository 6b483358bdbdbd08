// Package measure produces and stores measurement traces: synthetic noisy
// samples of a simulated run, and a long-format CSV of observed data.
package measure

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

// ErrUnknownNode is returned when a requested node has no series.
var ErrUnknownNode = errors.New("measure: node not in result")

// Options controls Synthesize.
type Options struct {
	// Every keeps every Every-th solver sample, always including t=0.
	// Values below 2 keep all samples.
	Every int

	// Sigma is the standard deviation of additive Gaussian noise in °C.
	Sigma float64

	// Seed makes the noise reproducible.
	Seed uint64

	// Nodes selects which series to sample. Empty means all of them.
	Nodes []string
}

// Synthesize samples a simulated result into measurement traces, one per
// selected node, with independent Gaussian noise on every temperature.
func Synthesize(result *thermal.Result, opts Options) ([]thermal.Measurement, error) {
	if opts.Sigma < 0 {
		return nil, fmt.Errorf("measure: negative noise sigma %v", opts.Sigma)
	}
	every := opts.Every
	if every < 2 {
		every = 1
	}

	ids := opts.Nodes
	if len(ids) == 0 {
		ids = make([]string, len(result.Series))
		for i, s := range result.Series {
			ids[i] = s.NodeID
		}
	}

	noise := distuv.Normal{Mu: 0, Sigma: opts.Sigma, Src: rand.NewPCG(opts.Seed, opts.Seed)}

	out := make([]thermal.Measurement, 0, len(ids))
	for _, id := range ids {
		series, ok := result.SeriesFor(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
		}

		m := thermal.Measurement{NodeID: id}
		for k := 0; k < len(result.Times); k += every {
			v := series[k]
			if opts.Sigma > 0 {
				v += noise.Rand()
			}
			m.Times = append(m.Times, result.Times[k])
			m.Temperatures = append(m.Temperatures, v)
		}
		out = append(out, m)
	}
	return out, nil
}

// FreeNodeIDs lists the ids of nodes that are not fixed, in input order.
func FreeNodeIDs(nodes []thermal.Node) []string {
	var ids []string
	for _, n := range nodes {
		if !n.IsFixed {
			ids = append(ids, n.ID)
		}
	}
	return ids
}
