package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

// ErrMalformedResult is returned when a result CSV cannot be parsed.
var ErrMalformedResult = errors.New("export: malformed result csv")

// WriteResultCSV writes one row per sample: time followed by one column per
// node, in result order.
func WriteResultCSV(w io.Writer, r *thermal.Result) error {
	cw := csv.NewWriter(w)

	header := []string{"time"}
	for _, s := range r.Series {
		header = append(header, s.NodeID)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, t := range r.Times {
		row := []string{formatFloat(t)}
		for _, s := range r.Series {
			row = append(row, formatFloat(s.Temperatures[i]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadResultCSV parses the output of WriteResultCSV.
func ReadResultCSV(rd io.Reader) (*thermal.Result, error) {
	cr := csv.NewReader(rd)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if len(records) == 0 || len(records[0]) < 1 || records[0][0] != "time" {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedResult)
	}

	header := records[0]
	out := &thermal.Result{
		Times:  make([]float64, 0, len(records)-1),
		Series: make([]thermal.Series, len(header)-1),
	}
	for j, id := range header[1:] {
		out.Series[j] = thermal.Series{NodeID: id, Temperatures: make([]float64, 0, len(records)-1)}
	}

	for i, rec := range records[1:] {
		vals := make([]float64, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %v", ErrMalformedResult, i+2, j+1, err)
			}
			vals[j] = v
		}
		out.Times = append(out.Times, vals[0])
		for j := range out.Series {
			out.Series[j].Temperatures = append(out.Series[j].Temperatures, vals[j+1])
		}
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
