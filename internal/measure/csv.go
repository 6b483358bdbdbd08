package measure

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

var header = []string{"node_id", "time", "temperature"}

// ErrMalformedCSV is returned for a measurement file that cannot be parsed.
var ErrMalformedCSV = errors.New("measure: malformed measurement csv")

// WriteCSV writes traces in long format, one row per sample.
func WriteCSV(w io.Writer, traces []thermal.Measurement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, m := range traces {
		for k := range m.Times {
			row := []string{
				m.NodeID,
				strconv.FormatFloat(m.Times[k], 'f', 6, 64),
				strconv.FormatFloat(m.Temperatures[k], 'f', 6, 64),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses long-format traces. Rows of one node need not be adjacent;
// traces come back in order of first appearance.
func ReadCSV(r io.Reader) ([]thermal.Measurement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	cr.TrimLeadingSpace = true

	first, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	for i, h := range header {
		if first[i] != h {
			return nil, fmt.Errorf("%w: header %v, want %v", ErrMalformedCSV, first, header)
		}
	}

	var out []thermal.Measurement
	index := make(map[string]int)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
		}

		t, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: time %q", ErrMalformedCSV, line, rec[1])
		}
		v, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: temperature %q", ErrMalformedCSV, line, rec[2])
		}

		i, ok := index[rec[0]]
		if !ok {
			i = len(out)
			index[rec[0]] = i
			out = append(out, thermal.Measurement{NodeID: rec[0]})
		}
		out[i].Times = append(out[i].Times, t)
		out[i].Temperatures = append(out[i].Temperatures, v)
	}
	return out, nil
}

func SaveFile(path string, traces []thermal.Measurement) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteCSV(f, traces); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func LoadFile(path string) ([]thermal.Measurement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	traces, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return traces, nil
}
