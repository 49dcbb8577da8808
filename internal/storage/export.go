package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/san-kum/motorlab/internal/dynamo"
)

// WriteCSV writes one row per grid point: time, x0..xn, y0..ym, u.
// Values use the shortest representation that reads back exactly.
func WriteCSV(w io.Writer, tr *dynamo.Trace) error {
	cw := csv.NewWriter(w)

	nx, ny := 0, 0
	if tr.Len() > 0 {
		nx, ny = len(tr.States[0]), len(tr.Outputs[0])
	}

	header := []string{"time"}
	for i := 0; i < nx; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	for i := 0; i < ny; i++ {
		header = append(header, fmt.Sprintf("y%d", i))
	}
	header = append(header, "u")
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, 0, len(header))
	for i := 0; i < tr.Len(); i++ {
		row = append(row[:0], format(tr.Times[i]))
		for _, v := range tr.States[i] {
			row = append(row, format(v))
		}
		for _, v := range tr.Outputs[i] {
			row = append(row, format(v))
		}
		row = append(row, format(tr.Controls[i]))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses the format written by WriteCSV.
func ReadCSV(r io.Reader) (*dynamo.Trace, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("trace csv has no header")
	}

	header := records[0]
	if len(header) < 2 || header[0] != "time" || header[len(header)-1] != "u" {
		return nil, fmt.Errorf("unexpected trace header %v", header)
	}
	nx, ny := 0, 0
	for _, col := range header[1 : len(header)-1] {
		switch {
		case strings.HasPrefix(col, "x"):
			nx++
		case strings.HasPrefix(col, "y"):
			ny++
		default:
			return nil, fmt.Errorf("unexpected trace column %q", col)
		}
	}

	rows := records[1:]
	tr := &dynamo.Trace{
		Times:    make([]float64, len(rows)),
		States:   make([]dynamo.State, len(rows)),
		Outputs:  make([]dynamo.State, len(rows)),
		Controls: make([]float64, len(rows)),
		Metrics:  make(map[string]float64),
	}
	for i, rec := range rows {
		vals := make([]float64, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+1, header[j], err)
			}
			vals[j] = v
		}
		tr.Times[i] = vals[0]
		tr.States[i] = dynamo.State(vals[1 : 1+nx])
		tr.Outputs[i] = dynamo.State(vals[1+nx : 1+nx+ny])
		tr.Controls[i] = vals[1+nx+ny]
	}
	return tr, nil
}

// ExportData is the JSON document of one run.
type ExportData struct {
	RunMetadata
	Times    []float64   `json:"times"`
	States   [][]float64 `json:"states"`
	Outputs  [][]float64 `json:"outputs"`
	Controls []float64   `json:"controls"`
}

func ExportJSON(w io.Writer, meta RunMetadata, tr *dynamo.Trace) error {
	data := ExportData{
		RunMetadata: meta,
		Times:       tr.Times,
		States:      make([][]float64, tr.Len()),
		Outputs:     make([][]float64, tr.Len()),
		Controls:    tr.Controls,
	}
	data.Steps = tr.Len()
	if data.Metrics == nil {
		data.Metrics = tr.Metrics
	}
	for i := range tr.States {
		data.States[i] = tr.States[i]
		data.Outputs[i] = tr.Outputs[i]
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
