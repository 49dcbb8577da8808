package dynamo

// Trace is the append-only record of one run, one entry per grid point.
type Trace struct {
	Times    []float64
	States   []State
	Outputs  []State
	Controls []float64
	Metrics  map[string]float64
}

func newTrace(capacity int) *Trace {
	return &Trace{
		Times:    make([]float64, 0, capacity),
		States:   make([]State, 0, capacity),
		Outputs:  make([]State, 0, capacity),
		Controls: make([]float64, 0, capacity),
		Metrics:  make(map[string]float64),
	}
}

func (tr *Trace) append(s Sample) {
	tr.Times = append(tr.Times, s.Time)
	tr.States = append(tr.States, s.State)
	tr.Outputs = append(tr.Outputs, s.Output)
	tr.Controls = append(tr.Controls, s.Control)
}

func (tr *Trace) Len() int {
	return len(tr.Times)
}

func (tr *Trace) Sample(i int) Sample {
	return Sample{
		Step:    i,
		Time:    tr.Times[i],
		State:   tr.States[i],
		Output:  tr.Outputs[i],
		Control: tr.Controls[i],
	}
}

// Final returns the last recorded sample. It panics on an empty trace.
func (tr *Trace) Final() Sample {
	return tr.Sample(tr.Len() - 1)
}

// OutputSeries returns output component i at every grid point.
func (tr *Trace) OutputSeries(i int) []float64 {
	return series(tr.Outputs, i)
}

// StateSeries returns state component i at every grid point.
func (tr *Trace) StateSeries(i int) []float64 {
	return series(tr.States, i)
}

func (tr *Trace) ControlSeries() []float64 {
	out := make([]float64, len(tr.Controls))
	copy(out, tr.Controls)
	return out
}

func series(rows []State, i int) []float64 {
	out := make([]float64, len(rows))
	for k, row := range rows {
		if i < len(row) {
			out[k] = row[i]
		}
	}
	return out
}
