package processor

import (
	"math"
	"reflect"
	"time"

	"github.com/vk/simbatch/internal/simulation"
)

// Result is a snapshot of one finished simulation. It copies what reporting
// needs and keeps no reference to the simulation it came from.
type Result struct {
	Name        string         `msgpack:"name"`
	FileName    int            `msgpack:"file_name"`
	PlotsDir    string         `msgpack:"plots_dir"`
	InitTime    time.Time      `msgpack:"init_time"`
	StartTime   time.Time      `msgpack:"start_time"`
	EndTime     time.Time      `msgpack:"end_time"`
	ElapsedTime float64        `msgpack:"elapsed_time"` // seconds
	RunningTime float64        `msgpack:"running_time"` // seconds
	Parameters  map[string]any `msgpack:"parameters,omitempty"`
	Extra       map[string]any `msgpack:"extra,omitempty"`
}

// NewResult copies the identity and timing of sim, plus the parameters of
// its specification.
func NewResult(sim *simulation.Simulation, plotsDir string) Result {
	r := Result{
		Name:        sim.Name,
		FileName:    sim.FileName,
		PlotsDir:    plotsDir,
		InitTime:    sim.InitTime,
		StartTime:   sim.StartTime,
		EndTime:     sim.EndTime,
		ElapsedTime: sim.ElapsedTime.Seconds(),
		RunningTime: sim.RunningTime.Seconds(),
	}
	if sim.Spec != nil && len(sim.Spec.Parameters) > 0 {
		r.Parameters = make(map[string]any, len(sim.Spec.Parameters))
		for k, v := range sim.Spec.Parameters {
			r.Parameters[k] = v
		}
	}
	return r
}

// Field looks a value up by name: the built-in fields first, then
// parameters, then extra values.
func (r Result) Field(name string) (any, bool) {
	switch name {
	case "name":
		return r.Name, true
	case "file_name":
		return r.FileName, true
	case "plots_dir":
		return r.PlotsDir, true
	case "init_time":
		return r.InitTime, true
	case "start_time":
		return r.StartTime, true
	case "end_time":
		return r.EndTime, true
	case "elapsed_time":
		return r.ElapsedTime, true
	case "running_time":
		return r.RunningTime, true
	}
	if v, ok := r.Parameters[name]; ok {
		return v, true
	}
	v, ok := r.Extra[name]
	return v, ok
}

func (r Result) clone() Result {
	c := r
	if r.Parameters != nil {
		c.Parameters = make(map[string]any, len(r.Parameters))
		for k, v := range r.Parameters {
			c.Parameters[k] = v
		}
	}
	if r.Extra != nil {
		c.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// valuesEqual compares numbers by value regardless of their Go type, times
// by instant, and everything else deeply. Decoded snapshots hold int64 and
// float64 where callers usually pass int.
func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f, !math.IsNaN(f)
	default:
		return 0, false
	}
}
