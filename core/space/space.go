package space

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrInvalidAssignment is returned when an assignment does not fit the space
var ErrInvalidAssignment = errors.New("invalid assignment")

// Kind represents the type of a dimension
type Kind string

const (
	KindContinuous  Kind = "continuous"
	KindInteger     Kind = "integer"
	KindCategorical Kind = "categorical"
)

// Scaling represents the transform applied when mapping a numeric
// dimension to the unit interval
type Scaling string

const (
	ScalingLinear      Scaling = "linear"
	ScalingLogarithmic Scaling = "logarithmic"
)

// Dimension represents one named axis of the search domain
type Dimension struct {
	Name    string
	Kind    Kind
	Min     float64  // numeric kinds
	Max     float64  // numeric kinds
	Choices []string // categorical kind
	Scaling Scaling  // numeric kinds, defaults to linear
}

// Frozen reports whether the dimension admits exactly one value.
// Frozen dimensions are excluded from optimization variables.
func (d Dimension) Frozen() bool {
	if d.Kind == KindCategorical {
		return len(d.Choices) == 1
	}
	return d.Min == d.Max
}

// Assignment maps dimension names to concrete values: float64 for
// continuous dimensions, int for integer, string for categorical.
type Assignment map[string]interface{}

// Clone returns an independent copy of the assignment
func (a Assignment) Clone() Assignment {
	if a == nil {
		return nil
	}
	out := make(Assignment, len(a))
	for name, v := range a {
		out[name] = v
	}
	return out
}

// ParameterSpace is an ordered, immutable set of uniquely-named dimensions
type ParameterSpace struct {
	dims []Dimension
}

// New builds a parameter space, validating every dimension
func New(dims ...Dimension) (*ParameterSpace, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("parameter space requires at least one dimension")
	}

	seen := make(map[string]bool, len(dims))
	out := make([]Dimension, 0, len(dims))

	for _, d := range dims {
		if d.Name == "" {
			return nil, fmt.Errorf("dimension with empty name")
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate dimension %q", d.Name)
		}
		seen[d.Name] = true

		switch d.Kind {
		case KindContinuous, KindInteger:
			if d.Min > d.Max {
				return nil, fmt.Errorf("dimension %q: min %v exceeds max %v", d.Name, d.Min, d.Max)
			}
			if d.Kind == KindInteger && (d.Min != math.Trunc(d.Min) || d.Max != math.Trunc(d.Max)) {
				return nil, fmt.Errorf("dimension %q: integer bounds must be whole numbers", d.Name)
			}
			if d.Scaling == "" {
				d.Scaling = ScalingLinear
			}
			if d.Scaling != ScalingLinear && d.Scaling != ScalingLogarithmic {
				return nil, fmt.Errorf("dimension %q: unknown scaling %q", d.Name, d.Scaling)
			}
			if d.Scaling == ScalingLogarithmic && d.Min <= 0 {
				return nil, fmt.Errorf("dimension %q: logarithmic scaling requires a strictly positive range", d.Name)
			}
		case KindCategorical:
			if len(d.Choices) == 0 {
				return nil, fmt.Errorf("dimension %q: categorical dimension requires choices", d.Name)
			}
			choiceSeen := make(map[string]bool, len(d.Choices))
			for _, c := range d.Choices {
				if choiceSeen[c] {
					return nil, fmt.Errorf("dimension %q: duplicate choice %q", d.Name, c)
				}
				choiceSeen[c] = true
			}
			if d.Scaling != "" {
				return nil, fmt.Errorf("dimension %q: scaling is not meaningful for categorical dimensions", d.Name)
			}
		default:
			return nil, fmt.Errorf("dimension %q: unknown kind %q", d.Name, d.Kind)
		}

		out = append(out, d)
	}

	return &ParameterSpace{dims: out}, nil
}

// Dimensions returns a copy of the ordered dimension list
func (s *ParameterSpace) Dimensions() []Dimension {
	dims := make([]Dimension, len(s.dims))
	copy(dims, s.dims)
	return dims
}

// Len returns the number of dimensions
func (s *ParameterSpace) Len() int {
	return len(s.dims)
}

// Validate checks that an assignment covers every dimension exactly once
// and that every value respects its dimension's kind and bounds
func (s *ParameterSpace) Validate(a Assignment) error {
	if len(a) != len(s.dims) {
		return fmt.Errorf("%w: expected %d values, got %d", ErrInvalidAssignment, len(s.dims), len(a))
	}

	for _, d := range s.dims {
		v, ok := a[d.Name]
		if !ok {
			return fmt.Errorf("%w: missing dimension %q", ErrInvalidAssignment, d.Name)
		}

		switch d.Kind {
		case KindContinuous:
			f, ok := numberValue(v)
			if !ok {
				return fmt.Errorf("%w: dimension %q expects a number, got %T", ErrInvalidAssignment, d.Name, v)
			}
			if f < d.Min || f > d.Max {
				return fmt.Errorf("%w: dimension %q value %v outside [%v, %v]", ErrInvalidAssignment, d.Name, f, d.Min, d.Max)
			}
		case KindInteger:
			f, ok := numberValue(v)
			if !ok || f != math.Trunc(f) {
				return fmt.Errorf("%w: dimension %q expects an integer, got %v", ErrInvalidAssignment, d.Name, v)
			}
			if f < d.Min || f > d.Max {
				return fmt.Errorf("%w: dimension %q value %v outside [%v, %v]", ErrInvalidAssignment, d.Name, f, d.Min, d.Max)
			}
		case KindCategorical:
			str, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: dimension %q expects a string, got %T", ErrInvalidAssignment, d.Name, v)
			}
			if choiceIndex(d.Choices, str) < 0 {
				return fmt.Errorf("%w: dimension %q value %q not in choices", ErrInvalidAssignment, d.Name, str)
			}
		}
	}

	return nil
}

// ToUnitCube maps an assignment to a point in [0,1]^d, one coordinate per
// dimension in declaration order. Numeric dimensions map linearly or
// logarithmically per their scaling; categorical dimensions are
// index-mapped. Frozen dimensions map to 0.
func (s *ParameterSpace) ToUnitCube(a Assignment) ([]float64, error) {
	if err := s.Validate(a); err != nil {
		return nil, err
	}

	u := make([]float64, len(s.dims))
	for i, d := range s.dims {
		v := a[d.Name]

		if d.Frozen() {
			u[i] = 0
			continue
		}

		switch d.Kind {
		case KindContinuous, KindInteger:
			f, _ := numberValue(v)
			if d.Scaling == ScalingLogarithmic {
				u[i] = (math.Log(f) - math.Log(d.Min)) / (math.Log(d.Max) - math.Log(d.Min))
			} else {
				u[i] = (f - d.Min) / (d.Max - d.Min)
			}
		case KindCategorical:
			idx := choiceIndex(d.Choices, v.(string))
			u[i] = float64(idx) / float64(len(d.Choices)-1)
		}
	}

	return u, nil
}

// FromUnitCube maps a point in [0,1]^d back to a concrete assignment,
// the inverse of ToUnitCube. Coordinates outside [0,1] are clamped.
// Integer values are rounded to the nearest whole number and categorical
// coordinates snap to the nearest choice index.
func (s *ParameterSpace) FromUnitCube(u []float64) (Assignment, error) {
	if len(u) != len(s.dims) {
		return nil, fmt.Errorf("unit vector has %d coordinates, space has %d dimensions", len(u), len(s.dims))
	}

	a := make(Assignment, len(s.dims))
	for i, d := range s.dims {
		c := clamp01(u[i])

		switch d.Kind {
		case KindContinuous:
			if d.Frozen() {
				a[d.Name] = d.Min
			} else if d.Scaling == ScalingLogarithmic {
				a[d.Name] = math.Exp(math.Log(d.Min) + c*(math.Log(d.Max)-math.Log(d.Min)))
			} else {
				a[d.Name] = d.Min + c*(d.Max-d.Min)
			}
		case KindInteger:
			if d.Frozen() {
				a[d.Name] = int(d.Min)
			} else if d.Scaling == ScalingLogarithmic {
				v := math.Exp(math.Log(d.Min) + c*(math.Log(d.Max)-math.Log(d.Min)))
				a[d.Name] = int(clampFloat(math.Round(v), d.Min, d.Max))
			} else {
				a[d.Name] = int(clampFloat(math.Round(d.Min+c*(d.Max-d.Min)), d.Min, d.Max))
			}
		case KindCategorical:
			n := len(d.Choices)
			idx := 0
			if n > 1 {
				idx = int(math.Round(c * float64(n-1)))
			}
			a[d.Name] = d.Choices[idx]
		}
	}

	return a, nil
}

// Key returns a canonical string for an assignment, used to detect
// duplicate proposals. Continuous values are rendered with enough
// precision that meaningfully distinct points never collide.
func (s *ParameterSpace) Key(a Assignment) string {
	parts := make([]string, 0, len(a))
	for _, d := range s.dims {
		v, ok := a[d.Name]
		if !ok {
			continue
		}
		switch d.Kind {
		case KindContinuous:
			f, _ := numberValue(v)
			parts = append(parts, fmt.Sprintf("%s=%.12g", d.Name, f))
		case KindInteger:
			f, _ := numberValue(v)
			parts = append(parts, fmt.Sprintf("%s=%d", d.Name, int(f)))
		case KindCategorical:
			parts = append(parts, fmt.Sprintf("%s=%v", d.Name, v))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

func numberValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func choiceIndex(choices []string, v string) int {
	for i, c := range choices {
		if c == v {
			return i
		}
	}
	return -1
}

func clamp01(v float64) float64 {
	return clampFloat(v, 0, 1)
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
