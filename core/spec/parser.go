package spec

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"hypertuner/core/models"
	"hypertuner/core/space"
)

// TuningSpec represents the YAML tuning job specification
type TuningSpec struct {
	Tuning TuningSpecTuning `yaml:"tuning"`
}

// TuningSpecTuning represents the tuning section of the spec
type TuningSpecTuning struct {
	Name       string                `yaml:"name"`
	Objective  TuningSpecObjective   `yaml:"objective"`
	Budget     TuningSpecBudget      `yaml:"budget"`
	Strategy   string                `yaml:"strategy"`
	Resources  TuningSpecResources   `yaml:"resources"`
	Parameters []TuningSpecParameter `yaml:"parameters"`
}

// TuningSpecObjective represents the objective metric configuration
type TuningSpecObjective struct {
	Metric    string `yaml:"metric"`
	Direction string `yaml:"direction"` // maximize | minimize
}

// TuningSpecBudget represents the trial budget and parallelism bound
type TuningSpecBudget struct {
	MaxTrials   int `yaml:"max_trials"`
	MaxParallel int `yaml:"max_parallel_jobs"`
}

// TuningSpecResources represents per-trial compute resources
type TuningSpecResources struct {
	InstanceType      string `yaml:"instance_type"`
	InstanceCount     int    `yaml:"instance_count"`
	MaxRuntimeMinutes int    `yaml:"max_runtime_minutes"`
}

// TuningSpecParameter represents one search dimension
type TuningSpecParameter struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"` // continuous | integer | categorical
	Min     *float64 `yaml:"min,omitempty"`
	Max     *float64 `yaml:"max,omitempty"`
	Choices []string `yaml:"choices,omitempty"`
	Scaling string   `yaml:"scaling,omitempty"` // linear | logarithmic
}

// ParseTuningSpec parses a YAML tuning specification into a TuningJob
func ParseTuningSpec(specYAML string) (*models.TuningJob, error) {
	var s TuningSpec
	if err := yaml.Unmarshal([]byte(specYAML), &s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	t := s.Tuning

	if t.Budget.MaxTrials < 1 {
		return nil, fmt.Errorf("budget.max_trials must be at least 1")
	}
	if len(t.Parameters) == 0 {
		return nil, fmt.Errorf("at least one parameter is required")
	}

	dims := make([]space.Dimension, 0, len(t.Parameters))
	for _, p := range t.Parameters {
		d, err := parseDimension(p)
		if err != nil {
			return nil, err
		}
		dims = append(dims, d)
	}

	sp, err := space.New(dims...)
	if err != nil {
		return nil, fmt.Errorf("invalid parameter space: %w", err)
	}

	job := &models.TuningJob{
		Name:            t.Name,
		Space:           sp,
		ObjectiveMetric: t.Objective.Metric,
		Direction:       models.ObjectiveDirection(t.Objective.Direction),
		MaxTrials:       t.Budget.MaxTrials,
		MaxParallel:     t.Budget.MaxParallel,
		Strategy:        models.StrategyName(t.Strategy),
		Resources: models.ResourceSpec{
			InstanceType:  t.Resources.InstanceType,
			InstanceCount: t.Resources.InstanceCount,
			MaxRuntime:    time.Duration(t.Resources.MaxRuntimeMinutes) * time.Minute,
		},
		SpecYAML: specYAML,
	}

	// Set defaults
	if job.ObjectiveMetric == "" {
		job.ObjectiveMetric = "objective"
	}
	if job.Direction == "" {
		job.Direction = models.DirectionMaximize
	}
	if job.Direction != models.DirectionMaximize && job.Direction != models.DirectionMinimize {
		return nil, fmt.Errorf("invalid objective direction %q", job.Direction)
	}
	if job.MaxParallel < 1 {
		job.MaxParallel = 1
	}
	if job.Strategy == "" {
		job.Strategy = models.StrategyBayesian
	}
	switch job.Strategy {
	case models.StrategyRandom, models.StrategyGrid, models.StrategyBayesian:
	default:
		return nil, fmt.Errorf("invalid strategy %q", job.Strategy)
	}
	if job.Resources.InstanceCount < 1 {
		job.Resources.InstanceCount = 1
	}

	return job, nil
}

func parseDimension(p TuningSpecParameter) (space.Dimension, error) {
	if p.Name == "" {
		return space.Dimension{}, fmt.Errorf("parameter with empty name")
	}

	d := space.Dimension{
		Name:    p.Name,
		Scaling: space.Scaling(p.Scaling),
	}

	switch p.Type {
	case "continuous":
		d.Kind = space.KindContinuous
	case "integer":
		d.Kind = space.KindInteger
	case "categorical":
		d.Kind = space.KindCategorical
		d.Choices = p.Choices
		return d, nil
	default:
		return space.Dimension{}, fmt.Errorf("parameter %q: unknown type %q", p.Name, p.Type)
	}

	if p.Min == nil || p.Max == nil {
		return space.Dimension{}, fmt.Errorf("parameter %q: numeric parameters require min and max", p.Name)
	}
	d.Min = *p.Min
	d.Max = *p.Max

	return d, nil
}
