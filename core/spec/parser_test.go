package spec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypertuner/core/models"
	"hypertuner/core/space"
)

const fullSpec = `
tuning:
  name: resnet-sweep
  objective:
    metric: validation:accuracy
    direction: maximize
  budget:
    max_trials: 40
    max_parallel_jobs: 4
  strategy: bayesian
  resources:
    instance_type: ml.p3.2xlarge
    instance_count: 2
    max_runtime_minutes: 90
  parameters:
    - name: learning_rate
      type: continuous
      min: 0.0001
      max: 0.1
      scaling: logarithmic
    - name: batch_size
      type: integer
      min: 16
      max: 256
    - name: optimizer
      type: categorical
      choices: [sgd, adam, rmsprop]
`

func TestParseTuningSpec(t *testing.T) {
	job, err := ParseTuningSpec(fullSpec)
	require.NoError(t, err)

	assert.Equal(t, "resnet-sweep", job.Name)
	assert.Equal(t, "validation:accuracy", job.ObjectiveMetric)
	assert.Equal(t, models.DirectionMaximize, job.Direction)
	assert.Equal(t, 40, job.MaxTrials)
	assert.Equal(t, 4, job.MaxParallel)
	assert.Equal(t, models.StrategyBayesian, job.Strategy)
	assert.Equal(t, "ml.p3.2xlarge", job.Resources.InstanceType)
	assert.Equal(t, 2, job.Resources.InstanceCount)
	assert.Equal(t, 90*time.Minute, job.Resources.MaxRuntime)

	require.NotNil(t, job.Space)
	dims := job.Space.Dimensions()
	require.Len(t, dims, 3)
	assert.Equal(t, space.ScalingLogarithmic, dims[0].Scaling)
	assert.Equal(t, space.KindInteger, dims[1].Kind)
	assert.Equal(t, []string{"sgd", "adam", "rmsprop"}, dims[2].Choices)
}

func TestParseTuningSpecDefaults(t *testing.T) {
	job, err := ParseTuningSpec(`
tuning:
  budget:
    max_trials: 5
  parameters:
    - name: x
      type: continuous
      min: 0
      max: 1
`)
	require.NoError(t, err)

	assert.Equal(t, "objective", job.ObjectiveMetric)
	assert.Equal(t, models.DirectionMaximize, job.Direction)
	assert.Equal(t, 1, job.MaxParallel)
	assert.Equal(t, models.StrategyBayesian, job.Strategy)
	assert.Equal(t, 1, job.Resources.InstanceCount)
}

func TestParseTuningSpecErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "not yaml",
			yaml:    "{{{",
			wantErr: "failed to parse YAML",
		},
		{
			name: "missing budget",
			yaml: `
tuning:
  parameters:
    - name: x
      type: continuous
      min: 0
      max: 1
`,
			wantErr: "max_trials",
		},
		{
			name: "no parameters",
			yaml: `
tuning:
  budget:
    max_trials: 5
`,
			wantErr: "at least one parameter",
		},
		{
			name: "unknown parameter type",
			yaml: `
tuning:
  budget:
    max_trials: 5
  parameters:
    - name: x
      type: boolean
`,
			wantErr: "unknown type",
		},
		{
			name: "numeric without bounds",
			yaml: `
tuning:
  budget:
    max_trials: 5
  parameters:
    - name: x
      type: continuous
`,
			wantErr: "require min and max",
		},
		{
			name: "invalid direction",
			yaml: `
tuning:
  budget:
    max_trials: 5
  objective:
    direction: sideways
  parameters:
    - name: x
      type: continuous
      min: 0
      max: 1
`,
			wantErr: "invalid objective direction",
		},
		{
			name: "invalid strategy",
			yaml: `
tuning:
  budget:
    max_trials: 5
  strategy: annealing
  parameters:
    - name: x
      type: continuous
      min: 0
      max: 1
`,
			wantErr: "invalid strategy",
		},
		{
			name: "invalid space",
			yaml: `
tuning:
  budget:
    max_trials: 5
  parameters:
    - name: x
      type: continuous
      min: 2
      max: 1
`,
			wantErr: "invalid parameter space",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTuningSpec(tt.yaml)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
