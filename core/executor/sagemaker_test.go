package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypertuner/core/models"
	"hypertuner/core/space"
)

type fakeSageMakerAPI struct {
	createInput *sagemaker.CreateTrainingJobInput
	createErr   error

	describeOut *sagemaker.DescribeTrainingJobOutput
	describeErr error
}

func (f *fakeSageMakerAPI) CreateTrainingJob(_ context.Context, in *sagemaker.CreateTrainingJobInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateTrainingJobOutput, error) {
	f.createInput = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &sagemaker.CreateTrainingJobOutput{}, nil
}

func (f *fakeSageMakerAPI) DescribeTrainingJob(_ context.Context, _ *sagemaker.DescribeTrainingJobInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribeTrainingJobOutput, error) {
	return f.describeOut, f.describeErr
}

func testSageMakerExecutor(api *fakeSageMakerAPI) *SageMakerExecutor {
	return &SageMakerExecutor{
		client: api,
		opts: SageMakerOptions{
			Region:        "us-east-1",
			RoleARN:       "arn:aws:iam::123456789012:role/training",
			TrainingImage: "123456789012.dkr.ecr.us-east-1.amazonaws.com/train:latest",
			MetricName:    "validation:accuracy",
			S3OutputPath:  "s3://bucket/output",
			JobPrefix:     "hypertuner",
		},
	}
}

func TestSageMakerSubmitBuildsTrainingJob(t *testing.T) {
	api := &fakeSageMakerAPI{}
	e := testSageMakerExecutor(api)

	handle, err := e.Submit(context.Background(), space.Assignment{
		"learning_rate": 0.001,
		"batch_size":    64,
	}, models.ResourceSpec{InstanceType: "ml.p3.2xlarge", InstanceCount: 2})
	require.NoError(t, err)
	assert.NotEmpty(t, handle)

	require.NotNil(t, api.createInput)
	assert.Equal(t, string(handle), aws.ToString(api.createInput.TrainingJobName))
	assert.Equal(t, types.TrainingInstanceType("ml.p3.2xlarge"), api.createInput.ResourceConfig.InstanceType)
	assert.Equal(t, int32(2), aws.ToInt32(api.createInput.ResourceConfig.InstanceCount))
	assert.Equal(t, map[string]string{
		"learning_rate": "0.001",
		"batch_size":    "64",
	}, api.createInput.HyperParameters)
}

func TestSageMakerSubmitUnavailable(t *testing.T) {
	api := &fakeSageMakerAPI{createErr: fmt.Errorf("throttled")}
	e := testSageMakerExecutor(api)

	_, err := e.Submit(context.Background(), space.Assignment{"x": 1.0}, models.ResourceSpec{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSageMakerPollReadsObjectiveMetric(t *testing.T) {
	api := &fakeSageMakerAPI{
		describeOut: &sagemaker.DescribeTrainingJobOutput{
			TrainingJobStatus: types.TrainingJobStatusCompleted,
			FinalMetricDataList: []types.MetricData{
				{MetricName: aws.String("train:loss"), Value: aws.Float32(0.31)},
				{MetricName: aws.String("validation:accuracy"), Value: aws.Float32(0.91)},
			},
		},
	}
	e := testSageMakerExecutor(api)

	result, err := e.Poll(context.Background(), Handle("hypertuner-abc"))
	require.NoError(t, err)
	assert.Equal(t, models.TrialStatusCompleted, result.Status)
	assert.InDelta(t, 0.91, result.Objective, 1e-6)
}

func TestSageMakerPollStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		out        *sagemaker.DescribeTrainingJobOutput
		wantStatus models.TrialStatus
		wantReason string
	}{
		{
			name:       "in progress",
			out:        &sagemaker.DescribeTrainingJobOutput{TrainingJobStatus: types.TrainingJobStatusInProgress},
			wantStatus: models.TrialStatusRunning,
		},
		{
			name: "failed",
			out: &sagemaker.DescribeTrainingJobOutput{
				TrainingJobStatus: types.TrainingJobStatusFailed,
				FailureReason:     aws.String("AlgorithmError: loss is NaN"),
			},
			wantStatus: models.TrialStatusFailed,
			wantReason: "AlgorithmError: loss is NaN",
		},
		{
			name:       "stopped",
			out:        &sagemaker.DescribeTrainingJobOutput{TrainingJobStatus: types.TrainingJobStatusStopped},
			wantStatus: models.TrialStatusFailed,
			wantReason: "training job stopped",
		},
		{
			name: "completed without the objective metric",
			out: &sagemaker.DescribeTrainingJobOutput{
				TrainingJobStatus:   types.TrainingJobStatusCompleted,
				FinalMetricDataList: []types.MetricData{{MetricName: aws.String("train:loss"), Value: aws.Float32(0.2)}},
			},
			wantStatus: models.TrialStatusFailed,
			wantReason: `metric "validation:accuracy" not reported`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testSageMakerExecutor(&fakeSageMakerAPI{describeOut: tt.out})
			result, err := e.Poll(context.Background(), Handle("hypertuner-abc"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantReason, result.Reason)
		})
	}
}

func TestSageMakerPollDescribeError(t *testing.T) {
	e := testSageMakerExecutor(&fakeSageMakerAPI{describeErr: fmt.Errorf("job not found")})
	_, err := e.Poll(context.Background(), Handle("hypertuner-abc"))
	assert.Error(t, err)
}
