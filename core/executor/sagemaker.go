package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/google/uuid"

	"hypertuner/core/models"
	"hypertuner/core/space"
)

// SageMakerOptions configures the SageMaker-backed executor
type SageMakerOptions struct {
	Region        string
	RoleARN       string
	TrainingImage string
	// MetricName is the objective metric read from the final metric data
	// of a finished training job (e.g. "validation:auc")
	MetricName   string
	S3OutputPath string
	JobPrefix    string
}

// sageMakerAPI is the slice of the SageMaker client the executor uses
type sageMakerAPI interface {
	CreateTrainingJob(ctx context.Context, in *sagemaker.CreateTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateTrainingJobOutput, error)
	DescribeTrainingJob(ctx context.Context, in *sagemaker.DescribeTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeTrainingJobOutput, error)
}

// SageMakerExecutor submits each trial as a managed SageMaker training
// job, passing the assignment through as string hyperparameters
type SageMakerExecutor struct {
	client sageMakerAPI
	opts   SageMakerOptions
}

// NewSageMakerExecutor creates a SageMaker executor using the default
// AWS credential chain
func NewSageMakerExecutor(ctx context.Context, opts SageMakerOptions) (*SageMakerExecutor, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	if opts.JobPrefix == "" {
		opts.JobPrefix = "hypertuner"
	}

	return &SageMakerExecutor{
		client: sagemaker.NewFromConfig(cfg),
		opts:   opts,
	}, nil
}

// Submit starts a training job for the assignment
func (e *SageMakerExecutor) Submit(ctx context.Context, assignment space.Assignment, resources models.ResourceSpec) (Handle, error) {
	name := fmt.Sprintf("%s-%s", e.opts.JobPrefix, strings.Split(uuid.New().String(), "-")[0])

	instanceType := resources.InstanceType
	if instanceType == "" {
		instanceType = "ml.m5.xlarge"
	}
	instanceCount := int32(resources.InstanceCount)
	if instanceCount < 1 {
		instanceCount = 1
	}
	maxRuntime := int32(resources.MaxRuntime.Seconds())
	if maxRuntime < 1 {
		maxRuntime = 3600
	}

	input := &sagemaker.CreateTrainingJobInput{
		TrainingJobName: aws.String(name),
		RoleArn:         aws.String(e.opts.RoleARN),
		AlgorithmSpecification: &types.AlgorithmSpecification{
			TrainingImage:     aws.String(e.opts.TrainingImage),
			TrainingInputMode: types.TrainingInputModeFile,
		},
		ResourceConfig: &types.ResourceConfig{
			InstanceType:   types.TrainingInstanceType(instanceType),
			InstanceCount:  aws.Int32(instanceCount),
			VolumeSizeInGB: aws.Int32(50),
		},
		StoppingCondition: &types.StoppingCondition{
			MaxRuntimeInSeconds: aws.Int32(maxRuntime),
		},
		OutputDataConfig: &types.OutputDataConfig{
			S3OutputPath: aws.String(e.opts.S3OutputPath),
		},
		HyperParameters: formatHyperparameters(assignment),
	}

	if _, err := e.client.CreateTrainingJob(ctx, input); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return Handle(name), nil
}

// Poll maps the training-job status onto the trial lifecycle
func (e *SageMakerExecutor) Poll(ctx context.Context, handle Handle) (Result, error) {
	out, err := e.client.DescribeTrainingJob(ctx, &sagemaker.DescribeTrainingJobInput{
		TrainingJobName: aws.String(string(handle)),
	})
	if err != nil {
		return Result{}, fmt.Errorf("describing training job %q: %w", handle, err)
	}

	switch out.TrainingJobStatus {
	case types.TrainingJobStatusInProgress:
		return Result{Status: models.TrialStatusRunning}, nil
	case types.TrainingJobStatusCompleted:
		for _, m := range out.FinalMetricDataList {
			if aws.ToString(m.MetricName) == e.opts.MetricName {
				return Result{Status: models.TrialStatusCompleted, Objective: float64(aws.ToFloat32(m.Value))}, nil
			}
		}
		return Result{
			Status: models.TrialStatusFailed,
			Reason: fmt.Sprintf("metric %q not reported", e.opts.MetricName),
		}, nil
	case types.TrainingJobStatusFailed:
		return Result{Status: models.TrialStatusFailed, Reason: aws.ToString(out.FailureReason)}, nil
	case types.TrainingJobStatusStopped, types.TrainingJobStatusStopping:
		return Result{Status: models.TrialStatusFailed, Reason: "training job stopped"}, nil
	default:
		return Result{Status: models.TrialStatusPending}, nil
	}
}

func formatHyperparameters(assignment space.Assignment) map[string]string {
	hp := make(map[string]string, len(assignment))
	for name, value := range assignment {
		switch v := value.(type) {
		case float64:
			hp[name] = fmt.Sprintf("%g", v)
		case int:
			hp[name] = fmt.Sprintf("%d", v)
		default:
			hp[name] = fmt.Sprintf("%v", v)
		}
	}
	return hp
}
