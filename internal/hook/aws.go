package hook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/emr"
	emrtypes "github.com/aws/aws-sdk-go-v2/service/emr/types"
	"github.com/aws/aws-sdk-go-v2/service/emrserverless"
	emrsltypes "github.com/aws/aws-sdk-go-v2/service/emrserverless/types"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/dwsmith1983/jobsensor/pkg/types"
)

// EMRAPI is the subset of the AWS EMR client used by the hook.
type EMRAPI interface {
	DescribeStep(ctx context.Context, params *emr.DescribeStepInput, optFns ...func(*emr.Options)) (*emr.DescribeStepOutput, error)
}

// EMRServerlessAPI is the subset of the AWS EMR Serverless client used by the hook.
type EMRServerlessAPI interface {
	GetJobRun(ctx context.Context, params *emrserverless.GetJobRunInput, optFns ...func(*emrserverless.Options)) (*emrserverless.GetJobRunOutput, error)
}

// GlueAPI is the subset of the AWS Glue client used by the hook.
type GlueAPI interface {
	GetJobRun(ctx context.Context, params *glue.GetJobRunInput, optFns ...func(*glue.Options)) (*glue.GetJobRunOutput, error)
}

// AWSOption configures an AWS hook.
type AWSOption func(*AWS)

// WithEMR sets the EMR client used for every region (useful for testing).
func WithEMR(c EMRAPI) AWSOption {
	return func(a *AWS) { a.emrOverride = c }
}

// WithEMRServerless sets the EMR Serverless client used for every region.
func WithEMRServerless(c EMRServerlessAPI) AWSOption {
	return func(a *AWS) { a.emrSLOverride = c }
}

// WithGlue sets the Glue client used for every region.
func WithGlue(c GlueAPI) AWSOption {
	return func(a *AWS) { a.glueOverride = c }
}

// WithAWSLogger sets the logger used for breaker state changes.
func WithAWSLogger(l *slog.Logger) AWSOption {
	return func(a *AWS) { a.logger = l }
}

// AWS reads EMR steps, EMR Serverless job runs and Glue job runs. It satisfies
// the sensor package's EMR, EMR Serverless and Glue client interfaces.
type AWS struct {
	conn   types.Connection
	logger *slog.Logger

	mu      sync.Mutex
	configs map[string]aws.Config
	emr     map[string]EMRAPI
	emrSL   map[string]EMRServerlessAPI
	glue    map[string]GlueAPI

	emrOverride   EMRAPI
	emrSLOverride EMRServerlessAPI
	glueOverride  GlueAPI

	breaker *breaker
}

// NewAWS creates a hook for the given AWS connection. The zero Connection uses
// the default credential chain.
func NewAWS(conn types.Connection, opts ...AWSOption) *AWS {
	a := &AWS{
		conn:    conn,
		logger:  slog.Default(),
		configs: make(map[string]aws.Config),
		emr:     make(map[string]EMRAPI),
		emrSL:   make(map[string]EMRServerlessAPI),
		glue:    make(map[string]GlueAPI),
	}
	for _, o := range opts {
		o(a)
	}
	a.breaker = newBreaker(breakerName(conn, "aws"), conn.Breaker, a.logger)
	return a
}

// EMRStepState returns the state of an EMR step and its failure message, if any.
func (a *AWS) EMRStepState(ctx context.Context, clusterID, stepID, region string) (emrtypes.StepState, string, error) {
	client, err := a.emrClient(ctx, region)
	if err != nil {
		return "", "", err
	}
	out, err := execute(a.breaker, func() (*emr.DescribeStepOutput, error) {
		return client.DescribeStep(ctx, &emr.DescribeStepInput{
			ClusterId: &clusterID,
			StepId:    &stepID,
		})
	})
	if err != nil {
		return "", "", fmt.Errorf("DescribeStep: %w", err)
	}
	if out.Step == nil || out.Step.Status == nil {
		return "", "", fmt.Errorf("DescribeStep returned no status for step %s", stepID)
	}

	status := out.Step.Status
	var detail string
	if status.FailureDetails != nil {
		detail = aws.ToString(status.FailureDetails.Message)
	}
	if detail == "" && status.StateChangeReason != nil {
		detail = aws.ToString(status.StateChangeReason.Message)
	}
	return status.State, detail, nil
}

// EMRServerlessJobRunState returns the state of an EMR Serverless job run.
func (a *AWS) EMRServerlessJobRunState(ctx context.Context, applicationID, jobRunID, region string) (emrsltypes.JobRunState, string, error) {
	client, err := a.emrServerlessClient(ctx, region)
	if err != nil {
		return "", "", err
	}
	out, err := execute(a.breaker, func() (*emrserverless.GetJobRunOutput, error) {
		return client.GetJobRun(ctx, &emrserverless.GetJobRunInput{
			ApplicationId: &applicationID,
			JobRunId:      &jobRunID,
		})
	})
	if err != nil {
		return "", "", fmt.Errorf("GetJobRun: %w", err)
	}
	if out.JobRun == nil {
		return "", "", fmt.Errorf("GetJobRun returned no job run for %s", jobRunID)
	}
	return out.JobRun.State, aws.ToString(out.JobRun.StateDetails), nil
}

// GlueJobRunState returns the state of a Glue job run.
func (a *AWS) GlueJobRunState(ctx context.Context, jobName, runID, region string) (gluetypes.JobRunState, string, error) {
	client, err := a.glueClient(ctx, region)
	if err != nil {
		return "", "", err
	}
	out, err := execute(a.breaker, func() (*glue.GetJobRunOutput, error) {
		return client.GetJobRun(ctx, &glue.GetJobRunInput{
			JobName: &jobName,
			RunId:   &runID,
		})
	})
	if err != nil {
		return "", "", fmt.Errorf("GetJobRun: %w", err)
	}
	if out.JobRun == nil {
		return "", "", fmt.Errorf("GetJobRun returned no job run for %s", runID)
	}
	return out.JobRun.JobRunState, aws.ToString(out.JobRun.ErrorMessage), nil
}

// loadConfig returns the SDK config for region. Caller holds a.mu.
func (a *AWS) loadConfig(ctx context.Context, region string) (aws.Config, error) {
	if cfg, ok := a.configs[region]; ok {
		return cfg, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if a.conn.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(a.conn.Profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config for %s: %w", region, err)
	}
	a.configs[region] = cfg
	return cfg, nil
}

func (a *AWS) baseEndpoint() *string {
	if a.conn.Endpoint == "" {
		return nil
	}
	return aws.String(a.conn.Endpoint)
}

func (a *AWS) emrClient(ctx context.Context, region string) (EMRAPI, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.emrOverride != nil {
		return a.emrOverride, nil
	}
	if c, ok := a.emr[region]; ok {
		return c, nil
	}
	cfg, err := a.loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	c := emr.NewFromConfig(cfg, func(o *emr.Options) { o.BaseEndpoint = a.baseEndpoint() })
	a.emr[region] = c
	return c, nil
}

func (a *AWS) emrServerlessClient(ctx context.Context, region string) (EMRServerlessAPI, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.emrSLOverride != nil {
		return a.emrSLOverride, nil
	}
	if c, ok := a.emrSL[region]; ok {
		return c, nil
	}
	cfg, err := a.loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	c := emrserverless.NewFromConfig(cfg, func(o *emrserverless.Options) { o.BaseEndpoint = a.baseEndpoint() })
	a.emrSL[region] = c
	return c, nil
}

func (a *AWS) glueClient(ctx context.Context, region string) (GlueAPI, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.glueOverride != nil {
		return a.glueOverride, nil
	}
	if c, ok := a.glue[region]; ok {
		return c, nil
	}
	cfg, err := a.loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	c := glue.NewFromConfig(cfg, func(o *glue.Options) { o.BaseEndpoint = a.baseEndpoint() })
	a.glue[region] = c
	return c, nil
}
