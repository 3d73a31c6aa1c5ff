// Package hook holds the cloud API clients that sensors poke through. Hooks
// create SDK clients lazily, one per region, and apply the connection's
// credentials, endpoint override and circuit breaker.
package hook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	dataproc "cloud.google.com/go/dataproc/v2/apiv1"
	dataprocpb "cloud.google.com/go/dataproc/v2/apiv1/dataprocpb"
	"github.com/dwsmith1983/jobsensor/pkg/types"
	"google.golang.org/api/option"
)

// JobControllerAPI is the subset of the Dataproc JobController client used by the hook.
type JobControllerAPI interface {
	GetJob(ctx context.Context, req *dataprocpb.GetJobRequest) (*dataprocpb.Job, error)
	Close() error
}

// BatchControllerAPI is the subset of the Dataproc BatchController client used by the hook.
type BatchControllerAPI interface {
	GetBatch(ctx context.Context, req *dataprocpb.GetBatchRequest) (*dataprocpb.Batch, error)
	Close() error
}

type jobControllerWrapper struct {
	client *dataproc.JobControllerClient
}

func (w *jobControllerWrapper) GetJob(ctx context.Context, req *dataprocpb.GetJobRequest) (*dataprocpb.Job, error) {
	return w.client.GetJob(ctx, req)
}

func (w *jobControllerWrapper) Close() error { return w.client.Close() }

type batchControllerWrapper struct {
	client *dataproc.BatchControllerClient
}

func (w *batchControllerWrapper) GetBatch(ctx context.Context, req *dataprocpb.GetBatchRequest) (*dataprocpb.Batch, error) {
	return w.client.GetBatch(ctx, req)
}

func (w *batchControllerWrapper) Close() error { return w.client.Close() }

// DataprocOption configures a Dataproc hook.
type DataprocOption func(*Dataproc)

// WithJobController sets the JobController used for every region (useful for testing).
func WithJobController(c JobControllerAPI) DataprocOption {
	return func(d *Dataproc) { d.jobOverride = c }
}

// WithBatchController sets the BatchController used for every region.
func WithBatchController(c BatchControllerAPI) DataprocOption {
	return func(d *Dataproc) { d.batchOverride = c }
}

// WithDataprocLogger sets the logger used for breaker state changes.
func WithDataprocLogger(l *slog.Logger) DataprocOption {
	return func(d *Dataproc) { d.logger = l }
}

// Dataproc reads jobs and batches from the Dataproc API. It satisfies
// sensor.DataprocJobClient and sensor.DataprocBatchClient.
type Dataproc struct {
	conn   types.Connection
	logger *slog.Logger

	mu            sync.Mutex
	jobs          map[string]JobControllerAPI
	batches       map[string]BatchControllerAPI
	jobOverride   JobControllerAPI
	batchOverride BatchControllerAPI

	breaker *breaker
}

// NewDataproc creates a hook for the given GCP connection. The zero Connection
// uses application default credentials.
func NewDataproc(conn types.Connection, opts ...DataprocOption) *Dataproc {
	d := &Dataproc{
		conn:    conn,
		logger:  slog.Default(),
		jobs:    make(map[string]JobControllerAPI),
		batches: make(map[string]BatchControllerAPI),
	}
	for _, o := range opts {
		o(d)
	}
	d.breaker = newBreaker(breakerName(conn, "dataproc"), conn.Breaker, d.logger)
	return d
}

// GetJob fetches a job from the given region.
func (d *Dataproc) GetJob(ctx context.Context, jobID, region, projectID string) (*dataprocpb.Job, error) {
	client, err := d.jobController(ctx, region)
	if err != nil {
		return nil, err
	}
	return execute(d.breaker, func() (*dataprocpb.Job, error) {
		return client.GetJob(ctx, &dataprocpb.GetJobRequest{
			ProjectId: projectID,
			Region:    region,
			JobId:     jobID,
		})
	})
}

// GetBatch fetches a batch from the given region.
func (d *Dataproc) GetBatch(ctx context.Context, batchID, region, projectID string) (*dataprocpb.Batch, error) {
	client, err := d.batchController(ctx, region)
	if err != nil {
		return nil, err
	}
	return execute(d.breaker, func() (*dataprocpb.Batch, error) {
		return client.GetBatch(ctx, &dataprocpb.GetBatchRequest{
			Name: BatchName(projectID, region, batchID),
		})
	})
}

// BatchName returns the fully qualified resource name of a batch.
func BatchName(projectID, region, batchID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/batches/%s", projectID, region, batchID)
}

// Close releases every client the hook created. Injected clients are left open.
func (d *Dataproc) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for region, c := range d.jobs {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing job controller for %s: %w", region, err))
		}
	}
	for region, c := range d.batches {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing batch controller for %s: %w", region, err))
		}
	}
	clear(d.jobs)
	clear(d.batches)
	return errors.Join(errs...)
}

func (d *Dataproc) jobController(ctx context.Context, region string) (JobControllerAPI, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.jobOverride != nil {
		return d.jobOverride, nil
	}
	if c, ok := d.jobs[region]; ok {
		return c, nil
	}
	client, err := dataproc.NewJobControllerClient(ctx, d.clientOptions(region)...)
	if err != nil {
		return nil, fmt.Errorf("creating Dataproc job client for %s: %w", region, err)
	}
	c := &jobControllerWrapper{client: client}
	d.jobs[region] = c
	return c, nil
}

func (d *Dataproc) batchController(ctx context.Context, region string) (BatchControllerAPI, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.batchOverride != nil {
		return d.batchOverride, nil
	}
	if c, ok := d.batches[region]; ok {
		return c, nil
	}
	client, err := dataproc.NewBatchControllerClient(ctx, d.clientOptions(region)...)
	if err != nil {
		return nil, fmt.Errorf("creating Dataproc batch client for %s: %w", region, err)
	}
	c := &batchControllerWrapper{client: client}
	d.batches[region] = c
	return c, nil
}

func (d *Dataproc) clientOptions(region string) []option.ClientOption {
	opts := []option.ClientOption{option.WithEndpoint(Endpoint(d.conn, region))}
	if d.conn.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(d.conn.CredentialsFile))
	}
	if d.conn.QuotaProject != "" {
		opts = append(opts, option.WithQuotaProject(d.conn.QuotaProject))
	}
	return opts
}

// Endpoint returns the Dataproc endpoint for region. Jobs and batches live in
// regional endpoints; "global" uses the default one.
func Endpoint(conn types.Connection, region string) string {
	if conn.Endpoint != "" {
		return conn.Endpoint
	}
	if region == "" || region == "global" {
		return "dataproc.googleapis.com:443"
	}
	return region + "-dataproc.googleapis.com:443"
}

func breakerName(conn types.Connection, service string) string {
	if conn.ID == "" {
		return service
	}
	return conn.ID + "/" + service
}
