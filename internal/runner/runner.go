// Package runner builds sensors from configuration and drives them: a single
// poke, or a wait loop that pokes on an interval until the sensor finishes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dwsmith1983/jobsensor/internal/hook"
	"github.com/dwsmith1983/jobsensor/internal/metrics"
	"github.com/dwsmith1983/jobsensor/internal/sensor"
	"github.com/dwsmith1983/jobsensor/pkg/types"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DataprocClient reads both Dataproc jobs and batches.
type DataprocClient interface {
	sensor.DataprocJobClient
	sensor.DataprocBatchClient
}

// Runner holds connections and injectable clients, and dispatches sensor
// construction across all supported sensor types.
type Runner struct {
	conns      map[string]types.Connection
	logger     *slog.Logger
	metrics    *metrics.Recorder
	tracer     trace.Tracer
	sensorOpts []sensor.Option

	mu           sync.Mutex
	dataprocHook map[string]*hook.Dataproc
	awsHook      map[string]*hook.AWS

	dataprocClient DataprocClient
	emrClient      sensor.EMRStepClient
	emrSLClient    sensor.EMRServerlessClient
	glueClient     sensor.GlueClient
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConnections registers the connections sensors may refer to.
func WithConnections(conns []types.Connection) RunnerOption {
	return func(r *Runner) {
		for _, c := range conns {
			r.conns[c.ID] = c
		}
	}
}

// WithLogger sets the logger handed to every sensor.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithTracerProvider sets the provider used to trace pokes.
func WithTracerProvider(tp trace.TracerProvider) RunnerOption {
	return func(r *Runner) {
		if tp != nil {
			r.tracer = tp.Tracer(metrics.ScopeName)
		}
	}
}

// WithSensorOptions appends options applied to every sensor the runner builds.
func WithSensorOptions(opts ...sensor.Option) RunnerOption {
	return func(r *Runner) { r.sensorOpts = append(r.sensorOpts, opts...) }
}

// WithDataprocClient sets a custom Dataproc client (useful for testing).
func WithDataprocClient(c DataprocClient) RunnerOption {
	return func(r *Runner) { r.dataprocClient = c }
}

// WithEMRClient sets a custom EMR step client.
func WithEMRClient(c sensor.EMRStepClient) RunnerOption {
	return func(r *Runner) { r.emrClient = c }
}

// WithEMRServerlessClient sets a custom EMR Serverless client.
func WithEMRServerlessClient(c sensor.EMRServerlessClient) RunnerOption {
	return func(r *Runner) { r.emrSLClient = c }
}

// WithGlueClient sets a custom Glue client.
func WithGlueClient(c sensor.GlueClient) RunnerOption {
	return func(r *Runner) { r.glueClient = c }
}

// NewRunner creates a Runner with the given options.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		conns:        make(map[string]types.Connection),
		logger:       slog.Default(),
		tracer:       noop.NewTracerProvider().Tracer(metrics.ScopeName),
		dataprocHook: make(map[string]*hook.Dataproc),
		awsHook:      make(map[string]*hook.AWS),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Build creates the sensor described by cfg. Extra options are applied after
// the runner's own. A GCP sensor without a projectId uses its connection's.
func (r *Runner) Build(cfg types.SensorConfig, opts ...sensor.Option) (sensor.Sensor, error) {
	conn, err := r.connection(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.ProjectID == "" && conn.Type == types.ConnectionGCP {
		cfg.ProjectID = conn.ProjectID
	}

	all := make([]sensor.Option, 0, len(r.sensorOpts)+len(opts)+1)
	all = append(all, sensor.WithLogger(r.logger))
	all = append(all, r.sensorOpts...)
	all = append(all, opts...)

	switch cfg.Type {
	case types.SensorDataprocJob:
		return built(sensor.NewDataprocJob(cfg, r.getDataprocClient(conn), all...))
	case types.SensorDataprocBatch:
		return built(sensor.NewDataprocBatch(cfg, r.getDataprocClient(conn), all...))
	case types.SensorEMRStep:
		var client sensor.EMRStepClient = r.emrClient
		if client == nil {
			client = r.getAWSHook(conn)
		}
		return built(sensor.NewEMRStep(cfg, client, all...))
	case types.SensorEMRServerlessJob:
		var client sensor.EMRServerlessClient = r.emrSLClient
		if client == nil {
			client = r.getAWSHook(conn)
		}
		return built(sensor.NewEMRServerlessJob(cfg, client, all...))
	case types.SensorGlueJob:
		var client sensor.GlueClient = r.glueClient
		if client == nil {
			client = r.getAWSHook(conn)
		}
		return built(sensor.NewGlueJob(cfg, client, all...))
	default:
		return nil, fmt.Errorf("unknown sensor type: %q", cfg.Type)
	}
}

// built keeps a failed constructor's typed nil out of the Sensor interface.
func built[S sensor.Sensor](s S, err error) (sensor.Sensor, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Poke builds the sensor and pokes it once.
func (r *Runner) Poke(ctx context.Context, cfg types.SensorConfig, opts ...sensor.Option) (types.PokeState, error) {
	s, err := r.Build(cfg, opts...)
	if err != nil {
		return types.PokeError, err
	}
	done, err := r.poke(ctx, s)
	return sensor.StateOf(done, err), err
}

// Close releases the clients the runner's hooks created.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, h := range r.dataprocHook {
		errs = append(errs, h.Close())
	}
	return errors.Join(errs...)
}

func (r *Runner) connection(cfg types.SensorConfig) (types.Connection, error) {
	if cfg.ConnectionID == "" {
		return types.Connection{Type: cfg.Type.ConnectionKind()}, nil
	}
	c, ok := r.conns[cfg.ConnectionID]
	if !ok {
		return types.Connection{}, fmt.Errorf("sensor %q: unknown connection %q", cfg.TaskID, cfg.ConnectionID)
	}
	return c, nil
}

func (r *Runner) getDataprocClient(conn types.Connection) DataprocClient {
	if r.dataprocClient != nil {
		return r.dataprocClient
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.dataprocHook[conn.ID]; ok {
		return h
	}
	h := hook.NewDataproc(conn, hook.WithDataprocLogger(r.logger))
	r.dataprocHook[conn.ID] = h
	return h
}

func (r *Runner) getAWSHook(conn types.Connection) *hook.AWS {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.awsHook[conn.ID]; ok {
		return h
	}
	h := hook.NewAWS(conn, hook.WithAWSLogger(r.logger))
	r.awsHook[conn.ID] = h
	return h
}
