package sensorapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/dwsmith1983/jobsensor/internal/sensor"
	"github.com/dwsmith1983/jobsensor/pkg/types"
)

// HandlePoke resolves the requested sensor, pokes it once and reports the
// normalized state.
func HandlePoke(ctx context.Context, d *Deps, req PokeRequest) (PokeResponse, error) {
	cfg, err := resolve(d, req)
	if err != nil {
		d.Logger.Error("invalid poke request", "taskID", req.TaskID, "error", err)
		return PokeResponse{TaskID: req.TaskID, State: types.PokeError, Message: err.Error()}, nil
	}

	var opts []sensor.Option
	if !req.StartedAt.IsZero() {
		opts = append(opts, sensor.WithStartTime(req.StartedAt))
	}

	state, err := d.Runner.Poke(ctx, cfg, opts...)
	resp := PokeResponse{
		TaskID: cfg.TaskID,
		State:  state,
		Done:   state == types.PokeDone,
	}
	if err != nil {
		resp.Message = err.Error()
		var terr *sensor.TerminalError
		if errors.As(err, &terr) {
			d.Logger.Warn("sensor reached terminal state", "task", cfg.TaskID, "state", state, "error", err)
		} else {
			d.Logger.Error("poke failed", "task", cfg.TaskID, "sensorType", cfg.Type, "error", err)
		}
	}
	return resp, nil
}

func resolve(d *Deps, req PokeRequest) (types.SensorConfig, error) {
	if req.Sensor != nil {
		cfg := *req.Sensor
		if cfg.TaskID == "" {
			cfg.TaskID = req.TaskID
		}
		return cfg, nil
	}
	if req.TaskID == "" {
		return types.SensorConfig{}, fmt.Errorf("request needs a taskId or an inline sensor")
	}
	if d.Project == nil {
		return types.SensorConfig{}, fmt.Errorf("no project config loaded; cannot resolve task %q", req.TaskID)
	}
	cfg, ok := d.Project.Sensor(req.TaskID)
	if !ok {
		return types.SensorConfig{}, fmt.Errorf("unknown task %q", req.TaskID)
	}
	return cfg, nil
}
