package mecanumbase

import (
	"context"
	"sync"

	"go.viam.com/rdk/components/base"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
)

// SensorModel exposes the controller state as a standard sensor, so the
// diagnostic surface is readable without DoCommand plumbing.
var SensorModel = resource.NewModel("hopecollector", "mecanum-drive", "state-sensor")

func init() {
	resource.RegisterComponent(
		sensor.API,
		SensorModel,
		resource.Registration[sensor.Sensor, *StateSensorConfig]{Constructor: newStateSensor},
	)
}

// StateSensorConfig names the mecanum base to read state from.
type StateSensorConfig struct {
	Base string `json:"base"`
}

// Validate checks that a base is named and declares it as a dependency.
func (cfg *StateSensorConfig) Validate(path string) ([]string, error) {
	if cfg.Base == "" {
		return nil, resource.NewConfigValidationFieldRequiredError(path, "base")
	}
	return []string{cfg.Base}, nil
}

type stateSensor struct {
	resource.Named
	logger logging.Logger

	mu   sync.Mutex
	base base.Base
}

func newStateSensor(
	ctx context.Context,
	deps resource.Dependencies,
	conf resource.Config,
	logger logging.Logger,
) (sensor.Sensor, error) {
	s := &stateSensor{
		Named:  conf.ResourceName().AsNamed(),
		logger: logger,
	}
	if err := s.Reconfigure(ctx, deps, conf); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *stateSensor) Reconfigure(ctx context.Context, deps resource.Dependencies, conf resource.Config) error {
	cfg, err := resource.NativeConfig[*StateSensorConfig](conf)
	if err != nil {
		return err
	}
	b, err := base.FromDependencies(deps, cfg.Base)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.base = b
	s.mu.Unlock()
	return nil
}

// Readings forwards the base's get_state map.
func (s *stateSensor) Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
	s.mu.Lock()
	b := s.base
	s.mu.Unlock()
	return b.DoCommand(ctx, map[string]interface{}{"command": "get_state"})
}

// DoCommand passes commands straight through to the base.
func (s *stateSensor) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	s.mu.Lock()
	b := s.base
	s.mu.Unlock()
	return b.DoCommand(ctx, cmd)
}

func (s *stateSensor) Close(ctx context.Context) error {
	return nil
}
