// internal/services/simulation_service.go
package services

import (
	"context"

	"github.com/javajoker/fifo-inventory/internal/inventory"
	"github.com/javajoker/fifo-inventory/internal/models"
	"github.com/javajoker/fifo-inventory/internal/simulator"
)

// EventApplier applies one inventory event.
type EventApplier interface {
	Apply(ctx context.Context, raw models.RawEvent) (*inventory.Result, error)
}

// SimulationService generates a random event and applies it in-process,
// as if an upstream producer had sent it.
type SimulationService struct {
	generator *simulator.Generator
	applier   EventApplier
}

func NewSimulationService(generator *simulator.Generator, applier EventApplier) *SimulationService {
	return &SimulationService{
		generator: generator,
		applier:   applier,
	}
}

// Simulate returns the generated event together with the outcome of
// applying it. A rejected event is returned with its error.
func (s *SimulationService) Simulate(ctx context.Context) (models.RawEvent, *inventory.Result, error) {
	raw := s.generator.Random()
	result, err := s.applier.Apply(ctx, raw)
	return raw, result, err
}
