package ospmagnum

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/Ben-Bingham/osp-magnum/planeta"
	"github.com/Ben-Bingham/osp-magnum/tasks"
)

func TestSimStep(t *testing.T) {
	sim := NewSim(SimOptions{Radius: 50.0, Height: 2.0, Scale: 10, Workers: 2})

	err := sim.Step(context.Background(), planeta.Vector3{Z: 50.0})
	assert.Nil(t, err)

	terrain := sim.Terrain()
	assert.GreaterOrEqual(t, terrain.Skeleton.TriGroupCount(), uint(5), "terrain must be seeded")
	assert.Nil(t, planeta.CheckRules(terrain))
	assert.GreaterOrEqual(t, planeta.MaxDepth(terrain), 3)
	assert.False(t, sim.Exec().AnyRunning())
}

func TestSimStepFarContracts(t *testing.T) {
	sim := NewSim(SimOptions{Radius: 50.0, Height: 2.0, Scale: 10})

	assert.Nil(t, sim.Step(context.Background(), planeta.Vector3{Z: 50.0}))
	assert.Greater(t, planeta.MaxDepth(sim.Terrain()), 0)

	assert.Nil(t, sim.Step(context.Background(), planeta.Vector3{Z: 5000.0}))
	assert.Equal(t, 0, planeta.MaxDepth(sim.Terrain()))
	assert.Equal(t, uint(5), sim.Terrain().Skeleton.TriGroupCount())
	assert.Nil(t, planeta.CheckRules(sim.Terrain()))
}

func TestSimEventLog(t *testing.T) {
	sim := NewSim(SimOptions{Radius: 50.0, Height: 2.0, Scale: 10})

	assert.Nil(t, sim.Step(context.Background(), planeta.Vector3{Z: 50.0}))

	log := sim.Exec().LogMsg
	assert.NotEmpty(t, log)

	completions := 0
	for _, ev := range log {
		if _, is := ev.(tasks.CompleteTask); is {
			completions++
		}
	}
	assert.Equal(t, 2, completions, "both frame tasks completed")
}

func TestSimCollectors(t *testing.T) {
	sim := NewSim(SimOptions{Radius: 50.0, Height: 2.0, Scale: 10})
	assert.Nil(t, sim.Step(context.Background(), planeta.Vector3{Z: 50.0}))

	reg := prometheus.NewPedanticRegistry()
	for _, c := range sim.Collectors() {
		assert.Nil(t, reg.Register(c))
	}
	metrics, err := reg.Gather()
	assert.Nil(t, err)
	assert.NotEmpty(t, metrics)
}
