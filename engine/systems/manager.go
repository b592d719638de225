package systems

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/gpu"
)

const defaultMaxGeometryCount = 4096

type SystemManager struct {
	GeometrySystem *GeometrySystem
	JobSystem      *JobSystem
}

func NewSystemManager(config *core.Config, device gpu.Device) (*SystemManager, error) {
	js, err := NewJobSystem(config.Assets.Workers, config.Assets.Workers*4)
	if err != nil {
		return nil, err
	}
	gs, err := NewGeometrySystem(GeometrySystemConfig{
		MaxGeometryCount: defaultMaxGeometryCount,
	}, device)
	if err != nil {
		_ = js.Shutdown()
		return nil, err
	}
	return &SystemManager{
		GeometrySystem: gs,
		JobSystem:      js,
	}, nil
}

func (sm *SystemManager) Shutdown() error {
	if err := sm.GeometrySystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.JobSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
