package fakes

import "github.com/vtacosim/detectsweep/simnode"

// EnvHooks can be used to override the paths returned by the fake environment.
type EnvHooks struct {
	DevPCIPath func(dev string) string
	DevShmPath func(dev string) string
}

var _ = simnode.Env(&fakeEnv{})

// fakeEnv implements simnode.Env with fixed paths.
type fakeEnv struct {
	hooks EnvHooks
}

// NewEnv creates a runner environment rooted at /work and /shm.
func NewEnv(hooks *EnvHooks) simnode.Env {
	e := &fakeEnv{}
	if hooks != nil {
		e.hooks = *hooks
	}
	return e
}

func (e *fakeEnv) DevPCIPath(dev string) string {
	if e.hooks.DevPCIPath != nil {
		return e.hooks.DevPCIPath(dev)
	}
	return "/work/dev.pci." + dev
}

func (e *fakeEnv) DevShmPath(dev string) string {
	if e.hooks.DevShmPath != nil {
		return e.hooks.DevShmPath(dev)
	}
	return "/shm/dev.shm." + dev
}
