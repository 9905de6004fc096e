package app

import (
	"context"
	"sync"

	Logger "github.com/moastrends/newsroom/utils/log"
)

// Engine owns the execution lifecycle of a set of background modules. Each
// module runs in its own goroutine under the engine's root context; Shutdown
// cancels the root context and waits for every module to wind down.
type Engine struct {
	modules []Module

	ctx    context.Context
	cancel context.CancelFunc
}

func NewEngine(ms []Module) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		modules: ms,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Run executes all modules and blocks until every one of them finishes.
func (e *Engine) Run() {
	var wg sync.WaitGroup

	for idx := range e.modules {
		wg.Add(1)
		go func(m Module) {
			defer wg.Done()
			Logger.Log.Infof("start engine module %s", m.Name())
			RunModuleWithGracefulRestart(e.ctx, m)
			Logger.Log.Infof("module %s finished execution", m.Name())
		}(e.modules[idx])
	}

	wg.Wait()
}

// Shutdown cancels the root context and gives every module the chance to
// release what it holds.
func (e *Engine) Shutdown() {
	Logger.Log.Infoln("starting graceful shutdown process")
	e.cancel()

	var wg sync.WaitGroup
	for idx := range e.modules {
		wg.Add(1)
		go func(m Module) {
			defer wg.Done()
			m.Shutdown()
			Logger.Log.Infof("module %s shut down", m.Name())
		}(e.modules[idx])
	}

	wg.Wait()
}
