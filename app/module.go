package app

import (
	"context"
	"time"

	Logger "github.com/moastrends/newsroom/utils/log"
)

const gracefulRetryDelay = 3 * time.Second

// Module is a long-running background task owned by an Engine. Its lifetime
// is bound to the context the engine runs it with.
type Module interface {
	// RunModule contains the customized logic of the module. It takes in a
	// context object by which its lifecycle is managed. Return error if
	// encountered any error during execution.
	RunModule(ctx context.Context) error

	// Name uniquely identifies the module instance. If there are multiple
	// instances of the same module each instance should carry its own name.
	Name() string

	// Shutdown releases whatever the module holds beyond its run loop.
	Shutdown()
}

// RunModuleWithGracefulRestart keeps a module running, restarting it after a
// short pause whenever it exits with an error. A nil exit or a cancelled
// context ends the loop.
func RunModuleWithGracefulRestart(ctx context.Context, module Module) {
	for {
		err := module.RunModule(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		Logger.Log.Errorf("module %s exited with error %v, restart in %s",
			module.Name(), err, gracefulRetryDelay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(gracefulRetryDelay):
		}
	}
}
