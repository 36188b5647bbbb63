package stream

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Task is one long-running stream loop.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// RunTasks runs every task on the shared context and waits for all of
// them. A task's failure ends that task only: it is logged, the context
// stays live, and the sibling tasks keep running until they finish on
// their own or the context is canceled.
func RunTasks(ctx context.Context, logger *zap.Logger, tasks ...Task) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()
			err := task.Run(ctx)
			if err == nil || ctx.Err() != nil {
				return
			}
			logger.Error("stream task ended", zap.String("task", task.Name), zap.Error(err))
		}(task)
	}
	wg.Wait()
}
