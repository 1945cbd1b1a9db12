package executor

import (
	"fmt"
	"runtime/debug"

	"github.com/kbukum/demandflow/logger"
)

// Executor runs tasks. Submit must not block on the execution of the task.
type Executor interface {
	Submit(task func())
}

// Func adapts an ordinary function to the Executor interface.
type Func func(task func())

// Submit calls f(task).
func (f Func) Submit(task func()) { f(task) }

type immediate struct{}

// Immediate runs every task synchronously on the submitting goroutine.
func Immediate() Executor { return immediate{} }

func (immediate) Submit(task func()) { task() }

type goroutine struct {
	log *logger.Logger
}

// NewGoroutine runs every task on a new goroutine.
func NewGoroutine() Executor {
	return &goroutine{log: logger.Get("executor")}
}

func (g *goroutine) Submit(task func()) {
	go runTask(g.log, task)
}

// runTask runs task and logs a panic instead of crashing the process.
func runTask(log *logger.Logger, task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", logger.Fields(
				logger.FieldError, fmt.Sprint(r),
				"stack", string(debug.Stack()),
			))
		}
	}()
	task()
}
