package worker

import "context"

// Func adapts a plain function to the Job interface.
type Func struct {
	JobName string
	Fn      func(context.Context) error
}

func (f Func) Name() string { return f.JobName }

func (f Func) Run(ctx context.Context) error { return f.Fn(ctx) }
