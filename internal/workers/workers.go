package workers

type Workers struct {
	workers []Worker
}

// NewWorkers aggregates background workers so the application can start them
// with a single call.
func NewWorkers(list ...Worker) *Workers {
	return &Workers{workers: list}
}

func (w *Workers) Run() {
	for _, worker := range w.workers {
		worker.Run()
	}
}
