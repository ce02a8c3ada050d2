package cron

import (
	"context"
	"fmt"
)

// Job is one unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in registration order. Names are unique: registering a
// second job under an existing name replaces the first in place.
type Registry struct {
	jobs  []Job
	index map[string]int
}

func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{index: map[string]int{}}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	if r.index == nil {
		r.index = map[string]int{}
	}
	if pos, ok := r.index[job.Name()]; ok {
		r.jobs[pos] = job
		return
	}
	r.index[job.Name()] = len(r.jobs)
	r.jobs = append(r.jobs, job)
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

// Select returns the named jobs in registration order, or every job when no
// names are given. Unknown names are an error.
func (r *Registry) Select(names ...string) ([]Job, error) {
	if len(names) == 0 {
		return r.Jobs(), nil
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := r.index[name]; !ok {
			return nil, fmt.Errorf("unknown cron job %q (registered: %v)", name, r.Names())
		}
		wanted[name] = true
	}
	selected := make([]Job, 0, len(wanted))
	for _, job := range r.jobs {
		if wanted[job.Name()] {
			selected = append(selected, job)
		}
	}
	return selected, nil
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = job.Name()
	}
	return names
}
