package cron

import "context"

// Job is one housekeeping task. Name labels its logs and metrics, so it must
// be unique within a registry.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds housekeeping jobs in the order they run.
type Registry struct {
	jobs []Job
}

// NewRegistry registers jobs in order, skipping nils and repeated names.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register appends job and reports whether it was added. A job whose name is
// already taken is ignored, since both would share one metrics series.
func (r *Registry) Register(job Job) bool {
	if job == nil {
		return false
	}
	for _, existing := range r.jobs {
		if existing.Name() == job.Name() {
			return false
		}
	}
	r.jobs = append(r.jobs, job)
	return true
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}
