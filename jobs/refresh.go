package jobs

import (
	"finsync/pipeline"
	"finsync/source"
)

// Refresh is a views-only run for callers that want the refresh pass on its
// own schedule (or as a separate crash domain).
func Refresh(d Deps) pipeline.Job {
	return pipeline.Job{
		Name:   "views",
		Source: source.NoAuth{},
		Views:  d.Cfg.Views,
	}
}
