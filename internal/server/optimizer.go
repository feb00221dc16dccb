package server

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/TobiSchelling/postplanner/internal/scheduler"
)

func (s *Server) optimize(trigger string) (scheduler.OptimizationReport, error) {
	rep, err := s.ctl.OptimizeSchedule()
	s.metrics.optimizeRuns.WithLabelValues(trigger).Inc()
	return rep, err
}

// StartOptimizer runs OptimizeSchedule on a standard five-field cron spec in
// the audience timezone. Stop the returned cron to end it.
func (s *Server) StartOptimizer(spec string) (*cron.Cron, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithLocation(s.ctl.Location()))
	_, err := c.AddFunc(spec, func() {
		rep, err := s.optimize("cron")
		if err != nil {
			s.log.Error().Err(err).Msg("scheduled optimisation failed")
			return
		}
		s.log.Info().Int("rescheduled", rep.Rescheduled).Float64("confidence_delta", rep.ConfidenceDelta).
			Msg("scheduled optimisation complete")
	})
	if err != nil {
		return nil, fmt.Errorf("parsing optimize schedule %q: %w", spec, err)
	}
	c.Start()
	s.log.Info().Str("schedule", spec).Str("tz", s.ctl.Location().String()).Msg("optimizer started")
	return c, nil
}
