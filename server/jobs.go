package server

import (
	"context"
	"fmt"

	"github.com/Daskott/kavach/server/activation"
	"github.com/Daskott/kavach/server/models"
)

const (
	ARTIFACT_SWEEP_TAG   = "artifact-sweep"
	ARTIFACT_SWEEP_LIMIT = 100
)

func (s *Server) registerJobHandlers() error {
	return s.workers.Register(activation.RENDER_QR_ARTIFACT_HANDLER, s.renderQRArtifact)
}

// scheduleJobs adds the periodic sweep that re-queues images which never
// made it to storage. Disabled when no schedule is configured.
func (s *Server) scheduleJobs() error {
	if s.config.Jobs.ArtifactSweepSchedule == "" {
		return nil
	}

	return s.workers.PeriodicallyPerform(s.config.Jobs.ArtifactSweepSchedule, ARTIFACT_SWEEP_TAG, s.sweepMissingArtifacts)
}

func (s *Server) renderQRArtifact(ctx context.Context, args map[string]interface{}) error {
	token, ok := args["token"].(string)
	if !ok || token == "" {
		return fmt.Errorf("renderQRArtifact: missing token in %v", args)
	}

	return s.producer.RenderAndStore(ctx, token)
}

func (s *Server) sweepMissingArtifacts() {
	tokens, err := models.TokensMissingArtifact(context.Background(), ARTIFACT_SWEEP_LIMIT)
	if err != nil {
		logg.Error(err)
		return
	}

	for _, token := range tokens {
		if err := s.workers.Perform(activation.RenderArtifactJob(token)); err != nil {
			logg.Error(err)
		}
	}

	if len(tokens) > 0 {
		logg.Infof("Queued %v missing QR images", len(tokens))
	}
}
