package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-news-curator/internal/logger"
	"github.com/samvad-hq/samvad-news-curator/pkg/providers"
)

// Service coordinates curation passes across multiple feeds.
type Service struct {
	processor *ProviderProcessor
	log       logger.Logger
}

// NewService wires a crawler around a ProviderProcessor built from deps.
func NewService(deps Deps) *Service {
	return &Service{
		processor: NewProviderProcessor(deps),
		log:       logger.Ensure(deps.Log),
	}
}

// Run executes a curation pass for all configured feeds. Feeds are processed
// in order; a failing feed is logged and does not stop the others.
func (s *Service) Run(ctx context.Context, cfgs []providers.Provider) error {
	if s == nil || s.processor == nil {
		return fmt.Errorf("crawler service is not initialized")
	}

	if len(cfgs) == 0 {
		return fmt.Errorf("no providers configured for crawling")
	}

	errs := s.runAll(ctx, cfgs)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func (s *Service) runAll(ctx context.Context, cfgs []providers.Provider) []error {
	errs := make([]error, 0, len(cfgs))

	for i, cfg := range cfgs {
		if ctx.Err() != nil {
			s.log.WarnObj("curation pass interrupted", "crawl_interrupted", map[string]any{
				"remaining_providers": len(cfgs) - i,
			})
			break
		}
		if err := s.processor.Process(ctx, cfg, i); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				break
			}
			errs = append(errs, err)
			s.log.ErrorObj("provider curation failed", "provider_error", map[string]any{
				"provider_id": cfg.ID,
				"error":       err.Error(),
			})
		}
	}

	return errs
}
