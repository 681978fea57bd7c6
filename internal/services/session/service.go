package session

import (
	"context"

	"pythia/internal/domain/market"
	"pythia/internal/domain/session"
	"pythia/internal/metrics"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

// Service wraps the session repository with logging and the context
// write-backs the tool executor performs after each call.
type Service struct {
	repo session.Repository
	log  *logger.Logger
}

// NewService creates a new session service.
func NewService(repo session.Repository, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("service", "session"),
	}
}

// Context returns the stored context for a session id, creating it empty
// on first reference.
func (s *Service) Context(ctx context.Context, sessionID string) (session.Context, error) {
	c, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return session.Context{}, errors.Wrap(err, "failed to load session context")
	}
	s.trackCount(ctx)
	return c, nil
}

// RememberMarkets stores the last listed markets and, when the first entry
// carries one, its condition id for follow-up questions.
func (s *Service) RememberMarkets(ctx context.Context, sessionID string, markets []market.Market) error {
	partial := session.Partial{LastMarkets: &markets}
	if len(markets) > 0 && markets[0].ConditionID != "" {
		id := markets[0].ConditionID
		partial.LastConditionID = &id
	}
	return s.update(ctx, sessionID, partial)
}

// RememberCondition stores the condition id of the last viewed market.
func (s *Service) RememberCondition(ctx context.Context, sessionID, conditionID string) error {
	return s.update(ctx, sessionID, session.Partial{LastConditionID: &conditionID})
}

// RememberTrader stores the address of the last viewed trader.
func (s *Service) RememberTrader(ctx context.Context, sessionID, address string) error {
	return s.update(ctx, sessionID, session.Partial{LastTraderAddress: &address})
}

// Clear drops the session record; a later lookup recreates it empty.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.repo.Clear(ctx, sessionID); err != nil {
		return errors.Wrap(err, "failed to clear session")
	}
	s.trackCount(ctx)
	s.log.Infow("Session cleared", "session_id", sessionID)
	return nil
}

// ActiveSessions returns the live session count.
func (s *Service) ActiveSessions(ctx context.Context) (int, error) {
	return s.repo.Len(ctx)
}

func (s *Service) update(ctx context.Context, sessionID string, partial session.Partial) error {
	if err := s.repo.Update(ctx, sessionID, partial); err != nil {
		return errors.Wrap(err, "failed to update session context")
	}
	s.trackCount(ctx)
	return nil
}

// trackCount keeps the active-sessions gauge current; best-effort.
func (s *Service) trackCount(ctx context.Context) {
	if n, err := s.repo.Len(ctx); err == nil {
		metrics.SessionsActive.Set(float64(n))
	}
}
