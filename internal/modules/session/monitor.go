package session

import (
	"context"
	"time"

	"riderhub/internal/events"
	"riderhub/internal/modules/earnings"
	"riderhub/internal/modules/verification"
	"riderhub/internal/types"
)

type verificationRequest struct {
	DriverID    types.ID  `json:"driver_id"`
	OnlineSince time.Time `json:"online_since"`
	RequestedAt time.Time `json:"requested_at"`
}

// CheckVerifications evaluates the verification policy for every online
// session and returns the drivers that were prompted.
func (s *Service) CheckVerifications(ctx context.Context) []types.ID {
	now := s.opts.Now()
	var prompted []types.ID
	for _, sess := range s.snapshotSessions() {
		sess.mu.Lock()
		state := verification.State{
			Online:         sess.online,
			OnlineSince:    sess.onlineSince,
			CompletedToday: sess.ledger.Aggregate(earnings.PeriodDay, now).Deliveries,
			Evaluated:      sess.verificationEvaluated,
		}
		switch s.opts.Verification.Evaluate(state, now, s.opts.Draw) {
		case verification.Skip:
			sess.verificationEvaluated = true
		case verification.Prompt:
			sess.verificationEvaluated = true
			sess.verificationPending = true
			prompted = append(prompted, sess.driverID)
			s.publish(ctx, events.TypeVerificationRequested, sess.driverID, verificationRequest{
				DriverID:    sess.driverID,
				OnlineSince: sess.onlineSince,
				RequestedAt: now,
			})
			s.opts.Log.WithField("driver_id", sess.driverID).Info("verification requested")
		}
		sess.mu.Unlock()
	}
	return prompted
}

// AckVerification clears a pending verification prompt.
func (s *Service) AckVerification(ctx context.Context, driverID types.ID) (DriverStatus, error) {
	sess, err := s.session(ctx, driverID)
	if err != nil {
		return DriverStatus{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.verificationPending = false
	return sess.status(), nil
}

func (s *Service) RunVerificationMonitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckVerifications(ctx)
		}
	}
}
