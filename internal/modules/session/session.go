// README: Per-driver session: online status, the single active delivery and the earnings ledger.
package session

import (
	"sync"
	"time"

	"riderhub/internal/modules/delivery"
	"riderhub/internal/modules/earnings"
	"riderhub/internal/types"
)

type Session struct {
	mu sync.Mutex

	driverID    types.ID
	online      bool
	onlineSince time.Time

	// verificationEvaluated is reset on every offline->online switch.
	verificationEvaluated bool
	verificationPending   bool

	active *delivery.Delivery
	ledger *earnings.Ledger
}

func newSession(driverID types.ID, ledger *earnings.Ledger) *Session {
	return &Session{driverID: driverID, ledger: ledger}
}

// DriverStatus is a point-in-time copy of a session.
type DriverStatus struct {
	DriverID            types.ID           `json:"driver_id"`
	Online              bool               `json:"online"`
	OnlineSince         *time.Time         `json:"online_since,omitempty"`
	VerificationPending bool               `json:"verification_pending"`
	Active              *delivery.Delivery `json:"active_delivery,omitempty"`
}

// status must be called with s.mu held.
func (s *Session) status() DriverStatus {
	st := DriverStatus{
		DriverID:            s.driverID,
		Online:              s.online,
		VerificationPending: s.verificationPending,
	}
	if s.online {
		since := s.onlineSince
		st.OnlineSince = &since
	}
	if s.active != nil {
		d := s.active.Clone()
		st.Active = &d
	}
	return st
}
