package worker

import (
	"context"
	"fmt"
	"log/slog"
	"reward-service/internal/repository"
)

// NewLedgerAuditJob builds the periodic balance watchdog: it recomputes
// every user's points total from the ledger and logs any row whose stored
// aggregate disagrees. The job only reports; reconciliation is a manual
// operation.
func NewLedgerAuditJob(userRepo *repository.UserRepository) Job {
	return func(ctx context.Context) error {
		drifts, err := userRepo.FindBalanceDrift(ctx)
		if err != nil {
			return fmt.Errorf("ledger audit failed: %w", err)
		}

		if len(drifts) == 0 {
			slog.Debug("Ledger audit clean")
			return nil
		}

		for _, drift := range drifts {
			slog.Error("Ledger balance drift detected",
				"user_id", drift.UserID,
				"stored_total", drift.StoredTotal,
				"ledger_total", drift.LedgerTotal)
		}

		return fmt.Errorf("ledger audit found %d drifted balances", len(drifts))
	}
}
