package application

import (
	"context"
	"fmt"

	"dareledger/config"
	"dareledger/domain"
	"dareledger/domain/entities"
	"dareledger/domain/interfaces"
	"dareledger/domain/services"

	"github.com/raulk/clock"
	log "github.com/sirupsen/logrus"
)

// ReconciliationRecorder receives the headline numbers of each report
type ReconciliationRecorder interface {
	RecordReconciliation(delta int64, outstanding int)
}

// ReconciliationReporter compares custody with the ledger. It never writes.
type ReconciliationReporter struct {
	uowFactory UnitOfWorkFactory
	custodian  interfaces.FundsCustodian
	clock      clock.Clock
	calculator *services.PayoutCalculator
	recorder   ReconciliationRecorder
}

// NewReconciliationReporter creates a new reporter. recorder may be nil.
func NewReconciliationReporter(
	uowFactory UnitOfWorkFactory,
	custodian interfaces.FundsCustodian,
	clk clock.Clock,
	recorder ReconciliationRecorder,
) *ReconciliationReporter {
	cfg := config.Get()
	return &ReconciliationReporter{
		uowFactory: uowFactory,
		custodian:  custodian,
		clock:      clk,
		calculator: services.NewPayoutCalculator(cfg.PayoutRules(), cfg.NativeUnitsPerMinorUnit),
		recorder:   recorder,
	}
}

// Reconcile builds a report from one consistent ledger snapshot and the custodian's view
func (r *ReconciliationReporter) Reconcile(ctx context.Context) (*entities.ReconciliationReport, error) {
	input := services.ReconciliationInput{
		GeneratedAt: r.clock.Now().UTC(),
		Bets:        make(map[int64][]*entities.Bet),
		Claims:      make(map[int64][]*entities.PayoutClaim),
	}

	var outstanding []*entities.PayoutClaim
	err := withSnapshot(ctx, r.uowFactory, func(uow UnitOfWork) error {
		challenges, err := uow.ChallengeRepository().List(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to list challenges: %w", err)
		}
		input.Challenges = challenges

		for _, ch := range challenges {
			bets, err := uow.BetRepository().GetByChallenge(ctx, ch.ID)
			if err != nil {
				return fmt.Errorf("failed to get bets for challenge %d: %w", ch.ID, err)
			}
			claims, err := uow.PayoutClaimRepository().GetByChallenge(ctx, ch.ID)
			if err != nil {
				return fmt.Errorf("failed to get claims for challenge %d: %w", ch.ID, err)
			}
			input.Bets[ch.ID] = bets
			input.Claims[ch.ID] = claims

			for _, claim := range claims {
				if claim.IsOutstanding() {
					outstanding = append(outstanding, claim)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	balance, err := r.custodian.Balance(ctx)
	if err != nil {
		return nil, domain.ErrCustodianUnhealthy.WithMessage("failed to read custody balance").Wrap(err)
	}
	input.CustodianBalance = balance

	// Status check failures are reported per intent instead of failing the report
	input.Intents = make([]entities.IntentReconciliation, 0, len(outstanding))
	for _, claim := range outstanding {
		status, checkErr := r.custodian.TransferStatus(ctx, claim.IdempotencyKey)
		input.Intents = append(input.Intents, services.AnnotateIntent(claim, status, checkErr))
	}

	report := services.BuildReconciliationReport(input, r.calculator)

	fields := log.Fields{
		"custodian_balance": report.CustodianBalance,
		"expected_held":     report.ExpectedHeld,
		"retained":          report.Retained,
		"protocol_revenue":  report.ProtocolRevenue,
		"delta":             report.Delta,
		"outstanding":       len(report.OutstandingIntents),
	}
	if report.IsBalanced() {
		log.WithFields(fields).Info("Reconciliation balanced")
	} else {
		log.WithFields(fields).Warn("Reconciliation found a discrepancy")
	}

	if r.recorder != nil {
		r.recorder.RecordReconciliation(report.Delta, len(report.OutstandingIntents))
	}

	return report, nil
}
