package application

import (
	"context"
	"fmt"
	"time"

	"rafflehub/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RaffleExpiryWorker closes raffles whose end time passed without enough
// correct entries, refunding their tickets
type RaffleExpiryWorker struct {
	uowFactory    UnitOfWorkFactory
	raffleService interfaces.RaffleService
	idleInterval  time.Duration
	now           func() time.Time
}

// NewRaffleExpiryWorker creates a new expiry worker. idleInterval bounds how
// long the worker sleeps when no active raffle is scheduled to end.
func NewRaffleExpiryWorker(uowFactory UnitOfWorkFactory, raffleService interfaces.RaffleService, idleInterval time.Duration) *RaffleExpiryWorker {
	if idleInterval <= 0 {
		idleInterval = time.Minute
	}
	return &RaffleExpiryWorker{
		uowFactory:    uowFactory,
		raffleService: raffleService,
		idleInterval:  idleInterval,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the expiry worker and returns a function that stops it
func (w *RaffleExpiryWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Info("Raffle expiry worker started")

		for {
			if _, err := w.ProcessExpired(ctx); err != nil {
				log.WithError(err).Error("Error processing expired raffles")
			}

			wait := w.nextWait(ctx)

			select {
			case <-ctx.Done():
				log.Info("Raffle expiry worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Raffle expiry worker shutting down (stop requested)...")
				return
			case <-time.After(wait):
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// nextWait sleeps until the next scheduled end time, capped at the idle interval
func (w *RaffleExpiryWorker) nextWait(ctx context.Context) time.Duration {
	next, err := w.nextEndTime(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to get next raffle end time")
		return w.idleInterval
	}
	if next == nil {
		log.WithField("interval", w.idleInterval).Debug("No active raffles, idling")
		return w.idleInterval
	}

	wait := next.Sub(w.now())
	if wait <= 0 {
		// A raffle that stays active past its end has met its threshold and
		// waits for an explicit conclusion, so avoid spinning on it
		return w.idleInterval
	}
	if wait > w.idleInterval {
		return w.idleInterval
	}
	return wait
}

func (w *RaffleExpiryWorker) nextEndTime(ctx context.Context) (*time.Time, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.RaffleRepository().GetNextEndTime(ctx)
}

// ProcessExpired expires every lapsed raffle, each in its own transaction,
// and returns how many were expired
func (w *RaffleExpiryWorker) ProcessExpired(ctx context.Context) (int, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	lapsed, err := uow.RaffleRepository().GetExpiredActive(ctx, w.now())
	uow.Rollback()
	if err != nil {
		return 0, fmt.Errorf("failed to get lapsed raffles: %w", err)
	}

	if len(lapsed) == 0 {
		return 0, nil
	}

	var expired, failed int
	for _, raffle := range lapsed {
		refunds, err := w.raffleService.ExpireRaffle(ctx, raffle.ID.String())
		if err != nil {
			log.WithError(err).WithField("raffleID", raffle.ID).Error("Failed to expire raffle")
			failed++
			continue
		}
		if refunds != nil {
			expired++
		}
	}

	entry := log.WithFields(log.Fields{
		"lapsed":  len(lapsed),
		"expired": expired,
		"failed":  failed,
	})
	if expired == 0 && failed == 0 {
		entry.Debug("Completed raffle expiry pass")
	} else {
		entry.Info("Completed raffle expiry pass")
	}

	return expired, nil
}
