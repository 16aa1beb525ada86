package events

import (
	"context"

	"go.uber.org/zap"
)

// Publisher delivers engine events to downstream consumers. Publishing is
// best-effort and happens after the engine operation has committed: a failed
// publish is logged by the caller, never surfaced to the bettor.
type Publisher interface {
	PublishBetPlaced(ctx context.Context, e BetPlaced) error
	PublishDuelResolved(ctx context.Context, e DuelResolved) error
	PublishDuelCancelled(ctx context.Context, e DuelCancelled) error

	// Close flushes and releases the publisher.
	Close() error
}

// ConsolePublisher logs events instead of delivering them. Default for
// development (EVENTS_MODE=console).
type ConsolePublisher struct {
	logger *zap.Logger
}

// NewConsolePublisher creates a console publisher.
func NewConsolePublisher(logger *zap.Logger) *ConsolePublisher {
	logger.Info("console-publisher-initialized")
	return &ConsolePublisher{logger: logger}
}

// PublishBetPlaced logs a bet-placed event.
func (c *ConsolePublisher) PublishBetPlaced(ctx context.Context, e BetPlaced) error {
	c.logger.Info("event-bet-placed",
		zap.String("bet-id", e.BetID),
		zap.String("duel-id", e.DuelID),
		zap.String("bettor", e.BettorAccountID),
		zap.Int64("amount", e.Amount),
		zap.String("prediction", e.Prediction))
	return nil
}

// PublishDuelResolved logs a duel-resolved event.
func (c *ConsolePublisher) PublishDuelResolved(ctx context.Context, e DuelResolved) error {
	c.logger.Info("event-duel-resolved",
		zap.String("duel-id", e.DuelID),
		zap.String("winner-id", e.WinnerID),
		zap.Int64("total-pool", e.TotalPool),
		zap.Int64("winning-pool", e.WinningPool),
		zap.Int64("paid-out", e.PaidOut))
	return nil
}

// PublishDuelCancelled logs a duel-cancelled event.
func (c *ConsolePublisher) PublishDuelCancelled(ctx context.Context, e DuelCancelled) error {
	c.logger.Info("event-duel-cancelled",
		zap.String("duel-id", e.DuelID),
		zap.String("reason", e.Reason),
		zap.Int64("refunded", e.Refunded))
	return nil
}

// Close is a no-op for the console publisher.
func (c *ConsolePublisher) Close() error {
	return nil
}

// Fanout publishes each event to every member, returning the first error
// after attempting all of them.
type Fanout []Publisher

// PublishBetPlaced fans the event out to all members.
func (f Fanout) PublishBetPlaced(ctx context.Context, e BetPlaced) error {
	var first error
	for _, p := range f {
		err := p.PublishBetPlaced(ctx, e)
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

// PublishDuelResolved fans the event out to all members.
func (f Fanout) PublishDuelResolved(ctx context.Context, e DuelResolved) error {
	var first error
	for _, p := range f {
		err := p.PublishDuelResolved(ctx, e)
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

// PublishDuelCancelled fans the event out to all members.
func (f Fanout) PublishDuelCancelled(ctx context.Context, e DuelCancelled) error {
	var first error
	for _, p := range f {
		err := p.PublishDuelCancelled(ctx, e)
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every member.
func (f Fanout) Close() error {
	var first error
	for _, p := range f {
		err := p.Close()
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}
