package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/polyflip/internal/logger"
	"github.com/rewired-gh/polyflip/internal/models"
	"github.com/rewired-gh/polyflip/internal/storage"
	"github.com/rewired-gh/polyflip/internal/telegram"
)

// orderSubmitter is the slice of the exchange client the submitter needs.
type orderSubmitter interface {
	SubmitBuy(ctx context.Context, tokenID string, side models.Side, price, size float64) (string, error)
}

// journalingSubmitter decorates the exchange client with journaling and
// notifications so the engine stays pure computation.
type journalingSubmitter struct {
	inner    orderSubmitter
	journal  *storage.Journal
	notifier *telegram.Notifier // nil when disabled
	session  *models.Session
}

func (s *journalingSubmitter) SubmitBuy(ctx context.Context, tokenID string, side models.Side, price, size float64) (string, error) {
	rec := &models.OrderRecord{
		ID:          uuid.New().String(),
		SessionSlug: s.session.Slug,
		TokenID:     tokenID,
		Side:        side,
		Price:       price,
		Size:        size,
		Status:      "submitted",
		CreatedAt:   time.Now(),
	}
	if err := s.journal.RecordOrder(rec); err != nil {
		logger.Warn("failed to journal order: %v", err)
	}
	if s.notifier != nil {
		if err := s.notifier.SendBuy(s.session.Slug, side, price, size); err != nil {
			logger.Warn("failed to send buy notification: %v", err)
		}
	}

	orderID, err := s.inner.SubmitBuy(ctx, tokenID, side, price, size)
	if err != nil {
		if jerr := s.journal.MarkOrderResult(rec.ID, "failed", err.Error()); jerr != nil {
			logger.Warn("failed to journal order failure: %v", jerr)
		}
		return "", err
	}

	if jerr := s.journal.MarkOrderResult(rec.ID, "accepted", orderID); jerr != nil {
		logger.Warn("failed to journal order result: %v", jerr)
	}
	return orderID, nil
}
