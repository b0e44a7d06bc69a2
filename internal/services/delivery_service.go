package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"crm-messaging-server/internal/analytics"
	"crm-messaging-server/internal/metrics"
	"crm-messaging-server/internal/models"
	"crm-messaging-server/internal/notify"
	"crm-messaging-server/pkg/logger"

	"go.uber.org/zap"
)

// MessageStore is the persistence contract shared by the delivery and
// message services.
type MessageStore interface {
	Create(msg *models.Message) error
	FindByExternalID(externalID string) (*models.Message, error)
	UpdateStatus(externalID string, status models.MessageStatus, cause string, deliveredTS int64) error
	ListByConversation(conversationID string, limit, offset int) ([]*models.Message, error)
	MarkRead(conversationID string) (int64, error)
	Ping() error
}

// DeliveryService reconciles vendor delivery reports against stored
// messages. Per-item failures never abort a batch; only an unreachable
// store fails the whole request.
type DeliveryService struct {
	store     MessageStore
	notifier  notify.Notifier
	metrics   metrics.Sink
	analytics analytics.StatusRecorder
}

// NewDeliveryService wires the reconciler. notifier is the injected fan-out
// capability; recorder may be nil when analytics are disabled.
func NewDeliveryService(store MessageStore, notifier notify.Notifier, sink metrics.Sink, recorder analytics.StatusRecorder) *DeliveryService {
	if store == nil {
		panic("message store cannot be nil")
	}
	if notifier == nil {
		panic("notifier cannot be nil")
	}
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	return &DeliveryService{
		store:     store,
		notifier:  notifier,
		metrics:   sink,
		analytics: recorder,
	}
}

// ProcessReports applies a batch of delivery reports. Items run
// concurrently; each addresses its own message identifier, and when two
// reports share one, last-applied wins, matching the vendor's own lack of
// strict ordering. The returned error is non-nil only for a whole-batch
// store outage.
func (s *DeliveryService) ProcessReports(ctx context.Context, reports []models.DeliveryReport) (models.DeliveryResult, error) {
	result := models.DeliveryResult{Total: len(reports)}
	if len(reports) == 0 {
		return result, nil
	}

	if err := s.store.Ping(); err != nil {
		return result, fmt.Errorf("message store unavailable: %w", err)
	}

	s.metrics.BatchSize(len(reports))

	var processed, failed atomic.Int64
	var wg sync.WaitGroup
	for _, report := range reports {
		wg.Add(1)
		go func(report models.DeliveryReport) {
			defer wg.Done()

			if err := s.applyReport(ctx, report); err != nil {
				failed.Add(1)
				s.metrics.ReportFailed()
				logger.Warn("Failed to apply delivery report",
					zap.String("external_id", report.ExternalID),
					zap.String("event_type", report.EventType),
					zap.Error(err),
				)
				return
			}
			processed.Add(1)
			s.metrics.ReportProcessed()
		}(report)
	}
	wg.Wait()

	result.Processed = int(processed.Load())
	result.Failed = int(failed.Load())

	logger.Info("Processed delivery report batch",
		zap.Int("total", result.Total),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// applyReport reconciles a single report. Re-applying a report whose
// normalized status matches the stored one is a no-op beyond the ack.
func (s *DeliveryService) applyReport(ctx context.Context, report models.DeliveryReport) error {
	if report.ExternalID == "" {
		return errors.New("report has no external identifier")
	}

	msg, err := s.store.FindByExternalID(report.ExternalID)
	if err != nil {
		return err
	}

	status := NormalizeStatus(report.EventType, report.Cause, report.ErrCode)
	if msg.Status == status {
		return nil
	}

	// Last-received-wins: the stored delivery timestamp is never compared
	// against the report's before overwriting.
	if err := s.store.UpdateStatus(report.ExternalID, status, report.Cause, report.DeliveredTS); err != nil {
		return err
	}

	s.metrics.StatusChanged(string(status))

	if s.analytics != nil {
		channel := report.Channel
		if channel == "" {
			channel = msg.Channel
		}
		if err := s.analytics.RecordStatus(ctx, channel, string(status), time.Now()); err != nil {
			logger.Warn("Failed to record delivery analytics", zap.Error(err))
		}
	}

	s.notifier.Publish(notify.StatusEvent{
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Status:         status,
	})
	return nil
}
