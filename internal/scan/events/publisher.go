// Package events publishes scan outcomes to the message broker so sales,
// audit, and inventory consumers can react without polling.
package events

import (
	"context"

	"github.com/nazifia/pharmpos-backend/internal/scan/resolver"
	"github.com/nazifia/pharmpos-backend/pkg/logger"
	"github.com/nazifia/pharmpos-backend/pkg/messaging"
)

// publisher is the broker surface the scan publisher needs. Satisfied by
// messaging.Publisher and by in-memory test doubles.
type publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// ScanEventPublisher publishes scan-related events. A nil
// *ScanEventPublisher is a valid no-op publisher, so broker-less
// deployments just pass nil.
type ScanEventPublisher struct {
	publisher publisher
	logger    *logger.Logger
}

// NewScanEventPublisher creates a publisher bound to the scan exchange.
func NewScanEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*ScanEventPublisher, error) {
	pub, err := messaging.NewPublisher(rmq, messaging.ExchangeScanEvents, "scan-service", log)
	if err != nil {
		return nil, err
	}

	return &ScanEventPublisher{
		publisher: pub,
		logger:    log,
	}, nil
}

// NewScanEventPublisherWith wraps an existing publisher. Used by tests.
func NewScanEventPublisherWith(pub publisher, log *logger.Logger) *ScanEventPublisher {
	return &ScanEventPublisher{publisher: pub, logger: log}
}

// PublishItemScanned publishes a successful match.
func (p *ScanEventPublisher) PublishItemScanned(ctx context.Context, barcode string, result *resolver.Result) {
	if p == nil || result.Best == nil {
		return
	}

	data := messaging.ItemScannedEvent{
		ItemID:     result.Best.Item.ID,
		ItemName:   result.Best.Item.Name,
		Mode:       string(result.Mode),
		Barcode:    barcode,
		MatchType:  string(result.Best.MatchType),
		Confidence: result.Best.Confidence,
		Alternates: len(result.Alternates),
	}

	if err := p.publisher.Publish(ctx, messaging.EventItemScanned, data); err != nil {
		p.logger.Error().Err(err).Int64("item_id", data.ItemID).Msg("failed to publish item scanned event")
	}
}

// PublishScanUnmatched publishes a scan that nothing in the catalog matched.
func (p *ScanEventPublisher) PublishScanUnmatched(ctx context.Context, barcode string, result *resolver.Result) {
	if p == nil {
		return
	}

	data := messaging.ScanUnmatchedEvent{
		Barcode: barcode,
		Mode:    string(result.Mode),
	}
	if d := result.Diagnostics; d != nil {
		data.GS1Attempted = d.GS1Attempted
		data.GTIN = d.GTIN
		data.SearchTerms = d.SearchTerms
	}

	if err := p.publisher.Publish(ctx, messaging.EventScanUnmatched, data); err != nil {
		p.logger.Error().Err(err).Msg("failed to publish scan unmatched event")
	}
}

// PublishItemEnriched publishes the identifier backfill a scan performed.
func (p *ScanEventPublisher) PublishItemEnriched(ctx context.Context, barcode string, result *resolver.Result) {
	if p == nil || result.Best == nil || len(result.Enrichments) == 0 {
		return
	}

	data := messaging.ItemEnrichedEvent{
		ItemID:  result.Best.Item.ID,
		Mode:    string(result.Mode),
		Barcode: barcode,
		Fields:  result.Enrichments,
	}

	if err := p.publisher.Publish(ctx, messaging.EventItemEnriched, data); err != nil {
		p.logger.Error().Err(err).Int64("item_id", data.ItemID).Msg("failed to publish item enriched event")
	}
}
