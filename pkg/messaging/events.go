package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Scan events
	EventItemScanned  = "scan.item.matched"
	EventScanUnmatched = "scan.item.unmatched"
	EventItemEnriched = "scan.item.enriched"
)

// Exchange names
const (
	ExchangeScanEvents = "scan.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Scan Events

// ItemScannedEvent is published when a scanned barcode resolves to a catalog item
type ItemScannedEvent struct {
	ItemID     int64   `json:"item_id"`
	ItemName   string  `json:"item_name"`
	Mode       string  `json:"mode"`
	Barcode    string  `json:"barcode"`
	MatchType  string  `json:"match_type"`
	Confidence float64 `json:"confidence"`
	Alternates int     `json:"alternates"`
}

// ScanUnmatchedEvent is published when no catalog item matched a scanned barcode.
// SearchTerms give downstream consumers (manual-entry UI, audit) something to
// offer the operator.
type ScanUnmatchedEvent struct {
	Barcode      string   `json:"barcode"`
	Mode         string   `json:"mode"`
	GS1Attempted bool     `json:"gs1_attempted"`
	GTIN         string   `json:"gtin,omitempty"`
	SearchTerms  []string `json:"search_terms,omitempty"`
}

// ItemEnrichedEvent is published when scan resolution backfilled missing
// identifier fields onto a catalog item
type ItemEnrichedEvent struct {
	ItemID  int64             `json:"item_id"`
	Mode    string            `json:"mode"`
	Barcode string            `json:"barcode"`
	Fields  map[string]string `json:"fields"`
}
