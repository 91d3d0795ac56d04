package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"fxledger/internal/core"
)

// RatesRefreshedMessage announces that a new snapshot for a base currency was cached.
// Consumers reload the snapshot from the shared store; rates are not carried.
type RatesRefreshedMessage struct {
	ID          string    `json:"id"`
	Base        string    `json:"base"`
	Currencies  int       `json:"currencies"`
	LastUpdated time.Time `json:"last_updated"`
	Timestamp   time.Time `json:"timestamp"`
}

// RefreshRequestMessage asks the worker to force-refresh one base currency.
type RefreshRequestMessage struct {
	Base      string    `json:"base"`
	Timestamp time.Time `json:"timestamp"`
}

var ErrMissingBase = errors.New("refresh request without base currency")

// NewRatesRefreshedMessage creates a message for snap with a fresh ID
func NewRatesRefreshedMessage(snap core.RateSnapshot) *RatesRefreshedMessage {
	return &RatesRefreshedMessage{
		ID:          uuid.NewString(),
		Base:        snap.BaseCurrency,
		Currencies:  snap.Currencies(),
		LastUpdated: snap.LastUpdated,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RatesRefreshedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NewRefreshRequestMessage(base string) *RefreshRequestMessage {
	return &RefreshRequestMessage{
		Base:      strings.ToUpper(strings.TrimSpace(base)),
		Timestamp: time.Now(),
	}
}

func (m *RefreshRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshRequestMessageFromJSON decodes a refresh request. A request without
// a base currency is malformed.
func RefreshRequestMessageFromJSON(data []byte) (*RefreshRequestMessage, error) {
	var msg RefreshRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	msg.Base = strings.ToUpper(strings.TrimSpace(msg.Base))
	if msg.Base == "" {
		return nil, ErrMissingBase
	}
	return &msg, nil
}
