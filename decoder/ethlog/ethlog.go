// Package ethlog decodes Ethereum log notifications into events.
package ethlog

import (
	"bytes"
	"encoding/json"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
	"github.com/c360/bee/value"
)

// Event field names
const (
	FieldAddress      = "address"
	FieldTopics       = "topics"
	FieldSignature    = "signature"
	FieldData         = "data"
	FieldBlockNumber  = "block_number"
	FieldBlockHash    = "block_hash"
	FieldTxHash       = "tx_hash"
	FieldTxIndex      = "tx_index"
	FieldLogIndex     = "log_index"
	FieldRemoved      = "removed"
	FieldSubscription = "subscription"
)

// notification is the eth_subscription envelope a node pushes for every log
type notification struct {
	Method string `json:"method"`
	Params *struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

// Decoder decodes either a bare log object, as returned by eth_getLogs, or
// an eth_subscription notification wrapping one. It is stateless.
type Decoder struct {
	skipRemoved bool
}

// NewDecoder creates a log decoder. With skipRemoved, logs retracted by a
// reorg fail to decode and are dropped by the driver.
func NewDecoder(skipRemoved bool) *Decoder {
	return &Decoder{skipRemoved: skipRemoved}
}

// Decode implements component.Decoder. Every failure is invalid-data:
// malformed JSON, a JSON document that is not a log, and a removed log when
// skipRemoved is set.
func (d *Decoder) Decode(raw []byte) (event.Event, error) {
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return nil, errors.New(errors.IOInvalidData, "log payload is not valid JSON")
	}

	body := raw
	var subscription string
	var n notification
	if err := json.Unmarshal(raw, &n); err == nil && n.Method == "eth_subscription" {
		if n.Params == nil || len(n.Params.Result) == 0 {
			return nil, errors.New(errors.IOInvalidData, "eth_subscription notification has no result")
		}
		body = n.Params.Result
		subscription = n.Params.Subscription
	}

	var log types.Log
	if err := log.UnmarshalJSON(body); err != nil {
		return nil, errors.WrapAs(errors.IOInvalidData, err, "ethlog", "Decode", "decode log")
	}
	if d.skipRemoved && log.Removed {
		return nil, errors.Newf(errors.IOInvalidData, "log %d of tx %s was removed by a reorg", log.Index, log.TxHash.Hex())
	}

	e := FromLog(&log)
	if subscription != "" {
		e.Set(FieldSubscription, value.String(subscription))
	}
	return e, nil
}

// FromLog renders a log as an event. Hashes and the address are 0x hex
// strings; data stays raw bytes.
func FromLog(log *types.Log) event.Event {
	topics := make(value.Array, len(log.Topics))
	for i, t := range log.Topics {
		topics[i] = value.String(t.Hex())
	}

	e := event.New().
		Set(FieldAddress, value.String(log.Address.Hex())).
		Set(FieldTopics, topics).
		Set(FieldData, value.Bytes(append([]byte(nil), log.Data...))).
		Set(FieldBlockNumber, value.Integer(int64(log.BlockNumber))).
		Set(FieldBlockHash, value.String(log.BlockHash.Hex())).
		Set(FieldTxHash, value.String(log.TxHash.Hex())).
		Set(FieldTxIndex, value.Integer(int64(log.TxIndex))).
		Set(FieldLogIndex, value.Integer(int64(log.Index))).
		Set(FieldRemoved, value.Boolean(log.Removed))
	if len(log.Topics) > 0 {
		e.Set(FieldSignature, value.String(log.Topics[0].Hex()))
	}
	return e
}

// CreateDecoder is the factory function for the log decoder
func CreateDecoder(cfg *config.Config, _ component.Dependencies) (any, error) {
	skip, err := config.GetOr(cfg, "skip_removed", false)
	if err != nil {
		return nil, errors.Wrap(err, "ethlog", "create", "read skip_removed")
	}
	return NewDecoder(skip), nil
}

// Register registers the log decoder with the registry
func Register(registry *component.Registry) error {
	return registry.Register(component.Registration{
		Name:        "ethlog",
		Kind:        component.KindDecoder,
		Description: "Decodes Ethereum logs, bare or wrapped in eth_subscription notifications",
		Version:     "1.0.0",
		Factory:     CreateDecoder,
	})
}
