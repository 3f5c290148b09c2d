// Package validation narrows raw RPC parameters into strongly-typed
// request objects. Everything here runs before the request has any side
// effects: no custody call, no codec handle, nothing to release on
// failure.
package validation

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/keyward/keyward/internal/keypath"
	"github.com/keyward/keyward/pkg/types"
)

// Config holds configuration for request validation
type Config struct {
	// AllowedChainIDs restricts signable chains; nil/empty admits all
	AllowedChainIDs []uint64

	// MaxCallSize caps the raw call payload in bytes (0 = no limit)
	MaxCallSize int
}

// GetAddressParams are the validated parameters of wallet_getAddress
type GetAddressParams struct {
	KeyID uint32
}

// SignTransactionParams are the validated parameters of
// wallet_signTransaction
type SignTransactionParams struct {
	KeyID       uint32
	Transaction types.TransactionEnvelope
}

// ParseGetAddressParams validates the raw parameters of an address
// lookup.
func ParseGetAddressParams(params json.RawMessage) (*GetAddressParams, error) {
	fields, err := objectFields(params)
	if err != nil {
		return nil, err
	}

	keyID, err := parseKeyID(fields)
	if err != nil {
		return nil, err
	}

	return &GetAddressParams{KeyID: keyID}, nil
}

// ParseSignTransactionParams validates the raw parameters of a signing
// request: key identifier plus the full transaction envelope shape.
func ParseSignTransactionParams(params json.RawMessage, cfg *Config) (*SignTransactionParams, error) {
	fields, err := objectFields(params)
	if err != nil {
		return nil, err
	}

	keyID, err := parseKeyID(fields)
	if err != nil {
		return nil, err
	}

	rawTx, ok := fields["transaction"]
	if !ok {
		return nil, fmt.Errorf("missing field: transaction")
	}

	envelope, err := parseEnvelope(rawTx, cfg)
	if err != nil {
		return nil, err
	}

	return &SignTransactionParams{
		KeyID:       keyID,
		Transaction: *envelope,
	}, nil
}

// parseEnvelope checks presence and type of every envelope field.
func parseEnvelope(raw json.RawMessage, cfg *Config) (*types.TransactionEnvelope, error) {
	fields, err := objectFields(raw)
	if err != nil {
		return nil, fmt.Errorf("transaction: %w", err)
	}

	call, ok := fields["call"]
	if !ok || isNull(call) {
		return nil, fmt.Errorf("transaction: missing field: call")
	}
	if !json.Valid(call) {
		return nil, fmt.Errorf("transaction: call is not valid JSON")
	}
	if cfg != nil && cfg.MaxCallSize > 0 && len(call) > cfg.MaxCallSize {
		return nil, fmt.Errorf("transaction: call payload too large: %d bytes > %d bytes max", len(call), cfg.MaxCallSize)
	}

	chainID, err := requireUint(fields, "chain_id")
	if err != nil {
		return nil, fmt.Errorf("transaction: %w", err)
	}
	if cfg != nil && len(cfg.AllowedChainIDs) > 0 {
		allowed := false
		for _, id := range cfg.AllowedChainIDs {
			if chainID == id {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("transaction: chain ID %d not allowed", chainID)
		}
	}

	maxPriorityFeeBips, err := requireUint(fields, "max_priority_fee_bips")
	if err != nil {
		return nil, fmt.Errorf("transaction: %w", err)
	}

	maxFee, err := requireUint(fields, "max_fee")
	if err != nil {
		return nil, fmt.Errorf("transaction: %w", err)
	}

	nonce, err := requireUint(fields, "nonce")
	if err != nil {
		return nil, fmt.Errorf("transaction: %w", err)
	}

	gasLimit, err := parseGasLimit(fields)
	if err != nil {
		return nil, fmt.Errorf("transaction: %w", err)
	}

	return &types.TransactionEnvelope{
		Call:               json.RawMessage(call),
		ChainID:            chainID,
		MaxPriorityFeeBips: maxPriorityFeeBips,
		MaxFee:             maxFee,
		GasLimit:           gasLimit,
		Nonce:              nonce,
	}, nil
}

// parseGasLimit handles the three valid shapes: absent (nil), null
// (treated as absent), and an array of non-negative integers, which may
// be empty. Absent and present-but-empty are distinct values.
func parseGasLimit(fields map[string]json.RawMessage) (*[]uint64, error) {
	raw, ok := fields["gas_limit"]
	if !ok || isNull(raw) {
		return nil, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("gas_limit must be an array of non-negative integers")
	}

	limits := make([]uint64, 0, len(elems))
	for i, elem := range elems {
		v, err := parseUint(elem)
		if err != nil {
			return nil, fmt.Errorf("gas_limit[%d] must be a non-negative integer", i)
		}
		limits = append(limits, v)
	}
	return &limits, nil
}

// parseKeyID validates key_id: present, a non-negative integer, and
// small enough to fit a hardened path segment.
func parseKeyID(fields map[string]json.RawMessage) (uint32, error) {
	v, err := requireUint(fields, "key_id")
	if err != nil {
		return 0, err
	}
	if v > uint64(keypath.MaxKeyIndex) {
		return 0, fmt.Errorf("key_id too large: maximum %d", keypath.MaxKeyIndex)
	}
	return uint32(v), nil
}

// objectFields splits a JSON object into its raw fields.
func objectFields(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if len(raw) == 0 || isNull(raw) {
		return nil, fmt.Errorf("missing parameters")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("parameters must be an object")
	}
	return fields, nil
}

// requireUint extracts a required non-negative integer field. Strings,
// negatives, fractions, and booleans are all type errors, not values to
// coerce.
func requireUint(fields map[string]json.RawMessage, name string) (uint64, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return 0, fmt.Errorf("missing field: %s", name)
	}
	v, err := parseUint(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

// parseUint parses a raw JSON value as a non-negative integer.
func parseUint(raw json.RawMessage) (uint64, error) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, err
	}
	// json.Number accepts floats and exponents; ParseUint rejects them
	// along with sign characters.
	return strconv.ParseUint(num.String(), 10, 64)
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
