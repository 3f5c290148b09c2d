// Package types contains the domain types shared between the API surface,
// the signing service, and the canonical codec.
package types

import (
	"encoding/json"
)

// CallPayload is the application-level instruction carried by a
// transaction. The signer never interprets it; it is passed through to
// the canonical encoding engine as-is.
type CallPayload = json.RawMessage

// TransactionEnvelope is the validated, strongly-typed form of the
// transaction a caller asks to have signed. GasLimit distinguishes
// "absent" (nil) from "present but empty" (non-nil empty slice); both
// are valid and the distinction is part of the signed bytes.
type TransactionEnvelope struct {
	Call               CallPayload
	ChainID            uint64
	MaxPriorityFeeBips uint64
	MaxFee             uint64
	GasLimit           *[]uint64
	Nonce              uint64
}

// UnsignedTransaction is the envelope with the call payload replaced by
// its canonically encoded runtime message. That substitution is the only
// structural difference from the envelope: every other field is copied
// unchanged, in declared order, because this struct's canonical encoding
// is the exact byte string that gets signed.
type UnsignedTransaction struct {
	RuntimeMsg         []byte
	ChainID            uint64
	MaxPriorityFeeBips uint64
	MaxFee             uint64
	GasLimit           *[]uint64
	Nonce              uint64
}

// TxSignature wraps the detached signature inside the signed
// transaction, matching the on-chain structure.
type TxSignature struct {
	MsgSig [64]byte
}

// Transaction is the final signed artifact: signature and public key
// prepended to the unsigned fields. Canonically encoded and hex-wrapped,
// this is what the caller receives.
type Transaction struct {
	Signature          TxSignature
	PubKey             [32]byte
	RuntimeMsg         []byte
	ChainID            uint64
	MaxPriorityFeeBips uint64
	MaxFee             uint64
	GasLimit           *[]uint64
	Nonce              uint64
}

// Unsigned builds the UnsignedTransaction for an envelope, substituting
// the encoded runtime message for the call payload.
func (e *TransactionEnvelope) Unsigned(runtimeMsg []byte) *UnsignedTransaction {
	return &UnsignedTransaction{
		RuntimeMsg:         runtimeMsg,
		ChainID:            e.ChainID,
		MaxPriorityFeeBips: e.MaxPriorityFeeBips,
		MaxFee:             e.MaxFee,
		GasLimit:           e.GasLimit,
		Nonce:              e.Nonce,
	}
}

// Signed assembles the signed transaction from an unsigned transaction,
// the normalized public key, and a detached signature over the unsigned
// transaction's canonical bytes.
func (u *UnsignedTransaction) Signed(pubKey [32]byte, sig [64]byte) *Transaction {
	return &Transaction{
		Signature:          TxSignature{MsgSig: sig},
		PubKey:             pubKey,
		RuntimeMsg:         u.RuntimeMsg,
		ChainID:            u.ChainID,
		MaxPriorityFeeBips: u.MaxPriorityFeeBips,
		MaxFee:             u.MaxFee,
		GasLimit:           u.GasLimit,
		Nonce:              u.Nonce,
	}
}

// TxSummary is what the confirmation gate renders to the human operator,
// field by field, before signing may proceed.
type TxSummary struct {
	Origin             string
	Address            string
	Call               CallPayload
	Nonce              uint64
	ChainID            uint64
	MaxPriorityFeeBips uint64
	MaxFee             uint64
	GasLimit           *[]uint64
}
