// Package codec is the boundary to the canonical encoding engine. The
// engine hands out stateful sessions; a session is the opaque working
// resource every request must acquire before encoding and release
// exactly once when it is done, however it exits.
package codec

import (
	"github.com/keyward/keyward/pkg/types"
)

// Engine is the canonical encoding engine. Acquire checks out one
// working session.
type Engine interface {
	Acquire() (Session, error)
}

// Session is the engine's working resource for one request. All encode
// calls produce canonical bytes: exactly one valid representation per
// value, so signatures over them are unambiguous.
//
// A session must be released with Close exactly once. Encoding on a
// closed session and closing twice are both errors.
type Session interface {
	// EncodeCall encodes an application call payload into its opaque
	// runtime message.
	EncodeCall(call types.CallPayload) ([]byte, error)

	// EncodeUnsigned encodes an unsigned transaction into the canonical
	// bytes that get signed.
	EncodeUnsigned(tx *types.UnsignedTransaction) ([]byte, error)

	// EncodeTransaction encodes a signed transaction into its final
	// transport bytes.
	EncodeTransaction(tx *types.Transaction) ([]byte, error)

	// Close releases the session.
	Close() error
}
