// Package app implements the transaction authorization and signing
// protocol: validate, derive, fetch key material, confirm with the
// operator, canonically encode, sign, assemble. The ordering is strict
// and the codec session acquired for a request is released on every
// exit path.
package app

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/keyward/keyward/internal/address"
	"github.com/keyward/keyward/internal/codec"
	"github.com/keyward/keyward/internal/custody"
	"github.com/keyward/keyward/internal/gate"
	"github.com/keyward/keyward/internal/keypath"
	"github.com/keyward/keyward/internal/logger"
	"github.com/keyward/keyward/internal/metrics"
	"github.com/keyward/keyward/internal/storage"
	"github.com/keyward/keyward/internal/validation"
	apperrors "github.com/keyward/keyward/pkg/errors"
	"github.com/keyward/keyward/pkg/types"
)

// RPC method names served by the signer.
const (
	MethodGetAddress      = "wallet_getAddress"
	MethodSignTransaction = "wallet_signTransaction"
)

// SignerService orchestrates address lookups and transaction signing
// against the custody boundary.
type SignerService struct {
	custody       custody.Gateway
	engine        codec.Engine
	gate          gate.Gate
	addressHRP    string
	validationCfg *validation.Config
	records       *storage.SigningRecordRepository // nil disables the audit trail
}

// NewSignerService creates a new signer service. records may be nil
// when no audit store is configured.
func NewSignerService(
	custodyGW custody.Gateway,
	engine codec.Engine,
	confirmGate gate.Gate,
	addressHRP string,
	validationCfg *validation.Config,
	records *storage.SigningRecordRepository,
) *SignerService {
	return &SignerService{
		custody:       custodyGW,
		engine:        engine,
		gate:          confirmGate,
		addressHRP:    addressHRP,
		validationCfg: validationCfg,
		records:       records,
	}
}

// GetAddress derives and encodes the chain address for a key
// identifier. Repeated calls for the same key return the identical
// address.
func (s *SignerService) GetAddress(ctx context.Context, origin string, params json.RawMessage) (string, error) {
	// Validation precedes any side effect, including codec acquisition.
	p, err := validation.ParseGetAddressParams(params)
	if err != nil {
		return "", apperrors.Validation(err.Error())
	}

	session, err := s.engine.Acquire()
	if err != nil {
		return "", apperrors.Encoding(err.Error())
	}
	defer s.release(ctx, session)

	path := keypath.ForKey(p.KeyID)

	raw, err := s.custody.DerivePublicKey(ctx, path)
	if err != nil {
		s.audit(ctx, &storage.SigningRecord{
			Method:  MethodGetAddress,
			KeyID:   int64(p.KeyID),
			Origin:  strPtr(origin),
			Outcome: apperrors.ErrCodeDerivation,
		})
		return "", apperrors.Derivation(err.Error())
	}

	addr, err := address.Encode(s.addressHRP, raw)
	if err != nil {
		return "", apperrors.Encoding(err.Error())
	}

	s.audit(ctx, &storage.SigningRecord{
		Method:  MethodGetAddress,
		KeyID:   int64(p.KeyID),
		Origin:  strPtr(origin),
		Address: &addr,
		Outcome: "ok",
	})

	logger.Info(ctx, "address derived", "key_id", p.KeyID, "path", path.String(), "address", addr)

	return addr, nil
}

// SignTransaction runs the full signing protocol and returns the
// hex-encoded canonical signed transaction. The operator gate is
// consulted exactly once; a rejection terminates the flow before any
// call encoding or signing happens.
func (s *SignerService) SignTransaction(ctx context.Context, origin string, params json.RawMessage) (string, error) {
	// Validation precedes any side effect, including codec acquisition.
	p, err := validation.ParseSignTransactionParams(params, s.validationCfg)
	if err != nil {
		return "", apperrors.Validation(err.Error())
	}
	env := &p.Transaction

	session, err := s.engine.Acquire()
	if err != nil {
		return "", apperrors.Encoding(err.Error())
	}
	defer s.release(ctx, session)

	path := keypath.ForKey(p.KeyID)

	keyPair, err := s.custody.DeriveKeyPair(ctx, path)
	if err != nil {
		s.auditSign(ctx, p, origin, nil, nil, apperrors.ErrCodeDerivation, nil)
		return "", apperrors.Derivation(err.Error())
	}
	// Backstop; the happy path destroys the key right after signing.
	defer keyPair.Destroy()

	pubKey, err := address.Normalize(keyPair.PublicKey)
	if err != nil {
		return "", apperrors.Encoding(err.Error())
	}
	var pub32 [32]byte
	copy(pub32[:], pubKey)

	addr, err := address.Encode(s.addressHRP, keyPair.PublicKey)
	if err != nil {
		return "", apperrors.Encoding(err.Error())
	}

	decision, err := s.gate.Confirm(ctx, &types.TxSummary{
		Origin:             origin,
		Address:            addr,
		Call:               env.Call,
		Nonce:              env.Nonce,
		ChainID:            env.ChainID,
		MaxPriorityFeeBips: env.MaxPriorityFeeBips,
		MaxFee:             env.MaxFee,
		GasLimit:           env.GasLimit,
	})
	if err != nil {
		return "", apperrors.NewWithDetail(
			apperrors.ErrCodeInternalError,
			"Confirmation gate failed",
			err.Error(),
			http.StatusInternalServerError,
		)
	}

	metrics.GateDecisions.WithLabelValues(decision.String()).Inc()

	if decision != gate.Approved {
		s.auditSign(ctx, p, origin, &addr, strPtr("rejected"), apperrors.ErrCodeUserRejected, nil)
		logger.Info(ctx, "transaction rejected by operator", "key_id", p.KeyID, "address", addr, "nonce", env.Nonce)
		return "", apperrors.UserRejected()
	}

	runtimeMsg, err := session.EncodeCall(env.Call)
	if err != nil {
		s.auditSign(ctx, p, origin, &addr, strPtr("approved"), apperrors.ErrCodeEncoding, nil)
		return "", apperrors.Encoding(err.Error())
	}

	unsigned := env.Unsigned(runtimeMsg)

	// These exact bytes are what gets signed; no other representation
	// of the transaction may be substituted.
	unsignedBytes, err := session.EncodeUnsigned(unsigned)
	if err != nil {
		s.auditSign(ctx, p, origin, &addr, strPtr("approved"), apperrors.ErrCodeEncoding, nil)
		return "", apperrors.Encoding(err.Error())
	}

	sig, err := signDetached(keyPair.PrivateKey, unsignedBytes)
	keyPair.Destroy()
	if err != nil {
		s.auditSign(ctx, p, origin, &addr, strPtr("approved"), apperrors.ErrCodeSigning, nil)
		return "", apperrors.Signing(err.Error())
	}

	tx := unsigned.Signed(pub32, sig)

	txBytes, err := session.EncodeTransaction(tx)
	if err != nil {
		s.auditSign(ctx, p, origin, &addr, strPtr("approved"), apperrors.ErrCodeEncoding, nil)
		return "", apperrors.Encoding(err.Error())
	}

	txHash := blake2b.Sum256(txBytes)
	txHashHex := hexutil.Encode(txHash[:])

	s.auditSign(ctx, p, origin, &addr, strPtr("approved"), "ok", &txHashHex)

	logger.Info(ctx, "transaction signed",
		"key_id", p.KeyID,
		"address", addr,
		"chain_id", env.ChainID,
		"nonce", env.Nonce,
		"tx_hash", txHashHex,
	)

	return hexutil.Encode(txBytes), nil
}

// signDetached produces a deterministic detached ed25519 signature over
// the canonical unsigned bytes.
func signDetached(priv ed25519.PrivateKey, msg []byte) ([64]byte, error) {
	var sig [64]byte
	if len(priv) != ed25519.PrivateKeySize {
		return sig, fmt.Errorf("private key has invalid length %d", len(priv))
	}
	copy(sig[:], ed25519.Sign(priv, msg))
	return sig, nil
}

// release closes the codec session. Failures here cannot change the
// request outcome; they are logged and visible in the handle gauge.
func (s *SignerService) release(ctx context.Context, session codec.Session) {
	if err := session.Close(); err != nil {
		logger.Error(ctx, "failed to release codec session", "error", err)
	}
}

// audit writes one record to the audit trail. Audit failures never fail
// the request.
func (s *SignerService) audit(ctx context.Context, rec *storage.SigningRecord) {
	if s.records == nil {
		return
	}
	rec.ID = uuid.New()
	rec.RequestID = logger.GetRequestID(ctx)
	if err := s.records.Create(ctx, rec); err != nil {
		logger.Error(ctx, "failed to write signing record", "error", err)
	}
}

func (s *SignerService) auditSign(
	ctx context.Context,
	p *validation.SignTransactionParams,
	origin string,
	addr *string,
	decision *string,
	outcome string,
	txHash *string,
) {
	chainID := int64(p.Transaction.ChainID)
	nonce := int64(p.Transaction.Nonce)
	s.audit(ctx, &storage.SigningRecord{
		Method:   MethodSignTransaction,
		KeyID:    int64(p.KeyID),
		Origin:   strPtr(origin),
		Address:  addr,
		ChainID:  &chainID,
		Nonce:    &nonce,
		Decision: decision,
		Outcome:  outcome,
		TxHash:   txHash,
	})
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
