package app

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyward/keyward/internal/codec"
	"github.com/keyward/keyward/internal/custody"
	"github.com/keyward/keyward/internal/gate"
	"github.com/keyward/keyward/internal/keypath"
	"github.com/keyward/keyward/internal/validation"
	apperrors "github.com/keyward/keyward/pkg/errors"
	"github.com/keyward/keyward/pkg/types"
)

const testSeedHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// trackingGateway counts custody calls and remembers the last key pair
// it handed out so tests can check it was destroyed.
type trackingGateway struct {
	inner     custody.Gateway
	pubCalls  int
	pairCalls int
	lastPair  *custody.KeyPair
	failWith  error
}

func (g *trackingGateway) DerivePublicKey(ctx context.Context, path keypath.DerivationPath) ([]byte, error) {
	g.pubCalls++
	if g.failWith != nil {
		return nil, g.failWith
	}
	return g.inner.DerivePublicKey(ctx, path)
}

func (g *trackingGateway) DeriveKeyPair(ctx context.Context, path keypath.DerivationPath) (*custody.KeyPair, error) {
	g.pairCalls++
	if g.failWith != nil {
		return nil, g.failWith
	}
	kp, err := g.inner.DeriveKeyPair(ctx, path)
	g.lastPair = kp
	return kp, err
}

// trackingEngine wraps the borsh engine and counts session activity.
type trackingEngine struct {
	inner    *codec.BorshEngine
	acquires int
	sessions []*trackingSession
}

func newTrackingEngine() *trackingEngine {
	return &trackingEngine{inner: codec.NewBorshEngine()}
}

func (e *trackingEngine) Acquire() (codec.Session, error) {
	e.acquires++
	inner, err := e.inner.Acquire()
	if err != nil {
		return nil, err
	}
	s := &trackingSession{inner: inner}
	e.sessions = append(e.sessions, s)
	return s, nil
}

type trackingSession struct {
	inner          codec.Session
	encodeCalls    int
	encodeUnsigned int
	encodeTx       int
	closes         int
	failEncodeCall bool
}

func (s *trackingSession) EncodeCall(call types.CallPayload) ([]byte, error) {
	s.encodeCalls++
	if s.failEncodeCall {
		return nil, fmt.Errorf("encoder out of memory")
	}
	return s.inner.EncodeCall(call)
}

func (s *trackingSession) EncodeUnsigned(tx *types.UnsignedTransaction) ([]byte, error) {
	s.encodeUnsigned++
	return s.inner.EncodeUnsigned(tx)
}

func (s *trackingSession) EncodeTransaction(tx *types.Transaction) ([]byte, error) {
	s.encodeTx++
	return s.inner.EncodeTransaction(tx)
}

func (s *trackingSession) Close() error {
	s.closes++
	return s.inner.Close()
}

// scriptedGate returns a fixed decision and captures the summary.
type scriptedGate struct {
	decision    gate.Decision
	err         error
	calls       int
	lastSummary *types.TxSummary
}

func (g *scriptedGate) Confirm(ctx context.Context, summary *types.TxSummary) (gate.Decision, error) {
	g.calls++
	g.lastSummary = summary
	return g.decision, g.err
}

type fixture struct {
	service *SignerService
	gateway *trackingGateway
	engine  *trackingEngine
	gate    *scriptedGate
}

func newFixture(t *testing.T, decision gate.Decision) *fixture {
	t.Helper()

	provider, err := custody.NewLocalSeedProvider(testSeedHex)
	require.NoError(t, err)

	gw := &trackingGateway{inner: custody.NewSeedGateway(provider)}
	engine := newTrackingEngine()
	confirmGate := &scriptedGate{decision: decision}

	service := NewSignerService(gw, engine, confirmGate, "sov", &validation.Config{}, nil)

	return &fixture{
		service: service,
		gateway: gw,
		engine:  engine,
		gate:    confirmGate,
	}
}

func signParamsJSON(keyID uint32) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"key_id": %d,
		"transaction": {
			"call": {"bank": {"transfer": {"amount": 100}}},
			"chain_id": 4321,
			"max_priority_fee_bips": 100,
			"max_fee": 100000000,
			"gas_limit": [10000, 20000],
			"nonce": 7
		}
	}`, keyID))
}

func TestGetAddress(t *testing.T) {
	f := newFixture(t, gate.Approved)
	ctx := context.Background()

	addr, err := f.service.GetAddress(ctx, "test-origin", json.RawMessage(`{"key_id": 0}`))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(addr, "sov1"), "address %q lacks hrp prefix", addr)

	// Stable across repeated calls.
	again, err := f.service.GetAddress(ctx, "test-origin", json.RawMessage(`{"key_id": 0}`))
	require.NoError(t, err)
	assert.Equal(t, addr, again)

	// Distinct keys yield distinct addresses.
	other, err := f.service.GetAddress(ctx, "test-origin", json.RawMessage(`{"key_id": 1}`))
	require.NoError(t, err)
	assert.NotEqual(t, addr, other)

	assert.Equal(t, 3, f.gateway.pubCalls)
	assert.EqualValues(t, 0, f.engine.inner.OpenSessions())
}

func TestGetAddress_ValidationError(t *testing.T) {
	f := newFixture(t, gate.Approved)

	_, err := f.service.GetAddress(context.Background(), "test-origin", json.RawMessage(`{"key_id": "zero"}`))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	// Rejected before any side effect.
	assert.Zero(t, f.gateway.pubCalls)
	assert.Zero(t, f.engine.acquires)
}

func TestGetAddress_DerivationError(t *testing.T) {
	f := newFixture(t, gate.Approved)
	f.gateway.failWith = fmt.Errorf("enclave unreachable")

	_, err := f.service.GetAddress(context.Background(), "test-origin", json.RawMessage(`{"key_id": 0}`))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDerivation))

	// The session acquired for the request is still released.
	require.Len(t, f.engine.sessions, 1)
	assert.Equal(t, 1, f.engine.sessions[0].closes)
	assert.EqualValues(t, 0, f.engine.inner.OpenSessions())
}

func TestSignTransaction_Approved(t *testing.T) {
	f := newFixture(t, gate.Approved)
	ctx := context.Background()

	signedHex, err := f.service.SignTransaction(ctx, "test-origin", signParamsJSON(0))
	require.NoError(t, err)

	txBytes, err := hexutil.Decode(signedHex)
	require.NoError(t, err)

	tx, err := codec.DecodeTransaction(txBytes)
	require.NoError(t, err)

	// Every envelope field survives into the signed artifact unchanged.
	assert.Equal(t, `{"bank":{"transfer":{"amount":100}}}`, string(tx.RuntimeMsg))
	assert.EqualValues(t, 4321, tx.ChainID)
	assert.EqualValues(t, 100, tx.MaxPriorityFeeBips)
	assert.EqualValues(t, 100000000, tx.MaxFee)
	assert.EqualValues(t, 7, tx.Nonce)
	require.NotNil(t, tx.GasLimit)
	assert.Equal(t, []uint64{10000, 20000}, *tx.GasLimit)

	// The signature verifies against the canonical unsigned bytes under
	// the embedded public key.
	unsigned := &types.UnsignedTransaction{
		RuntimeMsg:         tx.RuntimeMsg,
		ChainID:            tx.ChainID,
		MaxPriorityFeeBips: tx.MaxPriorityFeeBips,
		MaxFee:             tx.MaxFee,
		GasLimit:           tx.GasLimit,
		Nonce:              tx.Nonce,
	}
	verifySession, err := codec.NewBorshEngine().Acquire()
	require.NoError(t, err)
	defer verifySession.Close()
	unsignedBytes, err := verifySession.EncodeUnsigned(unsigned)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(tx.PubKey[:]), unsignedBytes, tx.Signature.MsgSig[:]))

	// The embedded key is the one custody derived for the path.
	raw, err := f.gateway.inner.DerivePublicKey(ctx, keypath.ForKey(0))
	require.NoError(t, err)
	assert.Equal(t, raw[1:], tx.PubKey[:])

	// Deterministic: the same request signs to the same bytes.
	repeat, err := f.service.SignTransaction(ctx, "test-origin", signParamsJSON(0))
	require.NoError(t, err)
	assert.Equal(t, signedHex, repeat)
}

func TestSignTransaction_GateSummary(t *testing.T) {
	f := newFixture(t, gate.Approved)

	_, err := f.service.SignTransaction(context.Background(), "https://dapp.example", signParamsJSON(3))
	require.NoError(t, err)

	require.Equal(t, 1, f.gate.calls)
	s := f.gate.lastSummary
	require.NotNil(t, s)
	assert.Equal(t, "https://dapp.example", s.Origin)
	assert.True(t, strings.HasPrefix(s.Address, "sov1"))
	assert.JSONEq(t, `{"bank": {"transfer": {"amount": 100}}}`, string(s.Call))
	assert.EqualValues(t, 7, s.Nonce)
	assert.EqualValues(t, 4321, s.ChainID)
	assert.EqualValues(t, 100, s.MaxPriorityFeeBips)
	assert.EqualValues(t, 100000000, s.MaxFee)
	require.NotNil(t, s.GasLimit)
	assert.Equal(t, []uint64{10000, 20000}, *s.GasLimit)
}

func TestSignTransaction_Rejected(t *testing.T) {
	f := newFixture(t, gate.Rejected)

	_, err := f.service.SignTransaction(context.Background(), "test-origin", signParamsJSON(0))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUserRejected))

	// The gate was consulted exactly once and nothing was encoded or
	// signed after the rejection.
	assert.Equal(t, 1, f.gate.calls)
	require.Len(t, f.engine.sessions, 1)
	session := f.engine.sessions[0]
	assert.Zero(t, session.encodeCalls)
	assert.Zero(t, session.encodeUnsigned)
	assert.Zero(t, session.encodeTx)
	assert.Equal(t, 1, session.closes)
	assert.EqualValues(t, 0, f.engine.inner.OpenSessions())

	// Key material handed out for the request was destroyed.
	require.NotNil(t, f.gateway.lastPair)
	assert.Nil(t, f.gateway.lastPair.PrivateKey)
}

func TestSignTransaction_ValidationError(t *testing.T) {
	f := newFixture(t, gate.Approved)

	tests := []struct {
		name   string
		params string
	}{
		{name: "missing key id", params: `{"transaction": {"call": {}, "chain_id": 1, "max_priority_fee_bips": 0, "max_fee": 0, "nonce": 0}}`},
		{name: "missing transaction", params: `{"key_id": 0}`},
		{name: "string nonce", params: `{"key_id": 0, "transaction": {"call": {}, "chain_id": 1, "max_priority_fee_bips": 0, "max_fee": 0, "nonce": "7"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.SignTransaction(context.Background(), "test-origin", json.RawMessage(tt.params))
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
		})
	}

	// No custody calls, no codec handles, no gate prompts.
	assert.Zero(t, f.gateway.pairCalls)
	assert.Zero(t, f.engine.acquires)
	assert.Zero(t, f.gate.calls)
}

func TestSignTransaction_DerivationError(t *testing.T) {
	f := newFixture(t, gate.Approved)
	f.gateway.failWith = fmt.Errorf("enclave unreachable")

	_, err := f.service.SignTransaction(context.Background(), "test-origin", signParamsJSON(0))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDerivation))

	// The gate is never consulted when key material is unavailable.
	assert.Zero(t, f.gate.calls)
	require.Len(t, f.engine.sessions, 1)
	assert.Equal(t, 1, f.engine.sessions[0].closes)
}

func TestSignTransaction_GateFailure(t *testing.T) {
	f := newFixture(t, gate.Approved)
	f.gate.err = fmt.Errorf("terminal went away")

	_, err := f.service.SignTransaction(context.Background(), "test-origin", signParamsJSON(0))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInternalError))

	require.Len(t, f.engine.sessions, 1)
	session := f.engine.sessions[0]
	assert.Zero(t, session.encodeCalls)
	assert.Equal(t, 1, session.closes)
}

func TestSignTransaction_EncodingError(t *testing.T) {
	f := newFixture(t, gate.Approved)
	failing := &failAfterAcquireEngine{inner: f.engine}
	service := NewSignerService(f.gateway, failing, f.gate, "sov", &validation.Config{}, nil)

	_, err := service.SignTransaction(context.Background(), "test-origin", signParamsJSON(0))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEncoding))

	require.Len(t, f.engine.sessions, 1)
	assert.Equal(t, 1, f.engine.sessions[0].closes)
	require.NotNil(t, f.gateway.lastPair)
	assert.Nil(t, f.gateway.lastPair.PrivateKey)
}

// failAfterAcquireEngine hands out sessions whose call encoding fails.
type failAfterAcquireEngine struct {
	inner *trackingEngine
}

func (e *failAfterAcquireEngine) Acquire() (codec.Session, error) {
	s, err := e.inner.Acquire()
	if err != nil {
		return nil, err
	}
	s.(*trackingSession).failEncodeCall = true
	return s, nil
}

func TestSignTransaction_KeyDestroyedAfterSigning(t *testing.T) {
	f := newFixture(t, gate.Approved)

	_, err := f.service.SignTransaction(context.Background(), "test-origin", signParamsJSON(0))
	require.NoError(t, err)

	require.NotNil(t, f.gateway.lastPair)
	assert.Nil(t, f.gateway.lastPair.PrivateKey)
}

func TestSignTransaction_ChainAllowlist(t *testing.T) {
	provider, err := custody.NewLocalSeedProvider(testSeedHex)
	require.NoError(t, err)

	gw := &trackingGateway{inner: custody.NewSeedGateway(provider)}
	engine := newTrackingEngine()
	confirmGate := &scriptedGate{decision: gate.Approved}

	service := NewSignerService(gw, engine, confirmGate, "sov",
		&validation.Config{AllowedChainIDs: []uint64{1}}, nil)

	_, err = service.SignTransaction(context.Background(), "test-origin", signParamsJSON(0))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
	assert.Zero(t, gw.pairCalls)
}
