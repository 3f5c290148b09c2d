package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/keyward/keyward/internal/app"
	"github.com/keyward/keyward/internal/metrics"
	apperrors "github.com/keyward/keyward/pkg/errors"
)

// RPCRequest represents a unified RPC request
type RPCRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// RPCResponse represents a unified RPC response
type RPCResponse struct {
	Method string      `json:"method"`
	Data   interface{} `json:"data"`
}

// handleRPC handles the unified RPC endpoint
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, apperrors.NewWithDetail(
			apperrors.ErrCodeBadRequest,
			"Method not allowed",
			"use POST",
			http.StatusMethodNotAllowed,
		))
		return
	}

	var rpcReq RPCRequest
	if err := json.NewDecoder(r.Body).Decode(&rpcReq); err != nil {
		s.writeError(w, apperrors.NewWithDetail(
			apperrors.ErrCodeBadRequest,
			"Invalid request body",
			err.Error(),
			http.StatusBadRequest,
		))
		return
	}

	origin := requestOrigin(r)
	start := time.Now()

	switch rpcReq.Method {
	case app.MethodGetAddress:
		s.handleGetAddress(w, r, origin, rpcReq.Params)
	case app.MethodSignTransaction:
		s.handleSignTransaction(w, r, origin, rpcReq.Params)
	default:
		metrics.RequestsTotal.WithLabelValues(rpcReq.Method, apperrors.ErrCodeMethodNotFound).Inc()
		s.writeError(w, apperrors.MethodNotFound(rpcReq.Method))
		return
	}

	metrics.RequestDuration.WithLabelValues(rpcReq.Method).Observe(time.Since(start).Seconds())
}

// handleGetAddress handles wallet_getAddress
func (s *Server) handleGetAddress(w http.ResponseWriter, r *http.Request, origin string, params json.RawMessage) {
	addr, err := s.signer.GetAddress(r.Context(), origin, params)
	if err != nil {
		s.writeRPCError(w, app.MethodGetAddress, err)
		return
	}

	metrics.RequestsTotal.WithLabelValues(app.MethodGetAddress, "ok").Inc()

	s.writeJSON(w, http.StatusOK, RPCResponse{
		Method: app.MethodGetAddress,
		Data: map[string]interface{}{
			"address": addr,
		},
	})
}

// handleSignTransaction handles wallet_signTransaction
func (s *Server) handleSignTransaction(w http.ResponseWriter, r *http.Request, origin string, params json.RawMessage) {
	signedTx, err := s.signer.SignTransaction(r.Context(), origin, params)
	if err != nil {
		s.writeRPCError(w, app.MethodSignTransaction, err)
		return
	}

	metrics.RequestsTotal.WithLabelValues(app.MethodSignTransaction, "ok").Inc()

	s.writeJSON(w, http.StatusOK, RPCResponse{
		Method: app.MethodSignTransaction,
		Data: map[string]interface{}{
			"signed_transaction": signedTx,
			"encoding":           "borsh",
		},
	})
}

// writeRPCError maps a service error onto the wire and counts it
func (s *Server) writeRPCError(w http.ResponseWriter, method string, err error) {
	if appErr, ok := apperrors.IsAppError(err); ok {
		metrics.RequestsTotal.WithLabelValues(method, appErr.Code).Inc()
		s.writeError(w, appErr)
		return
	}

	metrics.RequestsTotal.WithLabelValues(method, apperrors.ErrCodeInternalError).Inc()
	s.writeError(w, apperrors.NewWithDetail(
		apperrors.ErrCodeInternalError,
		"Request failed",
		err.Error(),
		http.StatusInternalServerError,
	))
}

// requestOrigin identifies the requesting application for the
// confirmation summary and the audit trail.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	if appID := r.Header.Get("X-App-ID"); appID != "" {
		return appID
	}
	return r.RemoteAddr
}
