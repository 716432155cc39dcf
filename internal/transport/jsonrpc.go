package transport

import (
	"encoding/json"

	"github.com/cloi-dev/hub/internal/hubcore"
)

// JSON-RPC 2.0 error codes. The standard codes are fixed by the
// protocol; the -3200x block is reserved for hub-specific conditions.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeTaskNotFound      = -32001
	CodeTaskNotCancelable = -32002
	CodeReserved          = -32003
	CodeNotImplemented    = -32004
)

// codeForKind maps a hubcore.Kind to its JSON-RPC numeric code.
func codeForKind(k hubcore.Kind) int {
	switch k {
	case hubcore.KindInvalidRequest:
		return CodeInvalidRequest
	case hubcore.KindMethodNotFound:
		return CodeMethodNotFound
	case hubcore.KindInvalidParams:
		return CodeInvalidParams
	case hubcore.KindTaskNotFound:
		return CodeTaskNotFound
	case hubcore.KindTaskNotCancelable:
		return CodeTaskNotCancelable
	case hubcore.KindNotImplemented:
		return CodeNotImplemented
	case hubcore.KindReserved:
		return CodeReserved
	case hubcore.KindUnauthorized:
		return CodeInvalidRequest
	case hubcore.KindNoSuitableAgents, hubcore.KindConsensusNotReached, hubcore.KindHandlerFailure,
		hubcore.KindTransportUnavailable, hubcore.KindTimeout:
		return CodeInternalError
	default:
		return CodeInternalError
	}
}

// request is one JSON-RPC 2.0 request object.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// rpcError is a JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// response is one JSON-RPC 2.0 response object. Result and Error are
// mutually exclusive.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

func errorResponse(id json.RawMessage, err error) response {
	kind := hubcore.KindOf(err)
	return response{
		JSONRPC: "2.0",
		Error:   &rpcError{Code: codeForKind(kind), Message: err.Error()},
		ID:      id,
	}
}

func resultResponse(id json.RawMessage, result any) response {
	return response{JSONRPC: "2.0", Result: result, ID: id}
}
