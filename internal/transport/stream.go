package transport

import (
	"encoding/json"
	"net/http"

	"github.com/cloi-dev/hub/internal/hubcore"
)

// handleMessageStream answers a message/stream JSON-RPC request as a
// sequence of Server-Sent Events, each carrying a full JSON-RPC
// response object whose id matches the request's. Unlike
// /stream/{identity}, which relays the peer-fabric outbox, this
// streams the lifecycle of the single task the request creates: a
// starting acknowledgement, interim status updates, and the final
// answer.
func (s *Server) handleMessageStream(w http.ResponseWriter, req *http.Request, rpcReq request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusOK, errorResponse(rpcReq.ID, hubcore.NewError(hubcore.KindTransportUnavailable, "streaming unsupported by this connection")))
		return
	}

	if s.deps.Validator != nil {
		if err := s.deps.Validator.Validate(rpcReq.Params); err != nil {
			writeJSON(w, http.StatusOK, errorResponse(rpcReq.ID, hubcore.Wrap(hubcore.KindInvalidParams, "message/stream params failed schema validation", err)))
			return
		}
	}
	var p messageSendParams
	if err := json.Unmarshal(rpcReq.Params, &p); err != nil {
		writeJSON(w, http.StatusOK, errorResponse(rpcReq.ID, hubcore.NewError(hubcore.KindInvalidParams, "malformed message/stream params")))
		return
	}
	input := extractText(p.Message)
	if input == "" {
		writeJSON(w, http.StatusOK, errorResponse(rpcReq.ID, hubcore.NewError(hubcore.KindInvalidParams, "message must contain at least one text part")))
		return
	}
	requester := p.Requester
	if requester == "" {
		requester = "anonymous"
	}
	pattern := p.CoordinationPattern
	if pattern == "" {
		pattern = hubcore.PatternPeerToPeer
	}

	task, err := s.deps.Engine.Create(req.Context(), requester, input, p.RequiredCapabilities, pattern)
	if err != nil {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		writeSSEEvent(w, flusher, errorResponse(rpcReq.ID, err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(event hubcore.TaskEvent) {
		writeSSEEvent(w, flusher, resultResponse(rpcReq.ID, event))
	}

	emit(hubcore.TaskEvent{
		Type:   "message",
		TaskID: task.ID,
		Message: &hubcore.TaskMessage{
			Role:  "agent",
			Parts: []*hubcore.MessagePart{hubcore.TextPart("Starting analysis…")},
		},
	})
	emit(hubcore.TaskEvent{
		Type:   "status",
		TaskID: task.ID,
		Status: &hubcore.TaskStatus{State: string(hubcore.TaskStateWorking)},
	})
	emit(hubcore.TaskEvent{
		Type:   "status",
		TaskID: task.ID,
		Status: &hubcore.TaskStatus{State: string(task.State)},
	})

	reply := replyMessage(task)
	emit(hubcore.TaskEvent{
		Type:    "message",
		TaskID:  task.ID,
		Final:   true,
		Message: &reply,
	})
}
