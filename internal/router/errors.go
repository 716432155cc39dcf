package router

import "github.com/cloi-dev/hub/internal/hubcore"

// ErrPolicyDenied is returned by Route when the sender's Policy
// rejects the message's type.
var ErrPolicyDenied = hubcore.NewError(hubcore.KindUnauthorized, "message type denied by sender policy")

// ErrUnknownRecipient is returned by Route when m.To names no
// connected agent and is not hubcore.BroadcastTarget.
var ErrUnknownRecipient = hubcore.NewError(hubcore.KindInvalidParams, "recipient is not connected")
