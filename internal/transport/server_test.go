package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloi-dev/hub/internal/agentregistry"
	"github.com/cloi-dev/hub/internal/card"
	"github.com/cloi-dev/hub/internal/handler"
	"github.com/cloi-dev/hub/internal/hubcore"
	"github.com/cloi-dev/hub/internal/router"
	"github.com/cloi-dev/hub/internal/taskengine"
)

func newTestServer(t *testing.T, bearerToken string) (*Server, *agentregistry.Registry) {
	t.Helper()
	reg := agentregistry.New(time.Minute, "host-1")
	reg.Register(hubcore.AgentRecord{Identity: "agent-a", Capabilities: []string{"go"}})

	engine := taskengine.New(reg, handler.Stub{}, taskengine.Config{})
	rtr := router.New(16, 16)
	pub := card.New(card.Config{Name: "cloi-hub", Version: "1.0.0"})

	srv := New(Deps{
		Registry:    reg,
		Engine:      engine,
		Router:      rtr,
		Card:        pub,
		Handler:     handler.Stub{},
		BearerToken: bearerToken,
	})
	return srv, reg
}

func doRPC(t *testing.T, ts *httptest.Server, method string, params any) response {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      json.RawMessage(`1`),
	})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var rpcResp response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	return rpcResp
}

func TestTasksSendAndGet(t *testing.T) {
	srv, _ := newTestServer(t, "")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp := doRPC(t, ts, "tasks/send", tasksSendParams{
		Requester:            "requester-1",
		RequiredCapabilities: []string{"go"},
		CoordinationPattern:  hubcore.PatternPeerToPeer,
	})
	require.Nil(t, resp.Error)

	resultBytes, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var task hubcore.Task
	require.NoError(t, json.Unmarshal(resultBytes, &task))
	assert.Equal(t, hubcore.TaskStateWorking, task.State)

	getResp := doRPC(t, ts, "tasks/get", idParams{ID: task.ID})
	require.Nil(t, getResp.Error)
}

func TestTasksGetUnknownReturnsTaskNotFoundCode(t *testing.T) {
	srv, _ := newTestServer(t, "")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp := doRPC(t, ts, "tasks/get", idParams{ID: "missing"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeTaskNotFound, resp.Error.Code)
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	srv, _ := newTestServer(t, "")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp := doRPC(t, ts, "not/a/method", map[string]any{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestAgentCardEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/.well-known/agent.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var gotCard hubcore.AgentCard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&gotCard))
	assert.Equal(t, "cloi-hub", gotCard.Name)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBearerTokenRequired(t *testing.T) {
	srv, _ := newTestServer(t, "secret-token")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	body := []byte(`{"jsonrpc":"2.0","method":"tasks/get","params":{"id":"missing"},"id":1}`)

	resp, err := http.Post(ts.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, ts.URL, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret-token")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestMessageSendCreatesTaskAndInvokesHandler(t *testing.T) {
	srv, reg := newTestServer(t, "")
	reg.Remove("agent-a") // no peers: must fall back to the host Handler
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp := doRPC(t, ts, "message/send", messageSendParams{
		Message: hubcore.TaskMessage{
			Role:  "user",
			Parts: []*hubcore.MessagePart{hubcore.TextPart("TypeError: cannot read property 'x' of undefined")},
		},
	})
	require.Nil(t, resp.Error)

	resultBytes, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result struct {
		TaskID  string              `json:"taskId"`
		Message hubcore.TaskMessage `json:"message"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &result))

	assert.NotEmpty(t, result.TaskID)
	require.Equal(t, "agent", result.Message.Role)
	require.Len(t, result.Message.Parts, 1)
	assert.Contains(t, *result.Message.Parts[0].Text, "JavaScript runtime error")
	assert.InDelta(t, 0.85, result.Message.Metadata["confidence"], 0.0001)

	getResp := doRPC(t, ts, "tasks/get", idParams{ID: result.TaskID})
	require.Nil(t, getResp.Error)
	taskBytes, err := json.Marshal(getResp.Result)
	require.NoError(t, err)
	var task hubcore.Task
	require.NoError(t, json.Unmarshal(taskBytes, &task))
	assert.Equal(t, hubcore.TaskStateCompleted, task.State)
}

func TestMessageSendMissingTextPartRejected(t *testing.T) {
	srv, _ := newTestServer(t, "")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp := doRPC(t, ts, "message/send", messageSendParams{
		Message: hubcore.TaskMessage{Role: "user"},
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestMessageStreamEmitsAtLeastFourFramedEvents(t *testing.T) {
	srv, reg := newTestServer(t, "")
	reg.Remove("agent-a")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  "message/stream",
		"params": messageSendParams{
			Message: hubcore.TaskMessage{
				Role:  "user",
				Parts: []*hubcore.MessagePart{hubcore.TextPart("ReferenceError: x is not defined")},
			},
		},
		"id": json.RawMessage(`7`),
	})
	require.NoError(t, err)

	httpReq, err := http.NewRequest(http.MethodPost, ts.URL, bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	frame := string(raw)

	events := strings.Split(strings.TrimSpace(frame), "\n\n")
	require.GreaterOrEqual(t, len(events), 4, "message/stream must emit at least 4 SSE events")

	for _, ev := range events {
		lines := strings.Split(ev, "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "id: "))
		assert.True(t, strings.HasPrefix(lines[1], "data: "))
		assert.False(t, strings.HasPrefix(ev, "event:"))

		var rpcResp response
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &rpcResp))
		assert.Equal(t, json.RawMessage(`7`), rpcResp.ID)
	}

	var first hubcore.TaskEvent
	firstData := strings.TrimPrefix(strings.Split(events[0], "\n")[1], "data: ")
	var firstResp response
	require.NoError(t, json.Unmarshal([]byte(firstData), &firstResp))
	resultBytes, err := json.Marshal(firstResp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(resultBytes, &first))
	require.NotNil(t, first.Message)
	require.Len(t, first.Message.Parts, 1)
	assert.Equal(t, "Starting analysis…", *first.Message.Parts[0].Text)

	var last hubcore.TaskEvent
	lastData := strings.TrimPrefix(strings.Split(events[len(events)-1], "\n")[1], "data: ")
	var lastResp response
	require.NoError(t, json.Unmarshal([]byte(lastData), &lastResp))
	resultBytes, err = json.Marshal(lastResp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(resultBytes, &last))
	assert.True(t, last.Final)
}

func TestReservedMethodsReturnExplicitCodes(t *testing.T) {
	srv, _ := newTestServer(t, "")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	setResp := doRPC(t, ts, "tasks/pushNotificationConfig/set", map[string]any{})
	require.NotNil(t, setResp.Error)
	assert.Equal(t, CodeReserved, setResp.Error.Code)

	getResp := doRPC(t, ts, "tasks/pushNotificationConfig/get", map[string]any{})
	require.NotNil(t, getResp.Error)
	assert.Equal(t, CodeReserved, getResp.Error.Code)

	resubscribeResp := doRPC(t, ts, "tasks/resubscribe", map[string]any{})
	require.NotNil(t, resubscribeResp.Error)
	assert.Equal(t, CodeNotImplemented, resubscribeResp.Error.Code)
}

func TestAgentCardEndpointExemptFromAuth(t *testing.T) {
	srv, _ := newTestServer(t, "secret-token")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/.well-known/agent.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSPreflightHandled(t *testing.T) {
	srv, _ := newTestServer(t, "")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Methods"))
}
