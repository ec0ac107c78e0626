package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRequest_Basic(t *testing.T) {
	raw := `{"type":"REQUEST","command":"AUTH","username":"alice","password":"pw"}`
	req, err := ParseRequest(raw)
	require.NoError(t, err)
	require.Equal(t, TypeRequest, req.Type)
	require.Equal(t, "AUTH", req.Command)
	require.Equal(t, "alice", req.Username)
	require.Equal(t, "pw", req.Password)
}

func TestParseRequest_Malformed(t *testing.T) {
	_, err := ParseRequest(`{"command":`)
	require.Error(t, err)
}

func TestParseRequest_PriorityAcceptsNumberAndString(t *testing.T) {
	req, err := ParseRequest(`{"command":"DWL","path":"a/public/f","priority":7}`)
	require.NoError(t, err)
	require.Equal(t, 7, req.Priority.Int())

	req, err = ParseRequest(`{"command":"DWL","path":"a/public/f","priority":"3"}`)
	require.NoError(t, err)
	require.Equal(t, 3, req.Priority.Int())
}

func TestParseRequest_QuotaPresence(t *testing.T) {
	req, err := ParseRequest(`{"command":"CREATEUSER","username":"bob","password":"x","public":10,"private":"20"}`)
	require.NoError(t, err)
	require.NotNil(t, req.Public)
	require.NotNil(t, req.Private)
	require.Equal(t, 10, req.Public.Int())
	require.Equal(t, 20, req.Private.Int())

	req, err = ParseRequest(`{"command":"CREATEUSER","username":"bob","password":"x"}`)
	require.NoError(t, err)
	require.Nil(t, req.Public)
	require.Nil(t, req.Private)
}

func TestCannedResponses_AreByteStable(t *testing.T) {
	require.Equal(t, `{ "type":"RESPONSE", "code":400, "data":"Bad request"}`, RespBadRequest)
	require.Equal(t, `{ "type":"RESPONSE", "code":500, "data":"Internal server error"}`, RespServerError)
	require.Equal(t, `{ "type":"RESPONSE", "command":"AUTH", "code":401, "data":"Unauthorized"}`, RespUnauthorized)
}

func TestNewResponse(t *testing.T) {
	out := NewResponse(200, "TOUCH", "File created")
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, TypeResponse, resp.Type)
	require.Equal(t, "TOUCH", resp.Command)
	require.Equal(t, 200, resp.Code)
	require.Equal(t, "File created", resp.Data)
}

func TestNewListResponse_EmptySlicesNotNull(t *testing.T) {
	out := NewListResponse("alice/public", nil, nil)
	require.Contains(t, out, `"files":[]`)
	require.Contains(t, out, `"dirs":[]`)

	out = NewListResponse("alice/public", []string{"a.txt"}, []string{"sub"})
	var resp ListResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, []string{"a.txt"}, resp.Files)
	require.Equal(t, []string{"sub"}, resp.Dirs)
	require.Equal(t, "alice/public", resp.Path)
}

func TestNewChunkMessage(t *testing.T) {
	out := NewChunkMessage("alice/public/a.bin", 4096, "AAAA", true)
	var msg ChunkMessage
	require.NoError(t, json.Unmarshal([]byte(out), &msg))
	require.Equal(t, "DWL", msg.Command)
	require.Equal(t, int64(4096), msg.Offset)
	require.Equal(t, "AAAA", msg.Data)
	require.True(t, msg.EOF)
}

func TestNewAuthResponse_TokenOmittedWhenEmpty(t *testing.T) {
	out := NewAuthResponse("Welcome alice", "")
	require.NotContains(t, out, "token")

	out = NewAuthResponse("Welcome alice", "tok123")
	require.Contains(t, out, `"token":"tok123"`)
}
