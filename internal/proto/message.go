// Package proto defines the JSON message envelope spoken between clients
// and the server: one REQUEST object per inbound message, one RESPONSE
// object per reply or server-initiated push.
package proto

import (
	"encoding/json"
	"fmt"
)

const (
	TypeRequest  = "REQUEST"
	TypeResponse = "RESPONSE"
)

// Canned responses, byte-stable. The 401 response always names AUTH as its
// command, whatever request produced it; existing clients key off that.
const (
	RespBadRequest   = `{ "type":"RESPONSE", "code":400, "data":"Bad request"}`
	RespServerError  = `{ "type":"RESPONSE", "code":500, "data":"Internal server error"}`
	RespUnauthorized = `{ "type":"RESPONSE", "command":"AUTH", "code":401, "data":"Unauthorized"}`
)

// Request is the inbound envelope. Only Command is universally required;
// the dispatcher validates per-command fields. Quota and priority fields
// accept both JSON numbers and quoted digit strings.
type Request struct {
	Type     string `json:"type"`
	Command  string `json:"command"`
	Username string `json:"username"`
	Password string `json:"password"`
	Token    string `json:"token"`
	Path     string `json:"path"`
	Name     string `json:"name"`
	Data     string `json:"data"`
	Priority FlexInt  `json:"priority"`
	Public   *FlexInt `json:"public"`
	Private  *FlexInt `json:"private"`
}

// ParseRequest decodes a raw message into a Request. The raw bytes must be
// a single JSON object; anything else is a parse error.
func ParseRequest(raw string) (*Request, error) {
	req := &Request{}
	if err := json.Unmarshal([]byte(raw), req); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	return req, nil
}

// Response is the outbound envelope for direct replies.
type Response struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Code    int    `json:"code"`
	Data    any    `json:"data"`
	Token   string `json:"token,omitempty"`
}

// NewResponse renders a reply with the given code and free-form data.
func NewResponse(code int, command string, data any) string {
	return marshal(Response{
		Type:    TypeResponse,
		Command: command,
		Code:    code,
		Data:    data,
	})
}

// NewAuthResponse renders a successful AUTH reply, optionally carrying a
// re-authentication token.
func NewAuthResponse(welcome, token string) string {
	return marshal(Response{
		Type:    TypeResponse,
		Command: "AUTH",
		Code:    200,
		Data:    welcome,
		Token:   token,
	})
}

// ListResponse is the reply to LS: directory children split into plain
// files and subdirectories.
type ListResponse struct {
	Type    string   `json:"type"`
	Command string   `json:"command"`
	Code    int      `json:"code"`
	Path    string   `json:"path"`
	Files   []string `json:"files"`
	Dirs    []string `json:"dirs"`
}

// NewListResponse renders the LS reply. Nil slices are rendered as empty
// arrays so clients always see lists.
func NewListResponse(path string, files, dirs []string) string {
	if files == nil {
		files = []string{}
	}
	if dirs == nil {
		dirs = []string{}
	}
	return marshal(ListResponse{
		Type:    TypeResponse,
		Command: "LS",
		Code:    200,
		Path:    path,
		Files:   files,
		Dirs:    dirs,
	})
}

// ChunkMessage is the server-initiated push carrying one download chunk.
// It is not a reply: it arrives out-of-band relative to the DWL request
// that started the transfer.
type ChunkMessage struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Code    int    `json:"code"`
	Path    string `json:"path"`
	Offset  int64  `json:"offset"`
	Data    string `json:"data"`
	EOF     bool   `json:"eof"`
}

// NewChunkMessage renders one download-progress push for the given logical
// path. Data is the codec-encoded chunk that started at offset.
func NewChunkMessage(path string, offset int64, data string, eof bool) string {
	return marshal(ChunkMessage{
		Type:    TypeResponse,
		Command: "DWL",
		Code:    200,
		Path:    path,
		Offset:  offset,
		Data:    data,
		EOF:     eof,
	})
}

func marshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// All envelope types marshal cleanly; this is unreachable with
		// well-formed fields.
		return RespServerError
	}
	return string(b)
}
