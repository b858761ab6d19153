package envelope

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/MrEthical07/authpipe/internal/classify"
)

// SuccessCode is the application code of a successful envelope.
const SuccessCode = 200

// MalformedMessage is the message of the record returned for undecodable 2xx bodies.
const MalformedMessage = "malformed response envelope"

// Raw is the minimal view of a transport response needed for normalization.
type Raw struct {
	StatusCode int
	Body       []byte
}

// Page is pagination metadata inlined in a successful data object.
type Page struct {
	Items    json.RawMessage
	Total    int64
	Current  int64
	PageSize int64
}

// Result is either a payload (Err == nil) or a classified failure.
type Result struct {
	Code    int
	Message string
	Data    json.RawMessage
	Page    *Page
	Err     *classify.Record
}

// OK reports whether the result carries a payload.
func (r Result) OK() bool { return r.Err == nil }

type wire struct {
	Code    *int            `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Msg     string          `json:"msg"`
}

func (w wire) message() string {
	if strings.TrimSpace(w.Message) != "" {
		return w.Message
	}
	return w.Msg
}

type pageWire struct {
	Items    json.RawMessage `json:"items"`
	Total    *int64          `json:"total"`
	Current  *int64          `json:"current"`
	PageSize *int64          `json:"pageSize"`
}

// Normalize maps a raw response (or the transport error that prevented one) to a
// Result.
func Normalize(raw *Raw, transportErr error) Result {
	if transportErr != nil {
		rec := classify.Classify(classify.Outcome{Err: transportErr})
		return Result{Err: &rec}
	}
	if raw == nil {
		rec := classify.Record{Kind: classify.NetworkFailure, Message: classify.DefaultMessage(classify.NetworkFailure)}
		return Result{Err: &rec}
	}

	env, decoded := decode(raw.Body)

	if raw.StatusCode < 200 || raw.StatusCode > 299 {
		return failure(raw.StatusCode, env, decoded)
	}

	if !decoded || env.Code == nil {
		rec := classify.Record{
			Kind:       classify.UnknownFailure,
			Message:    MalformedMessage,
			HTTPStatus: raw.StatusCode,
		}
		return Result{Err: &rec}
	}

	code := *env.Code
	if code != SuccessCode {
		rec := classify.Classify(classify.Outcome{HTTPStatus: raw.StatusCode, Code: code, Message: env.message()})
		return Result{Code: code, Message: env.message(), Err: &rec}
	}

	return Result{
		Code:    code,
		Message: env.message(),
		Data:    env.Data,
		Page:    page(env.Data),
	}
}

func failure(status int, env wire, decoded bool) Result {
	var msg string
	if decoded {
		msg = env.message()
	}
	// An envelope 401 wins over the HTTP status: both signal an expired credential.
	if decoded && env.Code != nil && *env.Code == classify.StatusUnauthorized {
		rec := classify.Classify(classify.Outcome{HTTPStatus: status, Code: classify.StatusUnauthorized, Message: msg})
		return Result{Code: *env.Code, Message: msg, Err: &rec}
	}
	rec := classify.Classify(classify.Outcome{HTTPStatus: status, Code: status, Message: msg})
	res := Result{Message: msg, Err: &rec}
	if decoded && env.Code != nil {
		res.Code = *env.Code
	}
	return res
}

func decode(body []byte) (wire, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return wire{}, false
	}
	var w wire
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return wire{}, false
	}
	return w, true
}

func page(data json.RawMessage) *Page {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var pw pageWire
	if err := json.Unmarshal(trimmed, &pw); err != nil || pw.Items == nil {
		return nil
	}
	p := &Page{Items: pw.Items}
	if pw.Total != nil {
		p.Total = *pw.Total
	}
	if pw.Current != nil {
		p.Current = *pw.Current
	}
	if pw.PageSize != nil {
		p.PageSize = *pw.PageSize
	}
	return p
}
