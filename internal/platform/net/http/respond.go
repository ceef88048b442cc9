package http

import (
	"encoding/json"
	"net/http"

	perr "picktrack/internal/platform/errors"
	pnet "picktrack/internal/platform/net"
)

// Envelope wraps every JSON body the API writes
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	Field      string         `json:"field,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// JSON writes v with the given status
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func envelope(r *http.Request, status int) Envelope {
	return Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		RequestID:  pnet.RequestID(r.Context()),
	}
}

// RespondError maps err to its status and writes the error envelope
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status, wire := perr.HTTP(err)
	env := envelope(r, status)
	env.Code = wire.Code
	env.Error = wire.Message
	env.Field = wire.Field
	JSON(w, status, env)
}

// Response is what return-style handlers hand back; Body may be an error
type Response struct {
	Status int
	Body   any
	Header http.Header
}

// Handle adapts a return-style handler
func Handle(fn func(*http.Request) Response) Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(r).write(w, r)
	}
}

func (resp Response) write(w http.ResponseWriter, r *http.Request) {
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	if err, ok := resp.Body.(error); ok && err != nil {
		RespondError(w, r, err)
		return
	}
	status := resp.Status
	switch status {
	case 0:
		status = http.StatusOK
	case http.StatusNoContent:
		w.WriteHeader(status)
		return
	}
	env := envelope(r, status)
	env.Data = resp.Body
	JSON(w, status, env)
}

// OK is a 200 with data
func OK(data any) Response { return Response{Status: http.StatusOK, Body: data} }

// Created is a 201 with data
func Created(data any) Response { return Response{Status: http.StatusCreated, Body: data} }

// NoContent is a bare 204
func NoContent() Response { return Response{Status: http.StatusNoContent} }

// Error lets the error pick the status
func Error(err error) Response { return Response{Body: err} }
