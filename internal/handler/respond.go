package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// writeJSON writes an encoded JSON body with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		zctx.From(r.Context()).Debug("write response", zap.Error(err))
	}
}

// writeError writes the error envelope {code, message}.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, r, status, e)
}
