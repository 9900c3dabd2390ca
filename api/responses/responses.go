package responses

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
)

// WriteJSON writes the payload as-is with the given status. Success
// bodies carry no envelope, storefront clients consume the raw object.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}

func WriteSuccess(w http.ResponseWriter, payload any) {
	WriteJSON(w, http.StatusOK, payload)
}

// WriteError maps the error to its HTTP status and writes a plain-text
// body. Client-caused errors expose their own message, server-side
// errors only the generic one.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if meta.MessageAllowed {
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	if logg != nil {
		dump := pkgerrors.Dump(err)
		ctx = logg.WithFields(ctx, map[string]any{
			"error":         dump.TopMessage,
			"error_code":    dump.Code,
			"error_chain":   dump.Chain,
			"pg_code":       dump.PGCode,
			"pg_detail":     dump.PGDetail,
			"pg_message":    dump.PGMessage,
			"pg_table":      dump.PGTable,
			"pg_column":     dump.PGColumn,
			"pg_constraint": dump.PGConstraint,
		})
		logg.Error(ctx, "request.error", err)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(meta.HTTPStatus)
	if _, writeErr := w.Write([]byte(msg)); writeErr != nil {
		log.Printf(`{"level":"error","msg":"failed to write error response","err":"%v"}`, writeErr)
	}
}
