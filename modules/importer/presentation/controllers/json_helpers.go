package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	importerservices "github.com/aqlhr/import-engine/modules/importer/services"
	"github.com/aqlhr/import-engine/pkg/composables"
	"github.com/aqlhr/import-engine/pkg/httpapi"
)

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps service failures onto the response envelope. Unknown
// errors collapse to the unexpected catch-all without leaking internals.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *importerservices.ServiceError
	if errors.As(err, &svcErr) {
		_ = httpapi.WriteError(w, svcErr.Status, svcErr.Code, "")
		return
	}

	if logger, ok := composables.TryUseLogger(r.Context()); ok {
		logger.WithError(err).Error("unhandled service error")
	}
	_ = httpapi.WriteError(w, http.StatusInternalServerError, "unexpected", "")
}
