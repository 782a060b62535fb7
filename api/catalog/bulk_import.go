package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"storeadmin_server/lib"
	"storeadmin_server/services"
	"storeadmin_server/structs"
	"strconv"
	"strings"

	"github.com/MonkyMars/gecho"
)

// multipart parts above this size are spooled to disk
const multipartMemory = 8 << 20

// BulkImport reconciles the uploaded CSV parts against the catalog. The body
// is the bare import result, the admin UI reads it as is.
func (cr *CatalogRoutesManager) BulkImport(w http.ResponseWriter, r *http.Request) {
	if cr.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cr.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			cr.writeFailure(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		cr.writeFailure(w, http.StatusBadRequest, "expected a multipart/form-data upload with 'collections' and/or 'products' CSV files")
		return
	}
	defer r.MultipartForm.RemoveAll()

	dryRun, err := parseDryRun(r.FormValue("dry_run"))
	if err != nil {
		cr.writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	in := services.ImportInput{DryRun: dryRun}
	if in.Collections, err = readPart(r.MultipartForm, "collections"); err != nil {
		cr.writeError(w, err)
		return
	}
	if in.Products, err = readPart(r.MultipartForm, "products"); err != nil {
		cr.writeError(w, err)
		return
	}
	if in.Collections == nil && in.Products == nil {
		cr.writeFailure(w, http.StatusBadRequest, "upload at least one of 'collections' or 'products'")
		return
	}

	result, err := cr.importService.Import(r.Context(), in)
	if err != nil {
		cr.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// parseDryRun defaults to a preview when the field is absent
func parseDryRun(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("dry_run must be true or false, got %q", raw)
	}
	return v, nil
}

// readPart returns the named file, or nil when it was not uploaded
func readPart(form *multipart.Form, name string) ([]byte, error) {
	files := form.File[name]
	if len(files) == 0 {
		return nil, nil
	}
	header := files[0]
	if err := services.CheckCSVContentType(name, header.Header.Get("Content-Type")); err != nil {
		return nil, err
	}

	f, err := header.Open()
	if err != nil {
		return nil, lib.NewInputError("%s: could not open upload: %v", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, lib.NewInputError("%s: could not read upload: %v", name, err)
	}
	return data, nil
}

func (cr *CatalogRoutesManager) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lib.ErrValidation):
		cr.writeFailure(w, http.StatusBadRequest, err.Error())
	case lib.IsTransient(err):
		cr.logger.Warn("Bulk import aborted, backend unavailable", gecho.Field("error", err))
		cr.writeFailure(w, http.StatusServiceUnavailable, fmt.Sprintf("backend unavailable, nothing was written, retry shortly: %v", err))
	default:
		cr.logger.Error("Bulk import failed", gecho.Field("error", err))
		cr.writeFailure(w, http.StatusInternalServerError, fmt.Sprintf("import failed: %v", err))
	}
}

func (cr *CatalogRoutesManager) writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, structs.ImportFailure{OK: false, Logs: []string{message}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
