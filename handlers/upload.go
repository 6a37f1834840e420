package handlers

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/andrewpaige1/studyplan-api/extract"
)

const maxUploadBytes = 10 << 20

// POST /api/uploads/extract
func (db *DBHandler) ExtractUpload(w http.ResponseWriter, r *http.Request) {
	if _, err := currentUser(r); err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, &httpError{status: http.StatusRequestEntityTooLarge, message: "File is too large"})
			return
		}
		writeError(w, r, badRequest("A multipart file field named \"file\" is required"))
		return
	}
	defer file.Close()

	text, err := db.Extractor.Extract(r.Context(), header.Filename, file)
	switch {
	case errors.Is(err, extract.ErrUnsupportedType):
		writeError(w, r, &httpError{status: http.StatusUnsupportedMediaType, message: "Only plain text and Markdown files are supported"})
		return
	case errors.Is(err, extract.ErrTooLarge):
		writeError(w, r, &httpError{status: http.StatusRequestEntityTooLarge, message: "File is too large"})
		return
	case errors.Is(err, extract.ErrEmpty):
		writeError(w, r, badRequest("File contains no text"))
		return
	case err != nil:
		writeError(w, r, serverError("Error reading file", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}
