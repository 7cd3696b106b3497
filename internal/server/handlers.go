package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/MrWong99/voxscribe/internal/observe"
	"github.com/MrWong99/voxscribe/internal/pipeline"
	"github.com/MrWong99/voxscribe/internal/preprocess"
	"github.com/MrWong99/voxscribe/internal/transcript"
)

// maxRequestBytes caps the whole multipart request body: the audio limit
// plus headroom for the multipart framing.
const maxRequestBytes = preprocess.MaxUploadBytes + 1<<20

// transcribeResponse is the body returned by POST /api/transcribe.
type transcribeResponse struct {
	Transcript transcript.Transcript  `json:"transcript"`
	Degraded   bool                   `json:"degraded"`
	Stages     []pipeline.StageStatus `json:"stages"`
}

// handleTranscribe accepts a multipart upload with an "audio" part, runs the
// pipeline on it, and stores the resulting transcript.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	log := observe.Logger(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	file, header, err := r.FormFile("audio")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusBadRequest, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, `missing or unreadable "audio" form part`)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error("failed to read upload", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}

	blob := preprocess.Blob{Filename: header.Filename, Data: data}
	result, err := s.processor.Process(r.Context(), blob)
	switch {
	case errors.Is(err, pipeline.ErrInvalidAudio):
		writeError(w, http.StatusBadRequest,
			"invalid audio: must be a .wav file of at most 50 MiB")
		return
	case err != nil:
		log.Error("pipeline run failed", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "transcription failed")
		return
	}

	tr := transcript.Transcript{
		AudioFilename: header.Filename,
		Audio:         data,
		ConvertedText: result.ConvertedText,
		CorrectedText: result.CorrectedText,
		Strategy:      result.Strategy,
	}
	if err := s.store.Create(r.Context(), &tr); err != nil {
		log.Error("failed to store transcript", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store transcript")
		return
	}

	log.Info("transcription stored",
		"id", tr.ID,
		"filename", tr.AudioFilename,
		"strategy", result.Strategy,
		"degraded", result.Degraded(),
	)
	writeJSON(w, http.StatusCreated, transcribeResponse{
		Transcript: tr,
		Degraded:   result.Degraded(),
		Stages:     result.Stages,
	})
}

// handleList returns all stored transcripts, newest first.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("failed to list transcripts", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transcripts")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleGet returns one transcript by ID.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tr, err := s.store.Get(r.Context(), id)
	if errors.Is(err, transcript.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transcript not found")
		return
	}
	if err != nil {
		observe.Logger(r.Context()).Error("failed to get transcript", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get transcript")
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

// handleDelete removes one transcript by ID.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := s.store.Delete(r.Context(), id)
	if errors.Is(err, transcript.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transcript not found")
		return
	}
	if err != nil {
		observe.Logger(r.Context()).Error("failed to delete transcript", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete transcript")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} path value, writing a 400 response on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid transcript id")
		return 0, false
	}
	return id, true
}
