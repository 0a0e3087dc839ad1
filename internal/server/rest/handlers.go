package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/pdfvault/pdfvault/internal/common"
	"github.com/pdfvault/pdfvault/internal/server/docview"
	"github.com/pdfvault/pdfvault/internal/server/models"
)

// documentJSON is the wire form of a catalog record.
type documentJSON struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

func toDocumentJSON(d *models.Document) documentJSON {
	return documentJSON{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		Name:      d.Name,
		URL:       d.URL,
		SizeBytes: d.SizeBytes,
		CreatedAt: d.CreatedAt,
	}
}

type listResponse struct {
	Documents []documentJSON `json:"documents"`
	Loading   bool           `json:"loading"`
	Error     string         `json:"error,omitempty"`
}

func toListResponse(snap docview.Snapshot) listResponse {
	out := listResponse{Loading: snap.Loading, Documents: make([]documentJSON, 0, len(snap.Documents))}
	for i := range snap.Documents {
		out.Documents = append(out.Documents, toDocumentJSON(&snap.Documents[i]))
	}
	if snap.Err != nil {
		out.Error = snap.Err.Error()
	}
	return out
}

// handleListDocuments refreshes and returns the owner's list. A failed
// refresh still answers 200: the body carries the retained previous list
// together with the retryable error, which is exactly the state the
// presentation layer renders.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r.Context())

	snap, err := s.view.Refresh(r.Context(), owner)
	if err != nil && !errors.Is(err, common.ErrFetchFailed) {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toListResponse(snap))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r.Context())

	// The authoritative size check is the controller's. The reader guard
	// only keeps a lying client from streaming unbounded bytes, so it needs
	// headroom over the cap for multipart boundaries and part headers: a
	// file of exactly the cap must still get through to the controller.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+32<<10)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer file.Close()

	doc, err := s.controller.BeginUpload(r.Context(), owner, models.FileHandle{
		Name:      header.Filename,
		SizeBytes: header.Size,
		Reader:    file,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.view.Append(owner, doc)

	writeJSON(w, http.StatusCreated, toDocumentJSON(doc))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r.Context())
	id := chi.URLParam(r, "id")

	if _, err := s.controller.DeleteDocument(r.Context(), owner, id); err != nil {
		writeError(w, err)
		return
	}

	s.view.Remove(owner, id)

	w.WriteHeader(http.StatusNoContent)
}

// handleView resolves a short-lived URL for the document. A missing backing
// object answers 410 with a repair offer; repeating the request with
// ?purge=1 deletes the stale catalog record.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r.Context())
	id := chi.URLParam(r, "id")

	doc, ok := s.view.Get(owner, id)
	if !ok {
		// Cold view (no refresh yet this session): fill it and retry once.
		if _, err := s.view.Refresh(r.Context(), owner); err != nil {
			writeError(w, err)
			return
		}
		if doc, ok = s.view.Get(owner, id); !ok {
			writeError(w, common.ErrNotFound)
			return
		}
	}

	url, err := s.resolver.ResolveView(r.Context(), doc)
	if err != nil {
		if errors.Is(err, common.ErrObjectMissing) && r.URL.Query().Get("purge") == "1" {
			if perr := s.resolver.PurgeStaleRecord(r.Context(), owner, id); perr != nil {
				writeError(w, perr)
				return
			}
			s.view.Remove(owner, id)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	// An empty or absent body cancels whichever upload is active.
	_ = json.NewDecoder(r.Body).Decode(&req)

	var cancelled bool
	if req.Name != "" {
		cancelled = s.controller.Cancel(owner, req.Name)
	} else {
		cancelled = s.controller.CancelActive(owner)
	}

	writeJSON(w, http.StatusAccepted, map[string]bool{"cancelled": cancelled})
}

func (s *Server) handleActiveTransfer(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r.Context())

	snap, ok := s.controller.Snapshot(owner)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := struct {
		Name     string  `json:"name"`
		Phase    string  `json:"phase"`
		Progress float64 `json:"progressFraction"`
		Error    string  `json:"error,omitempty"`
	}{
		Name:     snap.Name,
		Phase:    string(snap.Phase),
		Progress: snap.Progress,
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r.Context())

	total, err := s.view.StorageUsage(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Bytes int64  `json:"bytes"`
		Human string `json:"human"`
	}{Bytes: total, Human: humanize.Bytes(uint64(total))})
}

// handleSignOut drops the owner's in-memory session state. Mirrors the
// identity provider's signed-out signal for deployments that proxy it here.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r.Context())

	s.controller.CancelActive(owner)
	s.controller.DropOwner(owner)
	s.view.DropOwner(owner)

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps the sentinel error kinds onto HTTP statuses. Raw transport
// errors never reach here; everything is one of the common kinds.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrUnauthenticated):
		writeJSONError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrDuplicateName):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrSizeLimitExceeded):
		writeJSONError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, common.ErrUnsupportedFileType):
		writeJSONError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, common.ErrObjectMissing):
		writeJSONError(w, http.StatusGone, err.Error())
	case errors.Is(err, common.ErrTransferCancelled):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrFetchFailed),
		errors.Is(err, common.ErrTransferFailed),
		errors.Is(err, common.ErrCommitFailed),
		errors.Is(err, common.ErrDeleteFailed):
		writeJSONError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
