package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/akarpov/talknotes/internal/domain"
	"github.com/akarpov/talknotes/internal/export"
	"github.com/akarpov/talknotes/internal/sequencer"

	"github.com/google/uuid"
)

type Usecase interface {
	Upload(ctx context.Context, title, filename string, size int64, file io.Reader) (domain.Recording, error)
	Process(ctx context.Context, id string, mode domain.ProcessMode) (domain.ProcessResult, error)
	GetStatus(ctx context.Context, id string) (domain.StatusSnapshot, error)
	Get(ctx context.Context, id string) (domain.Recording, error)
	List(ctx context.Context) ([]domain.Recording, error)
	Delete(ctx context.Context, id string) error
}

// Subscriber produces a stream of status snapshots for one recording; the
// polling implementation lives in the sequencer package.
type Subscriber interface {
	Subscribe(ctx context.Context, recordingID string) <-chan sequencer.Observation
}

type handler struct {
	maxUploadBytes int64
	usecase        Usecase
	subscriber     Subscriber
	seq            *sequencer.Sequencer
	player         *sequencer.Player
}

func NewHandler(maxUploadMb int64, uc Usecase, sub Subscriber, seq *sequencer.Sequencer, player *sequencer.Player) *handler {
	return &handler{
		maxUploadBytes: maxUploadMb << 20,
		usecase:        uc,
		subscriber:     sub,
		seq:            seq,
		player:         player,
	}
}

// recordings handles the collection: POST uploads, GET lists.
func (h *handler) recordings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.upload(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "")
	}
}

// recording dispatches /recordings/{id} and its subresources.
func (h *handler) recording(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/recordings/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing ID")
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "")
		}
	case "process":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "")
			return
		}
		h.process(w, r, id)
	case "status":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "")
			return
		}
		h.status(w, r, id)
	case "events":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "")
			return
		}
		h.events(w, r, id)
	case "export":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "")
			return
		}
		h.export(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "")
	}
}

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, "upload")

	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		logger.Error("ParseMultipartForm", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "unable to parse multipart form")
		return
	}

	title := r.FormValue("title")

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Warn("missing file field")
		writeError(w, http.StatusBadRequest, "field `file` is required")
		return
	}
	defer file.Close()

	rec, err := h.usecase.Upload(r.Context(), title, header.Filename, header.Size, file)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("Upload usecase", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "cannot store recording")
		return
	}

	writeJSON(w, http.StatusAccepted, domain.UploadResponse{
		ID:            rec.ID,
		Title:         rec.Title,
		Status:        rec.Status,
		FileSizeBytes: rec.FileSizeBytes,
	})
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, "list")

	recs, err := h.usecase.List(r.Context())
	if err != nil {
		logger.Error("List usecase", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "")
		return
	}

	writeJSON(w, http.StatusOK, domain.RecordingList{Recordings: recs, Total: len(recs)})
}

func (h *handler) get(w http.ResponseWriter, r *http.Request, id string) {
	logger := requestLogger(r, "get")

	rec, err := h.usecase.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recording not found")
			return
		}
		logger.Error("Get usecase", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request, id string) {
	logger := requestLogger(r, "delete")

	if err := h.usecase.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recording not found")
			return
		}
		logger.Error("Delete usecase", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) process(w http.ResponseWriter, r *http.Request, id string) {
	logger := requestLogger(r, "process")

	mode := domain.ProcessMode(r.URL.Query().Get("mode"))
	switch mode {
	case "":
		mode = domain.ModeAsync
	case domain.ModeSync, domain.ModeAsync:
	default:
		writeError(w, http.StatusBadRequest, "mode must be sync or async")
		return
	}

	res, err := h.usecase.Process(r.Context(), id, mode)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "recording not found")
		case errors.Is(err, domain.ErrAlreadyProcessing):
			writeJSON(w, http.StatusConflict, domain.ErrorResponse{
				Error:   http.StatusText(http.StatusConflict),
				Message: "recording is already processing",
			})
		default:
			logger.Error("Process usecase", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "cannot process recording")
		}
		return
	}

	// A pipeline that ended in "error" is still a successful call: the
	// terminal state is the result.
	if mode == domain.ModeAsync {
		writeJSON(w, http.StatusAccepted, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) status(w http.ResponseWriter, r *http.Request, id string) {
	logger := requestLogger(r, "status")

	snap, err := h.usecase.GetStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recording not found")
			return
		}
		logger.Error("GetStatus usecase", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (h *handler) export(w http.ResponseWriter, r *http.Request, id string) {
	logger := requestLogger(r, "export")

	rec, err := h.usecase.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recording not found")
			return
		}
		logger.Error("Get usecase", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "")
		return
	}

	if rec.Status != domain.StatusCompleted {
		writeJSON(w, http.StatusTooEarly, domain.StatusSnapshot{
			ID:     rec.ID,
			Status: rec.Status,
		})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": rec.Title + ".docx",
	}))

	if err := export.SummaryDocx(rec, w); err != nil {
		logger.Error("export docx",
			slog.String("recording_id", id),
			slog.String("error", err.Error()),
		)
	}
}

func requestLogger(r *http.Request, name string) *slog.Logger {
	return slog.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("handler", name),
		slog.String("remote_addr", r.RemoteAddr),
	)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	resp := domain.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON", slog.String("error", err.Error()))
	}
}
