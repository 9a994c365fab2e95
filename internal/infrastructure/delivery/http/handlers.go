package httprouter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"os"

	"tubefetch/internal/consts"
	"tubefetch/internal/entity"
	"tubefetch/internal/errs"
	"tubefetch/internal/infrastructure/delivery/http/request"
	"tubefetch/internal/infrastructure/delivery/http/response"
	"tubefetch/internal/service"
)

const filesPath = "/v1/files/"

// downloadResponse adds the retrieval link to a finished download.
type downloadResponse struct {
	*service.Download

	FileURL string `json:"fileUrl"`
}

func newDownloadResponse(dl *service.Download) downloadResponse {
	return downloadResponse{Download: dl, FileURL: filesPath + dl.File.ID}
}

func (ro *Router) GetVideo(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "GetVideo")

	ctx, cancel := context.WithTimeout(r.Context(), ro.cfg.HTTP.HandlerTimeout)
	defer cancel()

	url := r.URL.Query().Get("url")
	if url == "" {
		log.ErrorContext(ctx, consts.RespQueryParamMissing)
		response.BadRequest(w, consts.RespQueryParamMissing, errs.ErrInvalidURL)

		return
	}

	info, err := ro.svc.Info(ctx, url)
	if err != nil {
		log.ErrorContext(ctx, consts.RespInfoFail, slog.Any("error", err))
		response.WriteJSON(w, statusOf(err), consts.RespInfoFail, nil, err)

		return
	}

	response.OK(w, consts.RespInfoRetrieved, info, nil)
}

func (ro *Router) Download(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "Download")

	var in request.Download
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(r.Context(), consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, errs.ErrInvalidRequestBody)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(r.Context(), consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ro.cfg.HTTP.DownloadTimeout)
	defer cancel()

	dl, err := ro.svc.Download(ctx, in.URL, in.Resolution, nil)
	if err != nil {
		message := consts.RespDownloadFail
		if errors.Is(err, errs.ErrDownloadInProgress) {
			message = consts.RespDownloadInProgress
		}

		log.ErrorContext(ctx, message, slog.Any("error", err))
		response.WriteJSON(w, statusOf(err), message, nil, err)

		return
	}

	log.InfoContext(ctx, consts.RespDownloadFinished, slog.Any("file", dl.File))

	response.OK(w, consts.RespDownloadFinished, newDownloadResponse(dl), nil)
}

// storedFile is a listed download with its retrieval link.
type storedFile struct {
	entity.StoredFile

	FileURL string `json:"fileUrl"`
}

// ListFiles lists the downloads that can still be fetched.
func (ro *Router) ListFiles(w http.ResponseWriter, r *http.Request) {
	files := ro.svc.Files(r.Context())

	out := make([]storedFile, 0, len(files))
	for _, f := range files {
		out = append(out, storedFile{StoredFile: f, FileURL: filesPath + f.ID})
	}

	response.OK(w, consts.RespFilesListed, out, nil)
}

// GetFile serves a stored download as an attachment.
func (ro *Router) GetFile(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "GetFile")
	ctx := r.Context()

	file, err := ro.svc.File(ctx, r.PathValue("id"))
	if err != nil {
		log.DebugContext(ctx, consts.RespFileNotFound, slog.Any("error", err))
		response.NotFound(w, consts.RespFileNotFound, err)

		return
	}

	f, err := os.Open(file.Path)
	if err != nil {
		log.ErrorContext(ctx, "open stored file", slog.Any("file", file), slog.Any("error", err))
		response.NotFound(w, consts.RespFileNotFound, errs.ErrFileNotFound)

		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		log.ErrorContext(ctx, "stat stored file", slog.Any("file", file), slog.Any("error", err))
		response.InternalServerError(w, consts.RespFileNotFound, nil, err)

		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))

	http.ServeContent(w, r, file.Name, info.ModTime(), f)
}

// statusOf maps service errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, errs.ErrInvalidURL), errors.Is(err, errs.ErrInvalidResolution):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrDownloadInProgress):
		return http.StatusConflict
	case errors.Is(err, errs.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrExtraction), errors.Is(err, errs.ErrDownload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
