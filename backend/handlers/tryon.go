// ABOUTME: Virtual try-on handlers: submit a job and optionally wait for the result
// ABOUTME: Multipart person photos are normalized and stored before the job is submitted

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/fitcheck/fitcheck/backend/models"
	"github.com/fitcheck/fitcheck/backend/services"
	"github.com/fitcheck/fitcheck/backend/storage"
)

// CreateTryOn submits a try-on job. By default it waits for the result;
// ?wait=false answers 202 with the job id.
func (h *Handler) CreateTryOn(w http.ResponseWriter, r *http.Request) {
	if !h.tryon.Configured() {
		h.writeError(w, services.ErrTryOnNotConfigured.Error(), http.StatusInternalServerError)
		return
	}

	wait := true
	if raw := r.URL.Query().Get("wait"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, "wait must be true or false", http.StatusBadRequest)
			return
		}
		wait = v
	}

	req, status, err := h.tryOnRequest(w, r)
	if err != nil {
		h.writeErrorDetails(w, "Invalid try-on request", err.Error(), status)
		return
	}

	jobID, err := h.tryon.Submit(r.Context(), req)
	if err != nil {
		h.writeTryOnError(w, r, "", err)
		return
	}

	if !wait {
		h.writeJSON(w, http.StatusAccepted, models.TryOnResponse{JobID: jobID, Status: models.TryOnStarting})
		return
	}

	job, err := h.tryon.Await(r.Context(), jobID)
	if err != nil {
		h.writeTryOnError(w, r, jobID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, models.TryOnResponse{
		JobID:     jobID,
		Status:    job.Status,
		ResultURL: job.ResultURL(),
		Attempts:  job.Attempts,
	})
}

// TryOnStatus reports the current state of a job without waiting.
func (h *Handler) TryOnStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		h.writeError(w, "Job id is required", http.StatusBadRequest)
		return
	}

	job, err := h.tryon.Status(r.Context(), jobID)
	if err != nil {
		h.writeTryOnError(w, r, jobID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, models.TryOnResponse{
		JobID:     job.ID,
		Status:    job.Status,
		ResultURL: job.ResultURL(),
		Error:     job.Error,
	})
}

// tryOnRequest reads a JSON or multipart try-on request. The returned status
// applies when err is set.
func (h *Handler) tryOnRequest(w http.ResponseWriter, r *http.Request) (models.TryOnRequest, int, error) {
	var req models.TryOnRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		personURL, status, err := h.storePersonPhoto(w, r)
		if err != nil {
			return req, status, err
		}
		req.PersonImageURL = personURL
		req.GarmentImageURL = r.FormValue("garment_image_url")
		req.Category = r.FormValue("category")
	} else if err := h.decodeJSON(w, r, &req, false); err != nil {
		return req, http.StatusBadRequest, err
	}

	if err := services.Validate(req); err != nil {
		return req, http.StatusBadRequest, err
	}
	return req, 0, nil
}

// storePersonPhoto normalizes the uploaded "person" file, stores it and
// returns a presigned URL the inference API can fetch.
func (h *Handler) storePersonPhoto(w http.ResponseWriter, r *http.Request) (string, int, error) {
	if !h.objects.Configured() {
		return "", http.StatusInternalServerError, storage.ErrNotConfigured
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return "", http.StatusBadRequest, err
	}

	file, header, err := r.FormFile("person")
	if err != nil {
		return "", http.StatusBadRequest, errors.New("person photo is required")
	}
	defer file.Close()

	data, err := storage.NormalizeImage(file, storage.MaxImageWidth)
	if err != nil {
		return "", http.StatusBadRequest, err
	}

	objectName, err := h.objects.PutImage(r.Context(), data, header.Filename)
	if err != nil {
		slog.Error("Failed to store person photo", "request_id", requestID(r), "error", err)
		return "", http.StatusInternalServerError, err
	}

	presigned, err := h.objects.PresignedURL(r.Context(), objectName)
	if err != nil {
		return "", http.StatusInternalServerError, err
	}
	return presigned, 0, nil
}

func (h *Handler) writeTryOnError(w http.ResponseWriter, r *http.Request, jobID string, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		slog.Info("Try-on request cancelled by client", "request_id", requestID(r), "job_id", jobID)
	case errors.Is(err, services.ErrTryOnTimeout):
		h.writeJSON(w, http.StatusGatewayTimeout, models.TryOnResponse{JobID: jobID, Status: models.TryOnProcessing, Error: err.Error()})
	case errors.Is(err, services.ErrTryOnFailed):
		h.writeJSON(w, http.StatusBadGateway, models.TryOnResponse{JobID: jobID, Status: models.TryOnFailed, Error: err.Error()})
	case errors.Is(err, services.ErrTryOnNotConfigured):
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	default:
		slog.Error("Try-on request failed", "request_id", requestID(r), "job_id", jobID, "error", err)
		h.writeErrorDetails(w, "Failed to reach try-on service", err.Error(), http.StatusBadGateway)
	}
}
