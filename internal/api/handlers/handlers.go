// Package handlers implements the HTTP surface of the import service.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"card-alerts/internal/api/middleware"
	"card-alerts/internal/jobs"
)

// ImportFunc runs the import pipeline for one message id and returns
// the created transaction id.
type ImportFunc func(ctx context.Context, messageID string) (string, error)

// NotificationsHandler accepts new-mail notifications from the
// delivery infrastructure.
type NotificationsHandler struct {
	publisher jobs.Publisher
	runImport ImportFunc

	// nackOnFailure switches the endpoint from fire-and-forget to
	// synchronous: the import runs inline and a failure is reported
	// with a 500 so the delivery layer redelivers.
	nackOnFailure bool

	log zerolog.Logger
}

// NewNotificationsHandler creates the notification endpoint handler.
func NewNotificationsHandler(publisher jobs.Publisher, runImport ImportFunc, nackOnFailure bool, log zerolog.Logger) *NotificationsHandler {
	return &NotificationsHandler{
		publisher:     publisher,
		runImport:     runImport,
		nackOnFailure: nackOnFailure,
		log:           log,
	}
}

type notificationRequest struct {
	MessageID string `json:"message_id"`
}

// Notify handles POST /v1/notifications.
func (h *NotificationsHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.MessageID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "message_id is required")
		return
	}

	if h.nackOnFailure {
		transactionID, err := h.runImport(r.Context(), req.MessageID)
		if err != nil {
			h.log.Error().Err(err).Str("message_id", req.MessageID).Msg("Import failed")
			middleware.WriteError(w, http.StatusInternalServerError, "Import failed")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"message_id":     req.MessageID,
			"transaction_id": transactionID,
		})
		return
	}

	job := &jobs.ImportAlertJob{MessageID: req.MessageID}
	if err := h.publisher.PublishImportAlert(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("message_id", req.MessageID).Msg("Failed to enqueue import")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue import")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.JobID,
		"message_id": req.MessageID,
	})
}

// JobsHandler exposes job status for operators.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates the jobs status handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /v1/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /v1/jobs with optional message_id and status
// query filters.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobs.JobFilter{
		MessageID: r.URL.Query().Get("message_id"),
		Status:    jobs.JobStatus(r.URL.Query().Get("status")),
		Limit:     100,
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if list == nil {
		list = []*jobs.ImportAlertJob{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}
