package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawlhub/internal/batch"
)

const maxLookupURLs = 100

type itemRequest struct {
	Timestamp int64    `json:"timestamp"`
	URL       string   `json:"url" validate:"required"`
	Title     string   `json:"title"`
	Extract   string   `json:"extract"`
	Links     []string `json:"links" validate:"omitempty,dive,required"`
}

type submissionRequest struct {
	UserID string        `json:"user_id" validate:"required"`
	Items  []itemRequest `json:"items" validate:"dive"`
}

func (req submissionRequest) toSubmission() batch.Submission {
	items := make([]batch.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, batch.Item{
			Timestamp: it.Timestamp,
			URL:       it.URL,
			Title:     it.Title,
			Extract:   it.Extract,
			Links:     it.Links,
		})
	}
	return batch.Submission{UserID: req.UserID, Items: items}
}

func (s *Server) createBatch(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	receipt, err := s.deps.Submitter.Submit(r.Context(), req.toSubmission())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) latestBatch(w http.ResponseWriter, _ *http.Request) {
	last := s.deps.Submitter.LastBatch()
	if last == nil {
		writeError(w, http.StatusNotFound, "no batch accepted yet")
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	doc, err := s.deps.Catalog.Fetch(r.Context(), key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) listBatches(w http.ResponseWriter, r *http.Request) {
	groups, err := s.deps.Catalog.ListBatches(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) listOwners(w http.ResponseWriter, r *http.Request) {
	owners, err := s.deps.Catalog.ListOwners(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, owners)
}

func (s *Server) listOwnerBatches(w http.ResponseWriter, r *http.Request) {
	groups, err := s.deps.Catalog.ListBatchesForOwner(r.Context(), chi.URLParam(r, "date"), chi.URLParam(r, "owner"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) lookupURLs(w http.ResponseWriter, r *http.Request) {
	if s.deps.URLs == nil {
		writeError(w, http.StatusNotImplemented, "url lookup is not configured")
		return
	}
	urls := r.URL.Query()["url"]
	if len(urls) == 0 {
		writeError(w, http.StatusBadRequest, "at least one url query parameter is required")
		return
	}
	if len(urls) > maxLookupURLs {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d urls per lookup", maxLookupURLs))
		return
	}
	records, err := s.deps.URLs.Lookup(r.Context(), urls)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err),
		)
	}
	writeError(w, status, err.Error())
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
