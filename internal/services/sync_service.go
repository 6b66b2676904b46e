package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/madio/backend/internal/models"
	"github.com/madio/backend/internal/store"
)

// SyncService pulls report documents created on mobile and materializes them
// as canonical rows in the relational store, exactly once per document. The
// doc_key cross-reference is the idempotence backstop: two concurrent runs may
// both see the same unsynced document, but only one insert survives a rerun.
type SyncService struct {
	docs store.DocumentStore
	rel  store.RelationalStore
}

// SyncResult aggregates a sync run. Per-record failures are counted, never
// raised.
type SyncResult struct {
	RunID      string   `json:"runId"`
	TotalFound int      `json:"totalFound"`
	Imported   int      `json:"importedCount"`
	Skipped    int      `json:"skippedCount"`
	Failed     int      `json:"failedCount"`
	SyncedIDs  []int64  `json:"syncedIds"`
	Errors     []string `json:"errors,omitempty"`
}

func NewSyncService(docs store.DocumentStore, rel store.RelationalStore) *SyncService {
	return &SyncService{docs: docs, rel: rel}
}

// SyncReports imports every unsynced report document. It aborts with
// SyncUnavailableError only when a store is unreachable outright; bad records
// are counted and the batch continues.
func (s *SyncService) SyncReports(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{RunID: uuid.NewString(), SyncedIDs: []int64{}}
	log.Printf("[SYNC] Run %s: starting document -> relational sync", result.RunID)

	if err := s.rel.Ping(ctx); err != nil {
		return nil, &SyncUnavailableError{Store: "relational", Err: err}
	}

	candidates, err := s.docs.FindUnsyncedReports(ctx)
	if err != nil {
		return nil, &SyncUnavailableError{Store: "document", Err: err}
	}
	result.TotalFound = len(candidates)
	log.Printf("[SYNC] Run %s: %d unsynced report(s) found", result.RunID, result.TotalFound)

	for i := range candidates {
		doc := &candidates[i]

		if doc.Latitude == nil || doc.Longitude == nil {
			result.Failed++
			result.Errors = append(result.Errors,
				fmt.Sprintf("report %s: missing latitude/longitude", doc.DocKey))
			log.Printf("[SYNC] Run %s: report %s rejected, missing coordinates", result.RunID, doc.DocKey)
			continue
		}

		// Durable cross-reference check: a row already imported for this
		// document key counts as skipped, guarding against duplicate triggers
		// and reruns after a failed mark-synced write.
		existingID, found, err := s.rel.FindReportIDByDocKey(ctx, doc.DocKey)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors,
				fmt.Sprintf("report %s: cross-reference lookup failed: %v", doc.DocKey, err))
			continue
		}
		if found {
			log.Printf("[SYNC] Run %s: report %s already imported as row %d, skipping", result.RunID, doc.DocKey, existingID)
			s.markSynced(ctx, doc.DocKey, existingID, result.RunID)
			result.Skipped++
			continue
		}

		row := &models.ReportRow{
			DocKey:      doc.DocKey,
			Description: doc.Description,
			Latitude:    *doc.Latitude,
			Longitude:   *doc.Longitude,
			Status:      models.NormalizeStatus(doc.Status, doc.Avancement),
			SurfaceM2:   doc.SurfaceM2,
			Budget:      doc.Budget,
			CompanyID:   s.resolveCompany(ctx, doc),
			UserID:      s.resolveReporter(ctx, doc),
			ReportedAt:  doc.ReportedAt(),
		}

		id, err := s.rel.InsertReport(ctx, row)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("report %s: %v", doc.DocKey, err))
			log.Printf("[SYNC] Run %s: insert failed for %s: %v", result.RunID, doc.DocKey, err)
			continue
		}

		// Commit point. If this write fails the row stays in place and the
		// next run resolves it through the cross-reference as skipped.
		s.markSynced(ctx, doc.DocKey, id, result.RunID)
		result.Imported++
		result.SyncedIDs = append(result.SyncedIDs, id)
		log.Printf("[SYNC] Run %s: report %s imported as row %d", result.RunID, doc.DocKey, id)
	}

	log.Printf("[SYNC] Run %s: done, %d imported, %d skipped, %d failed of %d",
		result.RunID, result.Imported, result.Skipped, result.Failed, result.TotalFound)
	return result, nil
}

func (s *SyncService) markSynced(ctx context.Context, docKey string, relationalID int64, runID string) {
	err := s.docs.PatchReport(ctx, docKey, map[string]any{
		"syncedToRelational": true,
		"relationalId":       relationalID,
	})
	if err != nil {
		log.Printf("[SYNC] Run %s: failed to mark %s synced (will skip via cross-reference next run): %v",
			runID, docKey, err)
	}
}

// resolveReporter maps the document's reporter reference onto a relational
// account id. Policy: an unresolved reporter never blocks the import, the row
// just carries no reporter link.
func (s *SyncService) resolveReporter(ctx context.Context, doc *models.ReportDoc) *int64 {
	if doc.ReporterKey != "" {
		if id, err := strconv.ParseInt(doc.ReporterKey, 10, 64); err == nil {
			if _, err := s.rel.GetAccount(ctx, id); err == nil {
				return &id
			}
		}
	}
	if doc.ReporterEmail != "" {
		id, found, err := s.rel.FindAccountIDByEmail(ctx, doc.ReporterEmail)
		if err == nil && found {
			return &id
		}
	}
	log.Printf("[SYNC] Reporter unresolved for %s (key=%q email=%q), importing without link",
		doc.DocKey, doc.ReporterKey, doc.ReporterEmail)
	return nil
}

func (s *SyncService) resolveCompany(ctx context.Context, doc *models.ReportDoc) *int64 {
	if doc.CompanyID == nil {
		return nil
	}
	exists, err := s.rel.CompanyExists(ctx, *doc.CompanyID)
	if err != nil || !exists {
		log.Printf("[SYNC] Company %d referenced by %s not found, dropping link", *doc.CompanyID, doc.DocKey)
		return nil
	}
	return doc.CompanyID
}

// PushReport mirrors a console edit of a relational report row back into the
// source document. It never creates a document: reports originate on mobile,
// so a row without a cross-referenced document is an error.
func (s *SyncService) PushReport(ctx context.Context, relationalID int64) error {
	row, err := s.rel.GetReport(ctx, relationalID)
	if err != nil {
		return err
	}

	fields := map[string]any{
		"description":        row.Description,
		"status":             row.Status,
		"avancement":         row.Progress(),
		"relationalId":       row.ID,
		"syncedToRelational": true,
	}
	if row.SurfaceM2 != nil {
		fields["surfaceM2"] = *row.SurfaceM2
	}
	if row.Budget != nil {
		fields["budget"] = *row.Budget
	}
	if row.CompanyID != nil {
		fields["idEntreprise"] = *row.CompanyID
	}

	if err := s.docs.PatchReport(ctx, row.DocKey, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &ValidationError{Reason: fmt.Sprintf(
				"no document mirrors report %d; reports must originate on mobile", relationalID)}
		}
		return &PropagationPartialFailure{What: fmt.Sprintf("report %d update", relationalID), Err: err}
	}
	log.Printf("[SYNC] Report %d pushed to document %s", relationalID, row.DocKey)
	return nil
}

// HandleSyncReports triggers a sync run
// @Summary Sync mobile reports into the relational store
// @Tags sync
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SyncResult
// @Failure 503 {object} ErrorResponse "A store is unreachable"
// @Router /reports/sync [post]
func (s *SyncService) HandleSyncReports(w http.ResponseWriter, r *http.Request) {
	result, err := s.SyncReports(r.Context())
	if err != nil {
		var unavailable *SyncUnavailableError
		if errors.As(err, &unavailable) {
			log.Printf("[SYNC] Aborted: %v", err)
			SendErrorResponse(w, err.Error(), http.StatusServiceUnavailable, nil)
			return
		}
		SendErrorResponse(w, "Sync failed", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandlePushReport pushes a console edit back to the document store
// @Summary Push a report row to its mobile document
// @Tags sync
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse "Mirror write failed"
// @Router /reports/{id}/push [post]
func (s *SyncService) HandlePushReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid report id", http.StatusBadRequest, nil)
		return
	}

	if err := s.PushReport(r.Context(), id); err != nil {
		var invalid *ValidationError
		var partial *PropagationPartialFailure
		switch {
		case errors.Is(err, store.ErrNotFound):
			SendErrorResponse(w, "Report not found", http.StatusNotFound, nil)
		case errors.As(err, &invalid):
			SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		case errors.As(err, &partial):
			SendErrorResponse(w, err.Error(), http.StatusBadGateway, nil)
		default:
			log.Printf("[SYNC] Push failed for report %d: %v", id, err)
			SendErrorResponse(w, "Push failed", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "reportId": id})
}
