package web

import (
	"errors"
	"net/http"
	"strconv"

	"boxdesk/internal/adapters/http/middleware"
	"boxdesk/internal/adapters/storage"
	"boxdesk/internal/domain/dnd"
	"boxdesk/internal/domain/planner"
)

func plannerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, planner.ErrSectionNotFound), errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Revert: true})
	case errors.Is(err, planner.ErrEmptyLabel),
		errors.Is(err, planner.ErrLabelTooLong),
		errors.Is(err, planner.ErrEmptyWorkoutType),
		errors.Is(err, planner.ErrEmptyResultType),
		errors.Is(err, planner.ErrAssociationIndex),
		errors.Is(err, planner.ErrSavedNotFound),
		errors.Is(err, planner.ErrTemplateNotFound),
		errors.Is(err, dnd.ErrUnknownSource),
		errors.Is(err, dnd.ErrUnknownTarget),
		errors.Is(err, dnd.ErrBadPayload):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Revert: true})
	default:
		internalError(w, err)
	}
}

func sectionsJSON(s []planner.Section) []planner.Section {
	if s == nil {
		return []planner.Section{}
	}
	return s
}

// handlePlannerDay handles GET /api/planner/day
func handlePlannerDay(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sectionsJSON(ws.Planner.Sections()))
}

// handlePlannerTemplates handles GET /api/planner/templates
func handlePlannerTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, planner.Templates())
}

// handlePlannerSaved handles GET /api/planner/saved
func handlePlannerSaved(w http.ResponseWriter, r *http.Request) {
	staff, _ := middleware.StaffFrom(r.Context())
	saved, err := planningService.Saved(r.Context(), staff.BoxID)
	if err != nil {
		internalError(w, err)
		return
	}
	if saved == nil {
		saved = []planner.SavedSection{}
	}
	writeJSON(w, http.StatusOK, saved)
}

// handlePlannerDeleteSaved handles DELETE /api/planner/saved/{id}
func handlePlannerDeleteSaved(w http.ResponseWriter, r *http.Request) {
	staff, _ := middleware.StaffFrom(r.Context())
	if err := planningService.DeleteSaved(r.Context(), staff.BoxID, pathID(r)); err != nil {
		plannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePlannerPreview handles GET /api/planner/preview?id=sec-...
func handlePlannerPreview(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	p, err := ws.Planner.Preview(r.URL.Query().Get("id"))
	if err != nil {
		plannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePlannerDrop handles POST /api/planner/drop
func handlePlannerDrop(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	var input struct {
		SourceID string `json:"sourceId"`
		TargetID string `json:"targetId"`
	}
	if err := strictDecode(r, &input); err != nil {
		badJSON(w)
		return
	}
	created, changed, err := ws.Planner.Drop(r.Context(), input.SourceID, input.TargetID)
	if err != nil {
		plannerError(w, err)
		return
	}
	status := http.StatusOK
	if created != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, struct {
		Changed  bool              `json:"changed"`
		Created  *planner.Section  `json:"created,omitempty"`
		Sections []planner.Section `json:"sections"`
	}{changed, created, sectionsJSON(ws.Planner.Sections())})
}

// handlePlannerUpdate handles PATCH /api/planner/sections/{id}
func handlePlannerUpdate(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	var patch planner.SectionPatch
	if err := strictDecode(r, &patch); err != nil {
		badJSON(w)
		return
	}
	s, err := ws.Planner.Update(pathID(r), patch)
	if err != nil {
		plannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// handlePlannerRemove handles DELETE /api/planner/sections/{id}
func handlePlannerRemove(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	if err := ws.Planner.Remove(pathID(r)); err != nil {
		plannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePlannerAddAssociation handles POST /api/planner/sections/{id}/associations
func handlePlannerAddAssociation(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	var a planner.Association
	if err := strictDecode(r, &a); err != nil {
		badJSON(w)
		return
	}
	s, err := ws.Planner.AddAssociation(pathID(r), a)
	if err != nil {
		plannerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// handlePlannerRemoveAssociation handles DELETE /api/planner/sections/{id}/associations/{index}
func handlePlannerRemoveAssociation(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		plannerError(w, planner.ErrAssociationIndex)
		return
	}
	s, err := ws.Planner.RemoveAssociation(pathID(r), index)
	if err != nil {
		plannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// handlePlannerSave handles POST /api/planner/sections/{id}/save
func handlePlannerSave(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	saved, created, err := ws.Planner.Save(r.Context(), pathID(r))
	if err != nil {
		plannerError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, saved)
}
