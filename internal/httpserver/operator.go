package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opsloom/sentinel/pkg/deploy"
	"github.com/opsloom/sentinel/pkg/patch"
	"github.com/opsloom/sentinel/pkg/platformcmd"
)

type healRequest struct {
	Scenario string         `json:"scenario"`
	Context  map[string]any `json:"context"`
}

func (s *Server) handleHeal(w http.ResponseWriter, r *http.Request) {
	if s.heal == nil {
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "autoheal is not configured")
		return
	}

	var req healRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	result := s.heal.Heal(r.Context(), req.Scenario, req.Context)
	if s.archive != nil {
		s.archive.ArchiveIncident(result)
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	Respond(w, status, result)
}

// platformCommandResponse is the JSON shape returned by the platform
// command lookup.
type platformCommandResponse struct {
	Platform string `json:"platform"`
	Metric   string `json:"metric"`
	Command  string `json:"command"`
}

func (s *Server) handlePlatformCommands(w http.ResponseWriter, r *http.Request) {
	platform := r.URL.Query().Get("platform")
	metric := r.URL.Query().Get("metric")
	if platform == "" || metric == "" {
		RespondError(w, http.StatusBadRequest, "bad_request", "platform and metric query parameters are required")
		return
	}

	cmd, err := platformcmd.Command(platform, platformcmd.Metric(metric))
	if err != nil {
		RespondError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	Respond(w, http.StatusOK, platformCommandResponse{Platform: platform, Metric: metric, Command: cmd})
}

func (s *Server) handleGeneratePatch(w http.ResponseWriter, r *http.Request) {
	if s.patcher == nil {
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "patch generator is not configured")
		return
	}

	var issue patch.Issue
	if !DecodeAndValidate(w, r, &issue) {
		return
	}

	p, err := s.patcher.Generate(issue)
	if err != nil {
		RespondError(w, http.StatusUnprocessableEntity, "no_pattern_match", err.Error())
		return
	}
	if s.archive != nil {
		s.archive.ArchivePatch(p)
	}
	Respond(w, http.StatusCreated, p)
}

func (s *Server) handleDeployHotfix(w http.ResponseWriter, r *http.Request) {
	if s.deployer == nil {
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "deploy manager is not configured")
		return
	}

	var spec deploy.Spec
	if !DecodeAndValidate(w, r, &spec) {
		return
	}

	d := s.deployer.DeployHotfix(r.Context(), spec)
	if s.deployment != nil {
		s.deployment.Put(d)
	}
	if s.archive != nil {
		s.archive.ArchiveDeployment(d)
	}

	status := http.StatusCreated
	if d.Status == deploy.StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	Respond(w, status, d)
}

func (s *Server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	if s.deployment == nil {
		Respond(w, http.StatusOK, OffsetPage[deploy.Deployment]{Items: []deploy.Deployment{}, Page: 1, PageSize: DefaultPageSize})
		return
	}

	params, err := ParseOffsetParams(r)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	all := s.deployment.List()
	end := params.Offset + params.PageSize
	if params.Offset >= len(all) {
		Respond(w, http.StatusOK, NewOffsetPage([]deploy.Deployment{}, params, len(all)))
		return
	}
	if end > len(all) {
		end = len(all)
	}
	Respond(w, http.StatusOK, NewOffsetPage(all[params.Offset:end], params, len(all)))
}

func (s *Server) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	if s.deployment == nil {
		RespondError(w, http.StatusNotFound, "not_found", "deployment not found")
		return
	}

	id := chi.URLParam(r, "id")
	d, ok := s.deployment.Get(id)
	if !ok {
		RespondError(w, http.StatusNotFound, "not_found", "deployment not found")
		return
	}
	Respond(w, http.StatusOK, d)
}

type rollbackRequest struct {
	Reason  string `json:"reason"`
	Partial bool   `json:"partial"`
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	if s.rollback == nil || s.deployment == nil {
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "rollback is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	d, ok := s.deployment.Get(id)
	if !ok {
		RespondError(w, http.StatusNotFound, "not_found", "deployment not found")
		return
	}

	var req rollbackRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	if err := s.rollback.Rollback(r.Context(), d, req.Reason, req.Partial); err != nil {
		RespondError(w, http.StatusUnprocessableEntity, "rollback_failed", err.Error())
		return
	}

	d.RolledBack = true
	d.Status = deploy.StatusRolledBack
	s.deployment.Put(d)
	if s.archive != nil {
		s.archive.ArchiveDeployment(d)
	}

	Respond(w, http.StatusOK, d)
}

func (s *Server) handleExecutorAudit(w http.ResponseWriter, r *http.Request) {
	if s.exec == nil {
		Respond(w, http.StatusOK, []any{})
		return
	}
	Respond(w, http.StatusOK, s.exec.Status())
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.resolveApproval(w, r, true)
}

func (s *Server) handleDeny(w http.ResponseWriter, r *http.Request) {
	s.resolveApproval(w, r, false)
}

func (s *Server) resolveApproval(w http.ResponseWriter, r *http.Request, approve bool) {
	if s.exec == nil {
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "executor is not configured")
		return
	}

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "bad_request", "invalid approval id")
		return
	}

	var ok bool
	if approve {
		ok = s.exec.Approve(id)
	} else {
		ok = s.exec.Deny(id)
	}
	if !ok {
		RespondError(w, http.StatusNotFound, "not_found", "approval request not found or already resolved")
		return
	}

	Respond(w, http.StatusOK, map[string]bool{"ok": true})
}
