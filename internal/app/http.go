package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"swotplan/api/internal/auth"
	"swotplan/api/internal/export"
	"swotplan/api/internal/problemtree"
	"swotplan/api/internal/rbac"
	"swotplan/api/internal/search"
	"swotplan/api/internal/swot"
	"swotplan/api/internal/util"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	limiter    *rate.Limiter
}

// NewHTTPServer builds the API server. A zero rps disables rate limiting.
func NewHTTPServer(service *Service, corsOrigin string, rps float64, burst int) *HTTPServer {
	s := &HTTPServer{service: service, corsOrigin: corsOrigin}
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(s.routes())
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, session Session)

func (s *HTTPServer) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.HandleFunc("GET /api/session", s.authed(rbac.ActionRead, s.handleSession))

	mux.HandleFunc("POST /api/plans", s.authed(rbac.ActionConsolidate, s.handleCreatePlan))
	mux.HandleFunc("GET /api/plans/{planID}", s.authed(rbac.ActionRead, s.handleGetPlan))
	mux.HandleFunc("GET /api/plans/{planID}/progress", s.authed(rbac.ActionRead, s.handleProgress))

	mux.HandleFunc("GET /api/plans/{planID}/groups/{groupID}", s.authed(rbac.ActionRead, s.handleGetGroup))
	mux.HandleFunc("PUT /api/plans/{planID}/groups/{groupID}/swot", s.authed(rbac.ActionRespond, s.handleSaveSWOT))
	mux.HandleFunc("PUT /api/plans/{planID}/groups/{groupID}/grids/{kind}/cells", s.authed(rbac.ActionRespond, s.handleSetCell))
	mux.HandleFunc("GET /api/plans/{planID}/groups/{groupID}/analysis/{which}", s.authed(rbac.ActionRead, s.handleAnalysis))
	mux.HandleFunc("PUT /api/plans/{planID}/groups/{groupID}/risks", s.authed(rbac.ActionRespond, s.handleGroupRisk))
	mux.HandleFunc("POST /api/plans/{planID}/groups/{groupID}/complete/{stage}", s.authed(rbac.ActionRespond, s.handleCompleteGroup))

	mux.HandleFunc("POST /api/plans/{planID}/consolidate", s.authed(rbac.ActionConsolidate, s.handleConsolidate))
	mux.HandleFunc("GET /api/plans/{planID}/final/responses", s.authed(rbac.ActionRead, s.handleFinalResponses))
	mux.HandleFunc("PUT /api/plans/{planID}/final/risks", s.authed(rbac.ActionConsolidate, s.handleFinalRisk))
	mux.HandleFunc("POST /api/plans/{planID}/final/{quadrant}", s.authed(rbac.ActionConsolidate, s.handleAddFinalItem))
	mux.HandleFunc("PUT /api/plans/{planID}/final/{quadrant}/{index}", s.authed(rbac.ActionConsolidate, s.handleUpdateFinalItem))
	mux.HandleFunc("DELETE /api/plans/{planID}/final/{quadrant}/{index}", s.authed(rbac.ActionConsolidate, s.handleRemoveFinalItem))

	mux.HandleFunc("GET /api/plans/{planID}/trees", s.authed(rbac.ActionRead, s.handleListTrees))
	mux.HandleFunc("POST /api/plans/{planID}/trees", s.authed(rbac.ActionConsolidate, s.handleCreateTree))
	mux.HandleFunc("POST /api/plans/{planID}/trees/{treeID}/topics", s.authed(rbac.ActionRespond, s.handleAddTopic))
	mux.HandleFunc("DELETE /api/plans/{planID}/trees/{treeID}/topics/{topicID}", s.authed(rbac.ActionRespond, s.handleRemoveTopic))
	mux.HandleFunc("PUT /api/plans/{planID}/trees/{treeID}/topics/{topicID}/{factor}", s.authed(rbac.ActionRespond, s.handleTopicFactor))
	mux.HandleFunc("GET /api/plans/{planID}/pain-pillars", s.authed(rbac.ActionRead, s.handlePainPillars))

	mux.HandleFunc("POST /api/plans/{planID}/report", s.authed(rbac.ActionRead, s.handleReport))
	mux.HandleFunc("GET /api/search", s.authed(rbac.ActionRead, s.handleSearch))
	mux.HandleFunc("POST /api/admin/reindex", s.authed(rbac.ActionAdmin, s.handleReindex))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	return mux
}

// authed resolves the bearer session, checks the role against action and
// the token scope against the plan and group in the path.
func (s *HTTPServer) authed(action rbac.Action, next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		if !rbac.Can(session.Role, action) || !session.CanAccess(r.PathValue("planID"), r.PathValue("groupID")) {
			s.forbid(w, r, session, action)
			return
		}
		next(w, r, session)
	}
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	return session, true
}

// forbid writes a 403 Forbidden response and logs the denial
func (s *HTTPServer) forbid(w http.ResponseWriter, r *http.Request, session Session, action rbac.Action) {
	zap.L().Info("access denied",
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.String("subject", session.Subject),
		zap.String("role", string(session.Role)),
		zap.String("action", string(action)),
		zap.String("path", r.URL.Path),
	)
	status, code, message, details := mapError(errForbidden())
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request, session Session) {
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"subject":       session.Subject,
		"name":          session.Name,
		"role":          session.Role,
		"planId":        session.PlanID,
		"groupId":       session.GroupID,
	})
}

func (s *HTTPServer) handleCreatePlan(w http.ResponseWriter, r *http.Request, session Session) {
	var body CreatePlanInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	plan, err := s.service.CreatePlan(r.Context(), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"plan": plan})
}

func (s *HTTPServer) handleGetPlan(w http.ResponseWriter, r *http.Request, session Session) {
	plan, err := s.service.GetPlan(r.Context(), r.PathValue("planID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan": plan})
}

func (s *HTTPServer) handleProgress(w http.ResponseWriter, r *http.Request, session Session) {
	progress, err := s.service.Progress(r.Context(), r.PathValue("planID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": progress})
}

func (s *HTTPServer) handleGetGroup(w http.ResponseWriter, r *http.Request, session Session) {
	group, err := s.service.GetGroup(r.Context(), r.PathValue("planID"), r.PathValue("groupID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group": group})
}

func (s *HTTPServer) handleSaveSWOT(w http.ResponseWriter, r *http.Request, session Session) {
	var body SWOTInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	group, err := s.service.SaveSWOT(r.Context(), r.PathValue("planID"), r.PathValue("groupID"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group": group})
}

func (s *HTTPServer) handleSetCell(w http.ResponseWriter, r *http.Request, session Session) {
	var body SetCellInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	grid, err := s.service.SetCell(r.Context(), r.PathValue("planID"), r.PathValue("groupID"), r.PathValue("kind"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"grid": grid})
}

func (s *HTTPServer) handleAnalysis(w http.ResponseWriter, r *http.Request, session Session) {
	analysis, err := s.service.Analysis(r.Context(), r.PathValue("planID"), r.PathValue("groupID"), r.PathValue("which"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analysis": analysis})
}

func (s *HTTPServer) handleGroupRisk(w http.ResponseWriter, r *http.Request, session Session) {
	var body RiskInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	risks, err := s.service.ClassifyGroupRisk(r.Context(), r.PathValue("planID"), r.PathValue("groupID"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"risks": risks, "progress": risks.Progress()})
}

func (s *HTTPServer) handleCompleteGroup(w http.ResponseWriter, r *http.Request, session Session) {
	group, err := s.service.CompleteGroup(r.Context(), r.PathValue("planID"), r.PathValue("groupID"), r.PathValue("stage"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group": group})
}

func (s *HTTPServer) handleConsolidate(w http.ResponseWriter, r *http.Request, session Session) {
	plan, err := s.service.Consolidate(r.Context(), r.PathValue("planID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"final":          plan.Final,
		"finalRisks":     plan.FinalRisks,
		"consolidatedAt": plan.ConsolidatedAt,
	})
}

func finalPayload(plan *swot.Plan) map[string]any {
	return map[string]any{"final": plan.Final, "finalRisks": plan.FinalRisks}
}

func (s *HTTPServer) handleAddFinalItem(w http.ResponseWriter, r *http.Request, session Session) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	plan, err := s.service.AddFinalItem(r.Context(), r.PathValue("planID"), FinalEdit{
		Quadrant: r.PathValue("quadrant"),
		Text:     body.Text,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, finalPayload(plan))
}

func pathIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return 0, errValidation("index", "index must be an integer")
	}
	return index, nil
}

func (s *HTTPServer) handleUpdateFinalItem(w http.ResponseWriter, r *http.Request, session Session) {
	index, err := pathIndex(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	plan, err := s.service.UpdateFinalItem(r.Context(), r.PathValue("planID"), FinalEdit{
		Quadrant: r.PathValue("quadrant"),
		Index:    index,
		Text:     body.Text,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, finalPayload(plan))
}

func (s *HTTPServer) handleRemoveFinalItem(w http.ResponseWriter, r *http.Request, session Session) {
	index, err := pathIndex(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	plan, err := s.service.RemoveFinalItem(r.Context(), r.PathValue("planID"), FinalEdit{
		Quadrant: r.PathValue("quadrant"),
		Index:    index,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, finalPayload(plan))
}

func (s *HTTPServer) handleFinalResponses(w http.ResponseWriter, r *http.Request, session Session) {
	query := r.URL.Query()
	responses, err := s.service.FinalResponses(r.Context(), r.PathValue("planID"), query.Get("quadrant"), query.Get("item"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"responses": responses})
}

func (s *HTTPServer) handleFinalRisk(w http.ResponseWriter, r *http.Request, session Session) {
	var body RiskInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	risks, err := s.service.ClassifyFinalRisk(r.Context(), r.PathValue("planID"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"risks": risks, "progress": risks.Progress()})
}

func (s *HTTPServer) handleListTrees(w http.ResponseWriter, r *http.Request, session Session) {
	trees, err := s.service.ListTrees(r.Context(), r.PathValue("planID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if trees == nil {
		trees = []*problemtree.Tree{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trees": trees})
}

func (s *HTTPServer) handleCreateTree(w http.ResponseWriter, r *http.Request, session Session) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	tree, err := s.service.CreateTree(r.Context(), r.PathValue("planID"), body.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"tree": tree})
}

func (s *HTTPServer) handleAddTopic(w http.ResponseWriter, r *http.Request, session Session) {
	var body TopicInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	tree, err := s.service.AddTopic(r.Context(), r.PathValue("planID"), r.PathValue("treeID"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"tree": tree})
}

func (s *HTTPServer) handleRemoveTopic(w http.ResponseWriter, r *http.Request, session Session) {
	tree, err := s.service.RemoveTopic(r.Context(), r.PathValue("planID"), r.PathValue("treeID"), r.PathValue("topicID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tree": tree})
}

func (s *HTTPServer) handleTopicFactor(w http.ResponseWriter, r *http.Request, session Session) {
	var body struct {
		Value json.RawMessage `json:"value"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	value, err := factorText(body.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	tree, err := s.service.UpdateTopicFactor(r.Context(), r.PathValue("planID"), r.PathValue("treeID"), r.PathValue("topicID"), r.PathValue("factor"), value)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tree": tree, "topic": tree.Topic(r.PathValue("topicID"))})
}

// factorText accepts a JSON number, a string with a comma or dot decimal
// separator, or null. Null and a missing value become the empty string.
func factorText(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		return "", fmt.Errorf("value must be a number, a string or null")
	}
	return number.String(), nil
}

func (s *HTTPServer) handlePainPillars(w http.ResponseWriter, r *http.Request, session Session) {
	var threshold *float64
	if raw := strings.TrimSpace(r.URL.Query().Get("threshold")); raw != "" {
		value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			s.fail(w, r, errValidation("threshold", "threshold must be a number"))
			return
		}
		threshold = &value
	}
	pillars, err := s.service.PainPillars(r.Context(), r.PathValue("planID"), threshold)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pillars": pillars})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, session Session) {
	query := r.URL.Query()
	q := search.Query{
		Text:         strings.TrimSpace(query.Get("q")),
		FilterType:   search.ResultType(strings.TrimSpace(query.Get("type"))),
		FilterPlanID: strings.TrimSpace(query.Get("planId")),
	}
	if session.PlanID != "" {
		if q.FilterPlanID != "" && q.FilterPlanID != session.PlanID {
			s.forbid(w, r, session, rbac.ActionRead)
			return
		}
		q.FilterPlanID = session.PlanID
	}
	if raw := query.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			q.Limit = min(limit, 100)
		}
	}
	if raw := query.Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset > 0 {
			q.Offset = offset
		}
	}
	writeJSON(w, http.StatusOK, s.service.Search(r.Context(), q))
}

func (s *HTTPServer) handleReindex(w http.ResponseWriter, r *http.Request, session Session) {
	count, err := s.service.Reindex(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": count})
}

func (s *HTTPServer) handleReport(w http.ResponseWriter, r *http.Request, session Session) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	planID := r.PathValue("planID")

	if s.service.CanPublishReports() {
		published, err := s.service.PublishReport(r.Context(), planID, format)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"report": published})
		return
	}

	result, err := s.service.ExportReport(r.Context(), planID, format)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = util.NewID("req")
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		switch {
		case r.Method == http.MethodOptions:
			writer.WriteHeader(http.StatusNoContent)
		case s.limited(r):
			writeError(writer, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests", nil)
		default:
			next.ServeHTTP(writer, r)
		}

		zap.L().Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", time.Since(started).Milliseconds()),
		)
	})
}

// limited applies the global limiter to everything but the probes.
func (s *HTTPServer) limited(r *http.Request) bool {
	if s.limiter == nil {
		return false
	}
	if r.URL.Path == "/api/health" || r.URL.Path == "/api/ready" {
		return false
	}
	return !s.limiter.Allow()
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *swot.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_FAILED", validationErr.Error(), map[string]any{"field": validationErr.Field}
	}
	var capacityErr *swot.CapacityError
	if errors.As(err, &capacityErr) {
		return http.StatusConflict, "CAPACITY_REACHED", capacityErr.Error(), map[string]any{"quadrant": capacityErr.Quadrant, "cap": capacityErr.Cap}
	}
	var factorErr *problemtree.FactorError
	if errors.As(err, &factorErr) {
		return http.StatusUnprocessableEntity, "INVALID_FACTOR", factorErr.Error(), map[string]any{"topicId": factorErr.TopicID, "factor": factorErr.Factor}
	}
	if errors.Is(err, problemtree.ErrInvalidFactor) {
		return http.StatusUnprocessableEntity, "INVALID_FACTOR", err.Error(), nil
	}
	if errors.Is(err, problemtree.ErrTopicNotFound) || errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	if errors.Is(err, export.ErrUnsupportedFormat) {
		return http.StatusUnprocessableEntity, "UNSUPPORTED_FORMAT", err.Error(), nil
	}
	if errors.Is(err, export.ErrPDFDependencyMissing) {
		return http.StatusServiceUnavailable, "PDF_UNAVAILABLE", "PDF rendering is not available", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
