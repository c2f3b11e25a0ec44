package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/antonvlasov/metapilot/internal/core/domain"
	"github.com/antonvlasov/metapilot/internal/core/ports"
	"github.com/antonvlasov/metapilot/internal/observability/metrics"
)

type Router struct {
	templatesUC ports.TemplateRefresher
	classifyUC  ports.ClassificationService
	batchUC     ports.BatchSubmitter

	service string
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(
	templatesUC ports.TemplateRefresher,
	classifyUC ports.ClassificationService,
	batchUC ports.BatchSubmitter,
	service string,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		templatesUC: templatesUC,
		classifyUC:  classifyUC,
		batchUC:     batchUC,
		service:     service,
		metrics:     m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/templates", rt.listTemplates)
	mux.HandleFunc("/v1/templates/refresh", rt.refreshTemplates)
	mux.HandleFunc("/v1/classify", rt.classify)
	mux.HandleFunc("/v1/batches", rt.submitBatch)
	mux.HandleFunc("/v1/batches/", rt.batchByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		return requestIDMiddleware(accessLogMiddleware(rt.metrics.Middleware(rt.service, mux)))
	}
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) listTemplates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	templates := rt.templatesUC.Templates()
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": templates,
		"count":     len(templates),
	})
}

func (rt *Router) refreshTemplates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	count, err := rt.templatesUC.Refresh(r.Context())
	if rt.metrics != nil {
		rt.metrics.RecordTemplateRefresh(rt.service, count, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (rt *Router) classify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Files []domain.FileRef `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.Files) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "files is required"})
		return
	}

	outcomes := rt.classifyUC.ClassifyFiles(r.Context(), req.Files)
	if rt.metrics != nil {
		for _, outcome := range outcomes {
			if outcome.Error != "" {
				continue
			}
			rt.metrics.RecordClassification(rt.service, outcome.Classification.DocumentType, outcome.SuggestedTemplateID != "")
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": outcomes})
}

func (rt *Router) submitBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Files      []domain.FileRef    `json:"files"`
		Mode       string              `json:"mode"`
		TemplateID string              `json:"template_id"`
		Prompt     string              `json:"prompt"`
		AIModel    string              `json:"ai_model"`
		Options    domain.BatchOptions `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	run := &domain.BatchRun{
		Files:      req.Files,
		Mode:       domain.ExtractionMode(req.Mode),
		TemplateID: req.TemplateID,
		Prompt:     req.Prompt,
		AIModel:    req.AIModel,
		Options:    req.Options,
	}
	id, err := rt.batchUC.Submit(r.Context(), run)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordBatchSubmitted(rt.service, req.Mode)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": id})
}

func (rt *Router) batchByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/batches/")
	if rest == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "run id is required"})
		return
	}

	if id, ok := strings.CutSuffix(rest, "/cancel"); ok {
		rt.cancelBatch(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	rt.batchReport(w, r, rest)
}

func (rt *Router) batchReport(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	report, err := rt.batchUC.Report(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) cancelBatch(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "run id is required"})
		return
	}

	if err := rt.batchUC.Cancel(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordBatchCancel(rt.service)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancel requested"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
