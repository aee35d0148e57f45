// File: internal/mcp/handlers.go
package mcp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/internal/apperr"
	"github.com/xkilldash9x/notecrawl/internal/observability"
	"github.com/xkilldash9x/notecrawl/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodyBytes bounds a tool request body.
const maxBodyBytes = 1 << 16

// Handlers manages the HTTP request handling for the tool server.
type Handlers struct {
	log     *zap.Logger
	svc     Service
	dataDir string
	config  ConfigSource
}

// NewHandlers creates a new Handlers instance. dataDir is the storage root
// scanned by get_saved_data and the data resource.
func NewHandlers(logger *zap.Logger, svc Service, dataDir string, cfg ConfigSource) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		log:     logger.Named("mcp_handlers"),
		svc:     svc,
		dataDir: dataDir,
		config:  cfg,
	}
}

// RegisterRoutes sets up the routing for the tool server. toolMiddleware wraps
// the tool endpoints only.
func (h *Handlers) RegisterRoutes(r chi.Router, toolMiddleware ...func(http.Handler) http.Handler) {
	// Health check endpoint (unversioned)
	r.Get("/healthz", h.HandleHealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tools", h.HandleListTools)
		r.With(toolMiddleware...).Post("/tools/{tool}", h.HandleTool)
		r.Get("/resources/config", h.HandleConfigResource)
		r.Get("/resources/data/{filename}", h.HandleDataResource)
	})
}

// HandleHealthCheck is a simple handler to confirm the server is responsive.
func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// HandleListTools returns the tool catalog.
func (h *Handlers) HandleListTools(w http.ResponseWriter, r *http.Request) {
	h.respondWithSuccess(w, toolCatalog)
}

// HandleTool dispatches a tool call by name.
func (h *Handlers) HandleTool(w http.ResponseWriter, r *http.Request) {
	tool := chi.URLParam(r, "tool")
	h.log.Info("Tool called.", zap.String("tool", tool))

	switch tool {
	case ToolCheckSession:
		h.handleCheckSession(w, r)
	case ToolSearch:
		h.handleSearch(w, r)
	case ToolFetchItem:
		h.handleFetchItem(w, r)
	case ToolFetchAll:
		h.handleFetchAll(w, r)
	case ToolSavedData:
		h.handleSavedData(w, r)
	default:
		h.respondWithError(w, http.StatusNotFound, apperr.InvalidInput("tool", fmt.Sprintf("unknown tool %q", tool)))
	}
}

func (h *Handlers) handleCheckSession(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.CheckSession(r.Context())
	if err != nil {
		var e *apperr.Error
		// A stopped browser is a status, not a failure.
		if errors.As(err, &e) && e.Code == apperr.CodeSessionNotRunning {
			status.LoggedIn, status.BrowserRunning, status.Message = false, false, e.Message+" "+e.Action
			h.respondWithSuccess(w, status)
			return
		}
		h.respondWithServiceError(w, ToolCheckSession, err)
		return
	}
	h.log.Info("Session status.", zap.Bool("logged_in", status.LoggedIn), zap.Bool("browser_running", status.BrowserRunning))
	h.respondWithSuccess(w, status)
}

func (h *Handlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	params, ok := decodeParams[SearchParams](h, w, r)
	if !ok {
		return
	}
	keyword := strings.TrimSpace(params.Keyword)
	if keyword == "" {
		h.respondWithError(w, http.StatusBadRequest, apperr.InvalidInput("keyword", "must not be empty"))
		return
	}
	maxCount := clamp(params.MaxCount, defaultMaxCount, minMaxCount, maxMaxCount)

	h.log.Info("Searching.", zap.String("keyword", keyword), zap.Int("max_count", maxCount))
	result, err := h.svc.Search(r.Context(), keyword, maxCount)
	if err != nil {
		h.respondWithServiceError(w, ToolSearch, err)
		return
	}
	h.log.Info("Search finished.", zap.Int("count", result.Count))
	h.respondWithSuccess(w, result)
}

func (h *Handlers) handleFetchItem(w http.ResponseWriter, r *http.Request) {
	params, ok := decodeParams[DetailParams](h, w, r)
	if !ok {
		return
	}
	noteURL := strings.TrimSpace(params.NoteURL)
	if noteURL == "" {
		h.respondWithError(w, http.StatusBadRequest, apperr.InvalidInput("note_url", "must not be empty"))
		return
	}
	maxComments := clamp(params.MaxComments, defaultMaxComments, minMaxComments, maxMaxComments)

	h.log.Info("Fetching note.", observability.URL("note_url", noteURL), zap.Int("max_comments", maxComments))
	detail, err := h.svc.FetchItem(r.Context(), noteURL, maxComments)
	if err != nil {
		h.respondWithServiceError(w, ToolFetchItem, err)
		return
	}
	h.log.Info("Note fetched.", zap.String("note_id", detail.NoteID), zap.Int("comments", len(detail.Comments)))
	h.respondWithSuccess(w, detail)
}

func (h *Handlers) handleFetchAll(w http.ResponseWriter, r *http.Request) {
	params, ok := decodeParams[CrawlParams](h, w, r)
	if !ok {
		return
	}
	keyword := strings.TrimSpace(params.Keyword)
	if keyword == "" {
		h.respondWithError(w, http.StatusBadRequest, apperr.InvalidInput("keyword", "must not be empty"))
		return
	}
	maxNotes := clamp(params.MaxNotes, defaultMaxNotes, minMaxNotes, maxMaxNotes)
	maxComments := clamp(params.MaxComments, defaultMaxComments, minMaxComments, maxMaxComments)

	h.log.Info("Crawling.", zap.String("keyword", keyword), zap.Int("max_notes", maxNotes), zap.Int("max_comments", maxComments))
	summary, err := h.svc.FetchAll(r.Context(), keyword, maxNotes, maxComments)
	if err != nil {
		h.respondWithServiceError(w, ToolFetchAll, err)
		return
	}
	h.log.Info("Crawl finished.", zap.String("summary", summary.Summary))
	h.respondWithSuccess(w, summary)
}

func (h *Handlers) handleSavedData(w http.ResponseWriter, r *http.Request) {
	params, ok := decodeParams[SavedDataParams](h, w, r)
	if !ok {
		return
	}
	data, err := store.List(h.dataDir, params.Keyword)
	if err != nil {
		h.log.Error("Failed to list saved data.", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, apperr.OperationFailed("saved data could not be listed"))
		return
	}
	h.respondWithSuccess(w, data)
}

// HandleConfigResource returns the active configuration as YAML.
func (h *Handlers) HandleConfigResource(w http.ResponseWriter, r *http.Request) {
	if h.config == nil {
		http.Error(w, "configuration is not available", http.StatusNotFound)
		return
	}
	body, err := h.config.YAML()
	if err != nil {
		h.log.Error("Failed to render configuration.", zap.Error(err))
		http.Error(w, "configuration could not be rendered", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// HandleDataResource returns one saved file from the data directory.
func (h *Handlers) HandleDataResource(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil {
		http.Error(w, "invalid file name", http.StatusBadRequest)
		return
	}
	body, err := store.ReadFile(h.dataDir, name)
	switch {
	case errors.Is(err, store.ErrBadFilename):
		http.Error(w, "invalid file name: path traversal and subdirectories are not allowed", http.StatusBadRequest)
		return
	case errors.Is(err, fs.ErrNotExist):
		http.Error(w, fmt.Sprintf("file %s does not exist; list saved files with %s", name, ToolSavedData), http.StatusNotFound)
		return
	case err != nil:
		h.log.Error("Failed to read data file.", zap.String("file", name), zap.Error(err))
		http.Error(w, "file could not be read", http.StatusInternalServerError)
		return
	}

	contentType := "application/json; charset=utf-8"
	if strings.HasSuffix(name, ".csv") {
		contentType = "text/csv; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// decodeParams reads the tool arguments. An empty body means all defaults.
func decodeParams[T any](h *Handlers, w http.ResponseWriter, r *http.Request) (T, bool) {
	var params T
	if r.Body == nil {
		return params, true
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, apperr.InvalidInput("body", fmt.Sprintf("unreadable: %v", err)))
		return params, false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return params, true
	}
	if err := json.Unmarshal(body, &params); err != nil {
		h.respondWithError(w, http.StatusBadRequest, apperr.InvalidInput("body", fmt.Sprintf("invalid JSON: %v", err)))
		return params, false
	}
	return params, true
}

// statusFor maps an error code to its HTTP status.
func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidInput:
		return http.StatusBadRequest
	case apperr.CodeSessionExpired:
		return http.StatusUnauthorized
	case apperr.CodeSessionNotRunning, apperr.CodeSessionCrashed:
		return http.StatusServiceUnavailable
	case apperr.CodeTimeout:
		return http.StatusGatewayTimeout
	case apperr.CodeOperationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError classifies err and sends it.
func (h *Handlers) respondWithServiceError(w http.ResponseWriter, tool string, err error) {
	e := apperr.From(err)
	h.log.Warn("Tool failed.", zap.String("tool", tool), zap.String("code", string(e.Code)), zap.Error(err))
	h.respondWithError(w, statusFor(e.Code), e)
}

// respondWithError sends a standardized JSON error response.
func (h *Handlers) respondWithError(w http.ResponseWriter, statusCode int, e *apperr.Error) {
	h.respondWithStatus(w, statusCode, ToolResponse{Status: "error", Error: e})
}

// respondWithSuccess sends a standardized JSON success response.
func (h *Handlers) respondWithSuccess(w http.ResponseWriter, data interface{}) {
	h.respondWithStatus(w, http.StatusOK, ToolResponse{Status: "success", Data: data})
}

func (h *Handlers) respondWithStatus(w http.ResponseWriter, statusCode int, resp ToolResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}
