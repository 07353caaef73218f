package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/airsial/opshub/internal/archive"
	"github.com/airsial/opshub/internal/assistant"
	"github.com/airsial/opshub/internal/config"
	"github.com/airsial/opshub/internal/metrics"
	"github.com/airsial/opshub/internal/records"
	"github.com/airsial/opshub/internal/session"
	"github.com/airsial/opshub/internal/stats"
	"github.com/airsial/opshub/internal/storage/sqlite"
	"github.com/airsial/opshub/internal/users"
	"github.com/airsial/opshub/pkg/logger"
)

// maxImportBody caps uploaded CSV size at 16 MiB.
const maxImportBody = 16 << 20

// Handler implements all API endpoints.
type Handler struct {
	config    *config.Config
	records   *records.Store
	users     *users.Store
	sessions  *session.Manager
	stats     *stats.Service
	assistant *assistant.Service
	archives  archive.Store
	audit     *sqlite.AuditStorage
	metrics   *metrics.Metrics
	logger    *logger.Logger
	started   time.Time
}

// NewHandler creates the endpoint handler set.
func NewHandler(
	cfg *config.Config,
	recordStore *records.Store,
	userStore *users.Store,
	sessions *session.Manager,
	statsSvc *stats.Service,
	assistantSvc *assistant.Service,
	archives archive.Store,
	audit *sqlite.AuditStorage,
	m *metrics.Metrics,
	log *logger.Logger,
) *Handler {
	return &Handler{
		config:    cfg,
		records:   recordStore,
		users:     userStore,
		sessions:  sessions,
		stats:     statsSvc,
		assistant: assistantSvc,
		archives:  archives,
		audit:     audit,
		metrics:   m,
		logger:    log.Named("api-handler"),
		started:   time.Now().UTC(),
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var perr *records.PersistError
	switch {
	case errors.As(err, &perr):
		return http.StatusInternalServerError
	case errors.Is(err, records.ErrValidation),
		errors.Is(err, records.ErrParse),
		errors.Is(err, users.ErrBadRequest),
		errors.Is(err, assistant.ErrEmptyQuery),
		errors.Is(err, archive.ErrBadKey):
		return http.StatusBadRequest
	case errors.Is(err, users.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, records.ErrAccessDenied),
		errors.Is(err, users.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, records.ErrUnknownCollection),
		errors.Is(err, records.ErrNotFound),
		errors.Is(err, users.ErrUserNotFound),
		errors.Is(err, archive.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, users.ErrUserExists),
		errors.Is(err, archive.ErrExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the mapped error response. Server-side failures keep their
// detail in the logs only.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", logger.Error(err))
		respondError(w, status, "internal server error")
		return
	}
	respondError(w, status, err.Error())
}

func (h *Handler) callerFrom(r *http.Request) (records.Caller, *session.Session, bool) {
	sess, ok := principalFrom(r.Context())
	if !ok {
		return records.Caller{}, nil, false
	}
	return records.Caller{Name: sess.Username, Role: sess.Role}, sess, true
}

// auditEvent stores one audit row. Auditing never fails a request.
func (h *Handler) auditEvent(actor, action string, collection records.Collection, detail string, count int) {
	if h.audit == nil {
		return
	}
	_, err := h.audit.StoreEvent(&sqlite.AuditEvent{
		Actor:      actor,
		Action:     action,
		Collection: string(collection),
		Detail:     detail,
		Count:      count,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("Failed to store audit event",
			logger.Error(err),
			logger.String("action", action))
	}
}

// recordsChanged refreshes everything derived from the record store.
func (h *Handler) recordsChanged() {
	h.stats.Invalidate()
	h.metrics.SetRecordCounts(h.records.Counts())
}

// --- Auth ---

// Login checks credentials and opens a session. The token is returned in
// the body and set as a cookie for browser clients.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		h.auditEvent(req.Username, "login_failed", "", "", 0)
		h.fail(w, err)
		return
	}

	sess := h.sessions.Create(user.Username, user.Role)
	h.metrics.SetActiveSessions(h.sessions.Active())
	h.auditEvent(user.Username, "login", "", "", 0)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, LoginResponse{
		Token:     sess.Token,
		Username:  sess.Username,
		Role:      sess.Role,
		ExpiresAt: sess.ExpiresAt,
	})
}

// Logout destroys the caller's session and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	h.sessions.Destroy(sess.Token)
	h.metrics.SetActiveSessions(h.sessions.Active())
	h.auditEvent(sess.Username, "logout", "", "", 0)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me describes the authenticated caller.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	respondJSON(w, http.StatusOK, SessionResponse{
		Username:  sess.Username,
		Role:      sess.Role,
		ExpiresAt: sess.ExpiresAt,
	})
}

// --- Users ---

// ListUsers returns every account. Administrators only.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	caller, _, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !strings.EqualFold(caller.Role, records.RoleAdministrator) {
		h.fail(w, users.ErrForbidden)
		return
	}

	list := h.users.List()
	views := make([]UserView, 0, len(list))
	for _, u := range list {
		views = append(views, UserView{
			Username:  u.Username,
			Role:      u.Role,
			Email:     u.Email,
			CreatedAt: u.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, UsersResponse{
		Timestamp: time.Now().UTC(),
		Count:     len(views),
		Users:     views,
	})
}

// CreateUser adds an account. The credential store enforces that only
// administrators may call this.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	caller, _, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.users.Create(caller, users.NewUser{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
		Email:    req.Email,
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	h.auditEvent(caller.Name, "user_created", "", user.Username, 0)
	respondJSON(w, http.StatusCreated, UserView{
		Username:  user.Username,
		Role:      user.Role,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

// DeleteUser removes an account and kills its live sessions.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, _, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	username := chi.URLParam(r, "username")

	if err := h.users.Delete(caller, username); err != nil {
		h.fail(w, err)
		return
	}

	if n := h.sessions.DestroyUser(username); n > 0 {
		h.metrics.SetActiveSessions(h.sessions.Active())
	}
	h.auditEvent(caller.Name, "user_deleted", "", username, 0)
	w.WriteHeader(http.StatusNoContent)
}

// --- Records ---

// ListRecords returns one collection, optionally filtered by an exact field
// match (?field=status&value=Pending) and a substring search (?search=).
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	c := records.Collection(chi.URLParam(r, "collection"))

	filter := records.Filter{
		Field:  r.URL.Query().Get("field"),
		Value:  r.URL.Query().Get("value"),
		Search: r.URL.Query().Get("search"),
	}
	recs, err := h.records.Query(c, filter)
	if err != nil {
		h.fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, RecordsResponse{
		Timestamp:  time.Now().UTC(),
		Collection: string(c),
		Count:      len(recs),
		Records:    recs,
	})
}

// CreateRecord inserts one record from a flat JSON object of field values.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	caller, _, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	c := records.Collection(chi.URLParam(r, "collection"))

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, err := h.records.Insert(c, records.NormalizeFields(body), caller)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.recordsChanged()
	h.auditEvent(caller.Name, "record_created", c, fmt.Sprintf("id %d", rec.ID), 1)
	respondJSON(w, http.StatusCreated, rec)
}

// GetRecord returns a single record by id.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	c := records.Collection(chi.URLParam(r, "collection"))
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "record id must be an integer")
		return
	}

	rec, err := h.records.Get(c, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// ImportRecords bulk-loads CSV rows into one collection. The CSV arrives as
// the request body, or as the "file" part of a multipart form.
func (h *Handler) ImportRecords(w http.ResponseWriter, r *http.Request) {
	caller, _, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	c := records.Collection(chi.URLParam(r, "collection"))

	src, err := importSource(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	inserted, err := h.records.BulkImport(c, src, caller)
	if err != nil {
		h.metrics.ObserveImport(importOutcome(err), 0)
		h.fail(w, err)
		return
	}

	h.recordsChanged()
	h.metrics.ObserveImport("ok", inserted)
	h.auditEvent(caller.Name, "records_imported", c, "", inserted)
	respondJSON(w, http.StatusOK, ImportResponse{
		Timestamp:  time.Now().UTC(),
		Collection: string(c),
		Inserted:   inserted,
	})
}

func importSource(r *http.Request) (io.Reader, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImportBody); err != nil {
			return nil, fmt.Errorf("invalid multipart form: %w", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("multipart form is missing a file part")
		}
		return file, nil
	}
	return http.MaxBytesReader(nil, r.Body, maxImportBody), nil
}

func importOutcome(err error) string {
	switch statusFor(err) {
	case http.StatusForbidden:
		return "denied"
	case http.StatusBadRequest:
		return "rejected"
	default:
		return "failed"
	}
}

// ExportRecords streams one collection as CSV.
func (h *Handler) ExportRecords(w http.ResponseWriter, r *http.Request) {
	c := records.Collection(chi.URLParam(r, "collection"))
	caller, _, _ := h.callerFrom(r)

	recs, err := h.records.Query(c, records.Filter{})
	if err != nil {
		h.fail(w, err)
		return
	}

	name := fmt.Sprintf("%s_export_%s.csv", c, time.Now().UTC().Format("20060102_1504"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := records.WriteCSV(w, c, recs); err != nil {
		h.logger.Error("CSV export failed mid-stream", logger.Error(err))
		return
	}
	h.auditEvent(caller.Name, "records_exported", c, name, len(recs))
}

// TemplateCSV streams the import template with sample rows.
func (h *Handler) TemplateCSV(w http.ResponseWriter, r *http.Request) {
	c := records.Collection(chi.URLParam(r, "collection"))
	if !c.Valid() {
		h.fail(w, fmt.Errorf("%w: %s", records.ErrUnknownCollection, c))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(c)+"_template.csv"))
	if err := records.WriteTemplate(w, c); err != nil {
		h.logger.Error("Template download failed mid-stream", logger.Error(err))
	}
}

// DeleteRange removes an inclusive id range (?from=2&to=4) from one
// collection. Administrators only, enforced by the store.
func (h *Handler) DeleteRange(w http.ResponseWriter, r *http.Request) {
	caller, _, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	c := records.Collection(chi.URLParam(r, "collection"))

	from, err := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "from must be an integer id")
		return
	}
	to, err := strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "to must be an integer id")
		return
	}

	removed, err := h.records.DeleteRange(c, from, to, caller)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.recordsChanged()
	h.auditEvent(caller.Name, "records_deleted", c, fmt.Sprintf("ids %d-%d", from, to), removed)
	respondJSON(w, http.StatusOK, DeleteRangeResponse{
		Timestamp:  time.Now().UTC(),
		Collection: string(c),
		From:       from,
		To:         to,
		Removed:    removed,
	})
}

// --- Export package and archives ---

// ExportPackage streams the complete data package as JSON.
func (h *Handler) ExportPackage(w http.ResponseWriter, r *http.Request) {
	caller, _, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	pkg, err := h.records.ExportPackage(caller)
	if err != nil {
		h.fail(w, err)
		return
	}

	name := fmt.Sprintf("airsial_complete_export_%s.json", time.Now().UTC().Format("20060102_1504"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pkg); err != nil {
		h.logger.Error("Package export failed mid-stream", logger.Error(err))
		return
	}
	h.auditEvent(caller.Name, "package_exported", "", name, 0)
}

// CreateArchive snapshots the complete data package into the archive store.
// Administrators and managers only.
func (h *Handler) CreateArchive(w http.ResponseWriter, r *http.Request) {
	caller, _, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !archiveManagerRole(caller.Role) {
		respondError(w, http.StatusForbidden, "administrator or manager role required")
		return
	}

	pkg, err := h.records.ExportPackage(caller)
	if err != nil {
		h.fail(w, err)
		return
	}
	data, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		h.fail(w, err)
		return
	}

	key := fmt.Sprintf("airsial_complete_export_%s.json", time.Now().UTC().Format("20060102_150405"))
	info, err := h.archives.Put(r.Context(), key, bytes.NewReader(data))
	if err != nil {
		h.fail(w, err)
		return
	}

	h.auditEvent(caller.Name, "archive_created", "", key, 0)
	respondJSON(w, http.StatusCreated, ArchiveCreatedResponse{
		Timestamp: time.Now().UTC(),
		Archive:   info,
	})
}

// ListArchives lists stored snapshots. Administrators and managers only.
func (h *Handler) ListArchives(w http.ResponseWriter, r *http.Request) {
	caller, _, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !archiveManagerRole(caller.Role) {
		respondError(w, http.StatusForbidden, "administrator or manager role required")
		return
	}

	infos, err := h.archives.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ArchivesResponse{
		Timestamp: time.Now().UTC(),
		Driver:    h.archives.Driver(),
		Count:     len(infos),
		Archives:  infos,
	})
}

// GetArchive streams one stored snapshot. Administrators and managers only.
func (h *Handler) GetArchive(w http.ResponseWriter, r *http.Request) {
	caller, _, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !archiveManagerRole(caller.Role) {
		respondError(w, http.StatusForbidden, "administrator or manager role required")
		return
	}
	key := chi.URLParam(r, "key")

	info, rc, err := h.archives.Get(r.Context(), key)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Key))
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("Archive download failed mid-stream",
			logger.Error(err),
			logger.String("key", key))
	}
}

// DeleteArchive removes one stored snapshot. Administrators and managers
// only.
func (h *Handler) DeleteArchive(w http.ResponseWriter, r *http.Request) {
	caller, _, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !archiveManagerRole(caller.Role) {
		respondError(w, http.StatusForbidden, "administrator or manager role required")
		return
	}
	key := chi.URLParam(r, "key")

	existed, err := h.archives.Delete(r.Context(), key)
	if err != nil {
		h.fail(w, err)
		return
	}
	if !existed {
		h.fail(w, fmt.Errorf("%w: %s", archive.ErrNotFound, key))
		return
	}

	h.auditEvent(caller.Name, "archive_deleted", "", key, 0)
	w.WriteHeader(http.StatusNoContent)
}

func archiveManagerRole(role string) bool {
	return strings.EqualFold(role, records.RoleAdministrator) ||
		strings.EqualFold(role, records.RoleManager)
}

// --- Dashboard and assistant ---

// Dashboard returns the operational summary, alerts and recent activity.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.stats.Summary()
	if err != nil {
		h.fail(w, err)
		return
	}
	activities, err := h.stats.Activities(5)
	if err != nil {
		h.fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, DashboardResponse{
		Timestamp:        time.Now().UTC(),
		Summary:          summary,
		Alerts:           summary.Alerts(),
		RecentActivities: activities,
	})
}

// AssistantQuery answers one operational question.
func (h *Handler) AssistantQuery(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req AssistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	answer, err := h.assistant.Ask(r.Context(), sess.Username, req.Query)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.metrics.ObserveAnswer(answer.Source)
	respondJSON(w, http.StatusOK, AssistantResponse{
		Timestamp: time.Now().UTC(),
		Content:   answer.Content,
		Source:    answer.Source,
	})
}

// AssistantHistory returns the caller's conversation, oldest first.
func (h *Handler) AssistantHistory(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	messages, err := h.assistant.History(sess.Username)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, HistoryResponse{
		Timestamp: time.Now().UTC(),
		Count:     len(messages),
		Messages:  messages,
	})
}

// ClearAssistantHistory wipes the caller's conversation.
func (h *Handler) ClearAssistantHistory(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	removed, err := h.assistant.Clear(sess.Username)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ClearHistoryResponse{
		Timestamp: time.Now().UTC(),
		Removed:   removed,
	})
}

// --- Audit and system ---

// AuditEvents returns recent audit events, newest first, optionally scoped
// to one actor (?actor=). Administrators only.
func (h *Handler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	caller, _, ok := h.callerFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !strings.EqualFold(caller.Role, records.RoleAdministrator) {
		h.fail(w, users.ErrForbidden)
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var events []*sqlite.AuditEvent
	var err error
	if actor := r.URL.Query().Get("actor"); actor != "" {
		events, err = h.audit.GetEventsByActor(actor, limit)
	} else {
		events, err = h.audit.GetRecentEvents(limit)
	}
	if err != nil {
		h.fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AuditResponse{
		Timestamp: time.Now().UTC(),
		Count:     len(events),
		Events:    events,
	})
}

// Health reports liveness and per-collection record counts.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int)
	for c, n := range h.records.Counts() {
		counts[string(c)] = n
	}
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: time.Since(h.started).Seconds(),
		Records:       counts,
	})
}

// GetConfig returns the non-secret settings clients need to build forms.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	schemas := make(map[string][]string)
	required := make(map[string][]string)
	names := make([]string, 0, 3)
	for _, c := range records.Collections() {
		names = append(names, string(c))
		schemas[string(c)] = records.SchemaFields(c)
		required[string(c)] = records.RequiredFields(c)
	}

	respondJSON(w, http.StatusOK, ConfigResponse{
		Collections:    names,
		Schemas:        schemas,
		RequiredFields: required,
		Roles: []string{
			records.RoleAdministrator,
			records.RoleManager,
			records.RoleEngineer,
			records.RoleViewer,
		},
		ImportMaxRows: h.config.Records.ImportMaxRows,
	})
}
