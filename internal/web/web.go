package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Joseda-hg/lazytrip/internal/csvcodec"
	"github.com/Joseda-hg/lazytrip/internal/db"
	"github.com/Joseda-hg/lazytrip/internal/export"
	"github.com/Joseda-hg/lazytrip/internal/generator"
	"github.com/Joseda-hg/lazytrip/internal/model"
	"github.com/Joseda-hg/lazytrip/internal/store"
	"github.com/Joseda-hg/lazytrip/internal/summary"
	"github.com/Joseda-hg/lazytrip/internal/validate"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.tmpl"))

// FormatWarning accompanies writes whose date or time looks unusual. The
// entry is still stored.
const FormatWarning = "date/time format looks unusual"

type Server struct {
	items       *store.Store
	snapshots   *db.Store
	generator   *generator.Generator
	log         *zap.Logger
	corsOrigins []string
	now         func() time.Time
}

type Options struct {
	// Snapshots is optional; without it the snapshot routes answer 404.
	Snapshots   *db.Store
	Generator   *generator.Generator
	Logger      *zap.Logger
	CORSOrigins []string
}

func NewServer(items *store.Store, opts Options) *Server {
	s := &Server{
		items:       items,
		snapshots:   opts.Snapshots,
		generator:   opts.Generator,
		log:         opts.Logger,
		corsOrigins: opts.CORSOrigins,
		now:         time.Now,
	}
	if s.generator == nil {
		s.generator = generator.New(nil)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(chimiddleware.Recoverer)
	r.Use(maxBodySize(maxBodyBytes))
	if len(s.corsOrigins) > 0 {
		r.Use(corsHandler(s.corsOrigins))
	}

	r.Get("/", s.indexHandler)
	r.Get("/export.csv", s.exportCSVHandler)
	r.Get("/export.xlsx", s.exportXLSXHandler)
	r.Get("/export.json", s.exportJSONHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/items", s.listItemsHandler)
		r.Post("/items", s.createItemHandler)
		r.Put("/items/{index}", s.updateItemHandler)
		r.Delete("/items/{index}", s.deleteItemHandler)
		r.Post("/items/{index}/move", s.moveItemHandler)
		r.Post("/generate", s.generateHandler)
		r.Post("/check", s.checkHandler)
		r.Get("/summary", s.summaryHandler)
		r.Get("/snapshots", s.listSnapshotsHandler)
		r.Post("/snapshots", s.saveSnapshotHandler)
		r.Post("/snapshots/{id}/restore", s.restoreSnapshotHandler)
		r.Delete("/snapshots/{id}", s.deleteSnapshotHandler)
	})
	return r
}

type itemRow struct {
	Number int
	Record model.Record
	Odd    bool
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	records := s.items.All()
	rows := make([]itemRow, 0, len(records))
	for i, record := range records {
		rows = append(rows, itemRow{
			Number: i + 1,
			Record: record,
			Odd:    !validate.LooksValid(record.Date, record.Time),
		})
	}

	data := struct {
		Title   string
		Total   int
		Columns []string
		Rows    []itemRow
	}{Title: summary.Title, Total: len(records), Columns: model.Columns, Rows: rows}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		writeError(w, http.StatusInternalServerError, err)
	}
}

type itemResponse struct {
	Index   int          `json:"index"`
	Item    model.Record `json:"item"`
	Warning string       `json:"warning,omitempty"`
}

func (s *Server) listItemsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.items.All())
}

func (s *Server) createItemHandler(w http.ResponseWriter, r *http.Request) {
	record, ok := s.decodeRecord(w, r)
	if !ok {
		return
	}

	index := s.items.Insert(record)
	writeJSON(w, http.StatusCreated, itemResponse{
		Index:   index,
		Item:    record,
		Warning: formatWarning(record),
	})
}

func (s *Server) updateItemHandler(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record, ok := s.decodeRecord(w, r)
	if !ok {
		return
	}

	if err := s.items.Update(index, record); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse{Index: index, Item: record, Warning: formatWarning(record)})
}

func (s *Server) deleteItemHandler(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.items.Delete(index); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) moveItemHandler(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var body struct {
		Offset int `json:"offset"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	moved, err := s.items.Swap(index, body.Offset)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Moved bool           `json:"moved"`
		Items []model.Record `json:"items"`
	}{Moved: moved, Items: s.items.All()})
}

type generateRequest struct {
	City      string `json:"city"`
	Days      int    `json:"days"`
	StartDate string `json:"start_date"`
	Mode      string `json:"mode"`
}

func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	city := strings.TrimSpace(req.City)
	if city == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: city required", model.ErrInvalidArgument))
		return
	}
	if err := generator.CheckDays(req.Days); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	mode, err := generator.ParseMode(req.Mode)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	start := generator.DefaultStart(s.now())
	if value := strings.TrimSpace(req.StartDate); value != "" {
		parsed, err := time.Parse(time.DateOnly, value)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: start_date must be YYYY-MM-DD", model.ErrInvalidArgument))
			return
		}
		start = parsed
	}

	records, err := s.generator.Generate(city, req.Days, start)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	added := generator.Apply(s.items, records, mode)
	s.log.Info("itinerary_generated",
		zap.String("city", city),
		zap.Int("days", req.Days),
		zap.Stringer("mode", mode),
		zap.Int("added", added),
	)

	writeJSON(w, http.StatusOK, struct {
		Added int    `json:"added"`
		Count int    `json:"count"`
		Mode  string `json:"mode"`
	}{Added: added, Count: s.items.Count(), Mode: mode.String()})
}

func (s *Server) checkHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		LooksValid bool `json:"looks_valid"`
	}{LooksValid: validate.LooksValid(body.Date, body.Time)})
}

func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, summary.Format(s.items.All()))
}

func (s *Server) exportCSVHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="itinerary.csv"`)
	_, _ = io.WriteString(w, csvcodec.Encode(s.items.All()))
}

func (s *Server) exportXLSXHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="itinerary.xlsx"`)
	if err := export.WriteXLSX(w, s.items.All()); err != nil {
		s.log.Error("xlsx_export_failed", zap.Error(err))
	}
}

func (s *Server) exportJSONHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := export.WriteJSON(w, s.items.All()); err != nil {
		s.log.Error("json_export_failed", zap.Error(err))
	}
}

func (s *Server) listSnapshotsHandler(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusNotFound, errors.New("snapshots are not enabled"))
		return
	}
	snapshots, err := s.snapshots.ListSnapshots(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if snapshots == nil {
		snapshots = []model.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (s *Server) saveSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusNotFound, errors.New("snapshots are not enabled"))
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	snapshot, err := s.snapshots.SaveSnapshot(r.Context(), body.Name, s.items.All())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshot)
}

func (s *Server) restoreSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusNotFound, errors.New("snapshots are not enabled"))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: invalid snapshot id", model.ErrInvalidArgument))
		return
	}

	records, err := s.snapshots.LoadSnapshot(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.items.Replace(records)
	writeJSON(w, http.StatusOK, s.items.All())
}

func (s *Server) deleteSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusNotFound, errors.New("snapshots are not enabled"))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: invalid snapshot id", model.ErrInvalidArgument))
		return
	}

	if err := s.snapshots.DeleteSnapshot(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.log.Info("snapshot_deleted", zap.Stringer("id", id))
	w.WriteHeader(http.StatusNoContent)
}

// decodeRecord reads, trims and checks a record body. It writes the error
// response itself and reports whether the handler should continue.
func (s *Server) decodeRecord(w http.ResponseWriter, r *http.Request) (model.Record, bool) {
	var record model.Record
	if err := decodeJSON(r, &record); err != nil {
		writeError(w, statusFor(err), err)
		return model.Record{}, false
	}
	record = validate.Normalize(record)
	if err := validate.Required(record); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return model.Record{}, false
	}
	return record, true
}

func formatWarning(record model.Record) string {
	if validate.LooksValid(record.Date, record.Time) {
		return ""
	}
	return FormatWarning
}

func parseIndex(r *http.Request) (int, error) {
	value := chi.URLParam(r, "index")
	index, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: index %q is not a number", model.ErrInvalidArgument, value)
	}
	return index, nil
}

func decodeJSON(r *http.Request, target any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", model.ErrIOFailure, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return fmt.Errorf("%w: request body required", model.ErrInvalidArgument)
	}
	if err := sonic.ConfigStd.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", model.ErrInvalidArgument, err)
	}
	return nil
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, model.ErrIndexOutOfRange), errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidArgument), errors.Is(err, model.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := sonic.ConfigStd.Marshal(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	data, marshalErr := sonic.ConfigStd.Marshal(struct {
		Error string `json:"error"`
	}{Error: err.Error()})
	if marshalErr != nil {
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
