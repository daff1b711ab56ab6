package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Joseda-hg/lazytrip/internal/csvcodec"
	"github.com/Joseda-hg/lazytrip/internal/db"
	"github.com/Joseda-hg/lazytrip/internal/model"
	"github.com/Joseda-hg/lazytrip/internal/store"
)

func newTestServer(t *testing.T, records ...model.Record) (*Server, *store.Store) {
	t.Helper()
	items := store.New()
	for _, record := range records {
		items.Insert(record)
	}
	server := NewServer(items, Options{})
	server.now = func() time.Time { return time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC) }
	return server, items
}

func do(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

var oslo = model.Record{Date: "2024-05-01", Time: "09:00", City: "Oslo", Activity: "Opera house"}
var bergen = model.Record{Date: "2024-05-02", Time: "10:00", City: "Bergen", Activity: "Fish market"}

func TestIndexListsItems(t *testing.T) {
	server, _ := newTestServer(t, oslo, model.Record{Date: "May 1st", City: "Oslo", Activity: "Walk"})

	rec := do(t, server.Handler(), http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Opera house")
	assert.Contains(t, rec.Body.String(), `class="odd"`)
	assert.Contains(t, rec.Body.String(), "2 entries")
}

func TestCreateItem(t *testing.T) {
	server, items := newTestServer(t)

	rec := do(t, server.Handler(), http.MethodPost, "/api/items", map[string]string{
		"date": " 2024-05-01 ", "time": "9:30", "city": "Oslo", "activity": "Museum",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var got itemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 0, got.Index)
	assert.Equal(t, "2024-05-01", got.Item.Date)
	assert.Empty(t, got.Warning)
	assert.Equal(t, 1, items.Count())
}

func TestCreateItemWithOddDateWarnsButStores(t *testing.T) {
	server, items := newTestServer(t)

	rec := do(t, server.Handler(), http.MethodPost, "/api/items", map[string]string{
		"date": "01/05/2024", "time": "25:00", "city": "Oslo", "activity": "Museum",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), FormatWarning)
	assert.Equal(t, 1, items.Count())
}

func TestCreateItemRejectsMissingFields(t *testing.T) {
	server, items := newTestServer(t)

	rec := do(t, server.Handler(), http.MethodPost, "/api/items", map[string]string{"date": "2024-05-01", "city": "  "})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "City")
	assert.Equal(t, 0, items.Count())
}

func TestCreateItemRejectsBadJSON(t *testing.T) {
	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateItem(t *testing.T) {
	server, items := newTestServer(t, oslo)
	changed := bergen

	rec := do(t, server.Handler(), http.MethodPut, "/api/items/0", changed)
	require.Equal(t, http.StatusOK, rec.Code)
	got, err := items.Get(0)
	require.NoError(t, err)
	assert.Equal(t, bergen, got)

	rec = do(t, server.Handler(), http.MethodPut, "/api/items/5", changed)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, server.Handler(), http.MethodPut, "/api/items/first", changed)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteItem(t *testing.T) {
	server, items := newTestServer(t, oslo, bergen)

	rec := do(t, server.Handler(), http.MethodDelete, "/api/items/0", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []model.Record{bergen}, items.All())

	rec = do(t, server.Handler(), http.MethodDelete, "/api/items/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, items.Count())
}

func TestMoveItem(t *testing.T) {
	server, items := newTestServer(t, oslo, bergen)

	rec := do(t, server.Handler(), http.MethodPost, "/api/items/1/move", map[string]int{"offset": -1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"moved":true`)
	assert.Equal(t, []model.Record{bergen, oslo}, items.All())

	rec = do(t, server.Handler(), http.MethodPost, "/api/items/0/move", map[string]int{"offset": -1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"moved":false`)

	rec = do(t, server.Handler(), http.MethodPost, "/api/items/0/move", map[string]int{"offset": 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerate(t *testing.T) {
	server, items := newTestServer(t, oslo)

	rec := do(t, server.Handler(), http.MethodPost, "/api/generate", map[string]any{"city": "Paris", "days": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"added":6`)
	require.Equal(t, 7, items.Count())
	first, err := items.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-11", first.Date)

	rec = do(t, server.Handler(), http.MethodPost, "/api/generate", map[string]any{
		"city": "Rome", "days": 1, "start_date": "2024-06-01", "mode": "replace",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	all := items.All()
	require.Len(t, all, 3)
	assert.Equal(t, "2024-06-01", all[0].Date)
	assert.Equal(t, "Rome", all[0].City)

	rec = do(t, server.Handler(), http.MethodPost, "/api/generate", map[string]any{"city": "Rome", "days": 1, "mode": "cancel"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, items.Count())
}

func TestGenerateRejectsBadInput(t *testing.T) {
	server, items := newTestServer(t)
	cases := []map[string]any{
		{"city": "", "days": 2},
		{"city": "Paris", "days": 0},
		{"city": "Paris", "days": 15},
		{"city": "Paris", "days": 2, "mode": "merge"},
		{"city": "Paris", "days": 2, "start_date": "tomorrow"},
	}
	for _, body := range cases {
		rec := do(t, server.Handler(), http.MethodPost, "/api/generate", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %v", body)
	}
	assert.Equal(t, 0, items.Count())
}

func TestCheck(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server.Handler(), http.MethodPost, "/api/check", map[string]string{"date": "2024-02-30", "time": "10:00"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"looks_valid":false}`, rec.Body.String())

	rec = do(t, server.Handler(), http.MethodPost, "/api/check", map[string]string{"date": "2024-02-29", "time": "7:05"})
	assert.JSONEq(t, `{"looks_valid":true}`, rec.Body.String())
}

func TestSummaryAndExports(t *testing.T) {
	server, _ := newTestServer(t, oslo, model.Record{Date: "2024-05-02", City: "Bergen", Activity: "Fjord, cruise"})
	handler := server.Handler()

	rec := do(t, handler, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Travel Itinerary Summary\n\n1. 2024-05-01 09:00"))

	rec = do(t, handler, http.MethodGet, "/export.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decoded, err := csvcodec.DecodeString(rec.Body.String())
	require.NoError(t, err)
	assert.Len(t, decoded, 2)
	assert.Equal(t, "Fjord, cruise", decoded[1].Activity)

	rec = do(t, handler, http.MethodGet, "/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	rows, err := book.GetRows("Itinerary")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rec = do(t, handler, http.MethodGet, "/export.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var exported []model.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exported))
	assert.Equal(t, oslo, exported[0])
}

func TestSnapshotsDisabled(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server.Handler(), http.MethodGet, "/api/snapshots", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSnapshotsSaveListRestore(t *testing.T) {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	items := store.New()
	items.Insert(oslo)
	server := NewServer(items, Options{Snapshots: db.NewStore(conn)})
	handler := server.Handler()

	rec := do(t, handler, http.MethodGet, "/api/snapshots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, handler, http.MethodPost, "/api/snapshots", map[string]string{"name": "norway"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var saved model.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, 1, saved.Count)

	rec = do(t, handler, http.MethodPost, "/api/snapshots", map[string]string{"name": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	items.Clear()
	rec = do(t, handler, http.MethodPost, "/api/snapshots/"+saved.ID.String()+"/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []model.Record{oslo}, items.All())

	rec = do(t, handler, http.MethodPost, "/api/snapshots/not-a-uuid/restore", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, handler, http.MethodGet, "/api/snapshots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "norway")

	rec = do(t, handler, http.MethodDelete, "/api/snapshots/"+saved.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, handler, http.MethodDelete, "/api/snapshots/"+saved.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, handler, http.MethodDelete, "/api/snapshots/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, handler, http.MethodGet, "/api/snapshots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestDeleteSnapshotDisabled(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server.Handler(), http.MethodDelete, "/api/snapshots/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOversizedBodyIsRejected(t *testing.T) {
	server, items := newTestServer(t)
	body := `{"date":"2024-05-01","city":"Oslo","activity":"` + strings.Repeat("x", maxBodyBytes) + `"}`

	t.Run("declared length", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(body))
		rec := httptest.NewRecorder()

		server.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "too large")
	})

	t.Run("streamed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(body))
		req.ContentLength = -1
		rec := httptest.NewRecorder()

		server.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "too large")
	})

	assert.Zero(t, items.Count())
}

func TestCORSHeaders(t *testing.T) {
	items := store.New()
	server := NewServer(items, Options{CORSOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestListItemsEmptyIsArray(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server.Handler(), http.MethodGet, "/api/items", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
