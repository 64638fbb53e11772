package calendar

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type migrateEnvelope struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	Migrated int    `json:"migrated"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

func setupHandlerTest(t *testing.T) (*mux.Router, *RepositoryStub) {
	t.Helper()
	repo := NewRepositoryStub()
	handler := NewHandler(NewService(repo))
	r := mux.NewRouter()
	r.HandleFunc("/events", handler.GetEvents).Methods("GET")
	r.HandleFunc("/events", handler.CreateEvent).Methods("POST")
	r.HandleFunc("/events/{id}", handler.UpdateEvent).Methods("PUT")
	r.HandleFunc("/events/{id}", handler.DeleteEvent).Methods("DELETE")
	r.HandleFunc("/migrate", handler.Migrate).Methods("POST")
	return r, repo
}

func doRequest(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return buf.String()
}

func TestHandler_CreateEvent(t *testing.T) {
	t.Run("should create event and return 201", func(t *testing.T) {
		r, repo := setupHandlerTest(t)
		body := `{"id":"e1","title":"Standup","color":"#3b82f6","day":"Tue","timeSlot":40,"duration":2,"weekStart":"2025-06-02"}`

		w := doRequest(t, r, http.MethodPost, "/events", body)

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decodeEnvelope(t, w)
		assert.True(t, env.Success)
		var dto EventDTO
		require.NoError(t, json.Unmarshal(env.Data, &dto))
		assert.Equal(t, "e1", dto.ID)
		require.NotNil(t, dto.TimeSlot)
		assert.Equal(t, 40, *dto.TimeSlot)
		assert.Equal(t, "none", dto.RepeatType)
		assert.Equal(t, 1, repo.Len())
	})

	t.Run("should return 400 when required fields are missing", func(t *testing.T) {
		r, repo := setupHandlerTest(t)

		w := doRequest(t, r, http.MethodPost, "/events", `{"id":"e1","title":"No color"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		assert.False(t, env.Success)
		assert.Contains(t, env.Error, "id, title, or color")
		assert.Equal(t, 0, repo.Len())
	})

	t.Run("should return 400 on partial schedule", func(t *testing.T) {
		r, _ := setupHandlerTest(t)

		w := doRequest(t, r, http.MethodPost, "/events", `{"id":"e1","title":"T","color":"#3b82f6","day":"Tue"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, decodeEnvelope(t, w).Success)
	})

	t.Run("should return 400 on field validation failure", func(t *testing.T) {
		r, _ := setupHandlerTest(t)

		w := doRequest(t, r, http.MethodPost, "/events", `{"id":"e1","title":"T","color":"#000000"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeEnvelope(t, w).Error, "color")
	})

	t.Run("should return 409 on duplicate id", func(t *testing.T) {
		r, _ := setupHandlerTest(t)
		body := `{"id":"e1","title":"Standup","color":"#3b82f6"}`
		require.Equal(t, http.StatusCreated, doRequest(t, r, http.MethodPost, "/events", body).Code)

		w := doRequest(t, r, http.MethodPost, "/events", body)

		assert.Equal(t, http.StatusConflict, w.Code)
		env := decodeEnvelope(t, w)
		assert.False(t, env.Success)
		assert.Equal(t, "Event with this ID already exists", env.Error)
	})

	t.Run("should return 500 when storage fails", func(t *testing.T) {
		r, repo := setupHandlerTest(t)
		repo.FailStore["e1"] = true

		w := doRequest(t, r, http.MethodPost, "/events", `{"id":"e1","title":"T","color":"#3b82f6"}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.False(t, decodeEnvelope(t, w).Success)
	})
}

func TestHandler_GetEvents(t *testing.T) {
	t.Run("should list newest first", func(t *testing.T) {
		r, _ := setupHandlerTest(t)
		for _, id := range []string{"a", "b", "c"} {
			body := mustJSON(t, EventDTO{ID: id, Title: id, Color: string(Red)})
			require.Equal(t, http.StatusCreated, doRequest(t, r, http.MethodPost, "/events", body).Code)
		}

		w := doRequest(t, r, http.MethodGet, "/events", "")

		assert.Equal(t, http.StatusOK, w.Code)
		var dtos []EventDTO
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &dtos))
		require.Len(t, dtos, 3)
		assert.Equal(t, "c", dtos[0].ID)
		assert.Equal(t, "a", dtos[2].ID)
	})

	t.Run("should return 500 when repository fails", func(t *testing.T) {
		r, repo := setupHandlerTest(t)
		repo.Err = ErrStubFailure

		w := doRequest(t, r, http.MethodGet, "/events", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.False(t, decodeEnvelope(t, w).Success)
	})
}

func TestHandler_UpdateEvent(t *testing.T) {
	created := `{"id":"e1","title":"Standup","color":"#3b82f6","day":"Tue","timeSlot":40,"duration":2,"weekStart":"2025-06-02"}`

	t.Run("should merge present keys and ignore id", func(t *testing.T) {
		r, repo := setupHandlerTest(t)
		require.Equal(t, http.StatusCreated, doRequest(t, r, http.MethodPost, "/events", created).Code)

		w := doRequest(t, r, http.MethodPut, "/events/e1", `{"id":"other","title":"Daily","timeSlot":44}`)

		assert.Equal(t, http.StatusOK, w.Code)
		stored, err := repo.GetEvent(t.Context(), "e1")
		require.NoError(t, err)
		assert.Equal(t, "Daily", stored.Title)
		assert.Equal(t, 44, stored.TimeSlot)
		assert.Equal(t, Blue, stored.Color)
		_, err = repo.GetEvent(t.Context(), "other")
		assert.ErrorIs(t, err, ErrEventNotFound)
	})

	t.Run("should unschedule on explicit nulls", func(t *testing.T) {
		r, repo := setupHandlerTest(t)
		require.Equal(t, http.StatusCreated, doRequest(t, r, http.MethodPost, "/events", created).Code)

		w := doRequest(t, r, http.MethodPut, "/events/e1", `{"day":null,"timeSlot":null,"duration":null,"weekStart":null}`)

		assert.Equal(t, http.StatusOK, w.Code)
		stored, err := repo.GetEvent(t.Context(), "e1")
		require.NoError(t, err)
		assert.True(t, stored.IsUnscheduled())
		assert.Zero(t, stored.Duration)
		var dto EventDTO
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &dto))
		assert.Nil(t, dto.Day)
		assert.Nil(t, dto.TimeSlot)
	})

	t.Run("should return 404 for unknown event", func(t *testing.T) {
		r, _ := setupHandlerTest(t)

		w := doRequest(t, r, http.MethodPut, "/events/missing", `{"title":"x"}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
		env := decodeEnvelope(t, w)
		assert.False(t, env.Success)
		assert.Equal(t, "Event not found", env.Error)
	})

	t.Run("should return 400 for invalid merged event", func(t *testing.T) {
		r, repo := setupHandlerTest(t)
		require.Equal(t, http.StatusCreated, doRequest(t, r, http.MethodPost, "/events", created).Code)

		w := doRequest(t, r, http.MethodPut, "/events/e1", `{"duration":99}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		stored, err := repo.GetEvent(t.Context(), "e1")
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Duration)
	})

	t.Run("should return 400 for malformed body", func(t *testing.T) {
		r, _ := setupHandlerTest(t)

		w := doRequest(t, r, http.MethodPut, "/events/e1", `{"title":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_DeleteEvent(t *testing.T) {
	t.Run("should return deleted record", func(t *testing.T) {
		r, repo := setupHandlerTest(t)
		require.Equal(t, http.StatusCreated, doRequest(t, r, http.MethodPost, "/events", `{"id":"e1","title":"T","color":"#ef4444"}`).Code)

		w := doRequest(t, r, http.MethodDelete, "/events/e1", "")

		assert.Equal(t, http.StatusOK, w.Code)
		var dto EventDTO
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &dto))
		assert.Equal(t, "e1", dto.ID)
		assert.Equal(t, 0, repo.Len())
	})

	t.Run("should return 404 for unknown event", func(t *testing.T) {
		r, _ := setupHandlerTest(t)

		w := doRequest(t, r, http.MethodDelete, "/events/missing", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.False(t, decodeEnvelope(t, w).Success)
	})
}

func TestHandler_Migrate(t *testing.T) {
	decode := func(t *testing.T, w *httptest.ResponseRecorder) migrateEnvelope {
		var env migrateEnvelope
		require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
		return env
	}

	t.Run("should return 200 for empty list", func(t *testing.T) {
		r, _ := setupHandlerTest(t)

		w := doRequest(t, r, http.MethodPost, "/migrate", `{"events":[]}`)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decode(t, w)
		assert.True(t, env.Success)
		assert.Zero(t, env.Migrated)
	})

	t.Run("should import new events and skip existing ones", func(t *testing.T) {
		r, repo := setupHandlerTest(t)
		require.Equal(t, http.StatusCreated, doRequest(t, r, http.MethodPost, "/events", `{"id":"a","title":"Old","color":"#ef4444"}`).Code)
		body := `{"events":[{"id":"a","title":"New","color":"#ef4444"},{"id":"b","title":"B","color":"#3b82f6"}]}`

		w := doRequest(t, r, http.MethodPost, "/migrate", body)

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decode(t, w)
		assert.Equal(t, 1, env.Migrated)
		assert.Equal(t, 1, env.Skipped)
		stored, err := repo.GetEvent(t.Context(), "a")
		require.NoError(t, err)
		assert.Equal(t, "Old", stored.Title)
	})

	t.Run("should return 200 when everything exists", func(t *testing.T) {
		r, _ := setupHandlerTest(t)
		require.Equal(t, http.StatusCreated, doRequest(t, r, http.MethodPost, "/events", `{"id":"a","title":"A","color":"#ef4444"}`).Code)

		w := doRequest(t, r, http.MethodPost, "/migrate", `{"events":[{"id":"a","title":"A","color":"#ef4444"}]}`)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decode(t, w)
		assert.Zero(t, env.Migrated)
		assert.Equal(t, 1, env.Skipped)
	})

	t.Run("should return 207 on partial failure", func(t *testing.T) {
		r, repo := setupHandlerTest(t)
		repo.FailStore["b"] = true
		body := `{"events":[{"id":"a","title":"A","color":"#ef4444"},{"id":"b","title":"B","color":"#ef4444"}]}`

		w := doRequest(t, r, http.MethodPost, "/migrate", body)

		assert.Equal(t, http.StatusMultiStatus, w.Code)
		env := decode(t, w)
		assert.Equal(t, 1, env.Migrated)
		assert.Equal(t, 1, env.Failed)
	})

	t.Run("should return 500 when nothing could be inserted", func(t *testing.T) {
		r, repo := setupHandlerTest(t)
		repo.FailStore["a"] = true

		w := doRequest(t, r, http.MethodPost, "/migrate", `{"events":[{"id":"a","title":"A","color":"#ef4444"}]}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		env := decode(t, w)
		assert.False(t, env.Success)
		assert.NotEmpty(t, env.Error)
	})

	t.Run("should return 400 when an event lacks required fields", func(t *testing.T) {
		r, repo := setupHandlerTest(t)

		w := doRequest(t, r, http.MethodPost, "/migrate", `{"events":[{"id":"a","title":"A","color":"#ef4444"},{"id":"b"}]}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, decode(t, w).Success)
		assert.Equal(t, 0, repo.Len())
	})
}
