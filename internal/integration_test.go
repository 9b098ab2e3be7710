package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"settlement-form-backend/config"
	"settlement-form-backend/internal/api"
	"settlement-form-backend/internal/backend"
	"settlement-form-backend/internal/db"
	"settlement-form-backend/internal/derive"
	"settlement-form-backend/internal/form"
	"settlement-form-backend/internal/form/formtest"
	"settlement-form-backend/internal/model"
	"settlement-form-backend/internal/sealed"
	"settlement-form-backend/internal/session"
	"settlement-form-backend/internal/store"
	"settlement-form-backend/internal/submit"
)

// upstream fakes the university REST API.
type upstream struct {
	mu          sync.Mutex
	submitted   map[string]any
	idempotency string
	searches    int
}

func (u *upstream) reply(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": data})
}

func newUpstream(t *testing.T) (*upstream, *httptest.Server) {
	u := &upstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{id}/profile", func(w http.ResponseWriter, r *http.Request) {
		u.reply(w, form.Profile{
			ID: r.PathValue("id"), Surname: "Шевченко", Name: "Тарас", Patronymic: "Григорович",
			Phone: "671234567", Course: "2", Faculty: "f1", Group: "g1", Dormitory: "d1", Gender: "male",
		})
	})
	mux.HandleFunc("GET /users/{id}/reservations", func(w http.ResponseWriter, r *http.Request) {
		u.reply(w, []backend.Reservation{
			{ID: "old", UserID: r.PathValue("id"), DormitoryID: "d1", AcademicYear: "2024-2025", RoomNumber: "101", Status: backend.ReservationConfirmed},
		})
	})
	mux.HandleFunc("GET /dormitories/d1", func(w http.ResponseWriter, r *http.Request) {
		u.reply(w, backend.Dormitory{ID: "d1", Name: "№1", Street: "вул. Тестова", Building: "5", ManagerName: "Коваль Олена Петрівна"})
	})
	mux.HandleFunc("GET /dormitories/d1/presets", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("academicYear") != "2025-2026" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		u.reply(w, backend.Preset{DormitoryID: "d1", AcademicYear: "2025-2026", StartDate: "2025-09-01", EndDate: "2026-06-30"})
	})
	mux.HandleFunc("POST /rooms/search", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.searches++
		u.mu.Unlock()
		u.reply(w, []backend.Room{
			{ID: "1", DormitoryID: "d1", Label: "410", Floor: 4, Gender: "male", FreePlaces: 2},
			{ID: "2", DormitoryID: "d1", Label: "301", Floor: 3, Gender: "male", FreePlaces: 0},
			{ID: "3", DormitoryID: "d1", Label: "305", Floor: 3, Gender: "male", FreePlaces: 1},
			{ID: "4", DormitoryID: "d1", Label: "210", Floor: 2, Gender: "female", FreePlaces: 3},
		})
	})
	mux.HandleFunc("POST /settlements/agreement", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		u.mu.Lock()
		u.submitted = payload
		u.idempotency = r.Header.Get("Idempotency-Key")
		u.mu.Unlock()
		u.reply(w, map[string]string{"id": "S-1"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return u, server
}

// TestAgreementLifecycle fills in an agreement through the HTTP API against
// a fake university backend and submits it.
func TestAgreementLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ctx := context.Background()

	// 1. Setup an in-memory SQLite database for testing.
	testDB, err := gorm.Open(sqlite.Open("file:lifecycle?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))
	appStore := store.NewGormStore(testDB)

	// 2. Wire the services the way serve does.
	up, server := newUpstream(t)
	client := backend.NewClient(config.BackendConfig{
		BaseURL:  server.URL,
		Timeout:  5 * time.Second,
		CacheTTL: time.Minute,
	}, zap.NewNop())
	sealer, err := sealed.New("integration-key", 10)
	require.NoError(t, err)
	pipeline := submit.NewPipeline(client, appStore, sealer, nil, zap.NewNop(), "/", clock)
	sessions := session.NewManager(session.Options{
		Profiles:  client,
		Drafts:    appStore,
		Deriver:   derive.NewEngine(client, zap.NewNop()),
		Submitter: pipeline,
		Logger:    zap.NewNop(),
		Now:       clock,
	})
	handler := api.NewHandler(sessions, client, appStore, nil, zap.NewNop())
	router := api.NewRouter(config.ServerConfig{
		UserHeader:      "X-User-ID",
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTL:        time.Minute,
	}, handler)

	call := func(method, path string, body any) (int, map[string]any) {
		t.Helper()
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req, err := http.NewRequest(method, path, bytes.NewReader(raw))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", "student-7")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		var out map[string]any
		if w.Body.Len() > 0 {
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
		}
		return w.Code, out
	}

	// 3. Open: profile, dormitory, preset and the first free room by floor
	// and label are filled in.
	code, view := call(http.MethodGet, "/api/forms/agreement", nil)
	require.Equal(t, http.StatusOK, code)
	state := view["state"].(map[string]any)
	assert.Equal(t, "Шевченко", state["surname"])
	assert.Equal(t, "Коваль Олена Петрівна", state["appendix2ManagerName"])
	assert.Equal(t, "вул. Тестова", state["dormStreet"])
	assert.Equal(t, "30", state["endDay"])
	assert.Equal(t, "305", state["roomNumber"], "the reservation of the previous year does not apply")
	assert.Equal(t, "305", state["appendix1RoomNumber"])
	assert.Equal(t, "305", state["appendix2RoomNumber"])
	assert.Equal(t, "305", state["premisesNumber"])
	assert.Equal(t, form.SourceAutoSelect, state["roomSource"])

	// 4. Submitting too early shows the errors.
	code, view = call(http.MethodPost, "/api/forms/agreement/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	assert.NotEmpty(t, view["errorPaths"])

	// 5. Type in the rest of the form field by field.
	complete := formtest.Complete()
	for _, field := range form.Fields() {
		if field == "roomSource" {
			continue
		}
		for _, p := range form.Expand(field) {
			value, err := form.Get(&complete, p)
			require.NoError(t, err)
			if value == "" {
				continue
			}
			code, _ := call(http.MethodPatch, "/api/forms/agreement/fields", map[string]any{"path": p.String(), "value": value})
			require.Equal(t, http.StatusOK, code, p.String())
		}
	}

	code, view = call(http.MethodPost, "/api/forms/agreement/validate", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, view["errorPaths"])
	assert.EqualValues(t, 100, view["progress"].(map[string]any)["percent"])

	// The stored draft holds exactly what was typed.
	draft, err := appStore.LoadDraft(ctx, "student-7", form.Agreement.StorageKey)
	require.NoError(t, err)
	restored := form.NewDefaults().State()
	require.NoError(t, store.DraftDecoder(draft.Data)(&restored))
	assert.Empty(t, cmp.Diff(complete, restored))

	up.mu.Lock()
	assert.Equal(t, 1, up.searches, "edits that keep the selection do not search again")
	up.mu.Unlock()

	// 6. Submit.
	code, outcome := call(http.MethodPost, "/api/forms/agreement/submit", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "/", outcome["redirect"])

	up.mu.Lock()
	payload := up.submitted
	key := up.idempotency
	up.mu.Unlock()
	require.NotNil(t, payload)
	assert.Equal(t, outcome["id"], key)
	assert.Equal(t, "2025", payload["contractYear"])
	assert.Equal(t, "305", payload["premisesNumber"])
	assert.NotContains(t, payload, "roomSource")
	assert.NotContains(t, payload, "appendix1Day")
	surname, err := sealer.Decrypt(payload["surname"].(string))
	require.NoError(t, err)
	assert.Equal(t, "Шевченко", surname)
	digit, err := sealer.Decrypt(payload["taxId"].([]any)[0].(string))
	require.NoError(t, err)
	assert.Equal(t, "1", digit)

	// 7. The draft is gone and the submission is logged.
	_, err = appStore.LoadDraft(ctx, "student-7", form.Agreement.StorageKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
	var submissions []model.Submission
	require.NoError(t, appStore.DB().Find(&submissions).Error)
	require.Len(t, submissions, 1)
	assert.Equal(t, "student-7", submissions[0].UserID)
	assert.Equal(t, "305", submissions[0].RoomNumber)
	assert.Equal(t, key, submissions[0].ID)
}
