//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"pricedrop/internal/adapters/gemini"
	httpserver "pricedrop/internal/adapters/http_server"
	"pricedrop/internal/app"
	"pricedrop/internal/domain"
	mysqlrepo "pricedrop/internal/storage/mysql"
)

// ---------- helpers ----------
func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// ---------- fake model endpoint (keeps the wire path real) ----------
func fakeGemini(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt := req.Contents[0].Parts[0].Text

		// partner pass: conditions met and a direct link; broad pass: slightly dearer
		text := `{"site":"Trip.com","price":3900,"conditions_match":true}`
		if strings.Contains(prompt, "Search ONLY these booking sites") {
			text = "Found it:\n```json\n" +
				`{"site":"Agoda","partner_id":"agoda","price":3800,"conditions_match":true,"direct_link":"https://www.agoda.com/hotel-dan/offer?id=1"}` +
				"\n```"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
			}},
		})
	}))
}

// ---------- the test ----------
func TestHTTP_EndToEnd_TrackPartnerOffer(t *testing.T) {
	// Start isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=pricedrop",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&clientFoundRows=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "pricedrop")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// Apply the real migrations
	applyMigrations(t, db)

	model := fakeGemini(t)
	defer model.Close()
	llm, err := gemini.New(model.URL, "test-key", "test-model", 100)
	if err != nil {
		t.Fatalf("gemini: %v", err)
	}

	// Wire the real router the way cmd/api does, minus auth and quota
	partners := domain.DefaultPartners()
	rnd := app.SeededRand(1)
	cmp := app.NewCompareService(
		app.NewAcquisitionService(llm, partners, rnd, 5*time.Second),
		app.NewSanitizer(rnd),
		app.NewLinkComposer(partners),
	)
	trk := app.NewTrackingService(mysqlrepo.New(db), cmp)
	srv := httpserver.New(10*time.Second, false)
	srv.MountHandlers(&httpserver.Handlers{Compare: cmp, Tracking: trk, Extract: app.NewExtractionService(llm, 5*time.Second)})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	checkIn := time.Now().AddDate(0, 1, 0).Format(domain.DateLayout)
	checkOut := time.Now().AddDate(0, 1, 3).Format(domain.DateLayout)
	body := fmt.Sprintf(`{"hotel_name":"Hotel Dan Tel Aviv","check_in":%q,"check_out":%q,"original_price":4000,"currency":"ILS"}`, checkIn, checkOut)

	// Track the booking
	res, err := http.Post(ts.URL+"/v1/trackings", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status %d", res.StatusCode)
	}
	var created struct {
		Tracking domain.TrackingRecord   `json:"tracking"`
		Result   domain.ComparisonResult `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	r := created.Result
	if r.Status != domain.StatusPartnerSavings || r.Link != "https://www.agoda.com/hotel-dan/offer?id=1" || r.IsAffiliate {
		t.Fatalf("unexpected result %+v", r)
	}
	if r.Trace == nil || r.Trace.Threshold != 80 || r.Trace.SavingsGap != -100 {
		t.Fatalf("unexpected trace %+v", r.Trace)
	}

	// The stored record comes back from MySQL with the summary
	get, err := http.Get(ts.URL + "/v1/trackings/" + created.Tracking.ID)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer get.Body.Close()
	var rec domain.TrackingRecord
	if err := json.NewDecoder(get.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Last == nil || rec.Last.BestPrice != 3800 || rec.Last.Provider != "Agoda" || rec.Booking.CheckIn != checkIn {
		t.Fatalf("unexpected record %+v", rec)
	}

	// A recheck pass picks it up and writes back
	due, err := trk.ActiveBatch(context.Background(), 10)
	if err != nil || len(due) != 1 {
		t.Fatalf("ActiveBatch: %+v %v", due, err)
	}
	if _, err := trk.Recheck(context.Background(), due[0]); err != nil {
		t.Fatalf("Recheck: %v", err)
	}
}
