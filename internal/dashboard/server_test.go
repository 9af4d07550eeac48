package dashboard

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xuri/excelize/v2"

	"slotflow/config"
	"slotflow/logger"
	"slotflow/writer"
)

const activityCSV = "Datum;ID slotu;Typ slotu;Předmět těžby;Typ;Vložená částka;Zisk/Ztráta\n" +
	"2024-01-01;1;Týdenní;BTC;Vklady;1000;\n" +
	"2024-01-02;2;Týdenní;ETH;Vklady;500;\n" +
	"2024-01-03;1;Týdenní;BTC;Výplata;;150\n"

const riskCSV = "ID slotu,Maximální ztráta (%)\n1,5\n2,20\n"

func TestNormalizeAddress(t *testing.T) {
	cases := map[string]string{
		"":                               "0.0.0.0:8080",
		"  :9090  ":                      "0.0.0.0:9090",
		"localhost":                      "localhost:8080",
		"0.0.0.0:80":                     "0.0.0.0:80",
		"[::1]:443":                      "[::1]:443",
		"::1":                            "[::1]:8080",
		"*:8080":                         "0.0.0.0:8080",
		"http://13.200.112.203:8080":     "13.200.112.203:8080",
		"https://13.200.112.203":         "13.200.112.203:8080",
		"http://:7070":                   "0.0.0.0:7070",
		"tcp://localhost:5050":           "localhost:5050",
		"https://dashboard.example.com/": "dashboard.example.com:8080",
	}

	for input, want := range cases {
		if got := normalizeAddress(input); got != want {
			t.Fatalf("normalizeAddress(%q) = %q, want %q", input, got, want)
		}
	}
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, http.Handler) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Address = ":9000"
	cfg.Server.RateLimit = config.RateLimitConfig{}
	if mutate != nil {
		mutate(cfg)
	}
	srv := NewServer(cfg, logger.Logger())
	t.Cleanup(srv.cleanup)

	router, err := srv.buildRouter()
	if err != nil {
		t.Fatalf("buildRouter error: %v", err)
	}
	return srv, router
}

func multipartRequest(t *testing.T, path string, files map[string]string, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".csv")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write([]byte(content))
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestNewServerNormalizesConfiguredAddress(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	if got := srv.Address(); got != "0.0.0.0:9000" {
		t.Fatalf("server address = %q, want %q", got, "0.0.0.0:9000")
	}
}

func TestHealthz(t *testing.T) {
	_, router := newTestServer(t, nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", res.Code)
	}
}

func TestReportReturnsWorkbook(t *testing.T) {
	_, router := newTestServer(t, nil)
	req := multipartRequest(t, "/api/report",
		map[string]string{"activity": activityCSV, "risk": riskCSV},
		map[string]string{"budget[Týdenní]": "10000"})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", res.Code, res.Body.String())
	}
	if ct := res.Header().Get("Content-Type"); ct != writer.ContentType {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := res.Header().Get("Content-Disposition"); cd != `attachment; filename="investice_ai_doporuceni_v41.xlsx"` {
		t.Fatalf("unexpected disposition %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(res.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(writer.DefaultSheet)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 2 slots, got %d rows", len(rows)-1)
	}
	if rows[1][1] != "1" || rows[1][13] != "6000" || rows[2][13] != "4000" {
		t.Fatalf("unexpected allocation rows: %v", rows[1:])
	}
}

func TestReportJSON(t *testing.T) {
	_, router := newTestServer(t, nil)
	req := multipartRequest(t, "/api/report/json",
		map[string]string{"activity": activityCSV, "risk": riskCSV}, nil)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", res.Code, res.Body.String())
	}

	var body struct {
		RunID     string                  `json:"run_id"`
		Slots     []writer.Recommendation `json:"slots"`
		Aggregate []writer.AggregateView  `json:"aggregate"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RunID == "" || len(body.Slots) != 2 || len(body.Aggregate) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
	first := body.Slots[0]
	if first.RiskBand != "0–5%" || first.ReturnPercent == nil || *first.ReturnPercent != 15 {
		t.Fatalf("unexpected first slot: %+v", first)
	}
	if *first.AISuggestedDeposit != 12000 {
		t.Fatalf("unexpected suggestion %v", *first.AISuggestedDeposit)
	}
}

func TestReportMissingFile(t *testing.T) {
	_, router := newTestServer(t, nil)
	req := multipartRequest(t, "/api/report", map[string]string{"activity": activityCSV}, nil)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", res.Code)
	}
	var body map[string]string
	json.Unmarshal(res.Body.Bytes(), &body)
	if body["error"] != "inputs not ready" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestReportRejectsBadBudget(t *testing.T) {
	_, router := newTestServer(t, nil)
	req := multipartRequest(t, "/api/report/json",
		map[string]string{"activity": activityCSV, "risk": riskCSV},
		map[string]string{"budget[Týdenní]": "lots"})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", res.Code)
	}
}

func TestRateLimit(t *testing.T) {
	_, router := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes: %d, %d", first.Code, second.Code)
	}
}

func TestLogsAndMetricsEndpoints(t *testing.T) {
	srv, router := newTestServer(t, nil)
	srv.log.LogMetric("pipeline", "slots_allocated", 3, "counter", logger.Fields{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", res.Code)
	}
	var metrics struct {
		Metrics []metricRecord `json:"metrics"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(metrics.Metrics) != 1 || metrics.Metrics[0].Name != "slots_allocated" {
		t.Fatalf("unexpected metrics: %+v", metrics.Metrics)
	}

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	if res.Code != http.StatusOK || !bytes.Contains(res.Body.Bytes(), []byte("slots_allocated")) {
		t.Fatalf("logs endpoint missing metric entry: %s", res.Body.String())
	}
}
