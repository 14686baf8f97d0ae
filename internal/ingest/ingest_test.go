package ingest

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	_ "modernc.org/sqlite"

	"github.com/lox/wxmap/internal/models"
	"github.com/lox/wxmap/internal/store"
)

func nf(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name      string
		rec       models.DailyRecord
		wantFlags []string
	}{
		{
			name:      "valid record - no flags",
			rec:       models.DailyRecord{TempMean: nf(-5), TempMin: nf(-9), TempMax: nf(-1), SnowDepth: nf(30), Precipitation: nf(2.5), GroundTempMin: nf(-12)},
			wantFlags: nil,
		},
		{
			name:      "empty record",
			rec:       models.DailyRecord{},
			wantFlags: nil,
		},
		{
			name:      "temp too cold",
			rec:       models.DailyRecord{TempMin: nf(-75)},
			wantFlags: []string{FlagTempOutOfRange},
		},
		{
			name:      "min above max",
			rec:       models.DailyRecord{TempMin: nf(5), TempMax: nf(1)},
			wantFlags: []string{FlagTempMinAboveMax},
		},
		{
			name:      "negative snow",
			rec:       models.DailyRecord{SnowDepth: nf(-3)},
			wantFlags: []string{FlagSnowOutOfRange},
		},
		{
			name:      "precip and ground",
			rec:       models.DailyRecord{Precipitation: nf(900), GroundTempMin: nf(80)},
			wantFlags: []string{FlagPrecipOutOfRange, FlagGroundOutOfRange},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateRecord(&tt.rec)
			sort.Strings(got)
			want := append([]string(nil), tt.wantFlags...)
			sort.Strings(want)
			if strings.Join(got, ",") != strings.Join(want, ",") {
				t.Errorf("ValidateRecord() = %v, want %v", got, want)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	r := models.DailyRecord{TempMean: nf(99), TempMin: nf(-3), TempMax: nf(2), SnowDepth: nf(-8)}
	flags := Sanitize(&r)
	if len(flags) != 2 {
		t.Fatalf("flags = %v", flags)
	}
	if r.TempMean.Valid || r.SnowDepth.Valid {
		t.Errorf("flagged values kept: %+v", r)
	}
	if r.TempMin != nf(-3) || r.TempMax != nf(2) {
		t.Errorf("unflagged values dropped: %+v", r)
	}
}

const sampleCSV = `date,station_name,fmisid,latitude,longitude,zone,zone_name,Air temperature,Minimum temperature,Maximum temperature,Snow depth,Precipitation amount,Ground minimum temperature,Wind speed
2024-01-01,Helsinki Kaisaniemi,100971,60.18,24.94,etela_suomi,Etelä-Suomi,-3.04,-6.1,0.2,-1.0,-1.0,-8.0,4.1
2024-01-01,Rovaniemi lentoasema,101920.0,66.56,25.83,,,-20.0,-25.0,-15.0,55.0,,NaN,2.0
2024-01-01,Helsinki Kaisaniemi,100971,60.18,24.94,etela_suomi,Etelä-Suomi,-4.0,-6.1,0.2,3.0,1.2,-8.0,4.1
`

func TestParseCSV(t *testing.T) {
	ds, err := ParseCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(ds.Stations) != 2 {
		t.Fatalf("stations = %d, want 2", len(ds.Stations))
	}
	if len(ds.Records) != 2 {
		t.Fatalf("records = %d, want 2 after keeping the last duplicate", len(ds.Records))
	}

	hki := ds.Records[0]
	if hki.StationID != "100971" || hki.TempMean != nf(-4) || hki.SnowDepth != nf(3) {
		t.Errorf("Helsinki = %+v", hki)
	}

	rov := ds.Records[1]
	if rov.StationID != "101920" {
		t.Errorf("float station id not normalised: %q", rov.StationID)
	}
	if rov.Precipitation.Valid || rov.GroundTempMin.Valid {
		t.Errorf("missing values should be null: %+v", rov)
	}
	if z := ds.Stations[1]; z.Zone != "lappi" || z.ZoneName != "Lappi" {
		t.Errorf("zone not derived from latitude: %+v", z)
	}
}

func TestParseCSVSentinels(t *testing.T) {
	in := "date,fmisid,Snow depth,Precipitation amount,Air temperature\n2024-02-01 00:00:00,1,-1,-1,-1\n"
	ds, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	r := ds.Records[0]
	if r.SnowDepth != nf(0) || r.Precipitation != nf(0) {
		t.Errorf("sentinels = %v %v, want 0", r.SnowDepth, r.Precipitation)
	}
	if r.TempMean != nf(-1) {
		t.Errorf("temperature -1 is a real value, got %v", r.TempMean)
	}
	if len(ds.Stations) != 0 {
		t.Errorf("stations without coordinates = %v", ds.Stations)
	}
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing date column", "fmisid,Snow depth\n1,2\n"},
		{"bad date", "date,fmisid\n01/02/2024,1\n"},
		{"bad value", "date,fmisid,Snow depth\n2024-01-01,1,deep\n"},
		{"missing id", "date,fmisid\n2024-01-01,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCSV(strings.NewReader(tt.in)); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := ParseCSV(strings.NewReader("fmisid\n1\n")); !errors.Is(err, ErrNoColumns) {
		t.Errorf("err = %v, want ErrNoColumns", err)
	}
}

func TestParseJSON(t *testing.T) {
	in := `[
		{"date":"2024-01-01","fmisid":100971,"station_name":"Helsinki","zone":"etela_suomi","zone_name":"Etelä-Suomi",
		 "temp_mean":-3.0,"temp_min":null,"temp_max":0.5,"snow_depth":-1,"precipitation":1.2,"ground_temp_min":null},
		{"station_name":"Helsinki","fmisid":"100971","latitude":60.18,"longitude":24.94,"zone":"etela_suomi","zone_name":"Etelä-Suomi"}
	]`
	ds, err := ParseJSON(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if len(ds.Records) != 1 || len(ds.Stations) != 1 {
		t.Fatalf("got %d records, %d stations", len(ds.Records), len(ds.Stations))
	}
	r := ds.Records[0]
	if r.StationID != "100971" || r.TempMin.Valid || r.SnowDepth != nf(0) || r.TempMax != nf(0.5) {
		t.Errorf("record = %+v", r)
	}
	if ds.Stations[0].Latitude != 60.18 {
		t.Errorf("station = %+v", ds.Stations[0])
	}

	if _, err := ParseJSON(strings.NewReader(`{"date":"x"}`)); err == nil {
		t.Error("object instead of array should fail")
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		name, contentType string
		want              Format
	}{
		{"data.csv", "", FormatCSV},
		{"data.CSV.gz", "", FormatCSV},
		{"https://example.com/daily.json?since=2024", "", FormatJSON},
		{"https://example.com/export", "text/csv; charset=utf-8", FormatCSV},
		{"https://example.com/export", "application/json", FormatJSON},
	}
	for _, tt := range tests {
		if got := FormatFor(tt.name, tt.contentType); got != tt.want {
			t.Errorf("FormatFor(%q, %q) = %q, want %q", tt.name, tt.contentType, got, tt.want)
		}
	}
}

func testFetcher() *Fetcher {
	f := NewFetcher(&http.Client{Timeout: 5 * time.Second})
	f.initial = time.Millisecond
	f.maxElapsed = 2 * time.Second
	return f
}

func TestFetchRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("date,fmisid\n"))
	}))
	defer srv.Close()

	body, ct, err := testFetcher().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if string(body) != "date,fmisid\n" || ct != "text/csv" {
		t.Errorf("body %q, content type %q", body, ct)
	}
}

func TestFetchClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, _, err := testFetcher().Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func setupImporter(t *testing.T) (*Importer, *store.Store) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	st := store.New(db, nil)
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewImporter(st, testFetcher(), nil), st
}

func TestImportFile(t *testing.T) {
	imp, st := setupImporter(t)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(sampleCSV))
	zw.Close()
	path := filepath.Join(t.TempDir(), "daily.csv.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	res := imp.Import(context.Background(), path)
	if res.Status != "ok" {
		t.Fatalf("Import = %+v", res)
	}
	if res.Records != 2 || res.Stations != 2 {
		t.Errorf("result = %+v", res)
	}
	if imp.Version() != 1 {
		t.Errorf("version = %d, want 1", imp.Version())
	}

	stations, records, err := st.Stats()
	if err != nil || stations != 2 || records != 2 {
		t.Errorf("stats = %d, %d, %v", stations, records, err)
	}

	runs, err := st.RecentImportRuns(1)
	if err != nil || len(runs) != 1 || !runs[0].Success {
		t.Errorf("runs = %+v, %v", runs, err)
	}
}

func TestImportURL(t *testing.T) {
	imp, st := setupImporter(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"date":"2024-03-01","fmisid":7,"station_name":"Oulu","latitude":65.0,"longitude":25.5,"temp_mean":-2.0}]`))
	}))
	defer srv.Close()

	res := imp.Import(context.Background(), srv.URL+"/daily")
	if res.Status != "ok" || res.Records != 1 {
		t.Fatalf("Import = %+v", res)
	}
	st7, err := st.GetStation("7")
	if err != nil || st7 == nil {
		t.Fatalf("GetStation = %v, %v", st7, err)
	}
	if st7.Zone != "pohjois_suomi" {
		t.Errorf("zone = %q", st7.Zone)
	}
}

func TestImportFailure(t *testing.T) {
	imp, st := setupImporter(t)

	res := imp.Import(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	if res.Status != "error" || res.Error == "" {
		t.Fatalf("Import = %+v", res)
	}
	if imp.Version() != 0 {
		t.Error("failed import bumped the version")
	}
	runs, _ := st.RecentImportRuns(1)
	if len(runs) != 1 || runs[0].Success {
		t.Errorf("runs = %+v", runs)
	}
}
