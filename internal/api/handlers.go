package api

import (
	"fmt"
	"image"
	"math"
	"net/http"
	"time"

	"github.com/lox/wxmap/internal/canvas"
	"github.com/lox/wxmap/internal/grid"
	"github.com/lox/wxmap/internal/ingest"
	"github.com/lox/wxmap/internal/interp"
	"github.com/lox/wxmap/internal/models"
	"github.com/lox/wxmap/internal/render"
)

type stationView struct {
	StationID string  `json:"station_id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zone      string  `json:"zone"`
	ZoneName  string  `json:"zone_name"`
}

func newStationView(st models.Station) stationView {
	return stationView{
		StationID: st.StationID,
		Name:      st.Name,
		Latitude:  st.Latitude,
		Longitude: st.Longitude,
		Zone:      st.Zone,
		ZoneName:  st.ZoneName,
	}
}

type dailyView struct {
	stationView
	Date   string              `json:"date"`
	Values map[string]*float64 `json:"values"`
}

type zoneView struct {
	Zone         string              `json:"zone"`
	ZoneName     string              `json:"zone_name"`
	StationCount int                 `json:"station_count"`
	Values       map[string]*float64 `json:"values"`
}

type sampleView struct {
	StationID string   `json:"station_id"`
	Lon       float64  `json:"lon"`
	Lat       float64  `json:"lat"`
	Value     *float64 `json:"value"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stations, records, err := s.store.Stats()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "error", "error": err.Error()})
		return
	}
	version, _ := s.store.MigrationVersion()
	grids := 0
	if s.catalog != nil {
		grids = s.catalog.Len()
	}
	body := map[string]any{
		"status":         "ok",
		"stations":       stations,
		"records":        records,
		"grids":          grids,
		"schema_version": version,
		"data_version":   s.dataVersion(),
	}
	if runs, err := s.store.RecentImportRuns(1); err == nil && len(runs) > 0 {
		last := map[string]any{
			"source":     runs[0].Source,
			"started_at": runs[0].StartedAt.UTC().Format(time.RFC3339),
			"success":    runs[0].Success,
		}
		if runs[0].Records.Valid {
			last["records"] = runs[0].Records.Int64
		}
		if runs[0].ErrorMessage.Valid {
			last["error"] = runs[0].ErrorMessage.String
		}
		body["last_import"] = last
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleScales(w http.ResponseWriter, r *http.Request) {
	scales := make([]any, 0, len(s.mapper.Metrics()))
	for _, key := range s.mapper.Metrics() {
		scale, _ := s.mapper.Scale(key)
		scales = append(scales, scale)
	}
	writeJSON(w, http.StatusOK, scales)
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, render.Modes())
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := s.store.GetStations()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	views := make([]stationView, len(stations))
	for i, st := range stations {
		views[i] = newStationView(st)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	var q rangeQuery
	q.bind(r.URL.Query())
	if err := s.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, describe(err))
		return
	}
	var from, to time.Time
	if q.From != "" {
		from = day(q.From)
	}
	if q.To != "" {
		to = day(q.To)
	}
	dates, err := s.store.Dates(from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(grid.DateLayout)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	var q dayQuery
	q.bind(r.URL.Query())
	if err := s.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, describe(err))
		return
	}
	days, err := s.store.GetDaily(day(q.Date))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	views := make([]dailyView, len(days))
	for i, d := range days {
		views[i] = dailyView{
			stationView: newStationView(d.Station),
			Date:        q.Date,
			Values:      make(map[string]*float64),
		}
		for _, key := range s.mapper.Metrics() {
			if v := d.DailyRecord.Value(key); v.Valid {
				views[i].Values[key] = &v.Float64
			} else {
				views[i].Values[key] = nil
			}
		}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	var q dayQuery
	q.bind(r.URL.Query())
	if err := s.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, describe(err))
		return
	}
	zones, err := s.store.ZoneSummaries(day(q.Date))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	views := make([]zoneView, len(zones))
	for i, z := range zones {
		values := map[string]*float64{}
		rec := models.DailyRecord{
			TempMean: z.TempMean, TempMin: z.TempMin, TempMax: z.TempMax,
			SnowDepth: z.SnowDepth, Precipitation: z.Precipitation, GroundTempMin: z.GroundTempMin,
		}
		for _, key := range s.mapper.Metrics() {
			if v := rec.Value(key); v.Valid {
				rounded := math.Round(v.Float64*10) / 10
				values[key] = &rounded
			} else {
				values[key] = nil
			}
		}
		views[i] = zoneView{Zone: z.Zone, ZoneName: z.ZoneName, StationCount: z.StationCount, Values: values}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	var q metricQuery
	q.bind(r.URL.Query())
	if err := s.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, describe(err))
		return
	}
	samples, err := s.store.Samples(r.Context(), day(q.Date), q.Metric)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	views := make([]sampleView, len(samples))
	for i, smp := range samples {
		views[i] = sampleView{StationID: smp.StationID, Lon: smp.Location[0], Lat: smp.Location[1]}
		if interp.Valid(smp.Value) {
			v := smp.Value
			views[i].Value = &v
		}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var q renderQuery
	if err := q.bind(r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, describe(err))
		return
	}

	key := fmt.Sprintf("%d|%s|%s|%s|%d|%d|%t", s.dataVersion(), q.Date, q.Metric, q.Mode, q.Width, q.Smooth, q.Legend)
	if q.Format == "png" {
		if data, ok := s.images.Get(key); ok {
			writePNG(w, data)
			return
		}
	}

	date := day(q.Date)
	samples, err := s.store.Samples(r.Context(), date, q.Metric)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	var pre *grid.Grid
	if s.catalog != nil && q.Mode == render.ModeContour.String() {
		pre, _, _ = s.catalog.Nearest(date, q.Metric, grid.DefaultNearestWindow)
	}

	proj := canvas.NewEquirectangular(grid.FinlandBounds, q.Width, canvas.LegendMargin)
	frame := canvas.NewFrame(q.Metric, samples, proj, s.region, pre)
	engine := render.NewEngine(s.mapper, s.logger)
	engine.SetMode(q.Mode)
	engine.SetContourSmoothing(q.Smooth)
	engine.SetFrame(frame)
	out := engine.Render()

	if q.Format == "json" {
		writeJSON(w, http.StatusOK, out)
		return
	}

	var legend image.Image
	if q.Legend {
		scale, _ := s.mapper.Scale(q.Metric)
		legend = canvas.Legend(s.mapper, scale, min(q.Width/2, 320), canvas.LegendMinHeight)
	}
	data, err := canvas.PNG(canvas.DrawMap(frame, out, legend).Image())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.images.Add(key, data)
	writePNG(w, data)
}

func (s *Server) handleLegend(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if err := s.validate.Var(metric, "required,metric"); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown metric %q", metric))
		return
	}
	scale, _ := s.mapper.Scale(metric)
	writeJSON(w, http.StatusOK, map[string]any{
		"scale":    scale,
		"gradient": s.mapper.LegendGradient(scale),
	})
}

func (s *Server) handleLegendPNG(w http.ResponseWriter, r *http.Request) {
	var q legendQuery
	if err := q.bind(r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, describe(err))
		return
	}

	key := fmt.Sprintf("legend|%s|%d|%d", q.Metric, q.Width, q.Height)
	if data, ok := s.images.Get(key); ok {
		writePNG(w, data)
		return
	}
	scale, _ := s.mapper.Scale(q.Metric)
	data, err := canvas.PNG(canvas.Legend(s.mapper, scale, q.Width, q.Height))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.images.Add(key, data)
	writePNG(w, data)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	var q gridQuery
	if err := q.bind(r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, describe(err))
		return
	}
	if s.catalog == nil {
		writeError(w, http.StatusNotFound, grid.ErrGridNotFound)
		return
	}

	date := day(q.Date)
	g, found := s.catalog.Lookup(date, q.Metric)
	matched := date
	if !found && q.Nearest {
		g, matched, found = s.catalog.Nearest(date, q.Metric, grid.DefaultNearestWindow)
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s %s", grid.ErrGridNotFound, q.Metric, q.Date))
		return
	}
	entry, err := grid.NewEntry(matched, q.Metric, g)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "error",
			"error":  "no refresh source configured",
		})
		return
	}
	res := s.refresher.Refresh(r.Context())
	status := http.StatusOK
	if res.Status != "ok" {
		status = http.StatusBadGateway
		if res.Error == ingest.ErrRefreshRunning.Error() {
			status = http.StatusConflict
		}
	}
	if status == http.StatusOK {
		s.images.Purge()
	}
	writeJSON(w, status, res)
}
