package ingest

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/lox/wxmap/internal/colormap"
	"github.com/lox/wxmap/internal/models"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

var ErrNoColumns = errors.New("missing required columns")

// FormatFor picks the decoder for a file name or URL, falling back to the
// response content type.
func FormatFor(name, contentType string) Format {
	name = strings.TrimSuffix(strings.ToLower(name), ".gz")
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch path.Ext(name) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	}
	if strings.Contains(contentType, "csv") {
		return FormatCSV
	}
	return FormatJSON
}

// Dataset is the normalised content of one import source.
type Dataset struct {
	Stations []models.Station
	Records  []models.DailyRecord
	// Flagged counts measurements dropped by validation.
	Flagged int
}

// Parse decodes r in the given format.
func Parse(r io.Reader, format Format) (*Dataset, error) {
	if format == FormatCSV {
		return ParseCSV(r)
	}
	return ParseJSON(r)
}

// csvColumns maps the FMI observation names and the short metric keys to metrics.
var csvColumns = map[string]string{
	"Air temperature":            colormap.TempMean,
	"Minimum temperature":        colormap.TempMin,
	"Maximum temperature":        colormap.TempMax,
	"Snow depth":                 colormap.SnowDepth,
	"Precipitation amount":       colormap.Precipitation,
	"Ground minimum temperature": colormap.GroundTempMin,
	colormap.TempMean:            colormap.TempMean,
	colormap.TempMin:             colormap.TempMin,
	colormap.TempMax:             colormap.TempMax,
	colormap.SnowDepth:           colormap.SnowDepth,
	colormap.Precipitation:       colormap.Precipitation,
	colormap.GroundTempMin:       colormap.GroundTempMin,
}

// ParseCSV reads a station-daily CSV export. date and fmisid are required;
// latitude and longitude, when present, also yield the station list.
func ParseCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	if _, ok := col["date"]; !ok {
		return nil, fmt.Errorf("%w: date", ErrNoColumns)
	}
	if _, ok := col["fmisid"]; !ok {
		return nil, fmt.Errorf("%w: fmisid", ErrNoColumns)
	}

	field := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	b := newBuilder()
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rw := row{
			Date:      field(rec, "date"),
			StationID: stationID(field(rec, "fmisid")),
			Name:      field(rec, "station_name"),
			Zone:      field(rec, "zone"),
			ZoneName:  field(rec, "zone_name"),
			Values:    make(map[string]*float64, len(colormap.BuiltinScales())),
		}
		if lat, lon := field(rec, "latitude"), field(rec, "longitude"); lat != "" && lon != "" {
			la, errLat := strconv.ParseFloat(lat, 64)
			lo, errLon := strconv.ParseFloat(lon, 64)
			if errLat != nil || errLon != nil {
				return nil, fmt.Errorf("line %d: invalid coordinates %q, %q", line, lat, lon)
			}
			rw.Latitude, rw.Longitude = &la, &lo
		}
		for name, metric := range csvColumns {
			s := field(rec, name)
			if s == "" || strings.EqualFold(s, "nan") {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, name, err)
			}
			rw.Values[metric] = &v
		}
		if err := b.add(rw); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return b.dataset(), nil
}

type jsonRow struct {
	Date          string   `json:"date"`
	FMISID        flexID   `json:"fmisid"`
	StationName   string   `json:"station_name"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Zone          *string  `json:"zone"`
	ZoneName      *string  `json:"zone_name"`
	TempMean      *float64 `json:"temp_mean"`
	TempMin       *float64 `json:"temp_min"`
	TempMax       *float64 `json:"temp_max"`
	SnowDepth     *float64 `json:"snow_depth"`
	Precipitation *float64 `json:"precipitation"`
	GroundTempMin *float64 `json:"ground_temp_min"`
}

// ParseJSON reads a JSON array of station-daily rows. Rows without a date
// only describe a station, so a station location list parses too.
func ParseJSON(r io.Reader) (*Dataset, error) {
	var rows []jsonRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	b := newBuilder()
	for i, jr := range rows {
		rw := row{
			Date:      jr.Date,
			StationID: string(jr.FMISID),
			Name:      jr.StationName,
			Latitude:  jr.Latitude,
			Longitude: jr.Longitude,
			Values: map[string]*float64{
				colormap.TempMean:      jr.TempMean,
				colormap.TempMin:       jr.TempMin,
				colormap.TempMax:       jr.TempMax,
				colormap.SnowDepth:     jr.SnowDepth,
				colormap.Precipitation: jr.Precipitation,
				colormap.GroundTempMin: jr.GroundTempMin,
			},
		}
		if jr.Zone != nil {
			rw.Zone = *jr.Zone
		}
		if jr.ZoneName != nil {
			rw.ZoneName = *jr.ZoneName
		}
		if err := b.add(rw); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return b.dataset(), nil
}

// flexID accepts station ids written as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(stationID(s))
		return nil
	}
	*f = flexID(stationID(string(data)))
	return nil
}

// stationID strips a trailing ".0" left by float-typed exports.
func stationID(s string) string {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil && v == math.Trunc(v) && !strings.ContainsAny(s, "eE") {
		return strconv.FormatInt(int64(v), 10)
	}
	return s
}

type row struct {
	Date      string
	StationID string
	Name      string
	Latitude  *float64
	Longitude *float64
	Zone      string
	ZoneName  string
	Values    map[string]*float64
}

type recordKey struct {
	date    string
	station string
}

// builder collects rows keeping the last record per (date, station) and the
// last description per station.
type builder struct {
	stations    map[string]int
	records     map[recordKey]int
	stationList []models.Station
	recordList  []models.DailyRecord
	flagged     int
}

func newBuilder() *builder {
	return &builder{stations: map[string]int{}, records: map[recordKey]int{}}
}

func (b *builder) add(r row) error {
	if r.StationID == "" {
		return errors.New("missing fmisid")
	}

	if r.Latitude != nil && r.Longitude != nil {
		st := models.Station{
			StationID: r.StationID,
			Name:      r.Name,
			Latitude:  *r.Latitude,
			Longitude: *r.Longitude,
			Zone:      r.Zone,
			ZoneName:  r.ZoneName,
		}
		if st.Name == "" {
			st.Name = r.StationID
		}
		if st.Zone == "" {
			st.AssignZone()
		}
		if i, ok := b.stations[st.StationID]; ok {
			b.stationList[i] = st
		} else {
			b.stations[st.StationID] = len(b.stationList)
			b.stationList = append(b.stationList, st)
		}
	}

	if r.Date == "" {
		return nil
	}
	date, err := parseDate(r.Date)
	if err != nil {
		return err
	}
	rec := models.DailyRecord{Date: date, StationID: r.StationID}
	for metric, v := range r.Values {
		rec.SetValue(metric, normalize(metric, v))
	}
	b.flagged += len(Sanitize(&rec))

	key := recordKey{date: date.Format(dateLayout), station: r.StationID}
	if i, ok := b.records[key]; ok {
		b.recordList[i] = rec
	} else {
		b.records[key] = len(b.recordList)
		b.recordList = append(b.recordList, rec)
	}
	return nil
}

func (b *builder) dataset() *Dataset {
	return &Dataset{Stations: b.stationList, Records: b.recordList, Flagged: b.flagged}
}

const dateLayout = "2006-01-02"

// parseDate accepts a plain date or a date followed by a time of day.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date: %w", err)
	}
	return t, nil
}

// normalize maps the -1 "none" sentinel of snow depth and precipitation to
// zero and rounds to one decimal.
func normalize(metric string, v *float64) sql.NullFloat64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return sql.NullFloat64{}
	}
	x := *v
	if x == -1 && (metric == colormap.SnowDepth || metric == colormap.Precipitation) {
		x = 0
	}
	return sql.NullFloat64{Float64: math.Round(x*10) / 10, Valid: true}
}
