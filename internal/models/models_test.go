package models

import (
	"database/sql"
	"testing"

	"github.com/lox/wxmap/internal/colormap"
)

func TestZoneFor(t *testing.T) {
	tests := []struct {
		lat  float64
		want string
		ok   bool
	}{
		{60.17, "etela_suomi", true},
		{62.0, "keski_suomi", true},
		{63.99, "keski_suomi", true},
		{65.01, "pohjois_suomi", true},
		{66.0, "lappi", true},
		{69.9, "lappi", true},
		{-10, "", false},
	}
	for _, tt := range tests {
		z, ok := ZoneFor(tt.lat)
		if z.ID != tt.want || ok != tt.ok {
			t.Errorf("ZoneFor(%v) = %q, %v; want %q, %v", tt.lat, z.ID, ok, tt.want, tt.ok)
		}
	}

	st := Station{Latitude: -10}
	st.AssignZone()
	if st.ZoneName != UnknownZoneName {
		t.Errorf("ZoneName = %q", st.ZoneName)
	}
}

func TestRecordValue(t *testing.T) {
	var r DailyRecord
	for _, key := range colormap.DefaultTable().Keys() {
		v := sql.NullFloat64{Float64: float64(len(key)), Valid: true}
		if !r.SetValue(key, v) {
			t.Fatalf("SetValue(%q) rejected", key)
		}
		if got := r.Value(key); got != v {
			t.Errorf("Value(%q) = %v, want %v", key, got, v)
		}
	}
	if r.SetValue("wind", sql.NullFloat64{Valid: true}) {
		t.Error("unknown key accepted")
	}
	if r.Value("wind").Valid {
		t.Error("unknown key should be null")
	}
}
