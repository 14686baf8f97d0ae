package api

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lox/wxmap/internal/colormap"
	"github.com/lox/wxmap/internal/grid"
	"github.com/lox/wxmap/internal/render"
)

const defaultWidth = 600

func newValidator(mapper *colormap.Mapper) *validator.Validate {
	v := validator.New()
	v.RegisterValidation("metric", func(fl validator.FieldLevel) bool {
		_, ok := mapper.Scale(fl.Field().String())
		return ok
	})
	v.RegisterValidation("mode", func(fl validator.FieldLevel) bool {
		_, ok := render.ParseMode(fl.Field().String())
		return ok
	})
	return v
}

// dayQuery selects one date.
type dayQuery struct {
	Date string `validate:"required,datetime=2006-01-02"`
}

// metricQuery selects one metric on one date.
type metricQuery struct {
	Date   string `validate:"required,datetime=2006-01-02"`
	Metric string `validate:"required,metric"`
}

type rangeQuery struct {
	From string `validate:"omitempty,datetime=2006-01-02"`
	To   string `validate:"omitempty,datetime=2006-01-02"`
}

type renderQuery struct {
	metricQuery
	Mode   string `validate:"required,mode"`
	Format string `validate:"oneof=json png"`
	Width  int    `validate:"min=120,max=2000"`
	Smooth int    `validate:"min=0,max=5"`
	Legend bool
}

type legendQuery struct {
	Metric string `validate:"required,metric"`
	Width  int    `validate:"min=120,max=2000"`
	Height int    `validate:"min=60,max=400"`
}

type gridQuery struct {
	metricQuery
	Nearest bool
}

func (q *dayQuery) bind(v url.Values) {
	q.Date = v.Get("date")
}

func (q *metricQuery) bind(v url.Values) {
	q.Date = v.Get("date")
	q.Metric = v.Get("metric")
}

func (q *rangeQuery) bind(v url.Values) {
	q.From = v.Get("from")
	q.To = v.Get("to")
}

func (q *renderQuery) bind(v url.Values) error {
	q.metricQuery.bind(v)
	q.Mode = withDefault(v.Get("mode"), render.ModeStations.String())
	q.Format = withDefault(v.Get("format"), "json")
	var err error
	if q.Width, err = intParam(v, "width", defaultWidth); err != nil {
		return err
	}
	if q.Smooth, err = intParam(v, "smooth", 0); err != nil {
		return err
	}
	q.Legend, err = boolParam(v, "legend")
	return err
}

func (q *legendQuery) bind(v url.Values) error {
	q.Metric = v.Get("metric")
	var err error
	if q.Width, err = intParam(v, "width", 320); err != nil {
		return err
	}
	q.Height, err = intParam(v, "height", 70)
	return err
}

func (q *gridQuery) bind(v url.Values) error {
	q.metricQuery.bind(v)
	var err error
	q.Nearest, err = boolParam(v, "nearest")
	return err
}

// day parses a field that already passed the datetime validation.
func day(s string) time.Time {
	t, _ := time.Parse(grid.DateLayout, s)
	return t
}

func withDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func intParam(v url.Values, name string, def int) (int, error) {
	s := v.Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: not an integer: %q", name, s)
	}
	return n, nil
}

func boolParam(v url.Values, name string) (bool, error) {
	s := v.Get(name)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s: not a boolean: %q", name, s)
	}
	return b, nil
}

// describe turns validation errors into a short message naming each field.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, name+" is required")
		case "datetime":
			msgs = append(msgs, name+" must be YYYY-MM-DD")
		case "metric":
			msgs = append(msgs, fmt.Sprintf("unknown metric %q", fe.Value()))
		case "mode":
			msgs = append(msgs, fmt.Sprintf("unknown mode %q", fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", name, fe.Tag(), fe.Param()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
