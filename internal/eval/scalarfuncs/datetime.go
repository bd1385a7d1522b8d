package scalarfuncs

import (
	"strings"
	"time"

	yachtsql "github.com/lychee-technology/yachtsql"
)

func registerDateTimeFuncs(r *Registry) {
	r.Register("CURRENT_DATE", func(args []yachtsql.Value) (yachtsql.Value, error) {
		return yachtsql.NewDate(time.Now().UTC()), nil
	})
	r.Register("CURRENT_TIMESTAMP", func(args []yachtsql.Value) (yachtsql.Value, error) {
		return yachtsql.NewTimestamp(time.Now().UTC()), nil
	})
	r.Register("CURRENT_DATETIME", func(args []yachtsql.Value) (yachtsql.Value, error) {
		return yachtsql.NewDateTime(time.Now().UTC()), nil
	})
	r.Register("CURRENT_TIME", func(args []yachtsql.Value) (yachtsql.Value, error) {
		return yachtsql.NewTime(time.Now().UTC()), nil
	})
	r.Register("DATE_ADD", dateArith(1))
	r.Register("DATE_SUB", dateArith(-1))
	r.Register("TIMESTAMP_ADD", dateArith(1))
	r.Register("TIMESTAMP_SUB", dateArith(-1))
	r.Register("DATETIME_ADD", dateArith(1))
	r.Register("DATETIME_SUB", dateArith(-1))
	r.Register("DATE_DIFF", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 3 {
			return yachtsql.Null, arityError("DATE_DIFF", 3, len(args))
		}
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		a, b := args[0].Time(), args[1].Time()
		unit := args[2].String_()
		return yachtsql.NewInt64(dateDiff(a, b, unit)), nil
	})
	r.Register("DATE_TRUNC", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		t := args[0].Time()
		truncated := truncToUnit(t, args[1].String_())
		switch args[0].Kind() {
		case yachtsql.VKTimestamp:
			return yachtsql.NewTimestamp(truncated), nil
		case yachtsql.VKDateTime:
			return yachtsql.NewDateTime(truncated), nil
		default:
			return yachtsql.NewDate(truncated), nil
		}
	})
	r.Register("FORMAT_DATE", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		return yachtsql.NewString(formatBQ(args[0].String_(), args[1].Time())), nil
	})
	r.Register("FORMAT_TIMESTAMP", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		return yachtsql.NewString(formatBQ(args[0].String_(), args[1].Time())), nil
	})
	r.Register("EXTRACT", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		return extractField(args[1].String_(), args[0].Time())
	})
}

func dateArith(sign int64) Handler {
	return func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 2 {
			return yachtsql.Null, arityError("DATE_ADD/SUB", 2, len(args))
		}
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		// second arg arrives pre-evaluated as an INTERVAL; amount*unit forms
		// from the parser are normalized to Interval before dispatch.
		iv := args[1].Interval()
		negate := sign < 0
		return yachtsql.AddDateInterval(args[0], iv, negate)
	}
}

func dateDiff(a, b time.Time, unit string) int64 {
	switch unit {
	case "DAY":
		return int64(a.Sub(b).Hours() / 24)
	case "HOUR":
		return int64(a.Sub(b).Hours())
	case "MINUTE":
		return int64(a.Sub(b).Minutes())
	case "SECOND":
		return int64(a.Sub(b).Seconds())
	case "WEEK":
		return int64(a.Sub(b).Hours() / 24 / 7)
	case "MONTH":
		return int64((a.Year()-b.Year())*12 + int(a.Month()) - int(b.Month()))
	case "YEAR":
		return int64(a.Year() - b.Year())
	default:
		return int64(a.Sub(b).Hours() / 24)
	}
}

func truncToUnit(t time.Time, unit string) time.Time {
	switch unit {
	case "YEAR":
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
	case "MONTH":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case "WEEK":
		wd := int(t.Weekday())
		return t.AddDate(0, 0, -wd).Truncate(24 * time.Hour)
	case "DAY":
		return t.Truncate(24 * time.Hour)
	case "HOUR":
		return t.Truncate(time.Hour)
	case "MINUTE":
		return t.Truncate(time.Minute)
	default:
		return t
	}
}

func formatBQ(layout string, t time.Time) string {
	goLayout := strings.NewReplacer(
		"%Y", "2006", "%m", "01", "%d", "02",
		"%H", "15", "%M", "04", "%S", "05",
		"%b", "Jan", "%B", "January", "%a", "Mon", "%A", "Monday",
	).Replace(layout)
	return t.Format(goLayout)
}

func extractField(field string, t time.Time) (yachtsql.Value, error) {
	switch field {
	case "YEAR":
		return yachtsql.NewInt64(int64(t.Year())), nil
	case "MONTH":
		return yachtsql.NewInt64(int64(t.Month())), nil
	case "DAY":
		return yachtsql.NewInt64(int64(t.Day())), nil
	case "HOUR":
		return yachtsql.NewInt64(int64(t.Hour())), nil
	case "MINUTE":
		return yachtsql.NewInt64(int64(t.Minute())), nil
	case "SECOND":
		return yachtsql.NewInt64(int64(t.Second())), nil
	case "DAYOFWEEK":
		return yachtsql.NewInt64(int64(t.Weekday()) + 1), nil
	case "DAYOFYEAR":
		return yachtsql.NewInt64(int64(t.YearDay())), nil
	case "WEEK":
		_, wk := t.ISOWeek()
		return yachtsql.NewInt64(int64(wk)), nil
	case "QUARTER":
		return yachtsql.NewInt64(int64((int(t.Month())-1)/3 + 1)), nil
	default:
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrUnsupported, "EXTRACT: unsupported field %q", field)
	}
}
