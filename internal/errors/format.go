package errors

import (
	"log/slog"
	"maps"
	"slices"
)

// LogAttrs flattens err into slog attributes. A VonError contributes its
// code, severity, cause and details (as detail_<key>, sorted by key); any
// other error is logged under "error" only.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	ve, ok := As(err)
	if !ok {
		return []any{slog.String("error", err.Error())}
	}

	attrs := []any{
		slog.String("error_code", ve.Code),
		slog.String("error", ve.Message),
		slog.String("severity", string(ve.Severity)),
	}
	if ve.Cause != nil {
		attrs = append(attrs, slog.String("cause", ve.Cause.Error()))
	}
	for _, k := range slices.Sorted(maps.Keys(ve.Details)) {
		attrs = append(attrs, slog.String("detail_"+k, ve.Details[k]))
	}
	return attrs
}
