package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apierrors "schoolpulse/internal/errors"
	"schoolpulse/pkg/contracts/domain"
)

// validate checks struct tags on bound filter specs.
var validate = validator.New(validator.WithRequiredStructEnabled())

// queryDateLayout is the accepted format for date_from and date_to.
const queryDateLayout = "2006-01-02"

// parseFilterSpec binds a filter spec from URL query parameters.
// Supported parameters: date_from, date_to, states, severity_min,
// intents, preset, fatal_only. List parameters are comma separated.
func parseFilterSpec(values url.Values) (domain.FilterSpec, error) {
	var spec domain.FilterSpec

	if v := values.Get("date_from"); v != "" {
		d, err := time.Parse(queryDateLayout, v)
		if err != nil {
			return spec, apierrors.ErrValidation("date_from", fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", v))
		}
		spec.DateFrom = &d
	}

	if v := values.Get("date_to"); v != "" {
		d, err := time.Parse(queryDateLayout, v)
		if err != nil {
			return spec, apierrors.ErrValidation("date_to", fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", v))
		}
		spec.DateTo = &d
	}

	if spec.DateFrom != nil && spec.DateTo != nil && spec.DateTo.Before(*spec.DateFrom) {
		return spec, apierrors.ErrValidation("date_to", "date_to must not precede date_from")
	}

	spec.States = splitList(values.Get("states"), strings.ToUpper)
	for _, st := range spec.States {
		if !domain.ValidState(st) {
			return spec, apierrors.ErrValidation("states", fmt.Sprintf("unknown state code %q", st))
		}
	}

	if v := values.Get("severity_min"); v != "" {
		sev := domain.SeverityClass(v)
		if !sev.Valid() {
			return spec, apierrors.ErrValidation("severity_min", fmt.Sprintf("unknown severity class %q", v))
		}
		spec.SeverityMin = sev
	}

	spec.Intents = splitList(values.Get("intents"), nil)

	if v := values.Get("preset"); v != "" {
		preset := domain.FilterPreset(v)
		if !preset.Valid() {
			return spec, apierrors.ErrValidation("preset", fmt.Sprintf("unknown preset %q", v))
		}
		spec.Preset = preset
	}

	if v := values.Get("fatal_only"); v != "" {
		fatal, err := strconv.ParseBool(v)
		if err != nil {
			return spec, apierrors.ErrValidation("fatal_only", fmt.Sprintf("invalid boolean %q", v))
		}
		spec.FatalOnly = fatal
	}

	if err := validate.Struct(spec); err != nil {
		return spec, apierrors.InvalidRequestWithError(err)
	}

	return spec, nil
}

func splitList(raw string, normalize func(string) string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if normalize != nil {
			p = normalize(p)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
