package importer

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fdtorres1/opusgraph/pkg/duration"
	"github.com/fdtorres1/opusgraph/pkg/models"
	"github.com/fdtorres1/opusgraph/pkg/normalizers"
)

const (
	yearMin = 1000
	yearMax = 2100
)

// multiValueSplit breaks a raw cell on comma or semicolon and trims each item
func multiValueSplit(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

// urlList splits a multi-value cell and keeps only items that start with http
func urlList(raw string) []string {
	items := multiValueSplit(raw)
	urls := make([]string, 0, len(items))
	for _, item := range items {
		if strings.HasPrefix(item, "http") {
			urls = append(urls, item)
		}
	}
	return urls
}

// countryList splits a multi-value cell into normalized two-letter codes,
// dropping anything that does not normalize to a code
func countryList(raw string) []string {
	items := multiValueSplit(raw)
	codes := make([]string, 0, len(items))
	for _, item := range items {
		code := normalizers.NormalizeCountryCode(item)
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// cell resolves a logical field to its raw cell value through the mapping.
// An absent mapping means the field was not provided.
func cell(row models.ImportRow, mapping models.FieldMapping, field string) string {
	column, ok := mapping[field]
	if !ok {
		return ""
	}
	return strings.TrimSpace(row[column])
}

// composerFields is a parsed and coerced composer import row
type composerFields struct {
	FirstName     string
	LastName      string
	BirthYear     *int
	DeathYear     *int
	Biography     *string
	Links         []string
	Nationalities []string
}

// workFields is a parsed and coerced work import row
type workFields struct {
	ComposerID      string
	Name            string
	OpusNumber      *string
	CompositionYear *int
	DurationSeconds *int
	Description     *string
	Sources         []string
	Recordings      []string
}

// parseComposerRow coerces a raw row into composer fields. Parse problems
// surface as row errors; coercion of list fields is lossy by design.
func parseComposerRow(row models.ImportRow, mapping models.FieldMapping) (composerFields, []string) {
	var fields composerFields
	var errs []string

	fields.FirstName = cell(row, mapping, "first_name")
	fields.LastName = cell(row, mapping, "last_name")
	if fields.FirstName == "" {
		errs = append(errs, "first_name is required")
	}
	if fields.LastName == "" {
		errs = append(errs, "last_name is required")
	}

	fields.BirthYear, errs = parseYear(cell(row, mapping, "birth_year"), "birth_year", errs)
	fields.DeathYear, errs = parseYear(cell(row, mapping, "death_year"), "death_year", errs)

	if bio := cell(row, mapping, "biography"); bio != "" {
		fields.Biography = &bio
	}

	fields.Links = urlList(cell(row, mapping, "links"))
	fields.Nationalities = countryList(cell(row, mapping, "nationalities"))

	return fields, errs
}

// parseWorkRow coerces a raw row into work fields
func parseWorkRow(row models.ImportRow, mapping models.FieldMapping) (workFields, []string) {
	var fields workFields
	var errs []string

	fields.ComposerID = cell(row, mapping, "composer_id")
	fields.Name = cell(row, mapping, "name")
	if fields.ComposerID == "" {
		errs = append(errs, "composer_id is required")
	}
	if fields.Name == "" {
		errs = append(errs, "name is required")
	}

	if opus := cell(row, mapping, "opus_number"); opus != "" {
		fields.OpusNumber = &opus
	}

	fields.CompositionYear, errs = parseYear(cell(row, mapping, "composition_year"), "composition_year", errs)

	if raw := cell(row, mapping, "duration"); raw != "" {
		seconds, err := duration.Parse(raw)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			fields.DurationSeconds = &seconds
		}
	}

	if description := cell(row, mapping, "description"); description != "" {
		fields.Description = &description
	}

	fields.Sources = urlList(cell(row, mapping, "sources"))
	fields.Recordings = urlList(cell(row, mapping, "recordings"))

	return fields, errs
}

func parseYear(raw, field string, errs []string) (*int, []string) {
	if raw == "" {
		return nil, errs
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return nil, append(errs, fmt.Sprintf("%s must be a number", field))
	}
	if year < yearMin || year > yearMax {
		return nil, append(errs, fmt.Sprintf("%s must be between %d and %d", field, yearMin, yearMax))
	}
	return &year, errs
}

func normalizeCountry(raw string) string {
	return normalizers.NormalizeCountryCode(raw)
}

// validateURLs reports malformed entries in a raw multi-value URL cell.
// The http prefix filter in urlList already drops non-URLs silently on
// execute; validation surfaces them so the operator can fix the cell.
func validateURLs(raw string, field string, errs []string) []string {
	for _, item := range multiValueSplit(raw) {
		if !strings.HasPrefix(item, "http") {
			errs = append(errs, fmt.Sprintf("%s entry %q is not an http(s) URL", field, item))
			continue
		}
		if _, err := url.ParseRequestURI(item); err != nil {
			errs = append(errs, fmt.Sprintf("%s entry %q is malformed", field, item))
		}
	}
	return errs
}
