// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/ytarchive/internal/validation"
)

// Validate checks struct tags via internal/validation and then applies the
// cross-field rules that validator tags can't express: date ordering,
// duration bounds, and disjoint playlist include/exclude sets. It is called
// once by Load after the config has been fully resolved from defaults, the
// config file, and the environment.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("struct validation: %w", err)
	}

	// An empty sources list is legal here: the backup/update commands
	// accept an ad hoc URL argument that never appears in config.toml.
	// Whether "no sources and no URL" is an error is the caller's call.
	for i := range c.Sources {
		src := &c.Sources[i]
		if err := validation.ValidateStruct(src); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
		if src.Components != nil {
			if err := validation.ValidateStruct(src.Components); err != nil {
				return fmt.Errorf("sources[%d].components: %w", i, err)
			}
		}
		if src.Filters != nil {
			if err := validateFilters(src.Filters); err != nil {
				return fmt.Errorf("sources[%d].filters: %w", i, err)
			}
		}
	}

	return validateFilters(&c.Filters)
}

// validateFilters applies the cross-field rules for a FiltersConfig: struct
// tags first, then the ordering/membership checks that validator can't
// express with tags alone.
func validateFilters(f *FiltersConfig) error {
	if err := validation.ValidateStruct(f); err != nil {
		return err
	}

	if f.DateStart != "" && f.DateEnd != "" {
		start, err := parseFilterDate(f.DateStart)
		if err != nil {
			return fmt.Errorf("date_start: %w", err)
		}
		end, err := parseFilterDate(f.DateEnd)
		if err != nil {
			return fmt.Errorf("date_end: %w", err)
		}
		if !start.Before(end) {
			return fmt.Errorf("date_start (%s) must be before date_end (%s)", f.DateStart, f.DateEnd)
		}
	}

	if f.DurationMinSeconds != nil && f.DurationMaxSeconds != nil {
		if *f.DurationMinSeconds > *f.DurationMaxSeconds {
			return fmt.Errorf("duration_min_seconds (%d) must be <= duration_max_seconds (%d)",
				*f.DurationMinSeconds, *f.DurationMaxSeconds)
		}
	}

	include := make(map[string]bool, len(f.PlaylistInclude))
	for _, id := range f.PlaylistInclude {
		include[id] = true
	}
	for _, id := range f.PlaylistExclude {
		if include[id] {
			return fmt.Errorf("playlist id %q cannot appear in both playlist_include and playlist_exclude", id)
		}
	}

	return nil
}

// parseFilterDate accepts either RFC3339 or a bare YYYY-MM-DD date, matching
// the Filter/Scope Engine's DateStart/DateEnd contract.
func parseFilterDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be RFC3339 or YYYY-MM-DD: %w", err)
	}
	return t, nil
}
