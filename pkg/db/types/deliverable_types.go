package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"

	"github.com/fireguard/booking-payments/pkg/enums"
)

// DeliverableTypes stores a set of deliverable types as a Postgres text
// array literal. SQLite keeps the same literal as plain text.
type DeliverableTypes []enums.DeliverableType

func (a *DeliverableTypes) Scan(src any) error {
	if src == nil {
		*a = DeliverableTypes{}
		return nil
	}

	switch v := src.(type) {
	case string:
		return a.parseFromString(v)
	case []byte:
		return a.parseFromString(string(v))
	default:
		return fmt.Errorf("DeliverableTypes: unsupported Scan type %T", src)
	}
}

func (a DeliverableTypes) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	parts := make([]string, 0, len(a))
	for _, t := range a {
		parts = append(parts, string(t))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}", nil
}

// Contains reports whether t is part of the set.
func (a DeliverableTypes) Contains(t enums.DeliverableType) bool {
	for _, candidate := range a {
		if candidate == t {
			return true
		}
	}
	return false
}

func (a *DeliverableTypes) parseFromString(s string) error {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if strings.TrimSpace(s) == "" {
		*a = DeliverableTypes{}
		return nil
	}

	raw := strings.Split(s, ",")
	out := make([]enums.DeliverableType, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(strings.Trim(r, `"`))
		t, err := enums.ParseDeliverableType(r)
		if err != nil {
			return fmt.Errorf("DeliverableTypes: %w", err)
		}
		out = append(out, t)
	}
	*a = DeliverableTypes(out)
	return nil
}
