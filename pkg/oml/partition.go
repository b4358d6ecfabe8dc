package oml

import (
	"fmt"
	"sort"
)

// DistinctValues returns the unique values of field in ascending order.
func DistinctValues(t *Table, field string) ([]Value, error) {
	col, err := t.Column(field)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(col, func(i, j int) bool { return col[i].Compare(col[j]) < 0 })

	out := make([]Value, 0, 8)
	for i, v := range col {
		if i > 0 && v.Equal(col[i-1]) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// FilterBy returns the records whose field equals value, in table order.
func FilterBy(t *Table, field string, value Value) (*Table, error) {
	if _, ok := t.schema.Index(field); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	rows := make([]Record, 0, len(t.rows))
	for _, r := range t.rows {
		v, _ := r.Get(field)
		if v.Equal(value) {
			rows = append(rows, r)
		}
	}
	return newTable(t.mtype, t.schema, rows), nil
}

// GroupBy splits the table by the distinct values of field, ordered like
// DistinctValues.
func GroupBy(t *Table, field string) ([]Group, error) {
	keys, err := DistinctValues(t, field)
	if err != nil {
		return nil, err
	}
	groups := make([]Group, 0, len(keys))
	for _, k := range keys {
		sub, err := FilterBy(t, field, k)
		if err != nil {
			return nil, err
		}
		groups = append(groups, Group{Key: k, Table: sub})
	}
	return groups, nil
}

// Group is one partition produced by GroupBy.
type Group struct {
	Key   Value
	Table *Table
}
