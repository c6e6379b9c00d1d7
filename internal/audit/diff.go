package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Redacted replaces secret values in payloads.
const Redacted = "[redacted]"

// Snapshot converts v to a generic field map through its JSON form, so fields
// tagged `json:"-"` never reach a payload.
func Snapshot(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("audit: snapshot: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("audit: snapshot: %w", err)
	}
	return out, nil
}

// Diff returns the fields whose values differ between before and after.
// Fields named in ignore are skipped.
func Diff(before, after map[string]any, ignore ...string) map[string]Change {
	skip := make(map[string]struct{}, len(ignore))
	for _, k := range ignore {
		skip[k] = struct{}{}
	}
	changes := make(map[string]Change)
	for k, to := range after {
		if _, ok := skip[k]; ok {
			continue
		}
		from, ok := before[k]
		if ok && reflect.DeepEqual(from, to) {
			continue
		}
		changes[k] = Change{From: from, To: to}
	}
	for k, from := range before {
		if _, ok := skip[k]; ok {
			continue
		}
		if _, ok := after[k]; !ok {
			changes[k] = Change{From: from, To: nil}
		}
	}
	return changes
}

// DiffRecords snapshots two versions of a record and diffs them.
func DiffRecords(before, after any, ignore ...string) (map[string]Change, error) {
	b, err := Snapshot(before)
	if err != nil {
		return nil, err
	}
	a, err := Snapshot(after)
	if err != nil {
		return nil, err
	}
	return Diff(b, a, ignore...), nil
}
