package audit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type record struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Secret   string `json:"-"`
	Nickname string `json:"nickname,omitempty"`
}

func TestSnapshotDropsHiddenFields(t *testing.T) {
	snap, err := Snapshot(record{ID: 7, Email: "a@x.com", Role: "nurse", Secret: "hash"})
	require.NoError(t, err)
	require.NotContains(t, snap, "Secret")
	require.Equal(t, json.Number("7"), snap["id"])
	require.Equal(t, "a@x.com", snap["email"])
}

func TestDiffRecordsOnlyChangedFields(t *testing.T) {
	before := record{ID: 7, Email: "a@x.com", Role: "nurse", Secret: "old"}
	after := record{ID: 7, Email: "b@x.com", Role: "nurse", Secret: "new"}

	changes, err := DiffRecords(before, after)
	require.NoError(t, err)
	require.Equal(t, map[string]Change{"email": {From: "a@x.com", To: "b@x.com"}}, changes)
}

func TestDiffAddedRemovedAndIgnored(t *testing.T) {
	before := record{ID: 1, Email: "a@x.com", Role: "nurse", Nickname: "al"}
	after := record{ID: 1, Email: "a@x.com", Role: "clinician"}

	changes, err := DiffRecords(before, after, "role")
	require.NoError(t, err)
	require.Equal(t, map[string]Change{"nickname": {From: "al", To: nil}}, changes)
}

func TestDiffIdenticalIsEmpty(t *testing.T) {
	r := record{ID: 1, Email: "a@x.com"}
	changes, err := DiffRecords(r, r)
	require.NoError(t, err)
	require.Empty(t, changes)
}
