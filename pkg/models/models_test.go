package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalTriState(t *testing.T) {
	var p MemberPatch
	require.NoError(t, json.Unmarshal([]byte(`{"firstName": "Ada", "goal": null}`), &p))

	assert.True(t, p.FirstName.Set)
	assert.False(t, p.FirstName.Null)
	assert.Equal(t, "Ada", p.FirstName.Value)

	assert.True(t, p.Goal.Set)
	assert.True(t, p.Goal.Null)
	assert.Nil(t, p.Goal.Ptr())

	assert.False(t, p.LastName.Set)
	assert.False(t, p.Email.Set)
	assert.False(t, p.IsEmpty())
}

func TestUpdateCommandRelations(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		goalsSet    bool
		goalsLen    int
		sessionsSet bool
		empty       bool
	}{
		{"absent", `{}`, false, 0, false, true},
		{"empty goals", `{"goals": []}`, true, 0, false, false},
		{"null goals", `{"goals": null}`, true, 0, false, false},
		{"mixed refs", `{"goals": [1, "Endurance"]}`, true, 2, false, false},
		{"sessions only", `{"sessions": [3]}`, false, 0, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd UpdateMemberCommand
			require.NoError(t, json.Unmarshal([]byte(tt.body), &cmd))
			assert.Equal(t, tt.goalsSet, cmd.Goals.Set)
			assert.Len(t, cmd.Goals.Value, tt.goalsLen)
			assert.Equal(t, tt.sessionsSet, cmd.Sessions.Set)
			assert.Equal(t, tt.empty, cmd.IsEmpty())
		})
	}
}

func TestCatalogRef(t *testing.T) {
	var refs []CatalogRef
	require.NoError(t, json.Unmarshal([]byte(`[3, "Weight Loss", "12", 0, -4]`), &refs))
	require.Len(t, refs, 5)

	id, ok := refs[0].ID()
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)

	_, ok = refs[1].ID()
	assert.False(t, ok)

	id, ok = refs[2].ID()
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)

	_, ok = refs[3].ID()
	assert.False(t, ok, "zero is not a valid id")
	_, ok = refs[4].ID()
	assert.False(t, ok, "negative is not a valid id")

	var bad []CatalogRef
	assert.Error(t, json.Unmarshal([]byte(`[null]`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`[{"id": 1}]`), &bad))
}

func TestSessionSpecForms(t *testing.T) {
	var specs []SessionSpec
	require.NoError(t, json.Unmarshal([]byte(`[
		2,
		"1 day",
		{"sessionTypeId": 1, "startDate": "2024-01-01T08:00:00Z"},
		{"sessionType": "1 week", "endDate": "2024-02-01"}
	]`), &specs))
	require.Len(t, specs, 4)

	assert.Equal(t, IDRef(2), specs[0].SessionType)
	assert.Equal(t, CatalogRef("1 day"), specs[1].SessionType)
	assert.Equal(t, IDRef(1), specs[2].SessionType)
	assert.Equal(t, "2024-01-01T08:00:00Z", specs[2].StartDate)
	assert.Equal(t, CatalogRef("1 week"), specs[3].SessionType)
	assert.Equal(t, "2024-02-01", specs[3].EndDate)

	var spec SessionSpec
	assert.Error(t, json.Unmarshal([]byte(`{"startDate": "2024-01-01"}`), &spec))
}

func TestMemberAggregateJSON(t *testing.T) {
	agg := MemberAggregate{
		Member:   Member{ID: 1, FirstName: "A", LastName: "B", Email: "a@b.com"},
		Goals:    []Goal{{ID: 1, Title: "Weight Loss"}},
		Sessions: []Session{},
	}
	data, err := json.Marshal(agg)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "a@b.com", out["email"])
	assert.Nil(t, out["goal"])
	assert.Len(t, out["goals"], 1)
	assert.Len(t, out["sessions"], 0)
}
