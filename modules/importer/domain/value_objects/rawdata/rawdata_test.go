package rawdata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_UnmarshalJSON(t *testing.T) {
	var m Map
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "Ali",
		"iqama_number": 2233445566,
		"note": null,
		"active": true
	}`), &m))

	assert.Equal(t, "Ali", m.GetString("name"))
	assert.Equal(t, "2233445566", m.GetString("iqama_number"))
	assert.True(t, m["note"].IsNull())
	assert.Equal(t, "", m.GetString("note"))
	assert.Equal(t, "true", m.GetString("active"))
	assert.Equal(t, "", m.GetString("missing"))
}

func TestValue_MarshalRoundTrip(t *testing.T) {
	m := Map{
		"name":  String("Sara"),
		"count": Number(3),
		"gap":   Null(),
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var back Map
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, m, back)
}

func TestValue_AsString_TrimsViaMap(t *testing.T) {
	m := Map{"name": String("  Omar  ")}
	assert.Equal(t, "Omar", m.GetString("name"))
	assert.Equal(t, "  Omar  ", m["name"].AsString())
}
