package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2023-04-15")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2023, time.April, 15), d)

	_, err = ParseDate("15/04/2023")
	assert.Error(t, err)

	_, err = ParseDate("2023-13-01")
	assert.Error(t, err)
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2021, time.February, 1)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2021-02-01"`, string(data))

	var parsed Date
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, d, parsed)
}

func TestDateTime(t *testing.T) {
	d := NewDate(2022, time.June, 30)
	assert.Equal(t, time.Date(2022, time.June, 30, 0, 0, 0, 0, time.UTC), d.Time())
}
