package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	t.Parallel()

	var c struct {
		Birthday Date `json:"birthday"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"birthday":"1990-06-03"}`), &c))
	assert.Equal(t, NewDate(1990, time.June, 3), c.Birthday)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"birthday":"1990-06-03"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"birthday":"03.06.1990"}`), &c))
}

func TestDate_Scan(t *testing.T) {
	t.Parallel()

	want := NewDate(1990, time.June, 3)
	tests := []struct {
		name string
		src  any
	}{
		{name: "time", src: time.Date(1990, 6, 3, 0, 0, 0, 0, time.UTC)},
		{name: "string", src: "1990-06-03"},
		{name: "datetime string", src: "1990-06-03 00:00:00+00:00"},
		{name: "bytes", src: []byte("1990-06-03")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.src))
			assert.Equal(t, want, d)
		})
	}

	var d Date
	assert.Error(t, d.Scan(42))
}

func TestDate_Value(t *testing.T) {
	t.Parallel()

	v, err := NewDate(2000, time.February, 29).Value()
	require.NoError(t, err)
	assert.Equal(t, "2000-02-29", v)
}
