package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_MarshalJSON(t *testing.T) {
	ts := Timestamp(time.Date(2023, 10, 27, 10, 0, 0, 0, time.FixedZone("X", 3600)))
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2023-10-27T09:00:00Z"`, string(data))
}

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2023-10-27T10:00:00.5Z"`), &ts))
	assert.Equal(t, time.Date(2023, 10, 27, 10, 0, 0, 5e8, time.UTC), time.Time(ts))

	assert.Error(t, json.Unmarshal([]byte(`"invalid-date"`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`42`), &ts))
}

func TestErrorResponse_JSON(t *testing.T) {
	b, err := json.Marshal(ErrorResponse{Error: ErrorDetail{Code: "COMMON_002", Message: "bad request"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":{"code":"COMMON_002","message":"bad request"}}`, string(b))
}

//Personal.AI order the ending
