package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDateTimeRoundTrip(t *testing.T) {
	// Luanda is UTC+1 with no daylight saving.
	ts, err := ConvertLocalDateTimeToUnixTimestamp("2026-10-17 09:30:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC).Unix(), ts)

	local, err := ConvertUnixTimestampToLocalDateTime(ts)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17 09:30:00", local)
}

func TestConvertLocalDateTimeToUnixTimestamp_Invalid(t *testing.T) {
	_, err := ConvertLocalDateTimeToUnixTimestamp("17/10/2026")
	assert.Error(t, err)
}

func TestConvertDateTimeToHumanReadableFormat(t *testing.T) {
	out, err := ConvertDateTimeToHumanReadableFormat(time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC).Unix())
	require.NoError(t, err)
	assert.Equal(t, "17 October 2026, 09:30 WAT", out)
}
