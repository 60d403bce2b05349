package utils

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// ProviderTimeZone is the zone reference gateways use for local datetimes.
const ProviderTimeZone = "Africa/Luanda"

func ConvertDateTimeToHumanReadableFormat(datetime int64) (string, error) {
	location, err := time.LoadLocation(ProviderTimeZone)
	if err != nil {
		return "", fmt.Errorf("error loading %s time zone: %w", ProviderTimeZone, err)
	}

	t := time.Unix(datetime, 0).In(location)

	return t.Format("02 January 2006, 15:04 MST"), nil
}

func ConvertLocalDateTimeToUnixTimestamp(localTime string) (int64, error) {
	location, err := time.LoadLocation(ProviderTimeZone)
	if err != nil {
		return 0, fmt.Errorf("error loading %s time zone: %w", ProviderTimeZone, err)
	}

	t, err := time.ParseInLocation(time.DateTime, localTime, location)
	if err != nil {
		return 0, fmt.Errorf("error parsing time: %w", err)
	}

	return t.Unix(), nil
}

func ConvertUnixTimestampToLocalDateTime(timestamp int64) (string, error) {
	location, err := time.LoadLocation(ProviderTimeZone)
	if err != nil {
		return "", fmt.Errorf("error loading %s time zone: %w", ProviderTimeZone, err)
	}

	return time.Unix(timestamp, 0).In(location).Format(time.DateTime), nil
}
