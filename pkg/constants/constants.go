// Package constants defines shared defaults for the freetime application.
package constants

import "time"

// Search defaults.
const (
	DefaultTimezone          = "Asia/Tokyo"
	DefaultBusinessStartHour = 10
	DefaultBusinessEndHour   = 18
	DefaultBufferMinutes     = 30
	DefaultMinHours          = 1.0
	DefaultDaysAhead         = 14
)

// Calendar defaults.
const (
	DefaultCalendarID       = "primary"
	DefaultClientSecretFile = "client_secret.json"
	DefaultTokenFileName    = "freetime.json"
	DefaultHolidaySource    = "google"
	DefaultWeekdayLanguage  = "ja"
	DefaultOutputFormat     = "text"
	HolidayCacheTTL         = 7 * 24 * time.Hour
	HolidayCacheDirName     = "freetime"
)
