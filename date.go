package sdfat

import (
	"time"
)

// bitField is one part of a packed 16 bit FAT date or time stamp.
type bitField struct {
	shift uint
	mask  uint16
}

func (b bitField) get(v uint16) int {
	return int((v >> b.shift) & b.mask)
}

func (b bitField) set(x int) uint16 {
	return (uint16(x) & b.mask) << b.shift
}

// Layout of the date stamp, bit 0 is the LSB:
//  Bits 0-4:  day of month, 1-31
//  Bits 5-8:  month of year, 1-12
//  Bits 9-15: years since 1980, 0-127 (1980-2107)
// And of the time stamp, with a granularity of 2 seconds:
//  Bits 0-4:   2 second count, 0-29 (0-58 seconds)
//  Bits 5-10:  minutes, 0-59
//  Bits 11-15: hours, 0-23
var (
	dateDay   = bitField{shift: 0, mask: 0x1F}
	dateMonth = bitField{shift: 5, mask: 0x0F}
	dateYear  = bitField{shift: 9, mask: 0x7F}

	timeSeconds = bitField{shift: 0, mask: 0x1F}
	timeMinutes = bitField{shift: 5, mask: 0x3F}
	timeHours   = bitField{shift: 11, mask: 0x1F}
)

const (
	dateEpochYear = 1980
	dateMaxYear   = dateEpochYear + 0x7F
)

// ParseDate decodes a FAT date stamp. The result always has a time of 00:00:00 UTC.
//
// Day or month 0 is invalid, time.Time{} is returned in that case so time.Time.IsZero() can be used.
// A month bigger than 12 is not valid either, it is normalized by time.Date into the next year.
func ParseDate(input uint16) time.Time {
	day, month := dateDay.get(input), dateMonth.get(input)
	if day == 0 || month == 0 {
		return time.Time{}
	}

	return time.Date(dateEpochYear+dateYear.get(input), time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ParseTime decodes a FAT time stamp. The result is on January 1, year 1, so midnight is
// time.Time.IsZero().
//
// Out of range values are added to the time, but the result is limited to 23:59:59.
func ParseTime(input uint16) time.Time {
	result := time.Date(1, 1, 1, timeHours.get(input), timeMinutes.get(input), timeSeconds.get(input)*2, 0, time.UTC)

	if result.Day() > 1 {
		return time.Date(1, 1, 1, 23, 59, 59, 0, time.UTC)
	}

	return result
}

// FormatDate encodes the date of t as FAT date stamp.
// Dates before 1980 result in 0 which ParseDate reads as invalid, dates after 2107 are clamped.
func FormatDate(t time.Time) uint16 {
	year, month, day := t.Date()
	switch {
	case year < dateEpochYear:
		return 0
	case year > dateMaxYear:
		year, month, day = dateMaxYear, time.December, 31
	}

	return dateYear.set(year-dateEpochYear) | dateMonth.set(int(month)) | dateDay.set(day)
}

// FormatTime encodes the time of day of t as FAT time stamp. Odd seconds are rounded down.
func FormatTime(t time.Time) uint16 {
	return timeHours.set(t.Hour()) | timeMinutes.set(t.Minute()) | timeSeconds.set(t.Second()/2)
}
