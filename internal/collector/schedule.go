// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package collector

import "time"

// mostRecentMonthlySlot returns the latest monthly schedule slot that is not
// after now. Days beyond the length of a month clamp to that month's last
// day.
func mostRecentMonthlySlot(now time.Time, dayOfMonth, hour int) time.Time {
	slot := monthlySlotIn(now.Year(), now.Month(), dayOfMonth, hour, now.Location())
	if slot.After(now) {
		// last day of the previous month avoids AddDate normalization artifacts
		previous := now.AddDate(0, 0, -now.Day())
		slot = monthlySlotIn(previous.Year(), previous.Month(), dayOfMonth, hour, now.Location())
	}
	return slot
}

func monthlySlotIn(year int, month time.Month, dayOfMonth, hour int, loc *time.Location) time.Time {
	if last := lastDayOfMonth(year, month); dayOfMonth > last {
		dayOfMonth = last
	}
	return time.Date(year, month, dayOfMonth, hour, 0, 0, 0, loc)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// mostRecentWeeklySlot returns the latest weekly schedule slot that is not
// after now.
func mostRecentWeeklySlot(now time.Time, weekday time.Weekday, hour int) time.Time {
	daysBack := int(now.Weekday() - weekday)
	if daysBack < 0 {
		daysBack += 7
	}
	slot := time.Date(now.Year(), now.Month(), now.Day()-daysBack, hour, 0, 0, 0, now.Location())
	if slot.After(now) {
		slot = slot.AddDate(0, 0, -7)
	}
	return slot
}
