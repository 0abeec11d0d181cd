package contextutils

import (
	"context"
	"time"

	"dailyquiz/internal/models"
)

// UserLookup resolves a user by ID. Injected to avoid a dependency on the
// user service from this package.
type UserLookup func(ctx context.Context, userID int) (*models.User, error)

// userLocation returns the user's IANA timezone location, falling back to UTC
// when the user has no timezone set or the name does not parse.
func userLocation(ctx context.Context, userID int, lookup UserLookup) *time.Location {
	if lookup == nil {
		return time.UTC
	}
	user, err := lookup(ctx, userID)
	if err != nil || user == nil || !user.Timezone.Valid || user.Timezone.String == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(user.Timezone.String)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseDateInUserTimezone parses a YYYY-MM-DD date string as midnight in the
// user's timezone, falling back to UTC.
func ParseDateInUserTimezone(ctx context.Context, userID int, dateStr string, lookup UserLookup) (time.Time, error) {
	loc := userLocation(ctx, userID, lookup)
	t, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return time.Time{}, WrapErrorf(ErrInvalidInput, "invalid date %q", dateStr)
	}
	return t, nil
}

// UserLocalToday returns today's date string (YYYY-MM-DD) in the user's timezone.
func UserLocalToday(ctx context.Context, userID int, now time.Time, lookup UserLookup) string {
	loc := userLocation(ctx, userID, lookup)
	return now.In(loc).Format("2006-01-02")
}
