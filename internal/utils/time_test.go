package contextutils

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"dailyquiz/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupWithTimezone(tz string) UserLookup {
	return func(_ context.Context, _ int) (*models.User, error) {
		user := &models.User{ID: 1}
		if tz != "" {
			user.Timezone = sql.NullString{String: tz, Valid: true}
		}
		return user, nil
	}
}

func TestParseDateInUserTimezone(t *testing.T) {
	ctx := context.Background()

	parsed, err := ParseDateInUserTimezone(ctx, 1, "2025-03-15", lookupWithTimezone("America/New_York"))
	require.NoError(t, err)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, loc), parsed)
}

func TestParseDateInUserTimezone_FallsBackToUTC(t *testing.T) {
	ctx := context.Background()

	parsed, err := ParseDateInUserTimezone(ctx, 1, "2025-03-15", lookupWithTimezone(""))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), parsed)
}

func TestParseDateInUserTimezone_BadTimezoneFallsBackToUTC(t *testing.T) {
	ctx := context.Background()

	parsed, err := ParseDateInUserTimezone(ctx, 1, "2025-03-15", lookupWithTimezone("Not/AZone"))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, parsed.Location())
}

func TestParseDateInUserTimezone_InvalidDate(t *testing.T) {
	ctx := context.Background()

	_, err := ParseDateInUserTimezone(ctx, 1, "15-03-2025", lookupWithTimezone(""))
	require.Error(t, err)
	assert.True(t, IsError(err, ErrInvalidInput))
}

func TestUserLocalToday(t *testing.T) {
	ctx := context.Background()

	// 23:30 UTC is already the next morning in Tokyo.
	now := time.Date(2025, 3, 15, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-16", UserLocalToday(ctx, 1, now, lookupWithTimezone("Asia/Tokyo")))
	assert.Equal(t, "2025-03-15", UserLocalToday(ctx, 1, now, lookupWithTimezone("")))
}
