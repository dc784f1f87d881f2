package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab_borrow_portal/lifecycle"
)

func Test_Load_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LAB_TIMEZONE", "UTC")
	t.Setenv("REQUEST_STORE", "")
	t.Setenv("LAB_UNAVAILABLE", "")
	t.Setenv("LAB_OPEN", "")
	t.Setenv("LAB_CLOSE", "")
	t.Setenv("SESSION_TTL_SECONDS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.RequestStore)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, lifecycle.DefaultLabHours(), cfg.LabHours)
	assert.Contains(t, cfg.DatabaseURL, "sslmode=")
}

func Test_Load_LabHoursOverride(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LAB_TIMEZONE", "UTC")
	t.Setenv("LAB_OPEN", "08:00")
	t.Setenv("LAB_CLOSE", "18:00")
	t.Setenv("LAB_UNAVAILABLE", "12:00-13:00, 15:30-16:00")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Clock(8*60), cfg.LabHours.Open)
	assert.Equal(t, lifecycle.Clock(18*60), cfg.LabHours.Close)
	assert.Equal(t, []lifecycle.Period{
		{Start: 12 * 60, End: 13 * 60},
		{Start: 15*60 + 30, End: 16 * 60},
	}, cfg.LabHours.Unavailable)

	t.Setenv("LAB_UNAVAILABLE", "-")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.LabHours.Unavailable)
}

func Test_Load_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret": {"JWT_SECRET": ""},
		"bad store":      {"REQUEST_STORE": "sqlite"},
		"bad ttl":        {"SESSION_TTL_SECONDS": "soon"},
		"bad timezone":   {"LAB_TIMEZONE": "Mars/Olympus"},
		"bad period":     {"LAB_UNAVAILABLE": "10:00-09:00"},
		"close <= open":  {"LAB_OPEN": "18:00", "LAB_CLOSE": "08:00"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			t.Setenv("LAB_TIMEZONE", "UTC")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func Test_IsAdminEmail(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LAB_TIMEZONE", "UTC")
	t.Setenv("ADMIN_EMAILS", " Boss@Lab.edu ,ops@lab.edu,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"boss@lab.edu", "ops@lab.edu"}, cfg.AdminEmails)
	assert.True(t, cfg.IsAdminEmail("BOSS@lab.edu"))
	assert.False(t, cfg.IsAdminEmail("someone@lab.edu"))
}

func Test_CORSOrigins(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LAB_TIMEZONE", "UTC")
	t.Setenv("WEB_ORIGIN", "https://portal.lab.edu/")
	t.Setenv("CORS_ORIGINS", "https://portal.lab.edu, http://localhost:5173")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://portal.lab.edu", "http://localhost:5173"}, cfg.CORSOrigins())
}
