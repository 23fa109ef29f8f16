package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDate(t *testing.T) {
	cases := goldenTestSuite{
		"default": {Args: []string{"date"}},
		"iso":     {Args: []string{"date", "+%F"}},
		"custom":  {Args: []string{"date", "+%Y-%m-%d %H:%M"}},
		"epoch":   {Args: []string{"date", "+%s"}},
	}

	cases.Run(t, Date)
}

func TestStrftime(t *testing.T) {
	ref := time.Date(2024, 3, 12, 6, 45, 0, 0, time.UTC)

	cases := map[string]struct {
		format string
		want   string
	}{
		"literal":   {"no escapes here", "no escapes here"},
		"iso date":  {"%F", "2024-03-12"},
		"clock":     {"%H:%M:%S", "06:45:00"},
		"names":     {"%A %B", "Tuesday March"},
		"percent":   {"100%%", "100%"},
		"unknown":   {"%q", "%q"},
		"trailing":  {"50%", "50%"},
		"day of yr": {"%j", "072"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, strftime(tc.format, ref))
		})
	}
}
