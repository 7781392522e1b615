package cron_test

import (
	"errors"
	"testing"
	"time"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/cron"
)

func TestParseSchedule(t *testing.T) {
	for _, expr := range []string{"@every 30s", "*/5 * * * *", "@hourly", "0 9 * * 1-5"} {
		if _, err := cron.ParseSchedule(expr); err != nil {
			t.Errorf("ParseSchedule(%q): %v", expr, err)
		}
	}
}

func TestNextRun(t *testing.T) {
	from := time.Date(2024, 3, 15, 10, 7, 30, 0, time.UTC) // a Friday

	tests := []struct {
		expr string
		want time.Time
	}{
		{"@every 30s", from.Add(30 * time.Second)},
		{"*/5 * * * *", time.Date(2024, 3, 15, 10, 10, 0, 0, time.UTC)},
		{"@hourly", time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC)},
		{"0 9 * * 1-5", time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := cron.NextRun(tt.expr, from)
			if err != nil {
				t.Fatalf("NextRun: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextRun(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestNextRun_Invalid(t *testing.T) {
	for _, expr := range []string{"", "not a cron", "61 * * * *", "* * * *"} {
		_, err := cron.NextRun(expr, time.Now())
		if !errors.Is(err, queuectl.ErrInvalidJob) {
			t.Errorf("NextRun(%q) = %v, want ErrInvalidJob", expr, err)
		}
	}
}
