package model

import (
	"errors"
	"testing"
	"time"
)

// TestCrawlJobValidate tests the limits of a crawl job.
func TestCrawlJobValidate(t *testing.T) {
	t.Parallel()

	valid := CrawlJob{
		StartURL:     "https://example.com",
		MaxDepth:     3,
		MaxPages:     100,
		Delay:        time.Second,
		RobotsStance: RobotsWarn,
	}

	testCases := []struct {
		name    string
		modify  func(j *CrawlJob)
		wantErr error
	}{
		{"valid job", func(_ *CrawlJob) {}, nil},
		{"depth zero is valid", func(j *CrawlJob) { j.MaxDepth = 0 }, nil},
		{"zero delay is valid", func(j *CrawlJob) { j.Delay = 0 }, nil},
		{"empty stance is valid", func(j *CrawlJob) { j.RobotsStance = "" }, nil},
		{"negative depth", func(j *CrawlJob) { j.MaxDepth = -1 }, ErrInvalidMaxDepth},
		{"zero pages", func(j *CrawlJob) { j.MaxPages = 0 }, ErrInvalidMaxPages},
		{"negative delay", func(j *CrawlJob) { j.Delay = -time.Millisecond }, ErrInvalidDelay},
		{"unknown stance", func(j *CrawlJob) { j.RobotsStance = "ignore" }, ErrInvalidRobotsStance},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			job := valid
			tc.modify(&job)

			err := job.Validate()
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

// TestParseRobotsStance tests robots stance parsing.
func TestParseRobotsStance(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected RobotsStance
		wantErr  bool
	}{
		{"", RobotsWarn, false},
		{"warn", RobotsWarn, false},
		{"RESPECT", RobotsRespect, false},
		{" respect ", RobotsRespect, false},
		{"obey", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseRobotsStance(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidRobotsStance) {
					t.Errorf("expected ErrInvalidRobotsStance, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}
