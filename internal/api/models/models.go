// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"github.com/smazurov/ledsched/internal/logging"
	"github.com/smazurov/ledsched/internal/pattern"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"OS/architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Scheduler models
type SchedulerStatusData struct {
	State         string `json:"state" example:"running" enum:"starting,running,stopped,waiting,paused,unknown" doc:"Scheduler state"`
	PatternID     string `json:"pattern_id,omitempty" doc:"ID of the pattern on display"`
	PatternName   string `json:"pattern_name,omitempty" example:"rainbow" doc:"Name of the pattern on display"`
	Repetition    uint32 `json:"repetition" example:"3" doc:"Repetitions of the current pattern completed so far"`
	Repetitions   uint32 `json:"repetitions" example:"10" doc:"Repetitions requested, 0 means forever"`
	QueueDepth    int    `json:"queue_depth" example:"1" doc:"Patterns waiting in the queue"`
	QueueCapacity int    `json:"queue_capacity" example:"5" doc:"Pattern queue capacity"`
	LedCount      int    `json:"led_count" example:"60" doc:"Number of LEDs on the strip"`
}

type SchedulerStatusResponse struct {
	Body SchedulerStatusData
}

type SchedulerCommandRequest struct {
	Command string `path:"command" enum:"start,stop,pause,resume,reset,clear" doc:"Command to send"`
}

type SchedulerCommandData struct {
	Command string `json:"command" example:"pause" doc:"Command that was queued"`
	Message string `json:"message" example:"command queued" doc:"Status message"`
}

type SchedulerCommandResponse struct {
	Body SchedulerCommandData
}

// Pattern models
type PatternRequest struct {
	Body pattern.Definition
}

type LibraryPatternRequest struct {
	Name string `path:"name" example:"rainbow" doc:"Library pattern name"`
}

type PatternQueuedData struct {
	ID            string `json:"id" doc:"Pattern ID"`
	Name          string `json:"name" example:"rainbow" doc:"Pattern name"`
	Repetitions   uint32 `json:"repetitions" doc:"Repetitions, 0 means forever"`
	Interruptable bool   `json:"interruptable" doc:"Whether a queued pattern may replace it"`
	QueueDepth    int    `json:"queue_depth" doc:"Patterns waiting after this one was queued"`
}

type PatternQueuedResponse struct {
	Body PatternQueuedData
}

type LibraryData struct {
	Patterns []pattern.Definition `json:"patterns" doc:"Pattern definitions in file order"`
	Count    int                  `json:"count" example:"4" doc:"Number of patterns"`
}

type LibraryResponse struct {
	Body LibraryData
}

// LED models
type LedsData struct {
	Colors []string `json:"colors" example:"[\"#ff0000\",\"#000000\"]" doc:"Per-LED colors, empty until the first write"`
	Count  int      `json:"count" example:"60" doc:"Number of LEDs on the strip"`
}

type LedsResponse struct {
	Body LedsData
}

type SetLedsRequest struct {
	Body struct {
		Colors []string `json:"colors" minItems:"1" doc:"Per-LED colors (names, #rrggbb or hsv(h,s,v)); one color fills the strip"`
	}
}

type SetLedRequest struct {
	Index int `path:"index" minimum:"0" doc:"LED index"`
	Body  struct {
		Color string `json:"color" example:"#00ff00" doc:"Color (name, #rrggbb or hsv(h,s,v))"`
	}
}

// Log models
type LogsRequest struct {
	Module string `query:"module" doc:"Only entries from this module"`
	Level  string `query:"level" example:"warn" doc:"Minimum level (debug, info, warn, error)"`
	Limit  int    `query:"limit" minimum:"0" maximum:"1000" doc:"Newest entries to return, 0 for all"`
}

type LogsData struct {
	Entries []logging.LogEntry `json:"entries" doc:"Log entries, oldest first"`
	Count   int                `json:"count" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}

type LogLevelsResponse struct {
	Body struct {
		Levels map[string]string `json:"levels" doc:"Effective level per module"`
	}
}

type SetLogLevelRequest struct {
	Module string `path:"module" example:"scheduler" doc:"Module name"`
	Body   struct {
		Level string `json:"level" enum:"debug,info,warn,error" doc:"New level"`
	}
}
