// Package metrics records per-stage release outcomes.
package metrics

import (
	"time"

	"github.com/jmcdonald/wprelease/internal/artifact"
)

// Recorder receives stage outcomes and produced artifacts.
type Recorder interface {
	// RecordStage records one stage run. err is nil on success.
	RecordStage(stage string, err error, duration time.Duration)

	// RecordArtifact records an archive produced by the release.
	RecordArtifact(a *artifact.Artifact)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

// RecordStage does nothing.
func (NoopRecorder) RecordStage(string, error, time.Duration) {}

// RecordArtifact does nothing.
func (NoopRecorder) RecordArtifact(*artifact.Artifact) {}

var _ Recorder = NoopRecorder{}
