package ai

import "context"

// Analyzer produces an AnalysisResult JSON string for a transcript.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (string, error)
}

// Transcriber turns recorded call audio into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}
