package ingest

// Phase identifies a stage of the ingestion pipeline.
type Phase string

const (
	PhaseParsing   Phase = "parsing"
	PhaseChunking  Phase = "chunking"
	PhaseEmbedding Phase = "embedding"
	PhaseSaving    Phase = "saving"
	PhaseCompleted Phase = "completed"
	PhaseError     Phase = "error"
)

// Progress is a pipeline progress event. Events are fire-and-forget:
// the sink cannot apply backpressure to the pipeline.
type Progress struct {
	Phase   Phase
	Percent int // 0..100, relative to the current phase
	Message string

	// ChunksProcessed and TotalChunks are populated for the embedding
	// and saving phases, and on completion.
	ChunksProcessed int
	TotalChunks     int
}

// ProgressFunc receives progress events. May be nil.
type ProgressFunc func(Progress)
