package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/parser"
	"github.com/dgallion1/docchunk/internal/pathstore"
	"github.com/dgallion1/docchunk/internal/strategy"
)

// Chunker turns extracted text into a ChunkingResult.
type Chunker interface {
	Run(ctx context.Context, docID string, src doctree.Source) (*doctree.ChunkingResult, error)
}

// Sink stores chunking results and answers duplicate lookups.
type Sink interface {
	FindByHash(ctx context.Context, owner, contentHash string) (string, bool, error)
	Publish(ctx context.Context, doc pathstore.Document, res *doctree.ChunkingResult) (pathstore.Report, error)
}

// Worker processes a single document job.
type Worker struct {
	chunker    Chunker
	sink       Sink
	parserOpts parser.Options
	log        *slog.Logger
}

func NewWorker(chunker Chunker, sink Sink, parserOpts parser.Options, log *slog.Logger) *Worker {
	return &Worker{
		chunker:    chunker,
		sink:       sink,
		parserOpts: parserOpts,
		log:        log,
	}
}

// Process runs parse, dedup, chunk and publish for a job. The job ends in a
// terminal status whatever happens.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "user_id", job.UserID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	src, err := parser.Parse(bytes.NewReader(job.FileData()), job.Filename, w.parserOpts)
	job.releaseData()
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if job.Title != "" {
		src.Title = job.Title
	}
	hash := ContentHashHex([]byte(src.Text))
	job.SetContentHash(hash)

	// Phase 1.5: Dedup check
	if !job.Force {
		existing, ok, err := w.sink.FindByHash(ctx, job.UserID, hash)
		switch {
		case err != nil:
			log.Warn("dedup check failed, proceeding", "error", err)
		case ok:
			log.Info("duplicate document, skipping", "existing_doc_id", existing)
			job.MarkDuplicate(existing)
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		}
	}

	// Phase 2: Chunk
	job.SetStatus(StatusChunking, "chunking")
	res, err := w.chunker.Run(ctx, job.DocID, *src)
	if err != nil {
		phase := "chunking"
		if errors.Is(err, strategy.ErrEmptyInput) {
			err = errors.New("no extractable content")
		}
		if ctx.Err() != nil {
			phase = "cancelled"
		}
		log.Error("chunking failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, phase)
		return
	}
	if job.DocID == "" {
		job.SetDocID(res.DocumentID)
	}
	job.SetResult(res)
	log = log.With("doc_id", res.DocumentID)
	log.Info("chunked document", "chunks", len(res.Chunks), "method", res.MethodUsed)

	// Phase 3: Publish
	job.SetStatus(StatusPublishing, "publishing")
	report, err := w.sink.Publish(ctx, pathstore.Document{
		Owner:       job.UserID,
		DocID:       res.DocumentID,
		Filename:    job.Filename,
		Title:       src.Title,
		ContentHash: hash,
		CreatedAt:   job.CreatedAt,
	}, res)
	job.AddStored(report.Stored, report.Links)
	for _, e := range report.Errors {
		job.AddError(e)
	}
	switch {
	case err != nil:
		log.Error("publish failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "publishing")
	case len(report.Errors) > 0:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusCompleted, "done")
	}
}
