package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/docchunk/internal/chunker"
	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/parser"
	"github.com/dgallion1/docchunk/internal/pathstore"
	"github.com/dgallion1/docchunk/internal/strategy"
)

var contract = "1. SCOPE\n" +
	strings.Repeat("The supplier shall deliver the goods described in each purchase order on time. ", 3) +
	"\n\n2. PAYMENT\n" +
	strings.Repeat("Invoices are payable within thirty days of receipt by the buyer. ", 3) + "\n"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newChunker() *strategy.Orchestrator {
	return strategy.New(strategy.DefaultConfig(), chunker.New(chunker.DefaultConfig()), nil, testLogger())
}

type fakeSink struct {
	mu        sync.Mutex
	existing  string
	findErr   error
	report    func(res *doctree.ChunkingResult) (pathstore.Report, error)
	published []pathstore.Document
}

func (s *fakeSink) FindByHash(_ context.Context, _, _ string) (string, bool, error) {
	return s.existing, s.existing != "", s.findErr
}

func (s *fakeSink) Publish(_ context.Context, doc pathstore.Document, res *doctree.ChunkingResult) (pathstore.Report, error) {
	s.mu.Lock()
	s.published = append(s.published, doc)
	s.mu.Unlock()
	if s.report != nil {
		return s.report(res)
	}
	return pathstore.Report{Stored: len(res.Chunks)}, nil
}

type countingChunker struct {
	calls int32
	inner Chunker
}

func (c *countingChunker) Run(ctx context.Context, docID string, src doctree.Source) (*doctree.ChunkingResult, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.inner.Run(ctx, docID, src)
}

func TestWorkerCompletes(t *testing.T) {
	sink := &fakeSink{}
	w := NewWorker(newChunker(), sink, parser.Options{}, testLogger())
	job := NewJob("alice", "", "contract.txt", "", []byte(contract))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted || snap.Phase != "done" {
		t.Fatalf("status = %s/%s errors=%v", snap.Status, snap.Phase, snap.Progress.Errors)
	}
	res := job.Result()
	if res == nil || len(res.Chunks) == 0 {
		t.Fatal("expected chunking result")
	}
	if snap.DocID == "" || snap.DocID != res.DocumentID {
		t.Errorf("doc id = %q, result = %q", snap.DocID, res.DocumentID)
	}
	if snap.Progress.ChunksStored != len(res.Chunks) || snap.Progress.MethodUsed != doctree.MethodStructural {
		t.Errorf("progress = %+v", snap.Progress)
	}
	if len(sink.published) != 1 {
		t.Fatalf("published %d times", len(sink.published))
	}
	doc := sink.published[0]
	if doc.Owner != "alice" || doc.Title != "contract" || doc.ContentHash != snap.ContentHash || doc.ContentHash == "" {
		t.Errorf("published doc = %+v", doc)
	}
	if job.FileData() != nil {
		t.Error("upload should be released after parsing")
	}
}

func TestWorkerKeepsCallerDocID(t *testing.T) {
	sink := &fakeSink{}
	w := NewWorker(newChunker(), sink, parser.Options{}, testLogger())
	job := NewJob("alice", "my-doc", "contract.txt", "Supply Contract", []byte(contract))

	w.Process(context.Background(), job)

	if job.Snapshot().DocID != "my-doc" || job.Result().DocumentID != "my-doc" {
		t.Errorf("doc id = %q", job.Snapshot().DocID)
	}
	if sink.published[0].Title != "Supply Contract" {
		t.Errorf("title = %q", sink.published[0].Title)
	}
}

func TestWorkerSkipsDuplicates(t *testing.T) {
	sink := &fakeSink{existing: "old-doc"}
	c := &countingChunker{inner: newChunker()}
	w := NewWorker(c, sink, parser.Options{}, testLogger())

	job := NewJob("alice", "", "contract.txt", "", []byte(contract))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusDupSkipped || snap.Progress.DuplicateOf != "old-doc" {
		t.Errorf("snapshot = %+v", snap)
	}
	if c.calls != 0 || len(sink.published) != 0 {
		t.Errorf("duplicate should not be chunked or published")
	}

	forced := NewJob("alice", "", "contract.txt", "", []byte(contract))
	forced.Force = true
	w.Process(context.Background(), forced)
	if forced.Snapshot().Status != StatusCompleted || c.calls != 1 {
		t.Errorf("forced job status = %s, chunker calls = %d", forced.Snapshot().Status, c.calls)
	}
}

func TestWorkerDedupErrorProceeds(t *testing.T) {
	sink := &fakeSink{findErr: errors.New("pathstore down")}
	w := NewWorker(newChunker(), sink, parser.Options{}, testLogger())
	job := NewJob("alice", "", "contract.txt", "", []byte(contract))

	w.Process(context.Background(), job)
	if job.Snapshot().Status != StatusCompleted {
		t.Errorf("status = %s", job.Snapshot().Status)
	}
}

func TestWorkerFailures(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		data      string
		report    func(*doctree.ChunkingResult) (pathstore.Report, error)
		wantState JobStatus
		wantPhase string
		wantErr   string
	}{
		{
			name: "unsupported format", filename: "a.exe", data: contract,
			wantState: StatusFailed, wantPhase: "parsing", wantErr: "parse:",
		},
		{
			name: "empty document", filename: "a.txt", data: " \n\n ",
			wantState: StatusFailed, wantPhase: "chunking", wantErr: "no extractable content",
		},
		{
			name: "partial publish", filename: "a.txt", data: contract,
			report: func(res *doctree.ChunkingResult) (pathstore.Report, error) {
				return pathstore.Report{Stored: len(res.Chunks), Errors: []string{"meta: boom"}}, nil
			},
			wantState: StatusPartial, wantPhase: "done", wantErr: "meta: boom",
		},
		{
			name: "publish failed", filename: "a.txt", data: contract,
			report: func(*doctree.ChunkingResult) (pathstore.Report, error) {
				return pathstore.Report{}, errors.New("no chunks stored")
			},
			wantState: StatusFailed, wantPhase: "publishing", wantErr: "no chunks stored",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorker(newChunker(), &fakeSink{report: tt.report}, parser.Options{}, testLogger())
			job := NewJob("bob", "", tt.filename, "", []byte(tt.data))
			w.Process(context.Background(), job)

			snap := job.Snapshot()
			if snap.Status != tt.wantState || snap.Phase != tt.wantPhase {
				t.Errorf("status = %s/%s, want %s/%s", snap.Status, snap.Phase, tt.wantState, tt.wantPhase)
			}
			if !strings.Contains(strings.Join(snap.Progress.Errors, "|"), tt.wantErr) {
				t.Errorf("errors = %v, want %q", snap.Progress.Errors, tt.wantErr)
			}
		})
	}
}

func TestWorkerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := NewWorker(newChunker(), &fakeSink{}, parser.Options{}, testLogger())
	job := NewJob("bob", "", "a.txt", "", []byte(contract))

	w.Process(ctx, job)
	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "cancelled" {
		t.Errorf("status = %s/%s", snap.Status, snap.Phase)
	}
}

func waitTerminal(t *testing.T, job *Job) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snap := job.Snapshot(); snap.Status.Terminal() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", job.ID)
	return JobSnapshot{}
}

func TestOrchestratorProcessesJobs(t *testing.T) {
	sink := &fakeSink{}
	o := NewOrchestrator(Options{Workers: 2, QueueSize: 4}, newChunker(), sink, testLogger())
	o.Start(context.Background())
	defer o.Stop()

	var jobs []*Job
	for i := 0; i < 3; i++ {
		job := NewJob("carol", "", "contract.txt", "", []byte(contract))
		job.Force = true
		if err := o.Submit(job); err != nil {
			t.Fatal(err)
		}
		jobs = append(jobs, job)
	}
	for _, job := range jobs {
		if snap := waitTerminal(t, job); snap.Status != StatusCompleted {
			t.Errorf("job %s status = %s", job.ID, snap.Status)
		}
		if o.GetJob(job.ID) != job {
			t.Errorf("GetJob(%s) mismatch", job.ID)
		}
	}
	if o.GetJob("missing") != nil {
		t.Error("expected nil for unknown job")
	}
}

func TestOrchestratorQueueFull(t *testing.T) {
	o := NewOrchestrator(Options{Workers: 1, QueueSize: 1}, newChunker(), &fakeSink{}, testLogger())

	first := NewJob("dave", "", "a.txt", "", []byte(contract))
	if err := o.Submit(first); err != nil {
		t.Fatal(err)
	}
	second := NewJob("dave", "", "b.txt", "", []byte(contract))
	err := o.Submit(second)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Submit() = %v, want ErrQueueFull", err)
	}
	if snap := second.Snapshot(); snap.Status != StatusFailed || snap.Phase != "queue_full" {
		t.Errorf("rejected job = %s/%s", snap.Status, snap.Phase)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("QueueDepth() = %d", o.QueueDepth())
	}
	o.Stop()
	o.Stop()
}
