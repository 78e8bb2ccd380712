package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// Document identifies a chunked document for publishing.
type Document struct {
	Owner       string
	DocID       string
	Filename    string
	Title       string
	ContentHash string
	CreatedAt   time.Time
}

// Meta is the value stored at a document's meta node.
type Meta struct {
	Filename    string          `json:"filename"`
	Title       string          `json:"title"`
	ContentHash string          `json:"content_hash"`
	MethodUsed  doctree.Method  `json:"method_used"`
	TotalChunks int             `json:"total_chunks"`
	Stored      int             `json:"chunks_stored"`
	Summary     doctree.Summary `json:"summary"`
	CreatedAt   string          `json:"created_at"`
}

// chunkNode is the value stored for one chunk.
type chunkNode struct {
	doctree.Chunk
	DocID string `json:"doc_id"`
	Title string `json:"document_title,omitempty"`
}

// Report summarizes one Publish call.
type Report struct {
	Stored int
	Links  int
	Errors []string
}

// Publisher writes chunking results into pathstore: one node per chunk, a
// meta node, a by_hash index entry and a link per resolved cross-reference.
type Publisher struct {
	client      *Client
	concurrency int
	log         *slog.Logger
}

func NewPublisher(client *Client, concurrency int, log *slog.Logger) *Publisher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Publisher{client: client, concurrency: concurrency, log: log}
}

// Client returns the underlying pathstore client.
func (p *Publisher) Client() *Client {
	return p.client
}

// Publish stores res under doc. It fails only when no chunk could be
// stored; individual write failures are listed in the report.
func (p *Publisher) Publish(ctx context.Context, doc Document, res *doctree.ChunkingResult) (Report, error) {
	log := p.log.With("doc_id", doc.DocID, "owner", doc.Owner)
	source := "docchunk:" + doc.DocID

	var (
		mu     sync.Mutex
		report Report
		wg     sync.WaitGroup
	)
	fail := func(msg string) {
		mu.Lock()
		report.Errors = append(report.Errors, msg)
		mu.Unlock()
	}

	sem := make(chan struct{}, p.concurrency)
	stored := make([]bool, len(res.Chunks))
	for i := range res.Chunks {
		c := res.Chunks[i]
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			fail(fmt.Sprintf("chunk %d: %s", c.Index, ctx.Err()))
			continue
		}
		wg.Add(1)
		go func(i int, c doctree.Chunk) {
			defer wg.Done()
			defer func() { <-sem }()
			err := p.client.PutNode(ctx, ChunkKey(doc.Owner, doc.DocID, c.Index), NodeRequest{
				Value:      chunkNode{Chunk: c, DocID: doc.DocID, Title: doc.Title},
				MemoryType: "semantic",
				Salience:   0.3 + 0.5*c.QualityScore,
				Source:     source,
			})
			if err != nil {
				log.Error("chunk store failed", "chunk", c.Index, "error", err)
				fail(fmt.Sprintf("chunk %d: %s", c.Index, err))
				return
			}
			stored[i] = true
		}(i, c)
	}
	wg.Wait()

	for _, ok := range stored {
		if ok {
			report.Stored++
		}
	}
	if report.Stored == 0 && len(res.Chunks) > 0 {
		return report, fmt.Errorf("publish %s: no chunks stored: %s", doc.DocID, report.Errors[0])
	}

	for _, link := range crossLinks(doc, res.Chunks) {
		if !stored[link.from] || !stored[link.to] {
			continue
		}
		err := p.client.PutLink(ctx, LinkRequest{
			From:    ChunkKey(doc.Owner, doc.DocID, res.Chunks[link.from].Index),
			To:      ChunkKey(doc.Owner, doc.DocID, res.Chunks[link.to].Index),
			Weight:  0.5,
			Summary: "references section " + link.ref,
		})
		if err != nil {
			log.Warn("link write failed", "ref", link.ref, "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("link %s: %s", link.ref, err))
			continue
		}
		report.Links++
	}

	meta := Meta{
		Filename:    doc.Filename,
		Title:       doc.Title,
		ContentHash: doc.ContentHash,
		MethodUsed:  res.MethodUsed,
		TotalChunks: len(res.Chunks),
		Stored:      report.Stored,
		Summary:     res.Summary,
		CreatedAt:   doc.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := p.client.PutNode(ctx, MetaKey(doc.Owner, doc.DocID), NodeRequest{
		Value:      meta,
		MemoryType: "metacognitive",
		Salience:   0.5,
		Source:     source,
	}); err != nil {
		log.Error("meta write failed", "error", err)
		report.Errors = append(report.Errors, fmt.Sprintf("meta: %s", err))
	}

	if doc.ContentHash != "" {
		if err := p.client.PutNode(ctx, HashKey(doc.Owner, doc.ContentHash, doc.DocID), NodeRequest{
			Value: map[string]any{
				"filename":   doc.Filename,
				"created_at": meta.CreatedAt,
			},
			MemoryType: "metacognitive",
			Salience:   0.1,
			Source:     source,
		}); err != nil {
			log.Error("hash index write failed", "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("hash index: %s", err))
		}
	}

	log.Info("published document", "stored", report.Stored, "links", report.Links, "errors", len(report.Errors))
	return report, nil
}

type link struct {
	from, to int
	ref      string
}

// crossLinks pairs each reference with the first chunk of the referenced
// section. "5(a)" falls back to section "5" when no chunk carries "5(a)".
func crossLinks(doc Document, chunks []doctree.Chunk) []link {
	first := make(map[string]int)
	for i, c := range chunks {
		if c.SectionNumber == "" {
			continue
		}
		if _, ok := first[c.SectionNumber]; !ok {
			first[c.SectionNumber] = i
		}
	}
	var out []link
	for i, c := range chunks {
		for _, ref := range c.CrossReferences {
			to, ok := first[ref]
			if !ok {
				base, _, _ := strings.Cut(ref, "(")
				to, ok = first[base]
			}
			if !ok || to == i {
				continue
			}
			out = append(out, link{from: i, to: to, ref: ref})
		}
	}
	return out
}

// FindByHash returns the ID of a document already published by owner with
// the given content hash.
func (p *Publisher) FindByHash(ctx context.Context, owner, contentHash string) (string, bool, error) {
	children, err := p.client.ListChildren(ctx, hashPrefix(owner)+"/by_hash/"+contentHash, 1)
	if err != nil {
		return "", false, err
	}
	if len(children) == 0 {
		return "", false, nil
	}
	return lastSegment(children[0].Key), true, nil
}

// ListChunks returns the stored chunks of a document in index order.
func (p *Publisher) ListChunks(ctx context.Context, owner, docID string) ([]doctree.Chunk, error) {
	nodes, err := p.client.ListChildren(ctx, DocumentKey(owner, docID)+"/chunks", 0)
	if err != nil {
		return nil, err
	}
	chunks := make([]doctree.Chunk, 0, len(nodes))
	for _, n := range nodes {
		var c doctree.Chunk
		if err := json.Unmarshal(n.Value, &c); err != nil {
			return nil, fmt.Errorf("decode chunk %s: %w", n.Key, err)
		}
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// ErrNotFound is returned when a document has no meta node.
var ErrNotFound = errors.New("document not found")

// DeleteDocument removes a document's nodes and its by_hash entry.
func (p *Publisher) DeleteDocument(ctx context.Context, owner, docID string) error {
	node, err := p.client.GetNode(ctx, MetaKey(owner, docID))
	if err != nil {
		return err
	}
	if node == nil {
		return ErrNotFound
	}
	var meta Meta
	if err := json.Unmarshal(node.Value, &meta); err != nil {
		return fmt.Errorf("decode meta: %w", err)
	}
	if err := p.client.DeleteNode(ctx, DocumentKey(owner, docID), true); err != nil {
		return err
	}
	if meta.ContentHash != "" {
		if err := p.client.DeleteNode(ctx, HashKey(owner, meta.ContentHash, docID), false); err != nil {
			p.log.Warn("hash index delete failed", "doc_id", docID, "error", err)
		}
	}
	return nil
}
