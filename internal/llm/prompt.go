package llm

import (
	"fmt"
	"strings"
)

const chunkingPrompt = `Split the following document into retrieval chunks for a search index. Return a JSON array in document order. Each element must have these fields:

- "content": the exact text of the chunk, copied verbatim from the document (string)
- "section_label": the section number or heading the chunk belongs to, e.g. "3.2" or "PAYMENT" (string, may be empty)
- "semantic_theme": a short phrase naming what the chunk is about (string, max 60 chars)
- "confidence": how sure you are the chunk is self-contained, from 0.0 to 1.0 (float)

Rules:
- Copy text exactly. Do not summarize, reorder, or rewrite.
- Every part of the document must appear in exactly one chunk.
- Aim for chunks of %d to %d characters.`

const structureRules = `
- Never split a numbered clause, a list item, or its nested sub-items across chunks.
- Prefer chunk boundaries at section and subsection headings.`

// BuildChunkingPrompt creates the full prompt for one proposal request.
func BuildChunkingPrompt(req ProposalRequest, minChars, maxChars int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(chunkingPrompt, minChars, maxChars))
	if req.PreserveStructure {
		sb.WriteString(structureRules)
	}
	sb.WriteString("\n\nRespond with ONLY the JSON array, no other text.")
	sb.WriteString("\n\n---\n")
	if req.DocumentType != "" {
		sb.WriteString(fmt.Sprintf("Document type: %s\n", req.DocumentType))
		sb.WriteString("---\n")
	}
	sb.WriteString(req.Text)
	return sb.String()
}
