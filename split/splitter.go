// Package split turns documents into bounded-size chunks.
//
// Splitting runs in two phases. Phase one partitions the text at
// structural boundary markers (section headings, coarsest first) and
// records the heading lineage as chunk metadata, stripping the marker
// lines themselves. Phase two splits any oversized structural unit on
// progressively finer separators (paragraphs, lines, words, runes),
// packing greedily up to the size limit with a configurable overlap
// carried into the next chunk. No chunk ever crosses a phase-one
// boundary, and splitting is a pure function of (document, config).
package split

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/docsage/docsage/document"
)

// Marker describes one level of structural boundary. A line whose
// trimmed form starts with Prefix begins a new unit at this level; the
// heading text is stored in chunk metadata under Name.
type Marker struct {
	Name   string
	Prefix string
}

// Config holds splitter parameters. Markers are ordered coarsest first.
type Config struct {
	MaxChunkSize int
	Overlap      int
	Markers      []Marker
}

// ConfigError reports invalid splitter parameters. It is never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("split: invalid config: %s", e.Reason)
}

// Splitter splits documents according to a validated Config.
type Splitter struct {
	cfg Config
}

// Separator levels for phase two, coarsest to finest. The final rune
// level is handled separately by hardSplit.
var separators = []string{"\n\n", "\n", " "}

// New validates the configuration and returns a splitter.
func New(cfg Config) (*Splitter, error) {
	if cfg.MaxChunkSize <= 0 {
		return nil, &ConfigError{Reason: fmt.Sprintf("max chunk size must be positive, got %d", cfg.MaxChunkSize)}
	}
	if cfg.Overlap < 0 {
		return nil, &ConfigError{Reason: fmt.Sprintf("overlap must not be negative, got %d", cfg.Overlap)}
	}
	if cfg.Overlap >= cfg.MaxChunkSize {
		return nil, &ConfigError{Reason: fmt.Sprintf("overlap %d must be less than max chunk size %d", cfg.Overlap, cfg.MaxChunkSize)}
	}
	return &Splitter{cfg: cfg}, nil
}

// unit is a phase-one structural unit: a body of text plus the heading
// lineage that led to it.
type unit struct {
	text    string
	lineage map[string]string
}

// Split produces the ordered chunk sequence for a document.
func (s *Splitter) Split(doc document.Document) ([]document.Chunk, error) {
	units := structuralUnits(doc.Text, s.cfg.Markers, nil)

	var chunks []document.Chunk
	seq := 0
	for _, u := range units {
		body := strings.TrimSpace(u.text)
		if body == "" {
			continue
		}
		for _, piece := range s.sizeSplit(body) {
			if strings.TrimSpace(piece) == "" {
				continue
			}
			chunks = append(chunks, document.NewChunk(doc, piece, u.lineage, seq))
			seq++
		}
	}
	return chunks, nil
}

// structuralUnits recursively partitions text at marker lines, coarsest
// marker first. Lines preceding the first marker form a unit with no
// heading at that level.
func structuralUnits(text string, markers []Marker, lineage map[string]string) []unit {
	if len(markers) == 0 {
		return []unit{{text: text, lineage: copyLineage(lineage)}}
	}

	marker := markers[0]
	lines := strings.Split(text, "\n")

	type section struct {
		heading string
		lines   []string
	}
	sections := []section{{}}
	for _, line := range lines {
		if heading, ok := matchMarker(line, marker); ok {
			sections = append(sections, section{heading: heading})
			continue
		}
		last := &sections[len(sections)-1]
		last.lines = append(last.lines, line)
	}

	var units []unit
	for _, sec := range sections {
		body := strings.Join(sec.lines, "\n")
		if strings.TrimSpace(body) == "" {
			continue
		}
		sub := copyLineage(lineage)
		if sec.heading != "" {
			sub[marker.Name] = sec.heading
		}
		units = append(units, structuralUnits(body, markers[1:], sub)...)
	}
	return units
}

// matchMarker reports whether a line is a boundary at this marker level
// and extracts its heading text. Decorations mirroring the prefix at the
// end of the line ("== Title ==") are stripped as well.
func matchMarker(line string, m Marker) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, m.Prefix) {
		return "", false
	}
	heading := strings.TrimSpace(strings.TrimPrefix(trimmed, m.Prefix))
	if sym := strings.TrimSpace(m.Prefix); sym != "" {
		heading = strings.TrimSpace(strings.TrimSuffix(heading, sym))
	}
	return heading, true
}

// sizeSplit splits one structural unit into pieces no longer than
// MaxChunkSize bytes, trying paragraph breaks before line breaks before
// word boundaries before raw offsets.
func (s *Splitter) sizeSplit(text string) []string {
	return s.recursiveSplit(text, separators)
}

func (s *Splitter) recursiveSplit(text string, seps []string) []string {
	if len(text) <= s.cfg.MaxChunkSize {
		return []string{text}
	}
	if len(seps) == 0 {
		return s.hardSplit(text)
	}

	sep := seps[0]
	parts := strings.Split(text, sep)

	// Runs of fitting parts are packed together; an oversized part falls
	// through to the next separator level and its pieces are emitted
	// as-is. Pieces from the inner level already carry their own overlap,
	// so re-packing them here would duplicate the carried text inside a
	// chunk.
	var pieces []string
	var run []string
	flush := func() {
		pieces = append(pieces, s.pack(run, sep)...)
		run = nil
	}
	for _, p := range parts {
		if len(p) > s.cfg.MaxChunkSize {
			flush()
			pieces = append(pieces, s.recursiveSplit(p, seps[1:])...)
		} else {
			run = append(run, p)
		}
	}
	flush()
	return pieces
}

// pack greedily merges parts into pieces of at most MaxChunkSize bytes.
// When a piece closes, the trailing Overlap bytes are carried into the
// start of the next piece to preserve local context across the boundary.
func (s *Splitter) pack(parts []string, sep string) []string {
	var pieces []string
	cur := ""

	for _, p := range parts {
		if p == "" {
			continue
		}
		if cur == "" {
			cur = p
			continue
		}
		if len(cur)+len(sep)+len(p) <= s.cfg.MaxChunkSize {
			cur = cur + sep + p
			continue
		}

		pieces = append(pieces, cur)
		carry := tail(cur, s.cfg.Overlap)
		if carry != "" && len(carry)+len(sep)+len(p) <= s.cfg.MaxChunkSize {
			cur = carry + sep + p
		} else {
			cur = p
		}
	}
	if strings.TrimSpace(cur) != "" {
		pieces = append(pieces, cur)
	}
	return pieces
}

// hardSplit cuts text into windows of at most MaxChunkSize bytes at raw
// offsets, aligned to rune boundaries, advancing by size minus overlap.
func (s *Splitter) hardSplit(text string) []string {
	step := s.cfg.MaxChunkSize - s.cfg.Overlap

	var pieces []string
	for start := 0; start < len(text); {
		end := start + s.cfg.MaxChunkSize
		if end >= len(text) {
			pieces = append(pieces, text[start:])
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		pieces = append(pieces, text[start:end])

		next := start + step
		for next > start && next < len(text) && !utf8.RuneStart(text[next]) {
			next--
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return pieces
}

// tail returns the last n bytes of text, aligned to a rune boundary.
func tail(text string, n int) string {
	if n <= 0 || text == "" {
		return ""
	}
	if n >= len(text) {
		return text
	}
	start := len(text) - n
	for start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}
	return text[start:]
}

func copyLineage(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
