package embedder

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	defaultMaxSeqLen = 128
	maxWordRunes     = 200
	unkToken         = "[UNK]"
)

// wordPiece is an uncased BERT tokenizer backed by a vocab.txt file, where
// the zero-based line number of each token is its id.
type wordPiece struct {
	ids    map[string]int64
	unk    int64
	cls    int64
	sep    int64
	maxLen int
}

// encoded holds row-major [rows*cols] model inputs.
type encoded struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	rows          int64
	cols          int64
}

func loadWordPiece(path string, maxLen int) (*wordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()

	ids := make(map[string]int64, 32000)
	var n int64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		ids[sc.Text()] = n
		n++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read %s: %w", path, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("vocab: file is empty: %s", path)
	}

	wp := &wordPiece{ids: ids, maxLen: maxLen}
	for _, special := range []struct {
		token string
		dest  *int64
	}{
		{unkToken, &wp.unk},
		{"[CLS]", &wp.cls},
		{"[SEP]", &wp.sep},
	} {
		id, ok := ids[special.token]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special token %s", special.token)
		}
		*special.dest = id
	}
	if _, ok := ids["[PAD]"]; !ok {
		return nil, fmt.Errorf("vocab: missing special token [PAD]")
	}
	return wp, nil
}

// encode returns [CLS] ids... [SEP], truncated to maxLen.
func (w *wordPiece) encode(text string) []int64 {
	pieces := w.split(text)
	if limit := w.maxLen - 2; len(pieces) > limit {
		pieces = pieces[:limit]
	}
	ids := make([]int64, 0, len(pieces)+2)
	ids = append(ids, w.cls)
	for _, p := range pieces {
		ids = append(ids, w.id(p))
	}
	return append(ids, w.sep)
}

// encodeBatch encodes texts and pads every row to the longest one.
// Padding uses id 0 with mask 0; token type ids are all zero.
func (w *wordPiece) encodeBatch(texts []string) encoded {
	rows := make([][]int64, len(texts))
	var cols int
	for i, t := range texts {
		rows[i] = w.encode(t)
		cols = max(cols, len(rows[i]))
	}

	e := encoded{
		inputIDs:      make([]int64, len(texts)*cols),
		attentionMask: make([]int64, len(texts)*cols),
		tokenTypeIDs:  make([]int64, len(texts)*cols),
		rows:          int64(len(texts)),
		cols:          int64(cols),
	}
	for i, ids := range rows {
		base := i * cols
		copy(e.inputIDs[base:], ids)
		for j := range ids {
			e.attentionMask[base+j] = 1
		}
	}
	return e
}

func (w *wordPiece) id(token string) int64 {
	if id, ok := w.ids[token]; ok {
		return id
	}
	return w.unk
}

// split runs basic tokenisation followed by greedy longest-match-first
// subword decomposition.
func (w *wordPiece) split(text string) []string {
	var out []string
	for _, word := range basicTokens(text) {
		out = append(out, w.subwords(word)...)
	}
	return out
}

func (w *wordPiece) subwords(word string) []string {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []string{unkToken}
	}

	var pieces []string
	for start := 0; start < len(runes); {
		end := len(runes)
		var piece string
		for ; end > start; end-- {
			candidate := string(runes[start:end])
			if start > 0 {
				candidate = "##" + candidate
			}
			if _, ok := w.ids[candidate]; ok {
				piece = candidate
				break
			}
		}
		if piece == "" {
			return []string{unkToken}
		}
		pieces = append(pieces, piece)
		start = end
	}
	return pieces
}

// basicTokens cleans, lower-cases and strips accents from text, isolates CJK
// ideographs, then splits on whitespace and punctuation (punctuation is kept
// as separate tokens).
func basicTokens(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
		case isSpace(r):
			b.WriteByte(' ')
		case isCJK(r):
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}

	folded := stripAccents(strings.ToLower(b.String()))

	var tokens []string
	for _, field := range strings.Fields(folded) {
		start := 0
		for i, r := range field {
			if !isPunct(r) {
				continue
			}
			if i > start {
				tokens = append(tokens, field[start:i])
			}
			tokens = append(tokens, string(r))
			start = i + len(string(r))
		}
		if start < len(field) {
			tokens = append(tokens, field[start:])
		}
	}
	return tokens
}

func stripAccents(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

// isPunct treats all non-alphanumeric ASCII symbols as punctuation, as BERT does.
func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r)
}
