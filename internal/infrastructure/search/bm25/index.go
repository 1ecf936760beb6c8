package bm25

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/agri-assistant/internal/core/domain"
)

const (
	defaultK1 = 1.5
	defaultB  = 0.75
)

// Document is one corpus chunk with its provenance.
type Document struct {
	Content string
	Source  string
}

// Index is an immutable BM25 term-frequency index over a fixed document
// collection. It is built once at startup and is safe for concurrent reads.
type Index struct {
	docs      []Document
	termFreqs []map[string]int
	docLens   []int
	avgDocLen float64
	idf       map[string]float64
	k1        float64
	b         float64
}

func NewIndex(docs []Document) *Index {
	idx := &Index{
		docs:      docs,
		termFreqs: make([]map[string]int, len(docs)),
		docLens:   make([]int, len(docs)),
		idf:       make(map[string]float64),
		k1:        defaultK1,
		b:         defaultB,
	}

	totalLen := 0
	docCount := make(map[string]int)
	for i, doc := range docs {
		terms := tokenize(doc.Content)
		freq := make(map[string]int, len(terms))
		for _, term := range terms {
			freq[term]++
		}
		idx.termFreqs[i] = freq
		idx.docLens[i] = len(terms)
		totalLen += len(terms)

		for term := range freq {
			docCount[term]++
		}
	}
	if len(docs) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(docs))
	}

	n := float64(len(docs))
	for term, df := range docCount {
		idx.idf[term] = math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
	}
	return idx
}

func (idx *Index) Size() int {
	return len(idx.docs)
}

// Search scores every chunk against the query tokens and returns the topK
// best matches, highest first. Chunks with a non-positive score never appear:
// the positive cutoff separates "no lexical match" from "weak match".
func (idx *Index) Search(tokens []string, topK int) []domain.RankedDocument {
	if len(tokens) == 0 || len(idx.docs) == 0 || topK <= 0 {
		return nil
	}

	type scored struct {
		doc   int
		score float64
	}
	matches := make([]scored, 0, len(idx.docs))
	for i := range idx.docs {
		score := idx.scoreDoc(i, tokens)
		if score > 0 {
			matches = append(matches, scored{doc: i, score: score})
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}

	out := make([]domain.RankedDocument, 0, len(matches))
	for _, m := range matches {
		out = append(out, domain.RankedDocument{
			Content:  idx.docs[m.doc].Content,
			Metadata: map[string]string{"source": idx.docs[m.doc].Source},
		})
	}
	return out
}

func (idx *Index) scoreDoc(doc int, tokens []string) float64 {
	freq := idx.termFreqs[doc]
	lenNorm := 1 - idx.b + idx.b*float64(idx.docLens[doc])/idx.avgDocLen

	score := 0.0
	for _, token := range tokens {
		tf := float64(freq[token])
		if tf == 0 {
			continue
		}
		score += idx.idf[token] * (tf * (idx.k1 + 1)) / (tf + idx.k1*lenNorm)
	}
	return score
}

// tokenize must agree with the query tokenizer in the retrieval engine:
// lowercase runs of letters and digits.
func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 32)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
