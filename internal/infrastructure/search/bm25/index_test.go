package bm25

import (
	"reflect"
	"testing"
)

func testCorpus() []Document {
	return []Document{
		{Content: "Citrus canker causes raised lesions on leaves and fruit", Source: "diseases.pdf"},
		{Content: "Powdery mildew coats leaves in white fungal growth", Source: "diseases.pdf"},
		{Content: "Canker bacteria spread through rain splash and wind", Source: "diseases.pdf"},
		{Content: "Drip irrigation subsidy covers 50 percent of installation cost", Source: "schemes.pdf"},
	}
}

func TestSearchRanksMatchingChunksFirst(t *testing.T) {
	idx := NewIndex(testCorpus())

	docs := idx.Search([]string{"citrus", "canker"}, 5)
	if len(docs) != 2 {
		t.Fatalf("expected 2 matching chunks, got %d", len(docs))
	}
	if docs[0].Content != "Citrus canker causes raised lesions on leaves and fruit" {
		t.Fatalf("expected the chunk matching both terms first, got %q", docs[0].Content)
	}
	for _, doc := range docs {
		if doc.Source() != "diseases.pdf" {
			t.Fatalf("unexpected source %q", doc.Source())
		}
	}
}

func TestSearchExcludesNonMatchingChunks(t *testing.T) {
	idx := NewIndex(testCorpus())

	docs := idx.Search([]string{"blockchain"}, 5)
	if docs != nil {
		t.Fatalf("expected no results for unmatched query, got %v", docs)
	}
}

func TestSearchHonorsTopK(t *testing.T) {
	idx := NewIndex(testCorpus())

	docs := idx.Search([]string{"leaves", "canker", "subsidy"}, 2)
	if len(docs) != 2 {
		t.Fatalf("expected topK=2 results, got %d", len(docs))
	}
}

func TestSearchEmptyInputs(t *testing.T) {
	idx := NewIndex(testCorpus())
	if got := idx.Search(nil, 5); got != nil {
		t.Fatalf("expected nil for empty tokens, got %v", got)
	}

	empty := NewIndex(nil)
	if got := empty.Search([]string{"canker"}, 5); got != nil {
		t.Fatalf("expected nil for empty index, got %v", got)
	}
	if empty.Size() != 0 {
		t.Fatalf("expected empty index size 0, got %d", empty.Size())
	}
}

func TestLengthNormalizationPrefersShorterDoc(t *testing.T) {
	idx := NewIndex([]Document{
		{Content: "canker", Source: "a.pdf"},
		{Content: "canker treatment requires copper sprays applied before monsoon rains start every season", Source: "b.pdf"},
	})

	docs := idx.Search([]string{"canker"}, 2)
	if len(docs) != 2 {
		t.Fatalf("expected both chunks to match, got %d", len(docs))
	}
	if docs[0].Source() != "a.pdf" {
		t.Fatalf("expected the shorter chunk to rank first, got %q", docs[0].Source())
	}
}

func TestTokenizeLowercasesAndSplitsOnPunctuation(t *testing.T) {
	got := tokenize("Citrus-Canker: 50% loss!")
	want := []string{"citrus", "canker", "50", "loss"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokenize() = %v, want %v", got, want)
	}
}
