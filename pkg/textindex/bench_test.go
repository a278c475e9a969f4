package textindex

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
)

var benchWords = []string{"search", "engine", "segment", "posting", "commit", "snapshot", "ranking", "query", "field", "term"}

func benchDoc(i int) map[string]any {
	body := ""
	for j := 0; j < 24; j++ {
		body += benchWords[(i*7+j*3)%len(benchWords)] + " "
	}
	return map[string]any{"title": fmt.Sprintf("document %d %s", i, benchWords[i%len(benchWords)]), "body": body}
}

func benchIndex(b *testing.B, docs int) *Index {
	b.Helper()
	sb := schema.NewBuilder()
	if _, err := sb.AddTextField("title", true, true); err != nil {
		b.Fatal(err)
	}
	if _, err := sb.AddTextField("body", false, true); err != nil {
		b.Fatal(err)
	}
	s, err := sb.Build()
	if err != nil {
		b.Fatal(err)
	}
	idx, err := Create(s)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { idx.Close() })
	if docs == 0 {
		return idx
	}
	w, err := idx.NewWriter(0)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < docs; i++ {
		if _, err := w.AddDocument(benchDoc(i)); err != nil {
			b.Fatal(err)
		}
	}
	if _, err := w.Commit(); err != nil {
		b.Fatal(err)
	}
	return idx
}

func BenchmarkAddDocument(b *testing.B) {
	idx := benchIndex(b, 0)
	w, err := idx.NewWriter(0)
	if err != nil {
		b.Fatal(err)
	}
	defer w.Discard()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := w.AddDocument(benchDoc(i)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCommit(b *testing.B) {
	idx := benchIndex(b, 0)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w, err := idx.NewWriter(0)
		if err != nil {
			b.Fatal(err)
		}
		for j := 0; j < 100; j++ {
			if _, err := w.AddDocument(benchDoc(i*100 + j)); err != nil {
				b.Fatal(err)
			}
		}
		if _, err := w.Commit(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSearch(b *testing.B) {
	idx := benchIndex(b, 10000)
	fields := []string{"title", "body"}
	for _, q := range []struct{ name, query string }{
		{"term", "ranking"},
		{"or", "commit snapshot"},
		{"and", "+commit +snapshot"},
		{"phrase", `"search engine"`},
	} {
		b.Run(q.name, func(b *testing.B) {
			s := idx.NewSearcher()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := s.Search(q.query, 10, fields); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSearchParallel(b *testing.B) {
	idx := benchIndex(b, 10000)
	fields := []string{"title", "body"}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		s := idx.NewSearcher()
		for pb.Next() {
			if _, err := s.Search("segment posting", 10, fields); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
