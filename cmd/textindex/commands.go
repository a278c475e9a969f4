package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/textindex"
)

const maxLineBytes = 16 << 20

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%s: %v: %w", fs.Name(), err, errUsage)
	}
	return nil
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("-%s is required: %w", name, errUsage)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runCreate(args []string, stdout io.Writer) error {
	fs := newFlagSet("create")
	dir := fs.String("dir", "", "index directory")
	schemaPath := fs.String("schema", "", "schema description (JSON)")
	compression := fs.String("compression", "zstd", "stored document codec: none, lz4 or zstd")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireFlag("dir", *dir); err != nil {
		return err
	}
	if err := requireFlag("schema", *schemaPath); err != nil {
		return err
	}
	data, err := os.ReadFile(*schemaPath)
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}
	s, err := schema.ParseJSON(data)
	if err != nil {
		return err
	}
	c, err := textindex.ParseCompression(*compression)
	if err != nil {
		return err
	}
	idx, err := textindex.OpenPath(*dir, s, textindex.WithCompression(c))
	if err != nil {
		return err
	}
	defer idx.Close()
	fmt.Fprintf(stdout, "index at %s, opstamp %d, %d fields\n", *dir, idx.Opstamp(), s.FieldCount())
	return nil
}

// readDocuments decodes a JSON-lines file; blank lines are skipped.
func readDocuments(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var docs []map[string]any
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		docs = append(docs, doc)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return docs, nil
}

func runIngest(args []string, stdout io.Writer) error {
	fs := newFlagSet("ingest")
	dir := fs.String("dir", "", "index directory")
	file := fs.String("file", "", "documents, one JSON object per line")
	commitEvery := fs.Int("commit-every", 0, "commit after this many documents; 0 commits once at the end")
	heap := fs.Int("heap", 0, "writer heap budget in bytes; 0 selects the default")
	brokers := fs.String("brokers", "", "publish to Kafka instead of writing locally (comma separated)")
	topic := fs.String("topic", "textindex.ingest", "ingest topic")
	indexName := fs.String("index", "default", "index name used as the Kafka key")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireFlag("file", *file); err != nil {
		return err
	}
	docs, err := readDocuments(*file)
	if err != nil {
		return err
	}

	if *brokers != "" {
		return publishDocuments(docs, strings.Split(*brokers, ","), *topic, *indexName, stdout)
	}
	if err := requireFlag("dir", *dir); err != nil {
		return err
	}

	idx, err := textindex.OpenPath(*dir, nil)
	if err != nil {
		return err
	}
	defer idx.Close()

	w, err := idx.NewWriter(*heap)
	if err != nil {
		return err
	}
	skipped := 0
	for i, doc := range docs {
		report, err := w.AddDocument(doc)
		if err != nil {
			w.Discard()
			return fmt.Errorf("document %d: %w", i+1, err)
		}
		for _, s := range report.Skipped {
			skipped++
			fmt.Fprintf(stdout, "document %d: skipped %s: %s\n", i+1, s.Field, s.Reason)
		}
		if *commitEvery > 0 && (i+1)%*commitEvery == 0 && i+1 < len(docs) {
			if _, err := w.Commit(); err != nil {
				return err
			}
			if w, err = idx.NewWriter(*heap); err != nil {
				return err
			}
		}
	}
	opstamp, err := w.Commit()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "ingested %d documents (%d fields skipped), opstamp %d\n", len(docs), skipped, opstamp)
	return nil
}

func publishDocuments(docs []map[string]any, brokers []string, topic, indexName string, stdout io.Writer) error {
	producer := kafka.NewProducer(config.KafkaConfig{Brokers: brokers}, topic)
	defer producer.Close()
	events := make([]ingestion.Event, 0, len(docs)+1)
	for _, doc := range docs {
		events = append(events, ingestion.Event{Type: ingestion.EventAdd, Document: doc})
	}
	events = append(events, ingestion.Event{Type: ingestion.EventCommit})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := publisher.New(indexName, producer).PublishEvents(ctx, events); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "published %d documents to %s\n", len(docs), topic)
	return nil
}

func runDelete(args []string, stdout io.Writer) error {
	fs := newFlagSet("delete")
	dir := fs.String("dir", "", "index directory")
	field := fs.String("field", "", "field name")
	value := fs.String("value", "", "term value")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireFlag("dir", *dir); err != nil {
		return err
	}
	if err := requireFlag("field", *field); err != nil {
		return err
	}
	idx, err := textindex.OpenPath(*dir, nil)
	if err != nil {
		return err
	}
	defer idx.Close()

	before := idx.Stats().NumDocs
	w, err := idx.NewWriter(0)
	if err != nil {
		return err
	}
	if err := w.DeleteByTerm(*field, *value); err != nil {
		w.Discard()
		return err
	}
	opstamp, err := w.Commit()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "deleted %d documents, opstamp %d\n", before-idx.Stats().NumDocs, opstamp)
	return nil
}

func runSearch(args []string, stdout io.Writer) error {
	fs := newFlagSet("search")
	dir := fs.String("dir", "", "index directory")
	query := fs.String("q", "", "query")
	limit := fs.Int("limit", 10, "maximum number of results")
	fields := fs.String("fields", "", "default fields (comma separated); empty searches all indexed text fields")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireFlag("dir", *dir); err != nil {
		return err
	}
	if err := requireFlag("q", *query); err != nil {
		return err
	}
	idx, err := textindex.OpenPath(*dir, nil)
	if err != nil {
		return err
	}
	defer idx.Close()

	names := splitList(*fields)
	if len(names) == 0 {
		for _, f := range idx.Schema().Fields() {
			if f.Type == schema.Text && f.Options.Indexed {
				names = append(names, f.Name)
			}
		}
	}
	if len(names) == 0 {
		return errors.New("index has no indexed text fields; pass -fields")
	}

	searcher := idx.NewSearcher()
	results, total, err := searcher.SearchWithTotal(*query, *limit, names)
	if err != nil {
		return err
	}
	return writeJSON(stdout, cache.FromResults(searcher.Opstamp(), total, results))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runInspect(args []string, stdout io.Writer) error {
	fs := newFlagSet("inspect")
	dir := fs.String("dir", "", "index directory")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireFlag("dir", *dir); err != nil {
		return err
	}
	idx, err := textindex.OpenPath(*dir, nil)
	if err != nil {
		return err
	}
	defer idx.Close()
	return writeJSON(stdout, struct {
		Schema *schema.Schema  `json:"schema"`
		Stats  textindex.Stats `json:"stats"`
	}{idx.Schema(), idx.Stats()})
}
