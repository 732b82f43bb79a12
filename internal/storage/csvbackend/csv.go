package csvbackend

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/sift/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"title",
	"category",
	"pages",
	"failed",
	"blocked",
	"records_json",
	"duration_ms",
	"created_at",
}

// New creates a new CSV-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", filePath, err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	return &csvBackend{
		file: f,
	}, nil
}

func (b *csvBackend) Save(ctx context.Context, record *storage.SearchRecord) error {
	recordsJSON, err := json.Marshal(record.Records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	row := []string{
		record.ID,
		record.Title,
		record.Category,
		strconv.Itoa(record.Pages),
		strconv.Itoa(record.Failed),
		strconv.Itoa(record.Blocked),
		string(recordsJSON),
		strconv.FormatInt(record.Duration.Milliseconds(), 10),
		record.CreatedAt.Format(time.RFC3339Nano),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek archive: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write search %s: %w", record.ID, err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("write search %s: %w", record.ID, err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind archive: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []*storage.SearchRecord{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	matched := []*storage.SearchRecord{}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}

		if len(row) != len(headers) {
			continue // skip malformed rows
		}

		pages, _ := strconv.Atoi(row[3])
		failed, _ := strconv.Atoi(row[4])
		blocked, _ := strconv.Atoi(row[5])
		durationMs, _ := strconv.ParseInt(row[7], 10, 64)
		createdAt, _ := time.Parse(time.RFC3339Nano, row[8])

		res := &storage.SearchRecord{
			ID:        row[0],
			Title:     row[1],
			Category:  row[2],
			Pages:     pages,
			Failed:    failed,
			Blocked:   blocked,
			Duration:  time.Duration(durationMs) * time.Millisecond,
			CreatedAt: createdAt,
		}
		if err := json.Unmarshal([]byte(row[6]), &res.Records); err != nil {
			continue
		}

		if filter.Match(res) {
			matched = append(matched, res)
		}
	}

	// Order by created_at DESC (reverse the slice)
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}

	return filter.Page(matched), nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
