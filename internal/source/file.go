package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"jobmate/ghostjob-service/internal/model"
)

// File reads raw records from a local export: either one JSON array or
// JSON lines, one object per line.
type File struct {
	Path string
}

// NewFile returns a File source for path.
func NewFile(path string) *File { return &File{Path: path} }

func (f *File) Name() string { return "file:" + f.Path }

// Fetch reads and decodes the whole file.
func (f *File) Fetch(ctx context.Context) ([]model.RawRecord, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer fh.Close()
	return Decode(ctx, fh)
}

// Decode reads raw records from r, accepting a JSON array or JSON lines.
// Blank lines are skipped.
func Decode(ctx context.Context, r io.Reader) ([]model.RawRecord, error) {
	br := bufio.NewReader(r)
	first, err := firstNonSpace(br)
	if errors.Is(err, io.EOF) {
		return []model.RawRecord{}, nil
	}
	if err != nil {
		return nil, err
	}

	if first == '[' {
		var records []model.RawRecord
		if err := json.NewDecoder(br).Decode(&records); err != nil {
			return nil, fmt.Errorf("decode json array: %w", err)
		}
		return records, nil
	}

	records := []model.RawRecord{}
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return records, err
		}
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var rec model.RawRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			return records, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return records, fmt.Errorf("read lines: %w", err)
	}
	return records, nil
}

// firstNonSpace peeks at the first significant byte without consuming it.
func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
