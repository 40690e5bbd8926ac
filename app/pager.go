package main

import (
	"context"
	"fmt"
	"io"
)

// Pager maps a 1-based page id to the page's raw bytes. It does not
// interpret contents.
type Pager interface {
	ReadPage(ctx context.Context, id int) ([]byte, error)
	PageSize() int
	Close() error
}

// FilePager is a Pager backed by an *os.File (or anything implementing
// io.ReaderAt + io.Closer), read via positioned reads so disjoint pages
// may safely be fetched concurrently.
type FilePager struct {
	reader   io.ReaderAt
	closer   io.Closer
	pageSize int
	sem      chan struct{}
}

// NewFilePager wires a reader/closer pair and page size into a Pager,
// gating concurrent ReadPage calls at cfg.MaxConcurrency.
func NewFilePager(reader io.ReaderAt, closer io.Closer, pageSize int, cfg *DatabaseConfig) *FilePager {
	if cfg == nil {
		cfg = DefaultDatabaseConfig()
	}
	max := cfg.MaxConcurrency
	if max <= 0 {
		max = 1
	}
	return &FilePager{
		reader:   reader,
		closer:   closer,
		pageSize: pageSize,
		sem:      make(chan struct{}, max),
	}
}

func (p *FilePager) PageSize() int { return p.pageSize }

// ReadPage reads page `id` (1-based) at byte offset (id-1)*page_size.
func (p *FilePager) ReadPage(ctx context.Context, id int) ([]byte, error) {
	if id < 1 {
		return nil, NewDatabaseError("read_page", fmt.Errorf("%w: page id %d must be >= 1", ErrMalformed, id), nil)
	}

	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		return nil, NewDatabaseError("read_page", fmt.Errorf("%w: %v", ErrIo, ctx.Err()), nil)
	}

	if err := ctx.Err(); err != nil {
		return nil, NewDatabaseError("read_page", fmt.Errorf("%w: %v", ErrIo, err), nil)
	}

	offset := int64(id-1) * int64(p.pageSize)
	buf := make([]byte, p.pageSize)
	n, err := p.reader.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, NewDatabaseError("read_page", fmt.Errorf("%w: %v", ErrIo, err), map[string]interface{}{"page": id, "offset": offset})
	}
	if n != p.pageSize {
		return nil, NewDatabaseError("read_page", fmt.Errorf("%w: short read of page %d: got %d of %d bytes", ErrIo, id, n, p.pageSize), nil)
	}
	return buf, nil
}

func (p *FilePager) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
