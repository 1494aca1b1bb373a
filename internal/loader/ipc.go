package loader

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"gpsummary/internal/frame"
)

// readIPC reads an Arrow IPC file. Files without the IPC file footer are
// retried as an IPC stream.
func readIPC(ctx context.Context, f *os.File, mem memory.Allocator) (arrow.RecordBatch, error) {
	r, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
	if err != nil {
		if _, serr := f.Seek(0, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("rewind %s: %w", f.Name(), serr)
		}
		return readIPCStream(ctx, f, mem)
	}
	defer r.Close()

	recs := make([]arrow.RecordBatch, 0, r.NumRecords())
	defer func() { releaseAll(recs) }()
	for i := 0; i < r.NumRecords(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.RecordBatchAt(i)
		if err != nil {
			return nil, fmt.Errorf("read record batch %d: %w", i, err)
		}
		recs = append(recs, rec)
	}
	return frame.FromRecords(ctx, r.Schema(), recs, mem)
}

func readIPCStream(ctx context.Context, f io.Reader, mem memory.Allocator) (arrow.RecordBatch, error) {
	r, err := ipc.NewReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("open arrow ipc stream: %w", err)
	}
	defer r.Release()

	var recs []arrow.RecordBatch
	defer func() { releaseAll(recs) }()
	for r.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := r.RecordBatch()
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := r.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read arrow ipc stream: %w", err)
	}
	return frame.FromRecords(ctx, r.Schema(), recs, mem)
}

func releaseAll(recs []arrow.RecordBatch) {
	for _, rec := range recs {
		rec.Release()
	}
}
