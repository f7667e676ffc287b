// Package logs reads the daemon's log file incrementally so the CLI can
// show device-server output without holding the file open across calls.
package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// TailOptions controls one Tail call. A negative Offset means "start
// from the end": return up to Limit trailing lines and the new offset.
type TailOptions struct {
	Offset int64
	Limit  int
	// Follow keeps polling for up to Wait when no new lines exist yet.
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read and the offset to pass next call.
type TailResult struct {
	Lines  []string
	Offset int64
}

const pollInterval = 250 * time.Millisecond

// Tail reads new log lines at path according to opts. A missing file is
// not an error; the daemon may simply not have written anything yet.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Offset = 0
			return result, nil
		}
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	if opts.Offset < 0 {
		result.Lines, result.Offset, err = lastLines(path, opts.Limit)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			offset = info.Size()
		}
		result.Lines, result.Offset, err = readFrom(path, offset)
	}
	if err != nil {
		return result, err
	}
	if opts.Follow && opts.Wait > 0 && len(result.Lines) == 0 {
		return pollForLines(ctx, path, result.Offset, opts.Wait)
	}
	return result, nil
}

// lastLines returns up to limit trailing lines plus the end-of-file
// offset. With limit <= 0 it just reports the offset.
func lastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	scanner := newLineScanner(file)
	ring := make([]string, limit)
	count, idx := 0, 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, end, nil
}

func readFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	// A line still being appended has no newline yet. Leave it for the
	// next call so the offset never lands mid-line.
	cut := bytes.LastIndexByte(data, '\n')
	if cut < 0 {
		return nil, offset, nil
	}
	lines := strings.Split(string(data[:cut]), "\n")
	return lines, offset + int64(cut) + 1, nil
}

func pollForLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		lines, newOffset, err := readFrom(path, offset)
		if err != nil {
			return result, err
		}
		result.Offset = newOffset
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}
		if time.Now().After(deadline) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newLineScanner(file *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
