package ingest

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// streamChunk groups incoming fragments into token-bounded chunks with
// optional overlap.
//
// frags:         upstream fragments channel.
// targetTokens:  approximate tokens per chunk.
// overlapTokens: tokens to retain from the end of the previous chunk as seed
//                of the next.
func (i *DocumentIngestor) streamChunk(
	ctx context.Context,
	g *errgroup.Group,
	frags <-chan string,
	targetTokens int,
	overlapTokens int,
) <-chan chunk {
	out := make(chan chunk, 8)

	g.Go(func() error {
		defer close(out)

		var (
			buf    []string
			tokSum int
			pos    int
			fresh  bool
		)

		// flush emits the current buffer as a chunk and prepares the buffer
		// for the next one, preserving overlapTokens from the tail. A buffer
		// holding only the retained tail is skipped: its text was already
		// emitted with the previous chunk.
		flush := func() error {
			if tokSum == 0 || !fresh {
				return nil
			}
			ch := chunk{Pos: pos, Text: strings.Join(buf, "\n"), TokenCnt: tokSum}
			pos++

			// Emit the chunk downstream; backpressure applies here.
			select {
			case out <- ch:
			case <-ctx.Done():
				return ctx.Err()
			}

			if overlapTokens > 0 {
				// Keep a tail whose token sum ≈ overlapTokens.
				keep := []string{}
				remain := overlapTokens
				for j := len(buf) - 1; j >= 0 && remain > 0; j-- {
					keep = append([]string{buf[j]}, keep...) // prepend to keep original order
					remain -= approxTokens(buf[j])
				}
				buf = keep

				tokSum = 0
				for _, s := range buf {
					tokSum += approxTokens(s)
				}
			} else {
				buf = buf[:0]
				tokSum = 0
			}
			fresh = false
			return nil
		}

		for frag := range frags {
			// Cancel early if downstream failed.
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			buf = append(buf, frag)
			tokSum += approxTokens(frag)
			fresh = true

			if tokSum >= targetTokens {
				if err := flush(); err != nil {
					return err
				}
			}
		}

		// Emit remaining tail (if any).
		return flush()
	})

	return out
}

// approxTokens is a cheap token estimator (~4 chars ≈ 1 token).
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
