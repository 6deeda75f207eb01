package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/adeoluwa-dev/chatdocs/internal/core"
)

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv,
// with pdfcpu validating the PDF structure and counting pages up front.
type DocconvExtractor struct {
	useReadability bool
}

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

// ExtractText parses the document and streams its text as trimmed line
// fragments in document order. Parse failures are reported synchronously;
// once the channel is returned, fragment delivery cannot fail.
func (e *DocconvExtractor) ExtractText(ctx context.Context, data []byte, contentType string) (<-chan string, int, error) {
	pages := 0
	if contentType == "application/pdf" {
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed

		n, err := api.PageCount(bytes.NewReader(data), conf)
		if err != nil {
			return nil, 0, fmt.Errorf("pdf validation: %w", err)
		}
		pages = n
	}

	res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
	if err != nil {
		return nil, 0, fmt.Errorf("docconv: %w", err)
	}
	if strings.TrimSpace(res.Body) == "" {
		return nil, 0, fmt.Errorf("docconv: extracted empty text for content type %q", contentType)
	}

	out := make(chan string, 32)
	go func() {
		defer close(out)
		for _, line := range strings.Split(res.Body, "\n") {
			if line = strings.TrimSpace(line); line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, pages, nil
}
