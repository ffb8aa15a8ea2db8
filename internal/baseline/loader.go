package baseline

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/extraction-eval/internal/model"
)

// conditionalFetcher is implemented by fetchers that support ETag
// revalidation.
type conditionalFetcher interface {
	OpenIfChanged(ctx context.Context, ref, etag string) (io.ReadCloser, string, bool, error)
}

type cachedExpected struct {
	etag    string
	records map[string]model.ExtractedRecord
}

// Loader resolves baseline references to decoded records, dispatching on the
// reference scheme: http(s)://, ftp://, or a local path. HTTP baselines are
// revalidated by ETag so repeated loads of an unchanged baseline reuse the
// decoded records.
type Loader struct {
	http Fetcher
	ftp  Fetcher
	file Fetcher

	mu    sync.Mutex
	cache map[string]*cachedExpected
}

// NewLoader builds a loader with the default fetchers.
func NewLoader() *Loader {
	return &Loader{
		http:  NewHTTPFetcher(HTTPOptions{}),
		ftp:   NewFTPFetcher(0),
		file:  FileFetcher{},
		cache: make(map[string]*cachedExpected),
	}
}

// Open resolves a reference to its body.
func (l *Loader) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return l.http.Open(ctx, ref)
	case strings.HasPrefix(ref, "ftp://"):
		return l.ftp.Open(ctx, ref)
	default:
		return l.file.Open(ctx, ref)
	}
}

// LoadDocument reads a full DocumentRecord (actual plus optional expected
// sides) from a reference.
func (l *Loader) LoadDocument(ctx context.Context, ref string) (*model.DocumentRecord, error) {
	rc, err := l.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	doc, err := model.DecodeDocument(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "baseline: %s", ref)
	}
	return doc, nil
}

// LoadExpected reads a baseline file mapping section id to expected record.
// XLSX references decode as ground-truth sheets; everything else is JSON.
func (l *Loader) LoadExpected(ctx context.Context, ref string) (map[string]model.ExtractedRecord, error) {
	if strings.HasSuffix(strings.ToLower(ref), ".xlsx") {
		return l.loadExpectedXLSX(ctx, ref)
	}

	if cf, ok := l.http.(conditionalFetcher); ok && isHTTPRef(ref) {
		return l.loadExpectedHTTP(ctx, cf, ref)
	}

	rc, err := l.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	return decodeExpected(rc, ref)
}

// loadExpectedHTTP revalidates a previously loaded HTTP baseline by ETag and
// reuses the cached records on 304.
func (l *Loader) loadExpectedHTTP(ctx context.Context, cf conditionalFetcher, ref string) (map[string]model.ExtractedRecord, error) {
	l.mu.Lock()
	entry := l.cache[ref]
	l.mu.Unlock()

	var etag string
	if entry != nil {
		etag = entry.etag
	}

	rc, newETag, changed, err := cf.OpenIfChanged(ctx, ref, etag)
	if err != nil {
		return nil, err
	}
	if !changed {
		if entry == nil {
			return nil, eris.Errorf("baseline: %s reported unchanged without cached records", ref)
		}
		zap.L().Debug("baseline unchanged, using cached records", zap.String("ref", ref))
		return entry.records, nil
	}
	defer rc.Close() //nolint:errcheck

	expected, err := decodeExpected(rc, ref)
	if err != nil {
		return nil, err
	}
	if newETag != "" {
		l.mu.Lock()
		l.cache[ref] = &cachedExpected{etag: newETag, records: expected}
		l.mu.Unlock()
	}
	return expected, nil
}

func decodeExpected(r io.Reader, ref string) (map[string]model.ExtractedRecord, error) {
	var expected map[string]model.ExtractedRecord
	if err := json.NewDecoder(r).Decode(&expected); err != nil {
		return nil, eris.Wrapf(err, "baseline: decode expected records from %s", ref)
	}
	return expected, nil
}

func isHTTPRef(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// ApplyBaseline attaches expected records to the matching sections of a
// document. Sections without a baseline entry keep a nil expected side.
// Returns the number of sections that received a baseline.
func ApplyBaseline(doc *model.DocumentRecord, expected map[string]model.ExtractedRecord) int {
	var applied int
	for i := range doc.Sections {
		if rec, ok := expected[doc.Sections[i].SectionID]; ok {
			doc.Sections[i].Expected = rec
			applied++
		}
	}
	return applied
}
