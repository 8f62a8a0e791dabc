package importer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/folio/core"
)

const (
	// DefaultReportInterval is the default number of records between progress reports.
	DefaultReportInterval = 100

	maxLineSize = 16 << 20
)

// Saver stores a single document and returns its record ID.
// *folio.Store satisfies it.
type Saver interface {
	Save(ctx context.Context, docID, title string, data []byte, userID string) (core.ID, error)
}

// Entry is one input line.
type Entry struct {
	DocID  string          `json:"docId"`
	Title  string          `json:"title"`
	Data   json.RawMessage `json:"data"`
	UserID string          `json:"userId"`
}

// Result summarises an import.
type Result struct {
	Saved  int
	Failed int
	// IDs holds the record IDs of saved lines in input order.
	IDs []core.ID
}

// Importer loads JSON-lines documents through a Saver using a worker pool.
type Importer struct {
	saver          Saver
	pool           *ants.Pool
	progress       io.Writer
	reportInterval int
	newDocID       func() string
	logger         *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer) error

// WithPoolSize sets the worker pool size.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(im *Importer) error {
		if size < 1 {
			size = 1
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		// Release old pool
		if im.pool != nil {
			im.pool.Release()
		}
		im.pool = pool
		return nil
	}
}

// WithProgress reports progress to w every reportInterval records.
// Progress is not reported by default.
func WithProgress(w io.Writer, reportInterval int) Option {
	return func(im *Importer) error {
		if reportInterval <= 0 {
			reportInterval = DefaultReportInterval
		}
		im.progress = w
		im.reportInterval = reportInterval
		return nil
	}
}

// WithDocIDGenerator sets the function used to fill in a missing docId.
// Default generates a random UUID.
func WithDocIDGenerator(fn func() string) Option {
	return func(im *Importer) error {
		if fn == nil {
			fn = uuid.NewString
		}
		im.newDocID = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) error {
		if logger == nil {
			logger = slog.Default()
		}
		im.logger = logger
		return nil
	}
}

// New creates an Importer writing through saver.
// Call Release when done to stop the worker pool.
func New(saver Saver, opts ...Option) (*Importer, error) {
	if saver == nil {
		return nil, ErrSaverRequired
	}

	poolSize := runtime.NumCPU()
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	im := &Importer{
		saver:          saver,
		pool:           pool,
		reportInterval: DefaultReportInterval,
		newDocID:       uuid.NewString,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(im); optErr != nil {
			im.Release()
			return nil, optErr
		}
	}

	return im, nil
}

// Import reads every line of r and saves it. Blank lines are skipped.
// Failed lines are counted in the result and their errors joined into the
// returned error; a nil error means every line was saved.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	var tracker *ProgressTracker
	if im.progress != nil {
		tracker = NewProgressTracker(im.progress, len(lines), im.reportInterval)
		tracker.Start()
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
		ids  = make([]core.ID, len(lines))
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for i, line := range lines {
		wg.Add(1)
		submitErr := im.pool.Submit(func() {
			defer wg.Done()
			id, err := im.saveLine(ctx, line.data)
			if err != nil {
				fail(fmt.Errorf("line %d: %w", line.number, err))
			} else {
				ids[i] = id
			}
			if tracker != nil {
				tracker.Done(err != nil)
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("line %d: %w", line.number, submitErr))
			if tracker != nil {
				tracker.Done(true)
			}
		}
	}
	wg.Wait()

	if tracker != nil {
		tracker.Finish()
	}

	result := &Result{Failed: len(errs)}
	for _, id := range ids {
		if id != 0 {
			result.IDs = append(result.IDs, id)
		}
	}
	result.Saved = len(result.IDs)

	im.logger.Info("import finished", "saved", result.Saved, "failed", result.Failed)
	return result, errors.Join(errs...)
}

// Release stops the worker pool. The Importer must not be used afterwards.
func (im *Importer) Release() {
	if im.pool != nil {
		im.pool.Release()
	}
}

func (im *Importer) saveLine(ctx context.Context, data []byte) (core.ID, error) {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return 0, err
	}
	if entry.DocID == "" {
		entry.DocID = im.newDocID()
	}

	var payload []byte
	if len(entry.Data) > 0 && !bytes.Equal(entry.Data, []byte("null")) {
		payload = entry.Data
	}

	id, err := im.saver.Save(ctx, entry.DocID, entry.Title, payload, entry.UserID)
	if err != nil {
		im.logger.Debug("save failed", "docId", entry.DocID, "userId", entry.UserID, "err", err)
		return 0, err
	}
	return id, nil
}

type inputLine struct {
	number int
	data   []byte
}

// readLines collects the non-blank lines of r with their 1-based line numbers.
func readLines(r io.Reader) ([]inputLine, error) {
	var lines []inputLine

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	number := 0
	for scanner.Scan() {
		number++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		lines = append(lines, inputLine{number: number, data: bytes.Clone(text)})
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%w: line %d", ErrLineTooLong, number+1)
		}
		return nil, err
	}
	return lines, nil
}
