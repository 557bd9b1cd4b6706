package ingest

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Upload is one uploaded file
type Upload struct {
	Filename string
	Body     io.Reader
}

// Processor stages, parses and assembles uploads
type Processor struct {
	stager *Stager
	now    func() time.Time
	log    zerolog.Logger
}

// NewProcessor creates a new upload processor
func NewProcessor(stager *Stager, log zerolog.Logger) *Processor {
	return &Processor{
		stager: stager,
		now:    time.Now,
		log:    log.With().Str("service", "ingest").Logger(),
	}
}

// Process turns the two uploads into a snapshot. Both files are required and
// must have a .csv name.
func (p *Processor) Process(weights, prices *Upload) (*domain.Snapshot, error) {
	if weights == nil || weights.Body == nil {
		return nil, fmt.Errorf("weights_file is required: %w", domain.ErrMissingInput)
	}
	if prices == nil || prices.Body == nil {
		return nil, fmt.Errorf("prices_file is required: %w", domain.ErrMissingInput)
	}
	for _, u := range []*Upload{weights, prices} {
		if err := CheckFilename(u.Filename); err != nil {
			return nil, err
		}
	}

	uploadID := uuid.New().String()
	log := p.log.With().Str("upload_id", uploadID).Logger()

	weightsPath, err := p.stager.Stage(uploadID, "weights.csv", weights.Body)
	if err != nil {
		_ = p.stager.Remove(uploadID)
		return nil, err
	}
	pricesPath, err := p.stager.Stage(uploadID, "prices.csv", prices.Body)
	if err != nil {
		_ = p.stager.Remove(uploadID)
		return nil, err
	}

	weightRows, err := parseFile(weightsPath, ParseWeights)
	if err != nil {
		_ = p.stager.Remove(uploadID)
		return nil, err
	}
	history, err := parseFile(pricesPath, ParsePrices)
	if err != nil {
		_ = p.stager.Remove(uploadID)
		return nil, err
	}

	if extra := UnweightedTickers(weightRows, history); len(extra) > 0 {
		log.Debug().Strs("tickers", extra).Msg("Ignoring price columns without weights")
	}

	snapshot, err := Assemble(uploadID, p.now().UTC(), weightRows, history)
	if err != nil {
		_ = p.stager.Remove(uploadID)
		return nil, err
	}

	log.Info().
		Str("weights_file", weights.Filename).
		Str("prices_file", prices.Filename).
		Int("holdings", len(snapshot.Rows)).
		Int("dates", len(snapshot.Performance)).
		Msg("Upload processed")

	return snapshot, nil
}

// CheckFilename rejects files without a .csv extension
func CheckFilename(name string) error {
	if !strings.HasSuffix(strings.ToLower(name), ".csv") {
		return fmt.Errorf("%w: File '%s' is not a CSV. Both files must be .csv format.", domain.ErrMalformedInput, name)
	}
	return nil
}

func parseFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to open staged file: %w", err)
	}
	defer f.Close()
	return parse(f)
}
