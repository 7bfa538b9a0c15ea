package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kesara/purple/internal/models"
	"github.com/kesara/purple/internal/repository"
	"github.com/rs/zerolog"
)

const (
	indexWrapWidth = 75
	indexIndent    = "     "

	// Publication formats of current-series documents. Older formats
	// are not modelled here.
	indexFormats = "TXT, HTML, PDF"
)

// indexService is the concrete implementation of IndexService
type indexService struct {
	repos     *repository.Repositories
	doiPrefix string
	log       zerolog.Logger
	now       func() time.Time

	mu          sync.Mutex
	cached      []byte
	generatedAt time.Time
}

// NewIndexService creates a new IndexService
func NewIndexService(repos *repository.Repositories, doiPrefix string, log zerolog.Logger) IndexService {
	return &indexService{
		repos:     repos,
		doiPrefix: doiPrefix,
		log:       log.With().Str("service", "index").Logger(),
		now:       time.Now,
	}
}

// GeneratedAt returns when the index was last rendered
func (s *indexService) GeneratedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generatedAt
}

// Refresh renders the published-document text index and caches it.
// Published documents and never-to-be-issued numbers interleave in
// number order; unusable numbers render as "Not Issued".
func (s *indexService) Refresh(ctx context.Context) error {
	published, err := s.repos.Rfc.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published documents: %w", err)
	}
	unusable, err := s.repos.Rfc.ListUnusableNumbers(ctx)
	if err != nil {
		return fmt.Errorf("list unusable numbers: %w", err)
	}
	relations, err := s.repos.Related.ListByRelationships(ctx,
		[]models.Relationship{models.RelObsoletes, models.RelUpdates})
	if err != nil {
		return fmt.Errorf("list document relations: %w", err)
	}

	now := s.now()
	var b strings.Builder
	fmt.Fprintf(&b, "RFC INDEX\n---------\n(CREATED ON: %s.)\n\n", now.Format("01/02/2006"))
	for _, entry := range s.entries(ctx, published, unusable, relations) {
		b.WriteString(entry + "\n\n")
	}

	s.mu.Lock()
	s.cached = []byte(b.String())
	s.generatedAt = now
	s.mu.Unlock()
	s.log.Info().Int("published", len(published)).Int("not_issued", len(unusable)).Msg("Rendered text index")
	return nil
}

// WriteIndex writes the cached index, rendering on first use
func (s *indexService) WriteIndex(ctx context.Context, w io.Writer) error {
	s.mu.Lock()
	cached := s.cached
	s.mu.Unlock()

	if cached == nil {
		if err := s.Refresh(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		cached = s.cached
		s.mu.Unlock()
	}
	_, err := w.Write(cached)
	return err
}

// indexEntry is a published document or a reserved number, merged into
// one number-ordered sequence.
type indexEntry struct {
	number int
	rfc    *models.RfcToBe
}

func (s *indexService) entries(ctx context.Context, published []*models.RfcToBe, unusable []*models.UnusableRfcNumber, relations []*models.RelatedDocument) []string {
	merged := make([]indexEntry, 0, len(published)+len(unusable))
	numberByID := make(map[int64]int, len(published))
	for _, rfc := range published {
		merged = append(merged, indexEntry{number: *rfc.RfcNumber, rfc: rfc})
		numberByID[rfc.ID] = *rfc.RfcNumber
	}
	for _, u := range unusable {
		merged = append(merged, indexEntry{number: u.Number})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].number < merged[j].number })

	rels := buildRelationIndex(relations, numberByID)

	out := make([]string, 0, len(merged))
	for _, e := range merged {
		if e.rfc == nil {
			out = append(out, fmt.Sprintf("%04d Not Issued.", e.number))
			continue
		}
		out = append(out, s.renderEntry(ctx, e.rfc, rels))
	}
	return out
}

// relationIndex holds, per document id, the numbers of its relation
// counterparts in both directions.
type relationIndex struct {
	obsoletes   map[int64][]int
	obsoletedBy map[int64][]int
	updates     map[int64][]int
	updatedBy   map[int64][]int
}

func buildRelationIndex(relations []*models.RelatedDocument, numberByID map[int64]int) *relationIndex {
	idx := &relationIndex{
		obsoletes:   make(map[int64][]int),
		obsoletedBy: make(map[int64][]int),
		updates:     make(map[int64][]int),
		updatedBy:   make(map[int64][]int),
	}
	for _, rel := range relations {
		if rel.TargetRfcID == nil {
			continue
		}
		sourceNum, sourceOK := numberByID[rel.SourceRfcID]
		targetNum, targetOK := numberByID[*rel.TargetRfcID]
		switch rel.Relationship {
		case models.RelObsoletes:
			if targetOK {
				idx.obsoletes[rel.SourceRfcID] = append(idx.obsoletes[rel.SourceRfcID], targetNum)
			}
			if sourceOK {
				idx.obsoletedBy[*rel.TargetRfcID] = append(idx.obsoletedBy[*rel.TargetRfcID], sourceNum)
			}
		case models.RelUpdates:
			if targetOK {
				idx.updates[rel.SourceRfcID] = append(idx.updates[rel.SourceRfcID], targetNum)
			}
			if sourceOK {
				idx.updatedBy[*rel.TargetRfcID] = append(idx.updatedBy[*rel.TargetRfcID], sourceNum)
			}
		}
	}
	return idx
}

func (s *indexService) renderEntry(ctx context.Context, rfc *models.RfcToBe, rels *relationIndex) string {
	var authors []string
	if list, err := s.repos.Rfc.ListAuthors(ctx, rfc.ID); err != nil {
		s.log.Error().Err(err).Int64("rfc_id", rfc.ID).Msg("Failed to load authors for index entry")
	} else {
		for _, a := range list {
			authors = append(authors, a.TitlepageName)
		}
	}

	date := rfc.PublishedAt.Format("January 2006")
	if rfc.IsAprilFirst() {
		date = rfc.PublishedAt.Format("2 January 2006")
	}

	var relClauses strings.Builder
	relClauses.WriteString(relationClause("Obsoletes", rels.obsoletes[rfc.ID]))
	relClauses.WriteString(relationClause("Obsoleted by", rels.obsoletedBy[rfc.ID]))
	relClauses.WriteString(relationClause("Updates", rels.updates[rfc.ID]))
	relClauses.WriteString(relationClause("Updated by", rels.updatedBy[rfc.ID]))

	entry := fmt.Sprintf("%04d %s. %s. %s. (Format: %s)%s (Status: %s) (DOI: %s/RFC%04d)",
		*rfc.RfcNumber,
		rfc.Title,
		strings.Join(authors, ", "),
		date,
		indexFormats,
		relClauses.String(),
		strings.ToUpper(rfc.StdLevel),
		s.doiPrefix,
		*rfc.RfcNumber,
	)
	return wrap(entry, indexWrapWidth, indexIndent)
}

func relationClause(label string, numbers []int) string {
	if len(numbers) == 0 {
		return ""
	}
	sort.Ints(numbers)
	refs := make([]string, len(numbers))
	for i, n := range numbers {
		refs[i] = fmt.Sprintf("RFC%04d", n)
	}
	return fmt.Sprintf(" (%s %s)", label, strings.Join(refs, ", "))
}

// wrap greedily folds text at width columns, indenting continuation
// lines.
func wrap(text string, width int, indent string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var b strings.Builder
	line := words[0]
	prefix := ""
	for _, word := range words[1:] {
		if len(prefix)+len(line)+1+len(word) > width {
			b.WriteString(prefix + line + "\n")
			prefix = indent
			line = word
			continue
		}
		line += " " + word
	}
	b.WriteString(prefix + line)
	return b.String()
}
