// Package matching implements fuzzy duplicate detection for composers and works.
package matching

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/fdtorres1/opusgraph/pkg/metrics"
	"github.com/fdtorres1/opusgraph/pkg/models"
	"github.com/fdtorres1/opusgraph/pkg/normalizers"
	"github.com/fdtorres1/opusgraph/pkg/tracing"
)

const (
	// NameSimilarityThreshold is the minimum Jaro-Winkler score on folded
	// names for two records to be treated as probable duplicates
	NameSimilarityThreshold = 0.90

	// BirthYearTolerance is the maximum birth year difference when both
	// records carry one
	BirthYearTolerance = 1
)

// ComposerCandidate is a trigram-prefiltered composer row
type ComposerCandidate struct {
	ID        string `db:"id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	BirthYear *int   `db:"birth_year"`
}

// WorkCandidate is a trigram-prefiltered work row
type WorkCandidate struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

// ComposerCandidateSource supplies prefiltered composer rows for scoring.
// Implementations use trigram similarity so the detector only scores a
// short list.
type ComposerCandidateSource interface {
	ComposerCandidates(ctx context.Context, name string) ([]ComposerCandidate, error)
}

// WorkCandidateSource supplies prefiltered work rows for scoring
type WorkCandidateSource interface {
	WorkCandidates(ctx context.Context, composerID string, name string) ([]WorkCandidate, error)
}

// Detector finds probable duplicate entities. It is read-only and takes
// no locks; two concurrent imports can both see no duplicate.
type Detector struct {
	composers ComposerCandidateSource
	works     WorkCandidateSource
	scorer    *Scorer
	logger    ectologger.Logger
}

func NewDetector(composers ComposerCandidateSource, works WorkCandidateSource, logger ectologger.Logger) *Detector {
	return &Detector{
		composers: composers,
		works:     works,
		scorer:    NewScorer(),
		logger:    logger,
	}
}

// FindComposerDuplicates returns ids of existing composers whose folded
// name matches and whose birth year agrees or is absent on either side.
// excludeID skips the record being checked on updates. No match is not
// an error.
func (d *Detector) FindComposerDuplicates(ctx context.Context, firstName, lastName string, birthYear *int, excludeID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Detector.FindComposerDuplicates")
	defer span.End()

	name := normalizers.NormalizeName(firstName + " " + lastName)
	if name == "" {
		return nil, nil
	}

	candidates, err := d.composers.ComposerCandidates(ctx, name)
	if err != nil {
		d.logger.WithContext(ctx).WithError(err).Error("failed to fetch composer duplicate candidates")
		return nil, err
	}

	ids := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == excludeID {
			continue
		}
		candidateName := normalizers.NormalizeName(candidate.FirstName + " " + candidate.LastName)
		if !d.namesMatch(name, candidateName) {
			continue
		}
		if !birthYearsAgree(birthYear, candidate.BirthYear) {
			continue
		}
		ids = append(ids, candidate.ID)
	}

	recordCheck(models.EntityTypeComposer, ids)
	return ids, nil
}

// FindWorkDuplicates returns ids of existing works under the same composer
// whose folded name matches.
func (d *Detector) FindWorkDuplicates(ctx context.Context, composerID, workName, excludeID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Detector.FindWorkDuplicates")
	defer span.End()

	name := normalizers.NormalizeName(workName)
	if name == "" || composerID == "" {
		return nil, nil
	}

	candidates, err := d.works.WorkCandidates(ctx, composerID, name)
	if err != nil {
		d.logger.WithContext(ctx).WithError(err).Error("failed to fetch work duplicate candidates")
		return nil, err
	}

	ids := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == excludeID {
			continue
		}
		if !d.namesMatch(name, normalizers.NormalizeName(candidate.Name)) {
			continue
		}
		ids = append(ids, candidate.ID)
	}

	recordCheck(models.EntityTypeWork, ids)
	return ids, nil
}

func (d *Detector) namesMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return d.scorer.JaroWinkler(a, b) >= NameSimilarityThreshold
}

// birthYearsAgree applies the tie-break: absence on either side never
// disqualifies a match, but two present years must be within tolerance.
func birthYearsAgree(a, b *int) bool {
	if a == nil || b == nil {
		return true
	}
	diff := *a - *b
	if diff < 0 {
		diff = -diff
	}
	return diff <= BirthYearTolerance
}

func recordCheck(entityType models.EntityType, ids []string) {
	result := "no_match"
	if len(ids) > 0 {
		result = "match"
	}
	metrics.RecordDuplicateCheck(string(entityType), result)
}
