package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
)

type fakeComposerSource struct {
	candidates []ComposerCandidate
	err        error
	gotName    string
}

func (f *fakeComposerSource) ComposerCandidates(_ context.Context, name string) ([]ComposerCandidate, error) {
	f.gotName = name
	return f.candidates, f.err
}

type fakeWorkSource struct {
	candidates []WorkCandidate
	err        error
}

func (f *fakeWorkSource) WorkCandidates(_ context.Context, _ string, _ string) ([]WorkCandidate, error) {
	return f.candidates, f.err
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func intPtr(n int) *int {
	return &n
}

func TestFindComposerDuplicates(t *testing.T) {
	ctx := context.Background()

	t.Run("should match identical folded names", func(t *testing.T) {
		source := &fakeComposerSource{candidates: []ComposerCandidate{
			{ID: "c1", FirstName: "Antonín", LastName: "Dvořák"},
		}}
		detector := NewDetector(source, &fakeWorkSource{}, testLogger())

		ids, err := detector.FindComposerDuplicates(ctx, "Antonin", "Dvorak", nil, "")
		assert.NoError(t, err)
		assert.Equal(t, []string{"c1"}, ids)
		assert.Equal(t, "antonin dvorak", source.gotName)
	})

	t.Run("should match near-identical names above the threshold", func(t *testing.T) {
		source := &fakeComposerSource{candidates: []ComposerCandidate{
			{ID: "c1", FirstName: "Antonin", LastName: "Dvorack"},
		}}
		detector := NewDetector(source, &fakeWorkSource{}, testLogger())

		ids, err := detector.FindComposerDuplicates(ctx, "Antonin", "Dvorak", nil, "")
		assert.NoError(t, err)
		assert.Equal(t, []string{"c1"}, ids)
	})

	t.Run("should not match dissimilar names", func(t *testing.T) {
		source := &fakeComposerSource{candidates: []ComposerCandidate{
			{ID: "c1", FirstName: "Igor", LastName: "Stravinsky"},
		}}
		detector := NewDetector(source, &fakeWorkSource{}, testLogger())

		ids, err := detector.FindComposerDuplicates(ctx, "Antonin", "Dvorak", nil, "")
		assert.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("should tolerate a one year birth year difference", func(t *testing.T) {
		source := &fakeComposerSource{candidates: []ComposerCandidate{
			{ID: "c1", FirstName: "Antonin", LastName: "Dvorak", BirthYear: intPtr(1842)},
		}}
		detector := NewDetector(source, &fakeWorkSource{}, testLogger())

		ids, err := detector.FindComposerDuplicates(ctx, "Antonin", "Dvorak", intPtr(1841), "")
		assert.NoError(t, err)
		assert.Equal(t, []string{"c1"}, ids)
	})

	t.Run("should reject birth years further than one year apart", func(t *testing.T) {
		source := &fakeComposerSource{candidates: []ComposerCandidate{
			{ID: "c1", FirstName: "Antonin", LastName: "Dvorak", BirthYear: intPtr(1850)},
		}}
		detector := NewDetector(source, &fakeWorkSource{}, testLogger())

		ids, err := detector.FindComposerDuplicates(ctx, "Antonin", "Dvorak", intPtr(1841), "")
		assert.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("should never disqualify on an absent birth year", func(t *testing.T) {
		source := &fakeComposerSource{candidates: []ComposerCandidate{
			{ID: "c1", FirstName: "Antonin", LastName: "Dvorak"},
		}}
		detector := NewDetector(source, &fakeWorkSource{}, testLogger())

		ids, err := detector.FindComposerDuplicates(ctx, "Antonin", "Dvorak", intPtr(1841), "")
		assert.NoError(t, err)
		assert.Equal(t, []string{"c1"}, ids)
	})

	t.Run("should exclude the record being checked", func(t *testing.T) {
		source := &fakeComposerSource{candidates: []ComposerCandidate{
			{ID: "c1", FirstName: "Antonin", LastName: "Dvorak"},
			{ID: "c2", FirstName: "Antonin", LastName: "Dvorak"},
		}}
		detector := NewDetector(source, &fakeWorkSource{}, testLogger())

		ids, err := detector.FindComposerDuplicates(ctx, "Antonin", "Dvorak", nil, "c1")
		assert.NoError(t, err)
		assert.Equal(t, []string{"c2"}, ids)
	})

	t.Run("should return nil for a blank name", func(t *testing.T) {
		source := &fakeComposerSource{}
		detector := NewDetector(source, &fakeWorkSource{}, testLogger())

		ids, err := detector.FindComposerDuplicates(ctx, "  ", "", nil, "")
		assert.NoError(t, err)
		assert.Nil(t, ids)
	})

	t.Run("should propagate source errors", func(t *testing.T) {
		source := &fakeComposerSource{err: errors.New("boom")}
		detector := NewDetector(source, &fakeWorkSource{}, testLogger())

		_, err := detector.FindComposerDuplicates(ctx, "Antonin", "Dvorak", nil, "")
		assert.Error(t, err)
	})
}

func TestFindWorkDuplicates(t *testing.T) {
	ctx := context.Background()

	t.Run("should match same name under the same composer", func(t *testing.T) {
		source := &fakeWorkSource{candidates: []WorkCandidate{
			{ID: "w1", Name: "Symphony No. 9"},
		}}
		detector := NewDetector(&fakeComposerSource{}, source, testLogger())

		ids, err := detector.FindWorkDuplicates(ctx, "c1", "Symphony No 9", "")
		assert.NoError(t, err)
		assert.Equal(t, []string{"w1"}, ids)
	})

	t.Run("should not match different works", func(t *testing.T) {
		source := &fakeWorkSource{candidates: []WorkCandidate{
			{ID: "w1", Name: "Cello Concerto in B minor"},
		}}
		detector := NewDetector(&fakeComposerSource{}, source, testLogger())

		ids, err := detector.FindWorkDuplicates(ctx, "c1", "Symphony No. 9", "")
		assert.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("should exclude the record being checked", func(t *testing.T) {
		source := &fakeWorkSource{candidates: []WorkCandidate{
			{ID: "w1", Name: "Symphony No. 9"},
		}}
		detector := NewDetector(&fakeComposerSource{}, source, testLogger())

		ids, err := detector.FindWorkDuplicates(ctx, "c1", "Symphony No. 9", "w1")
		assert.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("should return nil when composer id is missing", func(t *testing.T) {
		detector := NewDetector(&fakeComposerSource{}, &fakeWorkSource{}, testLogger())

		ids, err := detector.FindWorkDuplicates(ctx, "", "Symphony No. 9", "")
		assert.NoError(t, err)
		assert.Nil(t, ids)
	})
}
