package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/fdtorres1/opusgraph/pkg/context"
	"github.com/fdtorres1/opusgraph/pkg/models"
)

type fakeFlagRepo struct {
	flags    map[string]*models.ReviewFlag
	resolved []string
}

func (f *fakeFlagRepo) Create(_ context.Context, flag *models.ReviewFlag) (*models.ReviewFlag, error) {
	flag.ID = uuid.New().String()
	flag.Status = models.FlagStatusOpen
	f.flags[flag.ID] = flag
	return flag, nil
}

func (f *fakeFlagRepo) Get(_ context.Context, id string) (*models.ReviewFlag, error) {
	flag, ok := f.flags[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "review flag %s not found", id)
	}
	return flag, nil
}

func (f *fakeFlagRepo) List(_ context.Context, reason string, status string, _, _ int) ([]models.ReviewFlag, int, error) {
	var out []models.ReviewFlag
	for _, flag := range f.flags {
		if reason != "" && flag.Reason != reason {
			continue
		}
		if status != "" && string(flag.Status) != status {
			continue
		}
		out = append(out, *flag)
	}
	return out, len(out), nil
}

func (f *fakeFlagRepo) Resolve(_ context.Context, id string, status models.FlagStatus, resolvedBy string) (*models.ReviewFlag, error) {
	flag, ok := f.flags[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "review flag %s not found", id)
	}
	now := time.Now().UTC()
	flag.Status = status
	flag.ResolvedBy = &resolvedBy
	flag.ResolvedAt = &now
	f.resolved = append(f.resolved, id)
	return flag, nil
}

type fakeComposerReader struct {
	composers map[string]*models.ComposerWithChildren
}

func (f *fakeComposerReader) GetWithChildren(_ context.Context, id string) (*models.ComposerWithChildren, error) {
	composer, ok := f.composers[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "composer %s not found", id)
	}
	return composer, nil
}

type fakeWorkReader struct {
	works map[string]*models.WorkWithChildren
}

func (f *fakeWorkReader) GetWithChildren(_ context.Context, id string) (*models.WorkWithChildren, error) {
	work, ok := f.works[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "work %s not found", id)
	}
	return work, nil
}

type testValidator struct {
	validate *validator.Validate
}

func (v *testValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newReviewFixture() (*fakeFlagRepo, *fakeComposerReader, *ReviewHandler, *echo.Echo) {
	flags := &fakeFlagRepo{flags: map[string]*models.ReviewFlag{}}
	composers := &fakeComposerReader{composers: map[string]*models.ComposerWithChildren{}}
	works := &fakeWorkReader{works: map[string]*models.WorkWithChildren{}}
	handler := NewReviewHandler(flags, composers, works, nil, nil, testLogger())

	e := echo.New()
	e.Validator = &testValidator{validate: validator.New()}
	return flags, composers, handler, e
}

func requestWithUser(e *echo.Echo, method, target string, body string) (echo.Context, *httptest.ResponseRecorder) {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	ctx := appctx.SetUserID(req.Context(), "reviewer-1")
	c.SetRequest(req.WithContext(ctx))
	return c, rec
}

func TestReviewCompare(t *testing.T) {
	t.Run("should return the primary next to every surviving duplicate", func(t *testing.T) {
		flags, composers, handler, e := newReviewFixture()

		composers.composers["primary"] = &models.ComposerWithChildren{Composer: models.Composer{ID: "primary", LastName: "Dvorak"}}
		composers.composers["dup-1"] = &models.ComposerWithChildren{Composer: models.Composer{ID: "dup-1", LastName: "Dvorack"}}

		flagID := uuid.New().String()
		flags.flags[flagID] = &models.ReviewFlag{
			ID:         flagID,
			EntityType: models.EntityTypeComposer,
			EntityID:   "primary",
			Reason:     models.FlagReasonPossibleDuplicate,
			Status:     models.FlagStatusOpen,
			Details:    models.FlagDetails{DuplicateIDs: []string{"dup-1", "dup-gone"}},
		}

		c, rec := requestWithUser(e, http.MethodGet, "/review/flags/"+flagID+"/compare", "")
		c.SetParamNames("id")
		c.SetParamValues(flagID)

		require.NoError(t, handler.Compare(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var comparison models.FlagComparison
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comparison))
		assert.Equal(t, models.EntityTypeComposer, comparison.EntityType)
		assert.NotNil(t, comparison.Primary)
		// dup-gone was deleted since the flag was raised and is skipped
		assert.Len(t, comparison.Duplicates, 1)
	})

	t.Run("should return only the primary when the flag lists no duplicates", func(t *testing.T) {
		flags, composers, handler, e := newReviewFixture()

		composers.composers["primary"] = &models.ComposerWithChildren{Composer: models.Composer{ID: "primary"}}
		flagID := uuid.New().String()
		flags.flags[flagID] = &models.ReviewFlag{
			ID:         flagID,
			EntityType: models.EntityTypeComposer,
			EntityID:   "primary",
			Status:     models.FlagStatusOpen,
		}

		c, rec := requestWithUser(e, http.MethodGet, "/review/flags/"+flagID+"/compare", "")
		c.SetParamNames("id")
		c.SetParamValues(flagID)

		require.NoError(t, handler.Compare(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var comparison models.FlagComparison
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comparison))
		assert.Empty(t, comparison.Duplicates)
	})

	t.Run("should 404 for an unknown flag", func(t *testing.T) {
		_, _, handler, e := newReviewFixture()

		flagID := uuid.New().String()
		c, _ := requestWithUser(e, http.MethodGet, "/review/flags/"+flagID+"/compare", "")
		c.SetParamNames("id")
		c.SetParamValues(flagID)

		err := handler.Compare(c)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}

func TestReviewResolve(t *testing.T) {
	t.Run("should resolve a flag", func(t *testing.T) {
		flags, _, handler, e := newReviewFixture()

		flagID := uuid.New().String()
		flags.flags[flagID] = &models.ReviewFlag{ID: flagID, EntityType: models.EntityTypeComposer, Status: models.FlagStatusOpen}

		c, rec := requestWithUser(e, http.MethodPost, "/review/flags/"+flagID+"/resolve", `{"action":"resolve"}`)
		c.SetParamNames("id")
		c.SetParamValues(flagID)

		require.NoError(t, handler.Resolve(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.FlagStatusResolved, flags.flags[flagID].Status)
		require.NotNil(t, flags.flags[flagID].ResolvedBy)
		assert.Equal(t, "reviewer-1", *flags.flags[flagID].ResolvedBy)
	})

	t.Run("should dismiss a flag", func(t *testing.T) {
		flags, _, handler, e := newReviewFixture()

		flagID := uuid.New().String()
		flags.flags[flagID] = &models.ReviewFlag{ID: flagID, EntityType: models.EntityTypeComposer, Status: models.FlagStatusOpen}

		c, _ := requestWithUser(e, http.MethodPost, "/review/flags/"+flagID+"/resolve", `{"action":"dismiss"}`)
		c.SetParamNames("id")
		c.SetParamValues(flagID)

		require.NoError(t, handler.Resolve(c))
		assert.Equal(t, models.FlagStatusDismissed, flags.flags[flagID].Status)
	})

	t.Run("should reject an unknown action", func(t *testing.T) {
		flags, _, handler, e := newReviewFixture()

		flagID := uuid.New().String()
		flags.flags[flagID] = &models.ReviewFlag{ID: flagID, Status: models.FlagStatusOpen}

		c, _ := requestWithUser(e, http.MethodPost, "/review/flags/"+flagID+"/resolve", `{"action":"delete"}`)
		c.SetParamNames("id")
		c.SetParamValues(flagID)

		err := handler.Resolve(c)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("should require an acting user", func(t *testing.T) {
		flags, _, handler, e := newReviewFixture()

		flagID := uuid.New().String()
		flags.flags[flagID] = &models.ReviewFlag{ID: flagID, Status: models.FlagStatusOpen}

		req := httptest.NewRequest(http.MethodPost, "/review/flags/"+flagID+"/resolve", strings.NewReader(`{"action":"resolve"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(flagID)

		err := handler.Resolve(c)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, httperror.GetStatusCode(err))
	})
}
