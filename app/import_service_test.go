package app

import (
	"bytes"
	"context"
	"testing"

	"datalab/adapters/session"
	"datalab/adapters/tabular"
	"datalab/domain/core"
	"datalab/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUploadLimit = 8 << 20

// importSurvey runs a full upload through the service and returns the
// store it landed in.
func importSurvey(t *testing.T) (*ImportService, *session.Store) {
	t.Helper()
	store := session.NewStore()
	svc := NewImportService(tabular.NewReader(testUploadLimit), store)

	raw := testkit.NewGenerator(testkit.DefaultKitConfig()).CSV()
	_, err := svc.Import(context.Background(), ImportRequest{
		Filename: "survey.csv",
		Size:     int64(len(raw)),
		Data:     bytes.NewReader(raw),
	})
	require.NoError(t, err)
	return svc, store
}

func TestImportStoresDatasetAndRawVersion(t *testing.T) {
	svc, store := importSurvey(t)

	ds, err := store.Current(context.Background())
	require.NoError(t, err)

	config := testkit.DefaultKitConfig()
	assert.Equal(t, "survey.csv", ds.OriginalFilename)
	assert.Equal(t, config.Respondents+config.DuplicateRows, ds.RowCount)
	assert.NotEmpty(t, ds.Types)

	slot, err := svc.Slot(context.Background())
	require.NoError(t, err)
	require.Len(t, slot.Versions, 1)
	assert.Equal(t, core.VersionRaw, slot.Versions[0].Tag)
	assert.True(t, slot.Versions[0].Current)
}

func TestImportReplacesPreviousDataset(t *testing.T) {
	svc, store := importSurvey(t)
	first, err := store.Current(context.Background())
	require.NoError(t, err)

	raw := testkit.NewGenerator(testkit.DefaultKitConfig()).CSV()
	result, err := svc.Import(context.Background(), ImportRequest{
		Filename: "second.csv",
		Size:     int64(len(raw)),
		Data:     bytes.NewReader(raw),
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, result.Replaced)
	assert.Equal(t, "second.csv", result.Dataset.OriginalFilename)
}

func TestImportRejectsUnsupportedFile(t *testing.T) {
	store := session.NewStore()
	svc := NewImportService(tabular.NewReader(testUploadLimit), store)

	_, err := svc.Import(context.Background(), ImportRequest{
		Filename: "notes.txt",
		Size:     4,
		Data:     bytes.NewReader([]byte("abcd")),
	})
	require.Error(t, err)

	_, err = store.Current(context.Background())
	assert.ErrorIs(t, err, core.ErrNoDataset)
}

func TestClearEmptiesSlot(t *testing.T) {
	svc, store := importSurvey(t)

	require.NoError(t, svc.Clear(context.Background()))
	_, err := store.Current(context.Background())
	assert.ErrorIs(t, err, core.ErrNoDataset)
}
