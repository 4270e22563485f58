package areaconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-checker/internal/common"
	"github.com/joseph-ayodele/invoice-checker/internal/entity"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "E.DIS_Netz_2024.json", FileName("E.DIS Netz/2024"))
	assert.Equal(t, "a-b_c.json", FileName(" a-b_c "))
}

func TestSaveAndLoad(t *testing.T) {
	s, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	cfg := entity.NewExtractionConfig("Avacon AG")
	cfg.UsePageSpecificAreas = true
	cfg.AddPageArea(2, entity.NewAreaDefinition(10, 700, 500, 100))
	require.NoError(t, s.Save(cfg))

	assert.FileExists(t, filepath.Join(s.Dir(), "Avacon_AG.json"))

	got, err := s.Load("Avacon AG")
	require.NoError(t, err)
	assert.Equal(t, cfg.Name, got.Name)
	assert.True(t, got.UsePageSpecificAreas)
	assert.Equal(t, []int{2}, got.ConfiguredPages())
	assert.Equal(t, entity.AreaDefinition{X1: 10, Y1: 100, X2: 500, Y2: 700}, got.AreasForPage(2)[0])
}

func TestLoadMissing(t *testing.T) {
	s, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = s.Load("nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLoadCorrectsName(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Quadra.json"),
		[]byte(`{"name":"old","usePageSpecificAreas":false,"globalAreasList":[{"x1":1,"y1":2,"x2":3,"y2":4}]}`), 0o644))

	got, err := s.Load("Quadra")
	require.NoError(t, err)
	assert.Equal(t, "Quadra", got.Name)
	assert.Len(t, got.GlobalAreas, 1)
	assert.NotNil(t, got.PageAreas)
}

func TestListSortedCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, nil)
	require.NoError(t, err)
	for _, n := range []string{"beta", "Alpha", "gamma"} {
		require.NoError(t, s.Save(entity.NewExtractionConfig(n)))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "beta", "gamma"}, names)

	require.NoError(t, s.Delete("beta"))
	require.NoError(t, s.Delete("beta"))
	names, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "gamma"}, names)
}

func TestSaveRejectsNil(t *testing.T) {
	s, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Error(t, s.Save(nil))
}
