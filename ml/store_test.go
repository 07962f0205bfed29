package ml

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainedPair(t *testing.T) *ModelPair {
	t.Helper()
	games, err := GenerateSampleGames(SampleConfig{Rows: 120, Seed: 3, NoiseStdDev: 0.5})
	require.NoError(t, err)
	ds := DatasetFromGames(games)
	all := make([]int, ds.Len())
	for i := range all {
		all[i] = i
	}
	x := ds.matrix(FeatureNames(), all)

	pair := NewModelPair(PipelineConfig{NEstimators: 5, Seed: 9})
	require.NoError(t, pair.Home.Fit(x, ds.values(LabelHomeRuns, all)))
	require.NoError(t, pair.Away.Fit(x, ds.values(LabelAwayRuns, all)))
	return pair
}

func TestModelStoreRoundTrip(t *testing.T) {
	store := NewModelStore(filepath.Join(t.TempDir(), "nested", "dir", "model.json"))
	assert.False(t, store.Exists())

	pair := trainedPair(t)
	require.NoError(t, store.Save(pair))
	assert.True(t, store.Exists())

	loaded, err := store.Load()
	require.NoError(t, err)
	require.True(t, loaded.Trained())

	vector := FeatureVector(SampleFeatureRecord())
	for _, side := range []Side{SideHome, SideAway} {
		want, err := pair.Pipeline(side).Predict(vector)
		require.NoError(t, err)
		got, err := loaded.Pipeline(side).Predict(vector)
		require.NoError(t, err)
		assert.Equal(t, want, got, "side %s", side)
	}
	assert.Equal(t, 5, loaded.Home.Config().NEstimators)

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestModelStoreRefusesUntrainedPair(t *testing.T) {
	store := NewModelStore(filepath.Join(t.TempDir(), "model.json"))
	assert.Error(t, store.Save(NewModelPair(DefaultPipelineConfig())))
	assert.False(t, store.Exists())
}

func TestModelStoreLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	pair := trainedPair(t)
	good := NewModelStore(filepath.Join(dir, "good.json"))
	require.NoError(t, good.Save(pair))
	payload, err := os.ReadFile(good.Path())
	require.NoError(t, err)

	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &envelope))
	var pipelines map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(envelope["pipelines"], &pipelines))

	onlyHome, _ := json.Marshal(map[string]any{
		"format_version": StoreFormatVersion,
		"pipelines":      map[string]json.RawMessage{"home": pipelines["home"]},
	})
	badNodes, _ := json.Marshal(map[string]any{
		"format_version": StoreFormatVersion,
		"pipelines": map[string]any{
			"home": pipelines["home"],
			"away": map[string]any{
				"scaler": map[string]any{"mean": []float64{0, 0, 0, 0, 0, 0}, "scale": []float64{1, 1, 1, 1, 1, 1}},
				"trees":  [][]map[string]any{{{"f": 0, "t": 1, "l": 5, "r": 6, "v": 0}}},
			},
		},
	})

	cases := map[string][]byte{
		"truncated":     payload[:len(payload)/2],
		"not json":      []byte("\x80\x04pickle"),
		"wrong version": []byte(`{"format_version":99,"pipelines":{}}`),
		"missing side":  onlyHome,
		"bad nodes":     badNodes,
		"narrow scaler": []byte(`{"format_version":1,"pipelines":{"home":{"scaler":{"mean":[0],"scale":[1]},"trees":[[{"f":-1,"v":1}]]},"away":{"scaler":{"mean":[0],"scale":[1]},"trees":[[{"f":-1,"v":1}]]}}}`),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			store := NewModelStore(filepath.Join(dir, name+".json"))
			require.NoError(t, os.WriteFile(store.Path(), data, 0o600))
			_, err := store.Load()
			assert.ErrorIs(t, err, ErrStoreCorrupt)
		})
	}
}

func TestModelStoreLoadMissingFile(t *testing.T) {
	_, err := NewModelStore(filepath.Join(t.TempDir(), "absent.json")).Load()
	assert.ErrorIs(t, err, ErrStoreCorrupt)
}
