package dict

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSentinelBeforeTable(t *testing.T) {
	table := NewTable(map[uint64]string{0: "Reverse", 1: "Nominal", 1023: "shadowed"})
	sentinel := MaxSentinel(10, "Infinite")
	assert.EqualValues(t, 1023, sentinel.Value)

	label, ok := Resolve(sentinel, table, 1023)
	require.True(t, ok)
	assert.Equal(t, "Infinite", label)

	label, ok = Resolve(sentinel, table, 1)
	require.True(t, ok)
	assert.Equal(t, "Nominal", label)

	_, ok = Resolve(nil, table, 7)
	assert.False(t, ok)

	_, ok = Resolve(nil, nil, 0)
	assert.False(t, ok, "nil table has no labels")
}

func TestTableIsACopy(t *testing.T) {
	src := map[uint64]string{2: "b", 1: "a"}
	table := NewTable(src)
	src[3] = "c"
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []uint64{1, 2}, table.Values())
}

func TestFromFileValidation(t *testing.T) {
	tests := []struct {
		name    string
		file    File
		wantErr string
	}{
		{name: "empty name", file: File{Variables: []FileVariable{{Name: " "}}}, wantErr: "variables[0]: empty name"},
		{
			name:    "duplicate",
			file:    File{Variables: []FileVariable{{Name: "NID_C"}, {Name: "NID_C"}}},
			wantErr: "variables[1]: duplicate variable NID_C",
		},
		{
			name:    "bad key",
			file:    File{Variables: []FileVariable{{Name: "NID_C", Labels: map[string]string{"x": "y"}}}},
			wantErr: `variables[0]: label key "x" is not a number`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromFile(tc.file)
			require.Error(t, err)
			assert.Equal(t, tc.wantErr, err.Error())
		})
	}
}

func TestStoreLookupAndValidate(t *testing.T) {
	store, err := FromFile(File{Variables: []FileVariable{
		{Name: "NID_C", Labels: map[string]string{"513": " Test country "}},
		{Name: "T_VBC", Sentinel: &FileSentinel{Value: 255, Label: "Permanent"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"NID_C", "T_VBC"}, store.Names())

	label, ok := store.Lookup("NID_C", 513)
	require.True(t, ok)
	assert.Equal(t, "Test country", label)

	label, ok = store.Lookup("T_VBC", 255)
	require.True(t, ok)
	assert.Equal(t, "Permanent", label)

	_, ok = store.Lookup("Q_DIR", 0)
	assert.False(t, ok)

	widths := map[string]int{"NID_C": 10, "T_VBC": 8}
	width := func(name string) (int, bool) {
		w, ok := widths[name]
		return w, ok
	}
	require.NoError(t, store.Validate(width))

	widths["T_VBC"] = 7
	assert.EqualError(t, store.Validate(width), "dictionary: T_VBC: sentinel 255 exceeds 7-bit width")

	delete(widths, "NID_C")
	assert.EqualError(t, store.Validate(width), "dictionary: unknown variable NID_C")
}

func TestNilStore(t *testing.T) {
	var store *Store
	assert.True(t, store.IsEmpty())
	_, ok := store.Lookup("NID_C", 1)
	assert.False(t, ok)
	assert.NoError(t, store.Validate(func(string) (int, bool) { return 0, false }))
}

func TestEnsureLoaded(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "dict.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"variables":[{"name":"NID_BG","labels":{"42":"Depot entry"}}]}`), 0o644))
	yamlPath := filepath.Join(dir, "dict.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("variables:\n  - name: NID_BG\n    labels:\n      \"42\": Depot exit\n"), 0o644))

	store, err := EnsureLoaded(jsonPath)
	require.NoError(t, err)
	label, _ := store.Lookup("NID_BG", 42)
	assert.Equal(t, "Depot entry", label)

	store, err = EnsureLoaded(yamlPath)
	require.NoError(t, err)
	label, _ = store.Lookup("NID_BG", 42)
	assert.Equal(t, "Depot exit", label)

	_, err = EnsureLoaded("")
	assert.EqualError(t, err, "empty dictionary path")

	_, err = EnsureLoaded(dir)
	assert.Error(t, err)
}
