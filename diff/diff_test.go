package diff

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Compare_Equal(t *testing.T) {
	changes := Compare([]Field{
		{Name: "name", Local: "ProcessOrder", Remote: "ProcessOrder"},
		{Name: "version", Local: "1.0", Remote: "1.0"},
		{Name: "tag_list", Local: []string{"a", "b"}, Remote: []string{"a", "b"}},
	})

	require.Empty(t, changes)
}

func Test_Compare_FiltersAndKeepsOrder(t *testing.T) {
	changes := Compare([]Field{
		{Name: "name", Local: "ProcessOrder", Remote: "ProcessOrder"},
		{Name: "status", Local: "OPEN", Remote: "CLOSED"},
		{Name: "task_list", Local: "default", Remote: "default"},
		{Name: "execution_timeout", Local: "300", Remote: "600"},
	})

	require.Len(t, changes, 2)
	require.Equal(t, Change{Field: "status", Local: "OPEN", Remote: "CLOSED"}, changes[0])
	require.Equal(t, Change{Field: "execution_timeout", Local: "300", Remote: "600"}, changes[1])
}

func Test_Compare_NoSemanticEquivalence(t *testing.T) {
	// Different string encodings of the same duration are different values
	changes := Compare([]Field{
		{Name: "execution_timeout", Local: "300", Remote: "300.0"},
	})

	require.Len(t, changes, 1)
}

func Test_Compare_TagListOrder(t *testing.T) {
	changes := Compare([]Field{
		{Name: "tag_list", Local: []string{"a", "b"}, Remote: []string{"b", "a"}},
	})

	require.Len(t, changes, 1)
	require.Equal(t, "tag_list", changes[0].Field)
}

func Test_Compare_NilAgainstValue(t *testing.T) {
	changes := Compare([]Field{
		{Name: "tag_list", Local: []string(nil), Remote: []string{"a"}},
	})

	require.Len(t, changes, 1)
}
