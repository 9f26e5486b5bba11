package category

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(v int64) *int64 { return &v }

func ids(cs []Category) []int64 {
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

// 1 ─┬─ 2 ── 4 ── 5
//    └─ 3
// 6
func flat() []Category {
	return []Category{
		{ID: 1, Name: "Clothing"},
		{ID: 2, Name: "Men", ParentID: id(1)},
		{ID: 3, Name: "Women", ParentID: id(1)},
		{ID: 4, Name: "Shirts", ParentID: id(2)},
		{ID: 5, Name: "Polo", ParentID: id(4)},
		{ID: 6, Name: "Books"},
	}
}

func TestDescendants(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		want []int64
	}{
		{"Root", 1, []int64{2, 3, 4, 5}},
		{"Middle", 2, []int64{4, 5}},
		{"Leaf", 5, nil},
		{"Unknown", 42, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Descendants(flat(), tt.id)
			assert.Len(t, got, len(tt.want))
			for _, w := range tt.want {
				assert.True(t, got[w], "missing %d", w)
			}
		})
	}
}

func TestDescendantsSurvivesCycle(t *testing.T) {
	cs := []Category{
		{ID: 1, ParentID: id(2)},
		{ID: 2, ParentID: id(1)},
	}
	got := Descendants(cs, 1)
	assert.Equal(t, map[int64]bool{2: true}, got)
}

func TestParentOptions(t *testing.T) {
	tests := []struct {
		name   string
		selfID int64
		want   []int64
	}{
		{"NewCategory", 0, []int64{1, 2, 3, 4, 5, 6}},
		{"EditRoot", 1, []int64{6}},
		{"EditMiddle", 2, []int64{1, 3, 6}},
		{"EditLeaf", 5, []int64{1, 2, 3, 4, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(ParentOptions(flat(), tt.selfID)))
		})
	}
}

func TestFlattenNestedTree(t *testing.T) {
	tree := []Category{
		{ID: 1, Children: []Category{
			{ID: 2, Children: []Category{{ID: 4}}},
			{ID: 3},
		}},
		{ID: 6, Subcategories: []Category{{ID: 7}}},
	}

	got := Flatten(tree)
	assert.Equal(t, []int64{1, 2, 4, 3, 6, 7}, ids(got))
	require.NotNil(t, got[2].ParentID)
	assert.Equal(t, int64(2), *got[2].ParentID)
	assert.Nil(t, got[0].Children)

	assert.Equal(t, []int64{1, 3, 6, 7}, ids(ParentOptions(tree, 2)))
}

func TestDecode(t *testing.T) {
	list, err := Decode(strings.NewReader(`[{"id":1,"name":"A","parentId":null}]`))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = Decode(strings.NewReader(`{"success":true,"data":[{"id":1},{"id":2,"parentId":1}]}`))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), *list[1].ParentID)

	_, err = Decode(strings.NewReader(`{"success":false,"message":"forbidden"}`))
	assert.ErrorContains(t, err, "forbidden")

	_, err = Decode(strings.NewReader(`not json`))
	assert.Error(t, err)
}
