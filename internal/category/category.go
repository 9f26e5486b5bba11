// Package category computes which categories may become a category's
// parent without creating a cycle.
package category

import (
	"encoding/json"
	"fmt"
	"io"
)

// Category mirrors the admin API's category object. Children and
// Subcategories carry the same nesting under their old and new names.
type Category struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Description   *string    `json:"description"`
	ParentID      *int64     `json:"parentId"`
	Order         int        `json:"order,omitempty"`
	Children      []Category `json:"children,omitempty"`
	Subcategories []Category `json:"subcategories,omitempty"`
}

// Decode reads either a bare JSON array of categories or the API envelope
// {"success": true, "data": [...]}.
func Decode(r io.Reader) ([]Category, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}

	var list []Category
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var envelope struct {
		Success bool       `json:"success"`
		Message string     `json:"message"`
		Data    []Category `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}
	if !envelope.Success && envelope.Data == nil {
		return nil, fmt.Errorf("categories response unsuccessful: %s", envelope.Message)
	}
	return envelope.Data, nil
}

// Flatten lists every category of a nested tree in pre-order. A category
// reachable twice is listed once.
func Flatten(tree []Category) []Category {
	var out []Category
	seen := make(map[int64]bool)

	stack := make([]Category, 0, len(tree))
	for i := len(tree) - 1; i >= 0; i-- {
		stack = append(stack, tree[i])
	}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true

		nested := append(append([]Category(nil), c.Children...), c.Subcategories...)
		for i := len(nested) - 1; i >= 0; i-- {
			child := nested[i]
			if child.ParentID == nil {
				id := c.ID
				child.ParentID = &id
			}
			stack = append(stack, child)
		}

		c.Children, c.Subcategories = nil, nil
		out = append(out, c)
	}
	return out
}

// Descendants returns the IDs of every category below id in the parent
// relation of a flat list, excluding id itself.
func Descendants(categories []Category, id int64) map[int64]bool {
	children := make(map[int64][]int64)
	for _, c := range categories {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}

	out := make(map[int64]bool)
	queue := []int64{id}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, child := range children[next] {
			if child == id || out[child] {
				continue
			}
			out[child] = true
			queue = append(queue, child)
		}
	}
	return out
}

// ParentOptions lists the categories that may be chosen as parent of the
// category selfID: everything except itself and its descendants. A
// selfID of 0 means a new category, for which every category is eligible.
func ParentOptions(categories []Category, selfID int64) []Category {
	flat := Flatten(categories)
	if selfID == 0 {
		return flat
	}

	excluded := Descendants(flat, selfID)
	excluded[selfID] = true

	out := make([]Category, 0, len(flat))
	for _, c := range flat {
		if !excluded[c.ID] {
			out = append(out, c)
		}
	}
	return out
}
