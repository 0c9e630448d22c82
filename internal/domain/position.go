package domain

import (
	"fmt"
	"sort"
)

// SortByPosition orders tasks by position ascending. Ties, which only exist
// while a list is being repaired, fall back to ID so the order is stable.
func SortByPosition(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Position != tasks[j].Position {
			return tasks[i].Position < tasks[j].Position
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// CompactPositions sorts tasks by their current order and reassigns positions
// 0..N-1 in that order. It returns only the tasks whose position changed, so
// calling it on an already dense list returns nothing.
func CompactPositions(tasks []*Task) []*Task {
	SortByPosition(tasks)

	var changed []*Task
	for i, t := range tasks {
		if t.Position != i {
			t.Position = i
			changed = append(changed, t)
		}
	}
	return changed
}

// ValidateDense reports whether the positions of tasks are exactly 0..N-1,
// each appearing once. The returned error wraps ErrPositionsNotDense.
func ValidateDense(tasks []*Task) error {
	n := len(tasks)
	seen := make([]bool, n)
	for _, t := range tasks {
		if t.Position < 0 || t.Position >= n {
			return fmt.Errorf("%w: position %d of task %d is outside 0..%d",
				ErrPositionsNotDense, t.Position, t.ID, n-1)
		}
		if seen[t.Position] {
			return fmt.Errorf("%w: position %d is used more than once",
				ErrPositionsNotDense, t.Position)
		}
		seen[t.Position] = true
	}
	return nil
}
