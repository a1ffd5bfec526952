package board

import (
	"fmt"
	"sort"
)

// RankedEntity is one row of the ranking table.
type RankedEntity struct {
	Rank   int
	Entity Entity
}

// Rank orders entities by score, highest first. Equal scores keep their
// relative input order.
func Rank(entities []Entity) []RankedEntity {
	sorted := append([]Entity(nil), entities...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	rows := make([]RankedEntity, len(sorted))
	for i, e := range sorted {
		rows[i] = RankedEntity{Rank: i + 1, Entity: e}
	}
	return rows
}

// RankingView keeps a ranking of the store up to date.
type RankingView struct {
	store     *EntityStore
	rows      []RankedEntity
	listeners []func([]RankedEntity)
}

// NewRankingView subscribes a view to store.
func NewRankingView(store *EntityStore) *RankingView {
	v := &RankingView{store: store}
	v.rows = Rank(store.All())
	store.Subscribe(func(c Change) {
		if c.Kind == SelectionChanged {
			return
		}
		v.rows = Rank(store.All())
		for _, fn := range v.listeners {
			fn(v.Rows())
		}
	})
	return v
}

// Rows returns a copy of the current ranking.
func (v *RankingView) Rows() []RankedEntity {
	return append([]RankedEntity(nil), v.rows...)
}

// OnChange registers fn to be called with every new ranking.
func (v *RankingView) OnChange(fn func([]RankedEntity)) {
	v.listeners = append(v.listeners, fn)
}

// FormatScore renders a score in signed compact notation, e.g. +1.5B or -42.
func FormatScore(value int64) string {
	sign := "+"
	if value < 0 {
		sign = "-"
	}
	abs := value
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%s%.1fB", sign, float64(abs)/1e9)
	case abs >= 1_000_000:
		return fmt.Sprintf("%s%.1fM", sign, float64(abs)/1e6)
	case abs >= 1_000:
		return fmt.Sprintf("%s%.1fK", sign, float64(abs)/1e3)
	}
	return fmt.Sprintf("%s%d", sign, abs)
}
