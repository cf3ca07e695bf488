package gamma

import (
	"fmt"
	"strings"
)

// Rank is one tier of the transcriber flair ladder. UpperBound is -1 for
// the open-ended top rank.
type Rank struct {
	Name       string
	Color      string
	LowerBound int64
	UpperBound int64
}

// Has reports whether a gamma count falls inside this rank's bounds.
func (r Rank) Has(gamma int64) bool {
	return r.LowerBound <= gamma && (r.UpperBound < 0 || gamma <= r.UpperBound)
}

// Passed reports whether a gamma count has reached this rank's lower bound.
func (r Rank) Passed(gamma int64) bool {
	return r.LowerBound <= gamma
}

func (r Rank) String() string {
	if r.UpperBound < 0 {
		return fmt.Sprintf("%s (%d+)", r.Name, r.LowerBound)
	}
	return fmt.Sprintf("%s (%d-%d)", r.Name, r.LowerBound, r.UpperBound)
}

// Visitor is the implicit rank below the ladder, for accounts with no
// transcriptions yet.
var Visitor = Rank{Name: "Visitor", Color: "#a6a6a6", LowerBound: 0, UpperBound: 0}

// Ranks is the flair ladder in ascending order.
var Ranks = []Rank{
	{Name: "Initiate", Color: "#ffffff", LowerBound: 1, UpperBound: 24},
	{Name: "Pink", Color: "#e696be", LowerBound: 25, UpperBound: 49},
	{Name: "Green", Color: "#00ff00", LowerBound: 50, UpperBound: 99},
	{Name: "Teal", Color: "#00cccc", LowerBound: 100, UpperBound: 249},
	{Name: "Purple", Color: "#ff67ff", LowerBound: 250, UpperBound: 499},
	{Name: "Gold", Color: "#ffd700", LowerBound: 500, UpperBound: 999},
	{Name: "Diamond", Color: "#add8e6", LowerBound: 1000, UpperBound: 2499},
	{Name: "Ruby", Color: "#ff7ac2", LowerBound: 2500, UpperBound: 4999},
	{Name: "Topaz", Color: "#ff7d4d", LowerBound: 5000, UpperBound: 9999},
	{Name: "Jade", Color: "#31c831", LowerBound: 10000, UpperBound: 24999},
	{Name: "Sapphire", Color: "#99afef", LowerBound: 20000, UpperBound: -1},
}

// CurrentRank returns the highest rank whose lower bound the gamma count
// has reached, or Visitor below the ladder.
func CurrentRank(gamma int64) Rank {
	for i := len(Ranks) - 1; i >= 0; i-- {
		if Ranks[i].Passed(gamma) {
			return Ranks[i]
		}
	}
	return Visitor
}

// RankByThreshold finds the rank whose lower bound equals the given value.
func RankByThreshold(threshold int64) (Rank, bool) {
	for _, r := range Ranks {
		if r.LowerBound == threshold {
			return r, true
		}
	}
	return Rank{}, false
}

// RankByName finds a rank by case-insensitive name.
func RankByName(name string) (Rank, bool) {
	for _, r := range Ranks {
		if strings.EqualFold(name, r.Name) {
			return r, true
		}
	}
	return Rank{}, false
}
