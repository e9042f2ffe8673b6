package chat

import (
	"sort"
	"strings"

	"github.com/janhq/reno-server/internal/domain/homecontext"
)

// productCategories maps message keywords to catalog categories. Longer
// phrases come first so "dining table" wins over "table".
var productCategories = []struct {
	keyword  string
	category string
}{
	{"dining table", "dining_table"},
	{"coffee table", "table"},
	{"tv stand", "tv_stand"},
	{"sectional", "sofa"},
	{"couch", "sofa"},
	{"sofa", "sofa"},
	{"bed frame", "bed"},
	{"bed", "bed"},
	{"nightstand", "nightstand"},
	{"dresser", "dresser"},
	{"desk", "desk"},
	{"bookshelf", "bookshelf"},
	{"bookcase", "bookshelf"},
	{"chair", "chair"},
	{"table", "table"},
	{"refrigerator", "refrigerator"},
	{"fridge", "refrigerator"},
	{"dishwasher", "dishwasher"},
	{"range", "range"},
	{"stove", "range"},
	{"oven", "range"},
	{"washer", "washer"},
	{"dryer", "dryer"},
	{"vanity", "vanity"},
	{"cabinet", "cabinet"},
	{"rug", "rug"},
}

// DetectCategory returns the product category named in message, or "".
func DetectCategory(message string) string {
	lower := " " + strings.ToLower(message) + " "
	for _, c := range productCategories {
		if containsWord(lower, c.keyword) {
			return c.category
		}
	}
	return ""
}

// MatchRoom returns the ID of the room named in message. Room names are
// tried before room types, longest first.
func MatchRoom(rooms []homecontext.Room, message string) string {
	lower := " " + strings.ToLower(message) + " "

	type candidate struct {
		phrase string
		id     string
	}
	var names, types []candidate
	for _, r := range rooms {
		if n := strings.ToLower(strings.TrimSpace(r.Name)); n != "" {
			names = append(names, candidate{n, r.ID})
		}
		if t := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(r.RoomType), "_", " ")); t != "" {
			types = append(types, candidate{t, r.ID})
		}
	}
	for _, list := range [][]candidate{names, types} {
		sort.SliceStable(list, func(i, j int) bool { return len(list[i].phrase) > len(list[j].phrase) })
		for _, c := range list {
			if containsWord(lower, c.phrase) {
				return c.id
			}
		}
	}
	return ""
}

// containsWord reports whether padded text contains phrase at word
// boundaries, allowing a trailing plural "s".
func containsWord(padded, phrase string) bool {
	for _, suffix := range []string{"", "s"} {
		idx := strings.Index(padded, phrase+suffix)
		for idx >= 0 {
			end := idx + len(phrase) + len(suffix)
			if !isLetter(padded[idx-1]) && (end >= len(padded) || !isLetter(padded[end])) {
				return true
			}
			next := strings.Index(padded[idx+1:], phrase+suffix)
			if next < 0 {
				break
			}
			idx += next + 1
		}
	}
	return false
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}
