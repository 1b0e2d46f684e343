package extract

import (
	"strings"

	"github.com/mwielgus/pagekb"
)

// extractedSet indexes extracted sections by ID while remembering
// insertion order, so title-based fallback lookups stay deterministic.
type extractedSet struct {
	byID  map[string]pagekb.Section
	order []string
}

func newExtractedSet() *extractedSet {
	return &extractedSet{byID: make(map[string]pagekb.Section)}
}

func (s *extractedSet) add(sec pagekb.Section) {
	if _, exists := s.byID[sec.ID]; !exists {
		s.order = append(s.order, sec.ID)
	}
	s.byID[sec.ID] = sec
}

// resolve finds the extracted section for a scheduled one in three
// tiers: exact ID, then case-insensitive title match in insertion
// order, then a placeholder so the hierarchy never loses a slot.
func (s *extractedSet) resolve(id, title string, level int) pagekb.Section {
	if sec, ok := s.byID[id]; ok {
		return sec
	}
	for _, candidate := range s.order {
		if strings.EqualFold(s.byID[candidate].Title, title) {
			return s.byID[candidate]
		}
	}
	return pagekb.NewSection(id, title, level, "")
}

// reconstructHierarchy reassembles the grouped two-level tree from the
// flat extraction results. A parent's subsections are always replaced
// by the resolved children list, even when the model nested children
// under the parent itself; each child carries its grouping category
// into the section data.
func reconstructHierarchy(groups []pagekb.GroupedSection, extracted *extractedSet) []pagekb.Section {
	sections := make([]pagekb.Section, 0, len(groups))
	for _, gs := range groups {
		sec := extracted.resolve(gs.ID, gs.Title, gs.Level)

		if gs.Type == pagekb.GroupParent && len(gs.Children) > 0 {
			children := make([]pagekb.Section, 0, len(gs.Children))
			for _, child := range gs.Children {
				cs := extracted.resolve(child.ID, child.Title, gs.Level+1)
				if child.Category != "" {
					cs.Data = cs.Data.WithCategory(child.Category)
				}
				children = append(children, cs)
			}
			sec.Subsections = children
		}

		sections = append(sections, sec)
	}
	return sections
}
