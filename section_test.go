package pagekb_test

import (
	"encoding/json"
	"testing"

	"github.com/mwielgus/pagekb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugID(t *testing.T) {
	t.Parallel()

	t.Run("slugs plain titles", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "why_choose_our_payroll", pagekb.SlugID("Why Choose Our Payroll?"))
	})

	t.Run("strips trademark glyphs", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "payroll_pro", pagekb.SlugID("Payroll® Pro™"))
	})

	t.Run("collapses hyphens and whitespace", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "small_mid_size", pagekb.SlugID("Small - Mid  Size"))
	})

	t.Run("truncates to 50 chars", func(t *testing.T) {
		t.Parallel()

		long := "a very long marketing headline that keeps going and going and going"

		assert.LessOrEqual(t, len(pagekb.SlugID(long)), 50)
	})

	t.Run("falls back for empty titles", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "section", pagekb.SlugID("!!!"))
	})
}

func TestIDAllocator(t *testing.T) {
	t.Parallel()

	t.Run("suffixes duplicates with counters", func(t *testing.T) {
		t.Parallel()

		a := pagekb.NewIDAllocator()

		assert.Equal(t, "pricing", a.Allocate("Pricing"))
		assert.Equal(t, "pricing_1", a.Allocate("Pricing"))
		assert.Equal(t, "pricing_2", a.Allocate("Pricing"))
	})

	t.Run("distinct titles do not collide", func(t *testing.T) {
		t.Parallel()

		a := pagekb.NewIDAllocator()
		seen := map[string]bool{}
		for _, title := range []string{"FAQ", "Pricing", "FAQ", "Contact", "Pricing"} {
			id := a.Allocate(title)
			assert.False(t, seen[id], "duplicate id %q", id)
			seen[id] = true
		}
	})
}

func TestSectionData_JSON(t *testing.T) {
	t.Parallel()

	t.Run("flattens extra fields around the discriminator", func(t *testing.T) {
		t.Parallel()

		d := pagekb.SectionData{
			Type:  "faq",
			Extra: map[string]any{"items": []any{map[string]any{"question": "How?"}}},
		}

		b, err := json.Marshal(d)
		require.NoError(t, err)

		var back pagekb.SectionData
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, "faq", back.Type)
		assert.Contains(t, back.Extra, "items")
		assert.NotContains(t, back.Extra, "type")
	})
}

func TestSectionData_WithCategory(t *testing.T) {
	t.Parallel()

	t.Run("nil data yields category-only data", func(t *testing.T) {
		t.Parallel()

		var d *pagekb.SectionData

		got := d.WithCategory("Support")

		require.NotNil(t, got)
		assert.Equal(t, "Support", got.Extra["category"])
	})

	t.Run("merges without overwriting existing keys", func(t *testing.T) {
		t.Parallel()

		d := &pagekb.SectionData{Type: "pricing", Extra: map[string]any{"tiers": 4, "category": "Existing"}}

		got := d.WithCategory("Support")

		assert.Equal(t, "pricing", got.Type)
		assert.Equal(t, 4, got.Extra["tiers"])
		assert.Equal(t, "Existing", got.Extra["category"])
		// Original untouched.
		assert.Equal(t, "Existing", d.Extra["category"])
	})

	t.Run("empty category is a no-op", func(t *testing.T) {
		t.Parallel()

		d := &pagekb.SectionData{Type: "table"}

		assert.Same(t, d, d.WithCategory(""))
	})
}

func TestSection_Normalize(t *testing.T) {
	t.Parallel()

	var s pagekb.Section
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","title":"A","level":1,"summary":"","subsections":[{"id":"b","title":"B","level":2,"summary":""}]}`), &s))

	s.Normalize()

	assert.NotNil(t, s.KeyPoints)
	assert.NotNil(t, s.Images)
	assert.NotNil(t, s.Subsections)
	require.Len(t, s.Subsections, 1)
	assert.NotNil(t, s.Subsections[0].KeyPoints)
	assert.NotNil(t, s.Subsections[0].Subsections)
}

func TestNewSection(t *testing.T) {
	t.Parallel()

	s := pagekb.NewSection("hero", "Hero", 1, "Intro")

	b, err := json.Marshal(s)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	for _, key := range []string{"id", "title", "level", "summary", "content", "key_points", "images", "subsections", "data"} {
		assert.Contains(t, m, key)
	}
	assert.Equal(t, []any{}, m["key_points"])
	assert.Nil(t, m["content"])
	assert.Nil(t, m["data"])
}
