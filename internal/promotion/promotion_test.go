package promotion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tariff-engine/internal/catalog"
)

func TestParseFilename(t *testing.T) {
	d, err := ParseFilename("portal/promotion/10/gr_4,5-st_202401010000-ed_20241231235959-tp_2-er_17-re_.json", time.UTC)
	require.NoError(t, err)

	assert.Equal(t, AudienceSelectedGroups, d.Audience)
	assert.Equal(t, []string{"4", "5"}, d.Groups)
	assert.Equal(t, []string{"17"}, d.Excluded)
	assert.Empty(t, d.Included)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), d.ValidFrom)
	assert.Equal(t, time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC), d.ValidTo)
	assert.Equal(t, "gr_4,5-st_202401010000-ed_20241231235959-tp_2-er_17-re_.json", d.Name)
}

func TestParseFilenameMalformed(t *testing.T) {
	names := []string{
		"gr_4-st_20240101-ed_20241231-tp_2-er_.json",
		"gr_4-st_2024-ed_20241231-tp_2-er_-re_.json",
		"gr_4-st_20240101-ed_2024123a-tp_2-er_-re_.json",
		"gr_4-st_20240101-ed_20241231-tp_9-er_-re_.json",
		"readme.txt",
	}
	for _, n := range names {
		_, err := ParseFilename(n, time.UTC)
		assert.ErrorIs(t, err, ErrMalformedName, n)
	}

	valid := ParseFilenames(append(names, "gr_-st_20240101-ed_20241231-tp_3-er_-re_.json"), time.UTC)
	require.Len(t, valid, 1)
	assert.Equal(t, AudienceAllResellers, valid[0].Audience)
}

func TestDescriptorValid(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	window := func(d Descriptor) Descriptor {
		d.ValidFrom = now.Add(-time.Hour)
		d.ValidTo = now.Add(time.Hour)
		return d
	}
	member := Audience{MemberID: "17", GroupID: "4"}

	tests := []struct {
		name string
		d    Descriptor
		want bool
	}{
		{"selected reseller included", window(Descriptor{Audience: AudienceSelectedResellers, Included: []string{"17"}}), true},
		{"selected reseller missing", window(Descriptor{Audience: AudienceSelectedResellers, Included: []string{"18"}}), false},
		{"group member", window(Descriptor{Audience: AudienceSelectedGroups, Groups: []string{"4"}}), true},
		{"group member excluded", window(Descriptor{Audience: AudienceSelectedGroups, Groups: []string{"4"}, Excluded: []string{"17"}}), false},
		{"other group", window(Descriptor{Audience: AudienceSelectedGroups, Groups: []string{"5"}}), false},
		{"all resellers", window(Descriptor{Audience: AudienceAllResellers}), true},
		{"all resellers excluded", window(Descriptor{Audience: AudienceAllResellers, Excluded: []string{"17"}}), false},
		{"expired", Descriptor{Audience: AudienceAllResellers, ValidFrom: now.Add(-2 * time.Hour), ValidTo: now.Add(-time.Hour)}, false},
		{"boundary inclusive", Descriptor{Audience: AudienceAllResellers, ValidFrom: now, ValidTo: now}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Valid(member, now))
		})
	}
}

func TestDescriptorDateOnlyEndCoversWholeDay(t *testing.T) {
	d, err := ParseFilename("gr_-st_20241201-ed_20241231-tp_3-er_-re_.json", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), d.ValidFrom)
	assert.Equal(t, time.Date(2024, 12, 31, 23, 59, 59, 999999999, time.UTC), d.ValidTo)

	member := Audience{MemberID: "17"}
	assert.True(t, d.Valid(member, time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC)))
	assert.True(t, d.Valid(member, time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, d.Valid(member, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFindPrefersMostSpecificAudience(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	from, to := now.Add(-24*time.Hour), now.Add(24*time.Hour)
	records := []Descriptor{
		{Name: "all", Audience: AudienceAllResellers, ValidFrom: from, ValidTo: to},
		{Name: "groups", Audience: AudienceSelectedGroups, Groups: []string{"4"}, ValidFrom: from, ValidTo: to},
		{Name: "resellers", Audience: AudienceSelectedResellers, Included: []string{"17"}, ValidFrom: from, ValidTo: to},
	}

	got, ok := Find(records, Audience{MemberID: "17", GroupID: "4"}, now)
	require.True(t, ok)
	assert.Equal(t, "resellers", got.Name)

	got, ok = Find(records, Audience{MemberID: "18", GroupID: "4"}, now)
	require.True(t, ok)
	assert.Equal(t, "groups", got.Name)

	_, ok = Find(records[:1], Audience{MemberID: "18"}, now.Add(48*time.Hour))
	assert.False(t, ok)
}

func TestPromotionMatch(t *testing.T) {
	p := &Promotion{Overrides: map[catalog.Category][]Override{
		catalog.CategoryCollection: {
			{ScopeID: "c1", Print: "stripes", Billing: BillingPercentage, Price: 5},
			{ScopeID: "c2", Billing: BillingCash, Price: 3},
		},
		catalog.CategoryOptional: {{ScopeID: "o1", Billing: BillingCash, Price: 15}},
	}}

	_, ok := p.Match(catalog.CategoryCollection, "c1", "dots")
	assert.False(t, ok)

	o, ok := p.Match(catalog.CategoryCollection, "c1", "stripes")
	require.True(t, ok)
	assert.Equal(t, 5.0, o.Price)

	_, ok = p.Match(catalog.CategoryCollection, "c2", "anything")
	assert.True(t, ok)

	_, ok = p.Match(catalog.CategoryModel, "o1", "")
	assert.False(t, ok)

	var none *Promotion
	_, ok = none.Match(catalog.CategoryOptional, "o1", "")
	assert.False(t, ok)
}
