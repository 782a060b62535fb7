package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Brass Diya", "brass-diya"},
		{"BRASS   DIYA", "brass-diya"},
		{"  --Brass__Diya--  ", "brass-diya"},
		{"Pūjā Thālī", "puja-thali"},
		{"Café Crème", "cafe-creme"},
		{"Ørsted Brass", "orsted-brass"},
		{"Straße Lamp", "strasse-lamp"},
		{"Ganesha Idol (Large) 12\"", "ganesha-idol-large-12"},
		{"daily-pooja", "daily-pooja"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugifyTransliteratesScripts(t *testing.T) {
	for _, s := range []string{"दीया", "Ελληνικά", "Москва"} {
		got := Slugify(s)
		assert.Regexp(t, `^[a-z0-9]+(-[a-z0-9]+)*$`, got, s)
	}
}

func TestSlugifyIsIdempotent(t *testing.T) {
	for _, s := range []string{"Brass Diya", "Pūjā Thālī", "a--b", "Ünïcödé Läbel"} {
		once := Slugify(s)
		assert.Equal(t, once, Slugify(once), s)
	}
}

func TestHasRandomSuffix(t *testing.T) {
	assert.True(t, hasRandomSuffix("brass-diya-x7k2", "brass-diya", 4))
	assert.False(t, hasRandomSuffix("brass-diya", "brass-diya", 4))
	assert.True(t, hasRandomSuffix("brass-diya-lamp", "brass-diya", 4))
	assert.False(t, hasRandomSuffix("brass-diya-lamps", "brass-diya", 4))
	assert.False(t, hasRandomSuffix("brass-diyas-x7k2", "brass-diya", 4))
	assert.False(t, hasRandomSuffix("brass-diya-ab", "brass-diya", 4))
	assert.False(t, hasRandomSuffix("brass-diya-AB12", "brass-diya", 4))
}
