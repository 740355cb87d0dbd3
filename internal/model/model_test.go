package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	cases := []struct {
		name, email, want string
	}{
		{"Alice", "alice@x.edu", "Alice"},
		{"  ", "bob@x.edu", "bob"},
		{"3. Carol", "", "Carol"},
		{"12) dave@x.edu", "", "dave"},
		{"", "", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DisplayName(c.name, c.email), "name=%q email=%q", c.name, c.email)
	}
}

func TestItemKindTable(t *testing.T) {
	assert.Equal(t, "answers", KindAnswer.Table())
	assert.Equal(t, "materials", KindMaterial.Table())
	assert.Empty(t, ItemKind("poll").Table())
}

func TestQuestionTagList(t *testing.T) {
	q := Question{Tags: "go,sql"}
	assert.Equal(t, []string{"go", "sql"}, q.TagList())
	assert.Equal(t, []string{}, (&Question{}).TagList())
}
