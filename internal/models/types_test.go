package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShareInputNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   ShareInput
		want ShareEntry
	}{
		{"canonical", ShareInput{UserID: "u1", Access: "write"}, ShareEntry{UserID: "u1", Access: AccessWrite}},
		{"legacy keys", ShareInput{User: "u2", Permission: "WRITE"}, ShareEntry{UserID: "u2", Access: AccessWrite}},
		{"missing access", ShareInput{UserID: "u3"}, ShareEntry{UserID: "u3", Access: AccessRead}},
		{"invalid access", ShareInput{UserID: " u4 ", Access: "owner"}, ShareEntry{UserID: "u4", Access: AccessRead}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"work", "home"}, NormalizeTags([]string{" work", "", "home", "work "}))
	assert.Empty(t, NormalizeTags(nil))
}

func TestNotePatch(t *testing.T) {
	assert.True(t, NotePatch{}.IsEmpty())

	title := "t"
	p := NotePatch{Title: &title}
	assert.True(t, p.TouchesContent())
	assert.False(t, p.IsEmpty())

	shares := []ShareInput{}
	p = NotePatch{SharedWith: &shares}
	assert.False(t, p.TouchesContent())
	assert.False(t, p.IsEmpty())
}

func TestNoteShareIndex(t *testing.T) {
	n := Note{SharedWith: []ShareEntry{{UserID: "a"}, {UserID: "b"}}}
	assert.Equal(t, 1, n.ShareIndex("b"))
	assert.Equal(t, -1, n.ShareIndex("c"))
	assert.Equal(t, []string{"a", "b"}, n.SharedUserIDs())
}
