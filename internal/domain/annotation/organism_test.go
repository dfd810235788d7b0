package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_IsTarget(t *testing.T) {
	c := NewClassifier(nil)
	tests := []struct {
		names []string
		want  bool
	}{
		{[]string{"Homo sapiens"}, true},
		{[]string{"HUMAN immunodeficiency virus 1"}, true},
		{[]string{"Mus musculus"}, true},
		{[]string{"Rattus norvegicus"}, true},
		{[]string{"Escherichia coli", "Homo sapiens"}, true},
		{[]string{"Escherichia coli"}, false},
		{[]string{"Saccharomyces cerevisiae"}, false},
		{[]string{UnknownOrganism}, false},
		{[]string{ProteinStructureMarker}, false},
		{nil, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, c.IsTarget(tc.names), "%v", tc.names)
	}
}

func TestClassifier_CustomKeywords(t *testing.T) {
	c := NewClassifier([]string{"  Danio Rerio ", ""})
	assert.Equal(t, []string{"danio rerio"}, c.Keywords())
	assert.True(t, c.IsTarget([]string{"Danio rerio"}))
	assert.False(t, c.IsTarget([]string{"Homo sapiens"}))
}

func TestClassifier_Annotate(t *testing.T) {
	c := NewClassifier(nil)

	ann := c.Annotate([]string{"Mus musculus", " Escherichia coli", "Mus musculus", ""}, OriginPrimary)
	assert.Equal(t, []string{"Escherichia coli", "Mus musculus"}, ann.Organisms)
	assert.True(t, ann.IsTarget)
	assert.Equal(t, OriginPrimary, ann.Origin)
	assert.Equal(t, "Escherichia coli, Mus musculus", ann.String())

	empty := c.Annotate([]string{" ", ""}, OriginSecondary)
	assert.True(t, empty.IsUnknown())
	assert.False(t, empty.IsTarget)
	assert.Equal(t, OriginSecondary, empty.Origin)
}

func TestUnknown(t *testing.T) {
	u := Unknown(OriginDefault)
	assert.Equal(t, []string{"Unknown"}, u.Organisms)
	assert.False(t, u.IsTarget)
	assert.True(t, u.IsUnknown())
	assert.False(t, Annotation{Organisms: []string{"Homo sapiens"}}.IsUnknown())
}
