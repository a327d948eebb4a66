package enrollment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGPAWeight(t *testing.T) {
	tests := []struct {
		grade  LetterGrade
		want   float64
		wantOk bool
	}{
		{grade: GradeAPlus, want: 4.0, wantOk: true},
		{grade: GradeA, want: 4.0, wantOk: true},
		{grade: GradeAMinus, want: 3.7, wantOk: true},
		{grade: GradeBPlus, want: 3.3, wantOk: true},
		{grade: GradeC, want: 2.0, wantOk: true},
		{grade: GradeDMinus, want: 0.7, wantOk: true},
		{grade: GradeF, want: 0.0, wantOk: true},
		{grade: "E", wantOk: false},
		{grade: "", wantOk: false},
	}
	for _, tt := range tests {
		t.Run(string(tt.grade), func(t *testing.T) {
			got, ok := GPAWeight(tt.grade)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Len(t, LetterGrades, len(gpaWeights))
}

func TestParseLetterGrade(t *testing.T) {
	g, ok := ParseLetterGrade("")
	assert.True(t, ok)
	assert.Nil(t, g)

	g, ok = ParseLetterGrade("B-")
	assert.True(t, ok)
	if assert.NotNil(t, g) {
		assert.Equal(t, GradeBMinus, *g)
	}

	g, ok = ParseLetterGrade("b-")
	assert.False(t, ok)
	assert.Nil(t, g)
}
