package enrollment

// LetterGrade is a course-level grade. A nil *LetterGrade means "ungraded".
type LetterGrade string

const (
	GradeAPlus  LetterGrade = "A+"
	GradeA      LetterGrade = "A"
	GradeAMinus LetterGrade = "A-"
	GradeBPlus  LetterGrade = "B+"
	GradeB      LetterGrade = "B"
	GradeBMinus LetterGrade = "B-"
	GradeCPlus  LetterGrade = "C+"
	GradeC      LetterGrade = "C"
	GradeCMinus LetterGrade = "C-"
	GradeDPlus  LetterGrade = "D+"
	GradeD      LetterGrade = "D"
	GradeDMinus LetterGrade = "D-"
	GradeF      LetterGrade = "F"
)

// LetterGrades lists every letter, best first.
var LetterGrades = []LetterGrade{
	GradeAPlus, GradeA, GradeAMinus,
	GradeBPlus, GradeB, GradeBMinus,
	GradeCPlus, GradeC, GradeCMinus,
	GradeDPlus, GradeD, GradeDMinus,
	GradeF,
}

var gpaWeights = map[LetterGrade]float64{
	GradeAPlus:  4.0,
	GradeA:      4.0,
	GradeAMinus: 3.7,
	GradeBPlus:  3.3,
	GradeB:      3.0,
	GradeBMinus: 2.7,
	GradeCPlus:  2.3,
	GradeC:      2.0,
	GradeCMinus: 1.7,
	GradeDPlus:  1.3,
	GradeD:      1.0,
	GradeDMinus: 0.7,
	GradeF:      0.0,
}

func (g LetterGrade) Valid() bool {
	_, ok := gpaWeights[g]
	return ok
}

// GPAWeight maps a letter to its GPA weight. ok is false for anything outside the 13 letters,
// which callers treat as ungraded: excluded from averages, never counted as zero.
func GPAWeight(g LetterGrade) (weight float64, ok bool) {
	weight, ok = gpaWeights[g]
	return weight, ok
}

// ParseLetterGrade parses s, where "" means ungraded.
func ParseLetterGrade(s string) (*LetterGrade, bool) {
	if s == "" {
		return nil, true
	}
	g := LetterGrade(s)
	if !g.Valid() {
		return nil, false
	}
	return &g, true
}
