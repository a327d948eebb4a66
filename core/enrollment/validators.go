package enrollment

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	letterGradeTag  = "lettergrade"
	letterGradeText = "grade must be one of A+, A, A-, B+, B, B-, C+, C, C-, D+, D, D-, F"
)

func InitValidators(v *core.Validator) {
	v.RegisterValidation(letterGradeTag, letterGradeValidation, letterGradeText)
}

func letterGradeValidation(fl validator.FieldLevel) bool {
	return LetterGrade(fl.Field().String()).Valid()
}
