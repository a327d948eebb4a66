package identity

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/academia/core"
)

var (
	roleTag  = "role"
	roleText = "invalid role"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	roleFieldTag  = "rolefield"
	roleFieldText = "this field does not apply to this role"

	pastDateTag  = "pastdate"
	pastDateText = "date cannot be in the future"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

// InitValidators registers the identity validators and the password policy.
func InitValidators(v *core.Validator) {
	v.RegisterValidation(roleTag, roleValidation, roleText)

	v.RegisterStructValidation(identityStructValidation, NewIdentity{}, PasswordChange{})
	v.RegisterTranslation(pwdMinLenTag, pwdMinLenText)
	v.RegisterTranslation(pwdNoSpaceTag, pwdNoSpaceText)
	v.RegisterTranslation(pwdNotAllNumTag, pwdNotAllNumText)
	v.RegisterTranslation(pwdComplexityTag, pwdComplexityText)
	v.RegisterTranslation(pwdAttrSimTag, pwdAttrSimText)

	v.RegisterStructValidation(profileStructValidation, ProfileUpdate{})
	v.RegisterTranslation(roleFieldTag, roleFieldText)
	v.RegisterTranslation(pastDateTag, pastDateText)
}

// Custom Validators

func roleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).Valid()
}

// identityStructValidation applies the password policy on NewIdentity and PasswordChange structs.
func identityStructValidation(sl validator.StructLevel) {
	switch s := sl.Current().Interface().(type) {
	case NewIdentity:
		if s.Password != "" {
			validatePassword(s.Password, "password", sl, s.Name, s.Email)
		}
	case PasswordChange:
		if s.Password != "" {
			validatePassword(s.Password, "new_password", sl, s.name, s.email)
		}
	}
}

// profileStructValidation rejects the profile fields of other roles and birth dates in the future.
func profileStructValidation(sl validator.StructLevel) {
	pu, ok := sl.Current().Interface().(ProfileUpdate)
	if !ok {
		return
	}
	if pu.Department != "" && pu.role != RoleInstructor {
		sl.ReportError(pu.Department, "department", "Department", roleFieldTag, "")
	}
	if pu.DateOfBirth != nil {
		switch {
		case pu.role != RoleStudent:
			sl.ReportError(pu.DateOfBirth, "date_of_birth", "DateOfBirth", roleFieldTag, "")
		case core.Date(*pu.DateOfBirth).After(core.Date(core.Now())):
			sl.ReportError(pu.DateOfBirth, "date_of_birth", "DateOfBirth", pastDateTag, "")
		}
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no user attrs similarity
func validatePassword(pwd, fieldName string, sl validator.StructLevel, attrs ...string) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, fieldName, "Password", tag, "")
	}

	var (
		digitCount         int
		hasUpper, hasLower bool
	)

	// - minLen: 8
	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range pwd {
		// - no whitespace
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	// - not all numeric
	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	// - complexity: 1 upper, 1 lower, 1 digit & 1 special
	if !(hasUpper && hasLower && digitCount > 0 && specialRegex.MatchString(pwd)) {
		reportErr(pwdComplexityTag)
		return
	}

	// - no user attrs similarity
	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
		if ratio >= pwdMaxSim {
			reportErr(pwdAttrSimTag)
			return
		}
	}
}
