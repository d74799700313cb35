package account

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/shuleapp/shule/core"
)

var (
	// Stricter than the RFC: requires a 2-3+ char TLD segment, the format
	// the registration forms have always enforced.
	emailStrictTag   = "email_strict"
	emailStrictText  = "please enter a valid email"
	emailStrictRegex = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

	// password policy
	pwdMinLen     = 6
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to account attributes"
)

func registerValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(emailStrictTag, emailStrictValidation)
	core.RegisterCustomTranslation(validate, translator, emailStrictTag, emailStrictText)

	validate.RegisterStructValidation(accountStructValidation, NewStudent{})
	validate.RegisterStructValidation(accountStructValidation, NewTeacher{})
	validate.RegisterStructValidation(accountStructValidation, UpdateProfile{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

func emailStrictValidation(fl validator.FieldLevel) bool {
	return emailStrictRegex.MatchString(fl.Field().String())
}

// accountStructValidation applies the password policy to registration and
// profile-update inputs; on updates an empty password means "unchanged" and
// is not checked.
func accountStructValidation(sl validator.StructLevel) {
	switch in := sl.Current().Interface().(type) {
	case NewStudent:
		validatePassword(in.Password, in.FirstName, in.LastName, in.Email, sl)
	case NewTeacher:
		validatePassword(in.Password, in.FirstName, in.LastName, in.Email, sl)
	case UpdateProfile:
		if in.Password != "" {
			validatePassword(in.Password, in.FirstName, in.LastName, in.Email, sl)
		}
	}
}

// validatePassword applies the password policy:
// - minLen: 6
// - no whitespace
// - not entirely numeric
// - no account attrs similarity
func validatePassword(pwd, firstName, lastName, email string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	pwdLen := len(pwd)
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
	}
	lpwd := strings.ToLower(pwd)
	if getRatio(lpwd, firstName) >= pwdMaxSim ||
		getRatio(lpwd, lastName) >= pwdMaxSim ||
		getRatio(lpwd, email) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
	}
}
