package user

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trainingcmd/portal/core"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceText   = "password must not contain whitespace"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimText = "password cannot be similar to user attributes"

	invalidEmailText = "must be a valid email address"
)

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no all numeric
// - no user attrs similarity
func validatePassword(pwd string, usr User) error {
	reportErr := func(text string) error {
		return core.NewValidationError(nil, core.FieldError{Field: "newPassword", Error: text})
	}

	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		return reportErr(pwdMinLenText)
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return reportErr(pwdNoSpaceText)
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		return reportErr(pwdNotAllNumText)
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(strings.ToLower(pass), ""), strings.Split(strings.ToLower(usrAttr), "")).QuickRatio()
	}
	if getRatio(pwd, usr.Username) >= pwdMaxSim ||
		getRatio(pwd, usr.FirstName+usr.LastName) >= pwdMaxSim ||
		getRatio(pwd, usr.Email) >= pwdMaxSim {
		return reportErr(pwdAttrSimText)
	}
	return nil
}

// validateProfileFields rejects keys that cannot be changed through a profile update
// and malformed values of the keys that can.
func validateProfileFields(validate *validator.Validate, flds Fields) error {
	var fldErrs []core.FieldError
	for _, key := range flds.Keys() {
		if !IsEditable(key) {
			fldErrs = append(fldErrs, core.FieldError{Field: key, Error: "this field cannot be changed"})
			continue
		}
		val := ToText(flds[key])
		switch key {
		case "email":
			if val != "" && !isEmail(validate, val) {
				fldErrs = append(fldErrs, core.FieldError{Field: key, Error: invalidEmailText})
			}
		case "birthDate":
			if val != "" {
				if _, err := time.Parse("2006-01-02", val); err != nil {
					fldErrs = append(fldErrs, core.FieldError{Field: key, Error: "must be a date (YYYY-MM-DD)"})
				}
			}
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

// isEmail applies the same "email" rule as NewAccount.Email.
func isEmail(validate *validator.Validate, val string) bool {
	return validate.Var(val, "email") == nil
}
