package dto

import (
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var opaqueWalletIDRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]{1,128}$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("wallet_id", validateWalletID)
		_ = v.RegisterValidation("safe_url", validateSafeURL)
	}
}

// validateWalletID accepts opaque ids (alphanumeric, underscore, dash, dot)
// and absolute http(s) URIs.
func validateWalletID(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if opaqueWalletIDRe.MatchString(raw) {
		return true
	}
	return len(raw) <= 512 && isHTTPURL(raw)
}

// validateSafeURL accepts only http/https URLs.
func validateSafeURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true // optional field; use "required" tag to enforce presence
	}
	return isHTTPURL(raw)
}

func isHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SanitizeStruct trims whitespace and drops control characters from every
// exported string field (including *string) of a struct pointer.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		}
	}
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
