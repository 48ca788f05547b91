package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Issue codes. They mirror the codes web clients already switch on.
const (
	CodeInvalidType    = "invalid_type"
	CodeTooSmall       = "too_small"
	CodeTooBig         = "too_big"
	CodeInvalidEnum    = "invalid_enum_value"
	CodeInvalidString  = "invalid_string"
	CodeInvalidUpdates = "invalid_updates"
	CodeCustom         = "custom"
)

const (
	MessageRequired       = "Required"
	MessageExpectedNumber = "Expected number, received nan"
	MessageNoUpdates      = "No updates provided"
)

type Issue struct {
	Code    string   `json:"code"`
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// Error is a request that failed schema validation. It always holds at least one issue.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.Join(issue.Path, "."), issue.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func NewError(issues ...Issue) *Error {
	return &Error{Issues: issues}
}

// NoUpdates is returned for a patch body that names no known field.
func NoUpdates() *Error {
	return NewError(Issue{Code: CodeInvalidUpdates, Path: []string{}, Message: MessageNoUpdates})
}

// AsError unwraps err into a *Error.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form", "query"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// DecodeJSON decodes body into dst and validates it. An empty body decodes as {}.
func DecodeJSON(body io.Reader, dst any) error {
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return decodeError(err)
	}
	return Struct(dst)
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		path := []string{}
		if typeErr.Field != "" {
			path = strings.Split(typeErr.Field, ".")
		}
		return NewError(Issue{
			Code:    CodeInvalidType,
			Path:    path,
			Message: typeMismatchMessage(typeErr),
		})
	}
	return NewError(Issue{Code: CodeCustom, Path: []string{}, Message: "Malformed JSON in request body"})
}

// Struct runs the validate tags of v.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation setup: %w", err)
	}
	issues := make([]Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, issueFor(fe))
	}
	return NewError(issues...)
}

// DecodeQuery copies query values into the string and *string fields of dst
// tagged with `query:"name"`, then validates dst. dst must be a struct pointer.
func DecodeQuery(values url.Values, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("DecodeQuery: want struct pointer, got %T", dst)
	}
	rv = rv.Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		name := rt.Field(i).Tag.Get("query")
		if name == "" || !values.Has(name) {
			continue
		}
		value := values.Get(name)
		field := rv.Field(i)
		switch {
		case field.Kind() == reflect.String:
			field.SetString(value)
		case field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.String:
			field.Set(reflect.ValueOf(&value))
		}
	}
	return Struct(dst)
}

// IntParam parses a numeric path parameter.
func IntParam(name, raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, NewError(Issue{Code: CodeInvalidType, Path: []string{name}, Message: MessageExpectedNumber})
	}
	return n, nil
}

func issueFor(fe validator.FieldError) Issue {
	// Namespace starts with the Go struct name.
	path := strings.Split(fe.Namespace(), ".")[1:]
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return Issue{Code: CodeInvalidType, Path: path, Message: MessageRequired}
	case "min", "gte":
		return Issue{Code: CodeTooSmall, Path: path, Message: boundMessage(fe.Kind(), "at least", "greater than or equal to", param)}
	case "max", "lte":
		return Issue{Code: CodeTooBig, Path: path, Message: boundMessage(fe.Kind(), "at most", "less than or equal to", param)}
	case "len":
		code := CodeTooBig
		if n, err := strconv.Atoi(param); err == nil && reflect.ValueOf(fe.Value()).Len() < n {
			code = CodeTooSmall
		}
		return Issue{Code: code, Path: path, Message: boundMessage(fe.Kind(), "exactly", "exactly", param)}
	case "oneof":
		options := strings.Fields(param)
		return Issue{
			Code:    CodeInvalidEnum,
			Path:    path,
			Message: fmt.Sprintf("Invalid enum value. Expected '%s', received '%v'", strings.Join(options, "' | '"), fe.Value()),
		}
	case "email":
		return Issue{Code: CodeInvalidString, Path: path, Message: "Invalid email"}
	case "latitude":
		return Issue{Code: CodeInvalidString, Path: path, Message: "Invalid latitude format"}
	case "longitude":
		return Issue{Code: CodeInvalidString, Path: path, Message: "Invalid longitude format"}
	case "datetime":
		return Issue{Code: CodeInvalidString, Path: path, Message: "Invalid datetime"}
	case "numeric":
		return Issue{Code: CodeInvalidString, Path: path, Message: "Invalid number"}
	}
	return Issue{Code: CodeCustom, Path: path, Message: fe.Error()}
}

func boundMessage(kind reflect.Kind, sizeWord, numberWord, param string) string {
	switch kind {
	case reflect.String:
		return fmt.Sprintf("String must contain %s %s character(s)", sizeWord, param)
	case reflect.Slice, reflect.Array:
		return fmt.Sprintf("Array must contain %s %s element(s)", sizeWord, param)
	default:
		return fmt.Sprintf("Number must be %s %s", numberWord, param)
	}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "unknown"
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct:
		if t.PkgPath() == "time" && t.Name() == "Time" {
			return "date"
		}
		return "object"
	case reflect.Map:
		return "object"
	}
	return t.Kind().String()
}

func typeMismatchMessage(typeErr *json.UnmarshalTypeError) string {
	if isIntegerType(typeErr.Type) && isFractionalNumber(typeErr.Value) {
		return "Expected integer, received float"
	}
	return fmt.Sprintf("Expected %s, received %s", typeName(typeErr.Type), receivedName(typeErr.Value))
}

func isIntegerType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// isFractionalNumber reports whether an UnmarshalTypeError value such as
// "number 4.5" holds a non-integer literal.
func isFractionalNumber(value string) bool {
	literal, ok := strings.CutPrefix(value, "number ")
	return ok && strings.ContainsAny(literal, ".eE")
}

func receivedName(value string) string {
	// encoding/json reports e.g. "number", "number 1e999", "bool", "string".
	word, _, _ := strings.Cut(value, " ")
	if word == "bool" {
		return "boolean"
	}
	return word
}
