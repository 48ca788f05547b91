package validation

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleBody struct {
	Task    *string   `json:"task" validate:"required,min=1,max=10"`
	Done    *bool     `json:"done" validate:"required"`
	Rating  *int      `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Units   *string   `json:"units" validate:"omitempty,oneof=standard metric imperial"`
	Vector  []float32 `json:"vector" validate:"omitempty,len=3"`
	Comment *string   `json:"comment"`
}

func decode(t *testing.T, body string) *Error {
	t.Helper()
	var dst sampleBody
	err := DecodeJSON(strings.NewReader(body), &dst)
	if err == nil {
		return nil
	}
	verr, ok := AsError(err)
	require.True(t, ok, "expected *Error, got %v", err)
	require.NotEmpty(t, verr.Issues)
	return verr
}

func TestDecodeJSONValid(t *testing.T) {
	assert.Nil(t, decode(t, `{"task":"ok","done":false,"rating":5,"vector":[1,2,3],"unknown":true}`))
}

func TestDecodeJSONRequired(t *testing.T) {
	verr := decode(t, `{"done":false}`)
	assert.Equal(t, []string{"task"}, verr.Issues[0].Path)
	assert.Equal(t, CodeInvalidType, verr.Issues[0].Code)
	assert.Equal(t, MessageRequired, verr.Issues[0].Message)
}

func TestDecodeJSONEmptyBodyIsEmptyObject(t *testing.T) {
	verr := decode(t, ``)
	require.Len(t, verr.Issues, 2)
	assert.Equal(t, MessageRequired, verr.Issues[0].Message)
}

func TestDecodeJSONWrongType(t *testing.T) {
	verr := decode(t, `{"task":"ok","done":false,"comment":6}`)
	assert.Equal(t, []string{"comment"}, verr.Issues[0].Path)
	assert.Equal(t, CodeInvalidType, verr.Issues[0].Code)
	assert.Equal(t, "Expected string, received number", verr.Issues[0].Message)
}

func TestDecodeJSONFractionForInteger(t *testing.T) {
	verr := decode(t, `{"task":"ok","done":false,"rating":4.5}`)
	assert.Equal(t, []string{"rating"}, verr.Issues[0].Path)
	assert.Equal(t, CodeInvalidType, verr.Issues[0].Code)
	assert.Equal(t, "Expected integer, received float", verr.Issues[0].Message)

	verr = decode(t, `{"task":"ok","done":false,"rating":"4"}`)
	assert.Equal(t, "Expected number, received string", verr.Issues[0].Message)
}

func TestDecodeJSONBounds(t *testing.T) {
	tests := []struct {
		name string
		body string
		path string
		code string
	}{
		{"empty string", `{"task":"","done":true}`, "task", CodeTooSmall},
		{"long string", `{"task":"abcdefghijk","done":true}`, "task", CodeTooBig},
		{"rating low", `{"task":"a","done":true,"rating":0}`, "rating", CodeTooSmall},
		{"rating high", `{"task":"a","done":true,"rating":6}`, "rating", CodeTooBig},
		{"short vector", `{"task":"a","done":true,"vector":[]}`, "vector", CodeTooSmall},
		{"long vector", `{"task":"a","done":true,"vector":[1,2,3,4]}`, "vector", CodeTooBig},
		{"enum", `{"task":"a","done":true,"units":"kelvin"}`, "units", CodeInvalidEnum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := decode(t, tt.body)
			require.NotNil(t, verr)
			assert.Equal(t, []string{tt.path}, verr.Issues[0].Path)
			assert.Equal(t, tt.code, verr.Issues[0].Code)
		})
	}
}

func TestDecodeJSONMalformed(t *testing.T) {
	verr := decode(t, `{"task":`)
	assert.Equal(t, CodeCustom, verr.Issues[0].Code)
}

func TestIntParam(t *testing.T) {
	n, err := IntParam("id", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = IntParam("id", "foo")
	verr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, verr.Issues[0].Path)
	assert.Equal(t, MessageExpectedNumber, verr.Issues[0].Message)
}

func TestNoUpdates(t *testing.T) {
	verr := NoUpdates()
	assert.Equal(t, CodeInvalidUpdates, verr.Issues[0].Code)
	assert.Equal(t, MessageNoUpdates, verr.Issues[0].Message)
	assert.Empty(t, verr.Issues[0].Path)
}

func TestDecodeQuery(t *testing.T) {
	type weatherQuery struct {
		Lat   *string `query:"lat" validate:"required,latitude"`
		Lon   *string `query:"lon" validate:"required,longitude"`
		Units string  `query:"units" validate:"omitempty,oneof=standard metric imperial"`
	}

	var q weatherQuery
	require.NoError(t, DecodeQuery(url.Values{"lat": {"40.71"}, "lon": {"-74.0"}, "units": {"metric"}}, &q))
	assert.Equal(t, "40.71", *q.Lat)
	assert.Equal(t, "metric", q.Units)

	var bad weatherQuery
	err := DecodeQuery(url.Values{"lat": {"91"}}, &bad)
	verr, ok := AsError(err)
	require.True(t, ok)
	require.Len(t, verr.Issues, 2)
	assert.Equal(t, Issue{Code: CodeInvalidString, Path: []string{"lat"}, Message: "Invalid latitude format"}, verr.Issues[0])
	assert.Equal(t, Issue{Code: CodeInvalidType, Path: []string{"lon"}, Message: MessageRequired}, verr.Issues[1])
}
