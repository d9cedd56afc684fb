package codec

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeJSON(t *testing.T) {
	p, err := Encode(map[string]any{"identifier": "test", "n": 1}, "application/json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"identifier":"test","n":1}`, string(p.Body))
	assert.Equal(t, "application/json", p.ContentType)
}

func TestEncodeJSONWithCharset(t *testing.T) {
	p, err := Encode(map[string]any{"a": true}, "application/json; charset=utf-8")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":true}`, string(p.Body))
	assert.Equal(t, "application/json; charset=utf-8", p.ContentType)
}

func TestEncodeForm(t *testing.T) {
	p, err := Encode(map[string]any{
		"name":   "a b",
		"count":  int64(2),
		"filter": map[string]any{"k": "v"},
		"ids":    []any{"1", "2"},
	}, Form)
	require.NoError(t, err)

	values, err := url.ParseQuery(string(p.Body))
	require.NoError(t, err)
	assert.Equal(t, "a b", values.Get("name"))
	assert.Equal(t, "2", values.Get("count"))
	assert.Equal(t, `{"k":"v"}`, values.Get("filter"))
	assert.Equal(t, `["1","2"]`, values.Get("ids"))
	assert.Equal(t, Form, p.ContentType)
}

func TestEncodeFormRejectsNonObject(t *testing.T) {
	_, err := Encode([]any{"a"}, Form)
	require.Error(t, err)
}

func TestEncodeMultipart(t *testing.T) {
	p, err := Encode(map[string]any{"identifier": "test", "meta": map[string]any{"a": 1}}, Multipart)
	require.NoError(t, err)

	mt, params, err := mime.ParseMediaType(p.ContentType)
	require.NoError(t, err)
	assert.Equal(t, Multipart, mt)
	require.NotEmpty(t, params["boundary"])

	r := multipart.NewReader(bytes.NewReader(p.Body), params["boundary"])
	got := map[string]string{}
	for {
		part, err := r.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		b, err := io.ReadAll(part)
		require.NoError(t, err)
		got[part.FormName()] = string(b)
	}
	assert.Equal(t, map[string]string{"identifier": "test", "meta": `{"a":1}`}, got)
}

func TestEncodeUnknownIsIdentity(t *testing.T) {
	p, err := Encode("raw payload", "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "raw payload", string(p.Body))
	assert.Equal(t, "application/octet-stream", p.ContentType)

	p, err = Encode([]byte{1, 2}, "application/x-custom")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, p.Body)
}

func TestIsText(t *testing.T) {
	assert.True(t, IsText("text/plain"))
	assert.True(t, IsText("Text/HTML; charset=utf-8"))
	assert.False(t, IsText("application/json"))
	assert.False(t, IsText(""))
}

func TestPassthrough(t *testing.T) {
	p := Passthrough([]byte("hello"), "text/plain")
	assert.Equal(t, Payload{Body: []byte("hello"), ContentType: "text/plain"}, p)
}
