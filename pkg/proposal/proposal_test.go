package proposal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validJSON = `{
  "modified_snippets": ["<tlLogic id=\"TL_J1\" type=\"actuated\" programID=\"0\" offset=\"0\"><phase duration=\"35\" state=\"G\"/></tlLogic>"],
  "actions": [{"type": "create_element", "target": "tlLogic", "id": "TL_J1"}],
  "reasoning": ["J1 has heavy queues"]
}`

type memSink struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memSink) Put(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[name] = append([]byte(nil), data...)
	return nil
}

func TestDecodeCascade(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantMethod Method
		wantIDs    []string
	}{
		{"whole document", validJSON, MethodDocument, []string{"TL_J1"}},
		{
			"fenced with prose",
			"Here is my plan:\r\n```json\r\n" + validJSON + "\r\n```\r\nLet me know.",
			MethodSpan,
			[]string{"TL_J1"},
		},
		{
			"two objects with prose between",
			`Summary {"note": "first"} then the proposal {"actions": [{"type": "create_element", "target": "tlLogic", "id": 25772784}]} done`,
			MethodCandidate,
			[]string{"25772784"},
		},
		{
			"braces inside strings",
			`noise } {"actions": [{"type": "update_attribute", "target": "edge", "id": "E0", "attribute": "name", "new_value": "a } b {"}]} trailing }`,
			MethodCandidate,
			[]string{"E0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMethod, p.Method)

			var ids []string
			for _, a := range p.Actions {
				ids = append(ids, a.ID.String())
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestDecodeFailures(t *testing.T) {
	for _, input := range []string{
		"not json at all",
		"",
		"null",
		`["modified_snippets"]`,
		`{"unterminated": `,
		`prose {"note": "no proposal keys"} {"other": 1}`,
	} {
		p, err := Decode(input)
		assert.Nil(t, p)
		assert.True(t, errors.Is(err, ErrNoProposal), "input %q: got %v", input, err)
	}
}

func TestDecodeTolerance(t *testing.T) {
	p, err := Decode(`{
		"modified_snippets": ["<junction id=\"J1\"/>", 42, "<<broken"],
		"actions": [
			{"type": "update_attribute", "target": "edge", "id": 7, "attribute": "speed", "new_value": 13.9},
			{"type": "update_attribute", "target": "junction", "id": "J1", "attribute": "keepClear", "new_value": false},
			"not an action",
			{"target": "tlLogic", "id": "TL_J2"}
		]
	}`)
	require.NoError(t, err)

	require.Len(t, p.Actions, 2)
	assert.Equal(t, FlexString("7"), p.Actions[0].ID)
	assert.Equal(t, FlexString("13.9"), p.Actions[0].NewValue)
	assert.Equal(t, FlexString("false"), p.Actions[1].NewValue)
	assert.Len(t, p.Diagnostics, 2)

	frags := p.Fragments()
	require.Len(t, frags, 3)
	assert.Equal(t, FragmentJunction, frags[0].Kind)
	assert.Equal(t, FragmentInvalid, frags[1].Kind)
	assert.Equal(t, FragmentInvalid, frags[2].Kind)
	assert.Error(t, frags[2].Err)
	assert.Equal(t, 2, frags[2].Index)
}

func TestDecodeSingleSnippetString(t *testing.T) {
	p, err := Decode(`{"modified_snippets": "<tlLogic id=\"TL_A\"/>"}`)
	require.NoError(t, err)
	require.Len(t, p.Snippets, 1)
	assert.Equal(t, FragmentProgram, Classify(p.Snippets[0]).Kind)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		input string
		want  FragmentKind
	}{
		{`<tlLogic id="TL_1"><phase duration="3" state="y"/></tlLogic>`, FragmentProgram},
		{`<edge id="E1" from="A" to="B"/>`, FragmentEdge},
		{`<junction id="J1" type="priority"/>`, FragmentJunction},
		{`<additional/>`, FragmentOther},
		{`tlLogic id="x"`, FragmentInvalid},
		{``, FragmentInvalid},
	}

	for _, tt := range tests {
		got := Classify(tt.input)
		assert.Equal(t, tt.want, got.Kind, "input %q", tt.input)
		assert.Equal(t, tt.want == FragmentInvalid, got.Element == nil)
	}
}

func TestFlexStringRejectsObjects(t *testing.T) {
	var f FlexString
	assert.Error(t, f.UnmarshalJSON([]byte(`{"a":1}`)))
	assert.Error(t, f.UnmarshalJSON([]byte(`[1]`)))
	require.NoError(t, f.UnmarshalJSON([]byte(`null`)))
	assert.Equal(t, FlexString(""), f)
}

func TestInterpretNotJSONWritesDiagnostic(t *testing.T) {
	sink := &memSink{}
	in := NewInterpreter(sink, nil)

	p, err := in.Interpret(context.Background(), "not json at all")
	assert.Nil(t, p)
	assert.True(t, IsNoProposal(err))
	assert.Equal(t, "not json at all", string(sink.files[InvalidOutputName]))
}

func TestInterpretEmptySource(t *testing.T) {
	sink := &memSink{}
	_, err := NewInterpreter(sink, nil).Interpret(context.Background(), "")
	assert.True(t, IsNoProposal(err))
	assert.Empty(t, sink.files)
}

func TestInterpretFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw_llm_output.txt")
	require.NoError(t, os.WriteFile(path, []byte("```json\n"+validJSON+"\n```"), 0644))

	p, err := NewInterpreter(nil, nil).Interpret(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, MethodSpan, p.Method)
	assert.Len(t, p.Snippets, 1)
	assert.JSONEq(t, `["J1 has heavy queues"]`, string(p.Reasoning))
}

func TestResolveSourceGlobPicksLastMatch(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "response", "run")
	require.NoError(t, os.MkdirAll(sub, 0755))
	for name, body := range map[string]string{
		"raw_20250101T0900.txt": "old",
		"raw_20250102T0900.txt": "new",
		"raw_20241231T2359.txt": "older",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(sub, name), []byte(body), 0644))
	}

	src, err := ResolveSource(filepath.Join(dir, "**", "raw_*.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", src.Text)
	assert.Equal(t, filepath.Join(sub, "raw_20250102T0900.txt"), src.Path)

	src, err = ResolveSource(filepath.Join(dir, "**", "nothing_*.txt"))
	require.NoError(t, err)
	assert.Empty(t, src.Path)
}

func TestResolveSourceInline(t *testing.T) {
	src, err := ResolveSource(validJSON)
	require.NoError(t, err)
	assert.Empty(t, src.Path)
	assert.Equal(t, validJSON, src.Text)
}
