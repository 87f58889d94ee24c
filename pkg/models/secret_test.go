package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestSecretRefYAML(t *testing.T) {
	var out struct {
		Literal  SecretRef `yaml:"literal"`
		Provider SecretRef `yaml:"provider"`
	}
	err := yaml.Unmarshal([]byte("literal: hunter2\nprovider:\n  aws.ssm: /fabric/secret\n"), &out)
	assert.NoError(t, err)
	assert.Equal(t, SecretRef{Provider: "string", ID: "hunter2"}, out.Literal)
	assert.Equal(t, SecretRef{Provider: "aws.ssm", ID: "/fabric/secret"}, out.Provider)

	err = yaml.Unmarshal([]byte("literal: [a, b]\n"), &out)
	assert.ErrorContains(t, err, "invalid node kind")
}

func TestSecretRefJSON(t *testing.T) {
	var ref SecretRef
	assert.NoError(t, json.Unmarshal([]byte(`"literal"`), &ref))
	assert.Equal(t, SecretRef{Provider: "string", ID: "literal"}, ref)

	assert.NoError(t, json.Unmarshal([]byte(`{"provider":"env","id":"X"}`), &ref))
	assert.Equal(t, SecretRef{Provider: "env", ID: "X"}, ref)
	assert.Equal(t, "env:X", ref.String())
	assert.Equal(t, "string:<redacted>", SecretRef{Provider: "string", ID: "s3cret"}.String())
}

func TestDefinitionPart(t *testing.T) {
	part := NewDefinitionPart("notebook-content.py", []byte("print('hello')"))
	assert.Equal(t, PayloadInlineBase64, part.PayloadType)

	content, err := part.Content()
	assert.NoError(t, err)
	assert.Equal(t, "print('hello')", string(content))

	_, err = DefinitionPart{Path: "x", Payload: "!!", PayloadType: PayloadInlineBase64}.Content()
	assert.Error(t, err)

	_, err = DefinitionPart{Path: "x", PayloadType: "Link"}.Content()
	assert.ErrorContains(t, err, "unsupported payload type")
}

func TestTerminalStates(t *testing.T) {
	assert.False(t, OperationRunning.Terminal())
	assert.True(t, OperationSucceeded.Terminal())
	assert.True(t, OperationFailed.Terminal())
	assert.False(t, JobInProgress.Terminal())
	assert.True(t, JobDeduped.Terminal())
	assert.False(t, PublishCancelling.Terminal())
	assert.True(t, PublishCancelled.Terminal())
}

func TestListResponseItems(t *testing.T) {
	var page ListResponse[Table]
	assert.NoError(t, json.Unmarshal([]byte(`{"data":[{"name":"a"}],"continuationToken":"t"}`), &page))
	assert.Equal(t, []Table{{Name: "a"}}, page.Items())
	assert.Equal(t, "t", page.ContinuationToken)
}
