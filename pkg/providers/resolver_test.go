package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func init() {
	log.Logger = zerolog.Nop()
}

type MockSSMClient struct {
	calls [][]string
}

func (c *MockSSMClient) GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	c.calls = append(c.calls, params.Names)
	out := &ssm.GetParametersOutput{}
	for _, name := range params.Names {
		if name == "/fabric/missing" {
			out.InvalidParameters = append(out.InvalidParameters, name)
			continue
		}
		value := "ssm:" + name
		out.Parameters = append(out.Parameters, types.Parameter{Name: &name, Value: &value})
	}
	return out, nil
}

type MockKubernetesClient struct{}

func (c *MockKubernetesClient) GetSecret(ctx context.Context, namespace string, name string) (map[string][]byte, error) {
	secrets := map[string]map[string]map[string][]byte{
		"default": {
			"fabric": {"client-secret": []byte("defaultvalue")},
		},
		"ops": {
			"fabric": {"client-secret": []byte("opsvalue")},
		},
	}
	if _, ok := secrets[namespace][name]; !ok {
		return nil, fmt.Errorf("secret %s/%s not found", namespace, name)
	}
	return secrets[namespace][name], nil
}

func testResolver(ssmClient SSMClient) *Resolver {
	r := NewResolver().WithDefaultProviders()
	r.Add("aws.ssm", &SSMProvider{Client: ssmClient})
	r.Add("kubernetes.secret", &KubernetesSecretsProvider{
		Client:    &MockKubernetesClient{},
		Namespace: "default",
	})
	r.Add("env", &EnvProvider{GetEnv: func(k string) string {
		return map[string]string{"FABRIC_CLIENT_SECRET": "fromenv"}[k]
	}})
	return r
}

func TestResolverDefault(t *testing.T) {
	ssmClient := &MockSSMClient{}
	r := testResolver(ssmClient)

	values, err := r.Resolve(context.TODO(), map[string]models.SecretRef{
		"literal":        {Provider: "string", ID: "literalstring"},
		"env":            {Provider: "env", ID: "FABRIC_CLIENT_SECRET"},
		"file":           {Provider: "file", ID: "testdata/secret.txt"},
		"missing-file":   {Provider: "file", ID: "testdata/missing.txt"},
		"ssm":            {Provider: "aws.ssm", ID: "/fabric/secret"},
		"ssm2":           {Provider: "aws.ssm", ID: "/fabric/secret"},
		"ssm-missing":    {Provider: "aws.ssm", ID: "/fabric/missing"},
		"k8s-default":    {Provider: "kubernetes.secret", ID: "fabric/client-secret"},
		"k8s-namespace":  {Provider: "kubernetes.secret", ID: "ops/fabric/client-secret"},
		"k8s-notfound":   {Provider: "kubernetes.secret", ID: "ops/notfound/client-secret"},
		"k8s-notfoundky": {Provider: "kubernetes.secret", ID: "ops/fabric/other"},
		"unknown":        {Provider: "vault", ID: "x"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"literal":       "literalstring",
		"env":           "fromenv",
		"file":          "s3cret",
		"ssm":           "ssm:/fabric/secret",
		"ssm2":          "ssm:/fabric/secret",
		"k8s-default":   "defaultvalue",
		"k8s-namespace": "opsvalue",
	}, values)
	assert.Equal(t, [][]string{{"/fabric/missing", "/fabric/secret"}}, ssmClient.calls)
}

func TestResolverInvalidKubernetesID(t *testing.T) {
	r := testResolver(&MockSSMClient{})
	_, err := r.Resolve(context.TODO(), map[string]models.SecretRef{
		"bad": {Provider: "kubernetes.secret", ID: "no-key"},
	})
	assert.ErrorContains(t, err, "invalid kubernetes secret id")
}

func TestResolveOne(t *testing.T) {
	r := testResolver(&MockSSMClient{})

	v, err := r.ResolveOne(context.TODO(), models.SecretRef{Provider: "file", ID: "testdata/secret.txt"})
	assert.NoError(t, err)
	assert.Equal(t, "s3cret", v)

	_, err = r.ResolveOne(context.TODO(), models.SecretRef{Provider: "env", ID: "UNSET"})
	assert.ErrorContains(t, err, "empty value")
}

func TestSSMBatches(t *testing.T) {
	ssmClient := &MockSSMClient{}
	p := &SSMProvider{Client: ssmClient}

	secrets := map[string]string{}
	for i := range 25 {
		secrets[fmt.Sprintf("s%02d", i)] = fmt.Sprintf("/fabric/p%02d", i)
	}
	values, err := p.Read(context.TODO(), secrets)
	require.NoError(t, err)

	assert.Len(t, values, 25)
	assert.Len(t, ssmClient.calls, 3)
	assert.Len(t, ssmClient.calls[0], 10)
	assert.Len(t, ssmClient.calls[2], 5)
}

func TestKubernetesClient(t *testing.T) {
	clientset := fake.NewSimpleClientset(&corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "fabric", Namespace: "ops"},
		Data:       map[string][]byte{"token": []byte("bearer")},
	})
	p := &KubernetesSecretsProvider{
		Client:    &KubernetesClient{Client: clientset},
		Namespace: "ops",
	}

	values, err := p.Read(context.TODO(), map[string]string{"token": "fabric/token"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"token": "bearer"}, values)
}

func TestFileProviderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "token"), []byte("abc\n"), 0o600))

	values, err := NewFileProvider().Read(context.TODO(), map[string]string{"token": "~/token"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"token": "abc"}, values)
}
