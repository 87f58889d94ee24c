package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	v1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

type KubernetesSecretsClient interface {
	GetSecret(ctx context.Context, namespace string, name string) (map[string][]byte, error)
}

// Reads keys of Kubernetes secrets, ids are [namespace/]secret/key
type KubernetesSecretsProvider struct {
	Client    KubernetesSecretsClient
	Namespace string
}

type KubernetesClient struct {
	Client kubernetes.Interface
}

func (c *KubernetesClient) GetSecret(ctx context.Context, namespace string, name string) (map[string][]byte, error) {
	secret, err := c.Client.CoreV1().Secrets(namespace).Get(ctx, name, v1.GetOptions{})
	if err != nil {
		return nil, err
	}
	return secret.Data, nil
}

func NewKubernetesProvider() *KubernetesSecretsProvider {
	return &KubernetesSecretsProvider{}
}

type secretKey struct {
	namespace string
	name      string
}

func (p *KubernetesSecretsProvider) Read(ctx context.Context, secrets map[string]string) (map[string]string, error) {
	if err := p.configure(); err != nil {
		return nil, err
	}

	// one GET per kubernetes secret, then fan the keys out to the requested names
	wanted := map[secretKey]map[string][]string{}
	for name, id := range secrets {
		key, property, err := p.parseID(id)
		if err != nil {
			return nil, err
		}
		if wanted[key] == nil {
			wanted[key] = map[string][]string{}
		}
		wanted[key][property] = append(wanted[key][property], name)
	}

	result := map[string]string{}
	for key, properties := range wanted {
		data, err := p.Client.GetSecret(ctx, key.namespace, key.name)
		if err != nil {
			log.Warn().Err(err).
				Str("namespace", key.namespace).
				Str("secret", key.name).
				Msg("could not get kubernetes secret")
			continue
		}
		log.Debug().Str("namespace", key.namespace).Str("secret", key.name).Msg("read kubernetes secret")

		for property, names := range properties {
			val, ok := data[property]
			if !ok {
				log.Warn().
					Str("namespace", key.namespace).Str("secret", key.name).
					Str("key", property).
					Msg("key not found in kubernetes secret")
				continue
			}
			for _, name := range names {
				result[name] = string(val)
			}
		}
	}

	return result, nil
}

func (p *KubernetesSecretsProvider) parseID(id string) (secretKey, string, error) {
	parts := strings.Split(id, "/")
	switch len(parts) {
	case 3:
		return secretKey{namespace: parts[0], name: parts[1]}, parts[2], nil
	case 2:
		return secretKey{namespace: p.Namespace, name: parts[0]}, parts[1], nil
	}
	return secretKey{}, "", fmt.Errorf("invalid kubernetes secret id: %s", id)
}

// In a pod the service account is used, elsewhere the current kubeconfig
// context and its namespace
func (p *KubernetesSecretsProvider) configure() error {
	if p.Client != nil {
		return nil
	}

	config, namespace, err := restConfig()
	if err != nil {
		return err
	}
	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return err
	}

	p.Client = &KubernetesClient{Client: client}
	p.Namespace = namespace
	if ns := os.Getenv("KUBERNETES_POD_NAMESPACE"); ns != "" {
		p.Namespace = ns
	}
	if p.Namespace == "" {
		p.Namespace = "default"
	}
	log.Debug().Str("namespace", p.Namespace).Str("host", config.Host).Msg("kubernetes secrets provider configured")
	return nil
}

func restConfig() (*rest.Config, string, error) {
	if config, err := rest.InClusterConfig(); err == nil {
		ns, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/namespace")
		if err != nil {
			return config, "", nil
		}
		return config, strings.TrimSpace(string(ns)), nil
	}

	loader := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		clientcmd.NewDefaultClientConfigLoadingRules(),
		&clientcmd.ConfigOverrides{},
	)
	config, err := loader.ClientConfig()
	if err != nil {
		return nil, "", fmt.Errorf("no in-cluster or kubeconfig credentials: %w", err)
	}
	namespace, _, err := loader.Namespace()
	if err != nil {
		return nil, "", err
	}
	return config, namespace, nil
}
