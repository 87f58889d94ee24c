package models

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Reference to a secret held by a provider (env, file, string, aws.ssm, kubernetes.secret)
type SecretRef struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
}

func (s SecretRef) String() string {
	if s.Provider == "string" {
		return "string:<redacted>"
	}
	return s.Provider + ":" + s.ID
}

// A scalar is a literal string, a single-key mapping names the provider.
//
//	client_secret: literal
//	client_secret: {env: FABRIC_CLIENT_SECRET}
func (s *SecretRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = SecretRef{Provider: "string", ID: node.Value}
		return nil
	case yaml.MappingNode:
		var o map[string]string
		if err := node.Decode(&o); err != nil {
			return err
		}
		if len(o) != 1 {
			return fmt.Errorf("exactly one secret provider must be specified")
		}
		for provider, id := range o {
			*s = SecretRef{Provider: provider, ID: id}
		}
		return nil
	}
	return fmt.Errorf("invalid node kind: %v", node.Kind)
}

func (s *SecretRef) UnmarshalJSON(data []byte) error {
	type alias SecretRef
	var o alias
	if err := json.Unmarshal(data, &o); err != nil {
		var literal string
		if err := json.Unmarshal(data, &literal); err != nil {
			return err
		}
		*s = SecretRef{Provider: "string", ID: literal}
		return nil
	}
	*s = SecretRef(o)
	return nil
}
