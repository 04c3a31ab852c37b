// Package schemaload reads a ForgeTree from a YAML schema file: read
// the whole file, gopkg.in/yaml.v3-unmarshal it into a package-private
// raw shape, then convert. Actions are authored as a YAML sequence
// rather than a mapping so declaration order survives into
// TreeNode.ActionsOrder — a YAML mapping's key order is not guaranteed
// to round-trip through encoding/json-style unmarshaling the way a
// sequence's element order is.
package schemaload

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/forgewalk/forge/pkg/forge"
)

type rawSchema struct {
	RootKey string             `yaml:"rootKey"`
	Nodes   map[string]rawNode `yaml:"nodes"`
}

type rawNode struct {
	Type          forge.NodeType        `yaml:"type"`
	Timeout       any                   `yaml:"timeout"`
	Actions       []rawAction           `yaml:"actions"`
	ChildSelector []forge.ChildSelector `yaml:"childSelector"`
	Properties    map[string]any        `yaml:"properties"`
}

type rawAction struct {
	Key                           string              `yaml:"key"`
	Action                        string              `yaml:"action"`
	Input                         any                 `yaml:"input"`
	Properties                    map[string]any      `yaml:"properties"`
	Timeout                       any                 `yaml:"timeout"`
	RetryPolicy                   *forge.RetryPolicy  `yaml:"retryPolicy"`
	ContinuationOnTimeout         bool                `yaml:"continuationOnTimeout"`
	ContinuationOnRetryExhaustion bool                `yaml:"continuationOnRetryExhaustion"`
}

// LoadFile reads and parses a ForgeTree schema from a YAML file.
func LoadFile(path string) (forge.ForgeTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return forge.ForgeTree{}, fmt.Errorf("read schema file: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes parses a ForgeTree schema from raw YAML bytes.
func LoadBytes(data []byte) (forge.ForgeTree, error) {
	var raw rawSchema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return forge.ForgeTree{}, fmt.Errorf("parse schema YAML: %w", err)
	}
	return convert(raw)
}

func convert(raw rawSchema) (forge.ForgeTree, error) {
	if raw.RootKey == "" {
		return forge.ForgeTree{}, fmt.Errorf("schema missing rootKey")
	}

	tree := forge.ForgeTree{
		RootKey: raw.RootKey,
		Nodes:   make(map[string]forge.TreeNode, len(raw.Nodes)),
	}

	for key, rn := range raw.Nodes {
		node := forge.TreeNode{
			Key:        key,
			Type:       rn.Type,
			Timeout:    rn.Timeout,
			Children:   rn.ChildSelector,
			Properties: rn.Properties,
		}

		if len(rn.Actions) > 0 {
			node.Actions = make(map[string]forge.TreeAction, len(rn.Actions))
			node.ActionsOrder = make([]string, 0, len(rn.Actions))
			for _, ra := range rn.Actions {
				if ra.Key == "" {
					return forge.ForgeTree{}, fmt.Errorf("node %q has an action with no key", key)
				}
				if _, dup := node.Actions[ra.Key]; dup {
					return forge.ForgeTree{}, fmt.Errorf("node %q has duplicate action key %q", key, ra.Key)
				}
				node.Actions[ra.Key] = forge.TreeAction{
					ActionName:                    ra.Action,
					Input:                         ra.Input,
					Properties:                    ra.Properties,
					Timeout:                       ra.Timeout,
					RetryPolicy:                   ra.RetryPolicy,
					ContinuationOnTimeout:         ra.ContinuationOnTimeout,
					ContinuationOnRetryExhaustion: ra.ContinuationOnRetryExhaustion,
				}
				node.ActionsOrder = append(node.ActionsOrder, ra.Key)
			}
		}

		tree.Nodes[key] = node
	}

	if _, ok := tree.Nodes[tree.RootKey]; !ok {
		return forge.ForgeTree{}, fmt.Errorf("rootKey %q is not a defined node", tree.RootKey)
	}

	return tree, nil
}
