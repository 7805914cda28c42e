package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const starterHeader = `# hostwatch configuration.
# Keep API keys out of this file where you can: set api_key_env to the name
# of an environment variable instead of api_key.`

// Write encodes cfg as a fresh config file at path, creating parent
// directories. It refuses to overwrite an existing file.
func Write(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	doc.HeadComment = starterHeader

	data, err := encodeNode(&doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// AddHost adds a host to an existing config file, preserving the rest of
// the document and its comments. It fails if the host already exists. When
// makeDefault is set, the top-level default is pointed at the new host.
func AddHost(path, name string, host Host, makeDefault bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return fmt.Errorf("invalid YAML document structure")
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping at document root")
	}

	hosts := findMapValue(doc, "hosts")
	if hosts == nil || hosts.Kind != yaml.MappingNode || hosts.Tag == "!!null" {
		hosts = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		setMapValue(doc, "hosts", hosts)
	}
	if findMapValue(hosts, name) != nil {
		return fmt.Errorf("host '%s' already exists in config", name)
	}

	var hostNode yaml.Node
	if err := hostNode.Encode(host); err != nil {
		return fmt.Errorf("failed to encode host: %w", err)
	}
	hosts.Style = 0
	hosts.Content = append(hosts.Content, scalar(name), &hostNode)

	if makeDefault {
		setMapValue(doc, "default", scalar(name))
	}

	out, err := encodeNode(&root)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func encodeNode(node *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		if k := node.Content[i]; k.Kind == yaml.ScalarNode && k.Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// setMapValue replaces the value under key, or appends the pair.
func setMapValue(node *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i < len(node.Content)-1; i += 2 {
		if k := node.Content[i]; k.Kind == yaml.ScalarNode && k.Value == key {
			node.Content[i+1] = value
			return
		}
	}
	node.Content = append(node.Content, scalar(key), value)
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// MarshalYAML writes durations as "30s" rather than nanoseconds.
func (m MonitorConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Window     string `yaml:"window"`
		Resolution string `yaml:"resolution"`
		Refresh    string `yaml:"refresh"`
	}{m.Window, m.Resolution, durationString(m.Refresh)}, nil
}

// MarshalYAML writes the timeout as a duration string.
func (h Host) MarshalYAML() (interface{}, error) {
	type plain struct {
		URL                string `yaml:"url"`
		APIKey             string `yaml:"api_key,omitempty"`
		APIKeyEnv          string `yaml:"api_key_env,omitempty"`
		Tunnel             string `yaml:"tunnel,omitempty"`
		TunnelInsecure     bool   `yaml:"tunnel_insecure,omitempty"`
		Timeout            string `yaml:"timeout,omitempty"`
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify,omitempty"`
	}
	p := plain{
		URL:                h.URL,
		APIKey:             h.APIKey,
		APIKeyEnv:          h.APIKeyEnv,
		Tunnel:             h.Tunnel,
		TunnelInsecure:     h.TunnelInsecure,
		InsecureSkipVerify: h.InsecureSkipVerify,
	}
	if h.Timeout > 0 {
		p.Timeout = durationString(h.Timeout)
	}
	return p, nil
}

func durationString(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	return d.String()
}
