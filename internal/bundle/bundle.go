// Package bundle loads CIS benchmark policy bundles from disk.
//
// A bundle groups policy definitions into the three CIS benchmark families:
// Kubernetes, Docker, and runtime. Policy bodies
// are opaque: everything except the name is passed through to Central
// unmodified.
package bundle

import (
	"encoding/json"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Category identifies which CIS benchmark family a policy belongs to.
type Category string

// Bundle categories, in sync order.
const (
	CategoryKubernetes Category = "kubernetes"
	CategoryDocker     Category = "docker"
	CategoryRuntime    Category = "runtime"
)

// Policy is a single policy definition: the extracted name plus the raw
// JSON body submitted to Central as-is.
type Policy struct {
	Name        string
	Description string
	Severity    string
	Category    Category
	Raw         json.RawMessage
}

// Bundle holds the three policy categories of a bundle file.
type Bundle struct {
	Kubernetes []Policy
	Docker     []Policy
	Runtime    []Policy
}

// bundleFile is the on-disk document shape.
type bundleFile struct {
	KubernetesPolicies []json.RawMessage `json:"kubernetes_policies"`
	DockerPolicies     []json.RawMessage `json:"docker_policies"`
	RuntimePolicies    []json.RawMessage `json:"runtime_policies"`
}

// policyHeader is the subset of fields extracted for dedup and display.
type policyHeader struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// Load reads a bundle file (JSON or YAML) and parses all three categories.
// Every policy must carry a non-empty name.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided bundle path
	if err != nil {
		return nil, fmt.Errorf("reading policy bundle: %w", err)
	}

	// Normalize to JSON so policy bodies stay raw bytes regardless of the
	// authoring format.
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing policy bundle: %w", err)
	}

	var bf bundleFile
	if err := json.Unmarshal(jsonData, &bf); err != nil {
		return nil, fmt.Errorf("parsing policy bundle: %w", err)
	}

	b := &Bundle{}
	if b.Kubernetes, err = parseCategory(bf.KubernetesPolicies, CategoryKubernetes); err != nil {
		return nil, err
	}
	if b.Docker, err = parseCategory(bf.DockerPolicies, CategoryDocker); err != nil {
		return nil, err
	}
	if b.Runtime, err = parseCategory(bf.RuntimePolicies, CategoryRuntime); err != nil {
		return nil, err
	}
	return b, nil
}

func parseCategory(raws []json.RawMessage, cat Category) ([]Policy, error) {
	policies := make([]Policy, 0, len(raws))
	for i, raw := range raws {
		var hdr policyHeader
		if err := json.Unmarshal(raw, &hdr); err != nil {
			return nil, fmt.Errorf("parsing %s policy %d: %w", cat, i, err)
		}
		if hdr.Name == "" {
			return nil, fmt.Errorf("%s policy %d has no name", cat, i)
		}
		policies = append(policies, Policy{
			Name:        hdr.Name,
			Description: hdr.Description,
			Severity:    hdr.Severity,
			Category:    cat,
			Raw:         raw,
		})
	}
	return policies, nil
}

// All returns every policy in sync order: kubernetes, then docker, then
// runtime. Order affects only log and report sequencing.
func (b *Bundle) All() []Policy {
	all := make([]Policy, 0, len(b.Kubernetes)+len(b.Docker)+len(b.Runtime))
	all = append(all, b.Kubernetes...)
	all = append(all, b.Docker...)
	all = append(all, b.Runtime...)
	return all
}

// Len returns the total number of policies across all categories.
func (b *Bundle) Len() int {
	return len(b.Kubernetes) + len(b.Docker) + len(b.Runtime)
}
