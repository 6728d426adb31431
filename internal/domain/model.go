package domain

import (
	"fmt"
	"strings"
)

type OrgKey string

type ModelID string

// Org returns the account part of the identifier, empty when the id has no
// owner prefix.
func (id ModelID) Org() OrgKey {
	org, _, ok := strings.Cut(string(id), "/")
	if !ok {
		return ""
	}
	return OrgKey(org)
}

// Name returns the bare model name without the owner prefix.
func (id ModelID) Name() string {
	_, name, ok := strings.Cut(string(id), "/")
	if !ok {
		return string(id)
	}
	return name
}

func (id ModelID) URL() string {
	return fmt.Sprintf("https://huggingface.co/%s", string(id))
}

// derivativeSuffixes mark technical variants (quantizations, format
// conversions, checkpoints) that are recorded as seen but never announced.
var derivativeSuffixes = []string{
	"-gguf", "-fp8", "-fp4", "-bf16", "-int4", "-int8",
	"-awq", "-gptq", "-nvfp4", "-onnx",
	"-base", "-pretrain", "-original",
	"-eagle", "-unquantized",
}

func (id ModelID) IsDerivative() bool {
	name := strings.ToLower(id.Name())
	for _, suffix := range derivativeSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}

	return false
}

// Model is one artifact descriptor as returned by a listing provider. A
// fresh value is produced on every poll; only the ID is ever persisted, so
// everything else may be stale relative to the hub.
type Model struct {
	ID           ModelID
	LastModified string
	Downloads    int64
	Likes        int64
	Tags         []string
	PipelineTag  string
	LibraryName  string
	Private      bool

	// Safetensors maps dtype name to parameter count, when the hub
	// exposes it. Empty for models without safetensors metadata.
	Safetensors map[string]int64
}

// UsefulTags filters technical noise from the tag list and caps the result.
func (m Model) UsefulTags(limit int) []string {
	skip := map[string]struct{}{
		"transformers": {},
		"pytorch":      {},
		"safetensors":  {},
	}
	if m.PipelineTag != "" {
		skip[m.PipelineTag] = struct{}{}
	}
	if m.LibraryName != "" {
		skip[m.LibraryName] = struct{}{}
	}

	tags := make([]string, 0, limit)
	for _, tag := range m.Tags {
		if strings.HasPrefix(tag, "license:") || strings.HasPrefix(tag, "arxiv:") {
			continue
		}
		if _, ok := skip[tag]; ok {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == limit {
			break
		}
	}

	return tags
}
