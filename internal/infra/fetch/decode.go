package fetch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"composer/internal/domain"
)

// Format names a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromExt maps a file extension to a document format.
func FormatFromExt(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "json":
		return FormatJSON, true
	case "yml", "yaml":
		return FormatYAML, true
	case "toml":
		return FormatTOML, true
	default:
		return "", false
	}
}

// formatFromContentType picks a decoder by media type. Plain text is
// reported with sniff set so the caller tries JSON then YAML.
func formatFromContentType(contentType string) (format Format, sniff bool, ok bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "application/json"), strings.HasPrefix(ct, "text/json"):
		return FormatJSON, false, true
	case strings.HasPrefix(ct, "application/yaml"), strings.HasPrefix(ct, "text/yaml"):
		return FormatYAML, false, true
	case strings.HasPrefix(ct, "text/plain"):
		return "", true, true
	default:
		return "", false, false
	}
}

func isHTML(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/html")
}

// toJSON decodes body in the given format and re-encodes it as JSON so
// every format shares one validation and decoding path.
func toJSON(format Format, body []byte) ([]byte, error) {
	var value any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(body, &value); err != nil {
			return nil, fmt.Errorf("%w: parse json: %v", domain.ErrInvalidPayload, err)
		}
		return body, nil
	case FormatYAML:
		if err := yaml.Unmarshal(body, &value); err != nil {
			return nil, fmt.Errorf("%w: parse yaml: %v", domain.ErrInvalidPayload, err)
		}
	case FormatTOML:
		var table map[string]any
		if err := toml.Unmarshal(body, &table); err != nil {
			return nil, fmt.Errorf("%w: parse toml: %v", domain.ErrInvalidPayload, err)
		}
		value = table
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", domain.ErrInvalidPayload, format)
	}
	out, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: convert %s: %v", domain.ErrInvalidPayload, format, err)
	}
	return out, nil
}

// sniffJSON tries JSON first and falls back to YAML.
func sniffJSON(body []byte) ([]byte, error) {
	if json.Valid(body) {
		return body, nil
	}
	return toJSON(FormatYAML, body)
}

func decodeDocument[T any](kind documentKind, raw []byte) (T, error) {
	var out T
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if err := validateDocument(kind, doc); err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: decode %s: %v", domain.ErrInvalidPayload, kind, err)
	}
	return out, nil
}

// ParseManifest decodes and validates a manifest document.
func ParseManifest(format Format, body []byte) (domain.ContentEntry, error) {
	raw, err := toJSON(format, body)
	if err != nil {
		return domain.ContentEntry{}, err
	}
	return decodeDocument[domain.ContentEntry](documentManifest, raw)
}

// ParseRegistry decodes and validates a registry document.
func ParseRegistry(format Format, body []byte) (domain.RegistryPayload, error) {
	raw, err := toJSON(format, body)
	if err != nil {
		return domain.RegistryPayload{}, err
	}
	return decodeDocument[domain.RegistryPayload](documentRegistry, raw)
}
