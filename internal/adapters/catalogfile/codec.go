package catalogfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
)

// Codec reads and writes catalogue documents in one format.
type Codec interface {
	Format() string
	Parse(r io.Reader) (Document, error)
	Export(d Document, w io.Writer) error
}

// YAMLCodec handles YAML documents.
type YAMLCodec struct{}

func (YAMLCodec) Format() string { return "yaml" }

// Parse decodes a YAML document, rejecting unknown fields.
func (YAMLCodec) Parse(r io.Reader) (Document, error) {
	var d Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return d, nil
}

func (YAMLCodec) Export(d Document, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

// JSONCodec handles JSON documents.
type JSONCodec struct{}

func (JSONCodec) Format() string { return "json" }

// Parse decodes a JSON document, rejecting unknown fields.
func (JSONCodec) Parse(r io.Reader) (Document, error) {
	var d Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return d, nil
}

func (JSONCodec) Export(d Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ForPath picks a codec from the file extension.
func ForPath(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAMLCodec{}, nil
	case ".json":
		return JSONCodec{}, nil
	default:
		return nil, domain.Invalid("catalogue file", "unsupported extension %q", filepath.Ext(path))
	}
}

// ForContentType picks a codec from an HTTP Content-Type. An empty type
// means JSON.
func ForContentType(contentType string) (Codec, error) {
	if contentType == "" {
		return JSONCodec{}, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, domain.Invalid("catalogue document", "bad content type %q", contentType)
	}
	switch mediaType {
	case "application/json":
		return JSONCodec{}, nil
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return YAMLCodec{}, nil
	default:
		return nil, domain.Invalid("catalogue document", "unsupported content type %q", mediaType)
	}
}

// ForContent picks a codec for a body served with contentType. A missing,
// text/plain or application/octet-stream type says nothing about the format,
// so the first non-space byte decides: '{' or '[' means JSON, anything else
// YAML. The returned reader must be used in place of r.
func ForContent(contentType string, r io.Reader) (Codec, io.Reader, error) {
	if !sniffable(contentType) {
		codec, err := ForContentType(contentType)
		return codec, r, err
	}
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return JSONCodec{}, br, nil
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return nil, nil, err
		}
		if b == '{' || b == '[' {
			return JSONCodec{}, br, nil
		}
		return YAMLCodec{}, br, nil
	}
}

func sniffable(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/plain" || mediaType == "application/octet-stream"
}

// Decode parses r with codec and converts the result to domain entities.
func Decode(codec Codec, r io.Reader) (domain.Catalogue, error) {
	d, err := codec.Parse(r)
	if err != nil {
		return domain.Catalogue{}, &domain.InvalidArgumentError{Op: "catalogue document", Err: err}
	}
	return d.Catalogue()
}

// Load reads the catalogue file at path.
func Load(path string) (domain.Catalogue, error) {
	codec, err := ForPath(path)
	if err != nil {
		return domain.Catalogue{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.Catalogue{}, fmt.Errorf("catalogfile: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(codec, f)
}
