package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"gopkg.in/yaml.v3"

	"github.com/evergreen-ci/sage-sub002/internal/http/dto"
	"github.com/evergreen-ci/sage-sub002/internal/releasenotes"
)

const (
	formatAuto = "auto"
	formatJSON = "json"
	formatYAML = "yaml"
)

// readInput reads path, or stdin when path is empty or "-".
func readInput(stdin io.Reader, path string) ([]byte, string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("reading stdin: %w", err)
		}
		return data, "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	return data, strings.ToLower(filepath.Ext(path)), nil
}

func resolveFormat(format, ext string) (string, error) {
	switch format {
	case formatJSON, formatYAML:
		return format, nil
	case formatAuto, "":
		if ext == ".yaml" || ext == ".yml" {
			return formatYAML, nil
		}
		return formatJSON, nil
	default:
		return "", fmt.Errorf("unknown input format %q (want auto, json or yaml)", format)
	}
}

// parseInput decodes and validates a release notes request the same way the
// HTTP API does.
func parseInput(data []byte, format string) (releasenotes.Input, error) {
	if format == formatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return releasenotes.Input{}, err
		}
		data = converted
	}

	var req dto.GenerateReleaseNotesRequest
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&req); err != nil {
		return releasenotes.Input{}, fmt.Errorf("decoding input: %w", err)
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		return releasenotes.Input{}, invalidInput(dto.BindingErrors(err))
	}
	if errs := req.Check(); len(errs) > 0 {
		return releasenotes.Input{}, invalidInput(errs)
	}
	return req.ToInput(), nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding yaml input: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("converting yaml input: %w", err)
	}
	return out, nil
}

func invalidInput(errs []dto.FieldError) error {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return fmt.Errorf("invalid input: %s", strings.Join(parts, "; "))
}

func loadInput(stdin io.Reader, args []string) (releasenotes.Input, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	data, ext, err := readInput(stdin, path)
	if err != nil {
		return releasenotes.Input{}, err
	}
	format, err := resolveFormat(inputFormat, ext)
	if err != nil {
		return releasenotes.Input{}, err
	}
	return parseInput(data, format)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
