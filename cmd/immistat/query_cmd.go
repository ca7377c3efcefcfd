package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/immistat/engine"
)

func newQueryCmd(a *app) *cobra.Command {
	var specPath string
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a QuerySpec read from a file or stdin",
		Long: `Run a QuerySpec. The spec is JSON, or YAML when the file ends in .yaml
or .yml. Without --spec (or with --spec -) JSON is read from stdin.

Views: ` + strings.Join(engine.Views, ", "),
		Example: `  immistat query --spec top.yaml --format table
  echo '{"view":"top_districts","n":5,"categories":["Syrian"]}' | immistat query`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := readSpec(cmd.InOrStdin(), specPath)
			if err != nil {
				return withCode(exitUsage, err)
			}
			return a.runView(cmd, spec)
		},
	}
	cmd.Flags().StringVar(&specPath, "spec", "", "QuerySpec file (.json, .yaml, .yml); - reads stdin")
	return cmd
}

// readSpec decodes a QuerySpec, rejecting unknown fields.
func readSpec(stdin io.Reader, path string) (engine.QuerySpec, error) {
	var spec engine.QuerySpec

	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return spec, errors.Wrap(err, "read query spec")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&spec); err != nil {
			return spec, errors.Wrap(err, "decode yaml query spec")
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return spec, errors.Wrap(err, "decode json query spec")
		}
	}
	return spec, nil
}
