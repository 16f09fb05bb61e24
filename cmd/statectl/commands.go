package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/substate/draft"
)

func newGetCmd(fs afero.Fs, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get [path]",
		Short: "Print the value at a dotted path as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			keys, err := parsePath(path)
			if err != nil {
				return err
			}

			s, err := open(cmd, fs, opts)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(resolve(s.root, keys).Value(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode value: %w", err)
			}
			_, err = fmt.Fprintf(s.out, "%s\n", data)
			return err
		},
	}
}

func newSetCmd(fs afero.Fs, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Assign a YAML-encoded value at a dotted path",
		Long: `Assign a value at a dotted path, creating missing objects and arrays
along the way. The value is parsed as YAML, so "8080" is a number,
"true" a boolean and "{a: 1}" an object.

Example: statectl --doc app.json set servers.0.port 8080`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := parsePath(args[0])
			if err != nil {
				return err
			}
			var value any
			if err := yaml.Unmarshal([]byte(args[1]), &value); err != nil {
				return fmt.Errorf("failed to parse value: %w", err)
			}

			s, err := open(cmd, fs, opts)
			if err != nil {
				return err
			}

			if len(keys) == 0 {
				return s.commit(s.root, func(d *draft.Draft) error {
					d.Replace(value)
					return nil
				})
			}
			last := keys[len(keys)-1]
			return s.commit(resolve(s.root, keys[:len(keys)-1]), func(d *draft.Draft) error {
				d.Set(last, value)
				return nil
			})
		},
	}
}

func newDeleteCmd(fs afero.Fs, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path>",
		Short: "Remove the member at a dotted path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := parsePath(args[0])
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				return errors.New("cannot delete the document root")
			}

			s, err := open(cmd, fs, opts)
			if err != nil {
				return err
			}

			last := keys[len(keys)-1]
			return s.commit(resolve(s.root, keys[:len(keys)-1]), func(d *draft.Draft) error {
				d.Delete(last)
				return nil
			})
		},
	}
}

func printEdits(w io.Writer, format string, edits []draft.Edit) error {
	if format == "table" {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Op", "Path", "Value"})
		for _, e := range edits {
			value := ""
			if e.Op != draft.OpRemove {
				data, err := json.Marshal(e.Value)
				if err != nil {
					return fmt.Errorf("failed to encode edit: %w", err)
				}
				value = string(data)
			}
			table.Append([]string{string(e.Op), e.Path.String(), value})
		}
		table.Render()
		return nil
	}

	enc := json.NewEncoder(w)
	for _, e := range edits {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode edit: %w", err)
		}
	}
	return nil
}
