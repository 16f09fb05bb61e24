package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/substate/draft"
	"github.com/tailored-agentic-units/substate/observability"
	"github.com/tailored-agentic-units/substate/state"
)

type options struct {
	doc     string
	config  string
	format  string
	watch   []string
	verbose bool
	write   bool
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "statectl",
		Short: "statectl reads and edits a JSON or YAML document through a state tree",
		Long: `statectl loads a document into a state tree and reads or writes it through
derived nodes, one per segment of a dotted path. Numeric segments address
array elements.

Example: statectl --doc app.yaml --watch servers set servers.0.port 8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.doc, "doc", "d", "", "Path to a JSON or YAML document")
	flags.StringVarP(&opts.config, "config", "c", "", "Path to a state config file (JSON or YAML)")
	flags.StringVarP(&opts.format, "format", "o", "json", "Edit output format: json or table")
	flags.StringArrayVarP(&opts.watch, "watch", "w", nil, "Dotted path to print notifications for; repeatable")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging to stderr")
	flags.BoolVar(&opts.write, "write", false, "Write the updated document back to --doc")

	cmd.AddCommand(
		newGetCmd(fs, opts),
		newSetCmd(fs, opts),
		newDeleteCmd(fs, opts),
	)
	return cmd
}

// session is one command invocation: the loaded document's root node and
// the root-level changes committed to it.
type session struct {
	fs      afero.Fs
	opts    *options
	out     io.Writer
	root    *state.Node
	changes []state.Change
}

func open(cmd *cobra.Command, fs afero.Fs, opts *options) (*session, error) {
	if opts.write && opts.doc == "" {
		return nil, errors.New("--write requires --doc")
	}
	if opts.format != "json" && opts.format != "table" {
		return nil, fmt.Errorf("unknown format: %s", opts.format)
	}

	cfg := state.DefaultConfig()
	if opts.config != "" {
		loaded, err := state.LoadConfig(opts.config)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))

	doc, err := readDocument(fs, opts.doc)
	if err != nil {
		return nil, err
	}

	s := &session{fs: fs, opts: opts, out: cmd.OutOrStdout()}
	s.root = state.New(doc,
		state.WithObserver(observability.NewMultiObserver(observer, observability.NewSlogObserver(logger))),
		state.WithTag(cfg.Tag),
		state.WithPatches(),
	)
	s.root.RegisterMiddleware(state.Middleware(func(change state.Change, _ any) {
		s.changes = append(s.changes, change)
	}))

	for _, p := range opts.watch {
		if err := s.watch(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *session) watch(path string) error {
	keys, err := parsePath(path)
	if err != nil {
		return err
	}

	resolve(s.root, keys).Subscribe(state.Handlers{
		OnNext: func(value any, _ state.Change) {
			data, err := json.Marshal(value)
			if err != nil {
				data = []byte(fmt.Sprintf("%q", err.Error()))
			}
			fmt.Fprintf(s.out, "watch %s: %s\n", path, data)
		},
	})
	return nil
}

// commit runs m on target, prints the root-level edits it produced, and
// writes the document back when requested.
func (s *session) commit(target *state.Node, m state.Mutator) error {
	if _, err := target.Update(m); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	var edits []draft.Edit
	for _, c := range s.changes {
		edits = append(edits, c.Edits...)
	}
	if err := printEdits(s.out, s.opts.format, edits); err != nil {
		return err
	}

	if s.opts.write {
		return writeDocument(s.fs, s.opts.doc, s.root.Value())
	}
	return nil
}

// readDocument decodes path as YAML, which also covers JSON. An empty path
// or an empty document yields an empty object.
func readDocument(fs afero.Fs, path string) (any, error) {
	if path == "" {
		return map[string]any{}, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

func writeDocument(fs afero.Fs, path string, doc any) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(doc)
	default:
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}
