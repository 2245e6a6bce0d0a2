package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"unicode"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "proxygen",
		Short: "Generate typed proxy facades",
		Long: `proxygen writes a typed facade for a Go type. Every exported method of the
target is routed through a proxy.Config (before, after, around, on_exception).

Example:
  proxygen generate --spec calculator.proxy.yaml --out calculator_proxy.gen.go
  proxygen methods --dir ./examples/calculator --type Calculator`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newGenerateCmd(), newMethodsCmd())
	return root
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a facade from a spec file",
		Args:  cobra.NoArgs,
		RunE:  runGenerate,
	}
	cmd.Flags().StringP("spec", "s", "", "Path to the spec file (*.proxy.yaml or *.proxy.json)")
	cmd.Flags().StringP("out", "o", "", "Output file (default <target>_proxy.gen.go next to the spec)")
	cmd.Flags().BoolP("watch", "w", false, "Regenerate when the spec or the target's source changes")
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().String("log-format", "text", "Log format (text, json)")
	_ = cmd.MarkFlagRequired("spec")
	return cmd
}

func newMethodsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "methods",
		Short: "List the methods a facade for a type would forward",
		Args:  cobra.NoArgs,
		RunE:  runMethods,
	}
	cmd.Flags().StringP("dir", "d", ".", "Package directory")
	cmd.Flags().StringP("type", "t", "", "Type name")
	cmd.Flags().Bool("pointer", true, "List the method set of *Type")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	specPath, err := cmd.Flags().GetString("spec")
	if err != nil {
		return fmt.Errorf("failed to get spec flag: %w", err)
	}
	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	watchMode, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("failed to get watch flag: %w", err)
	}
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	logger, err := newLogger(cmd.ErrOrStderr(), level, format)
	if err != nil {
		return err
	}

	opts := generateOptions{SpecPath: specPath, OutPath: out}
	res, err := generate(opts)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	logger.Info("generated", "out", res.Out, "methods", res.Methods)
	if !watchMode {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := watchPaths{Spec: specPath, Source: res.Source, Out: res.Out}
	return watch(ctx, paths, logger, defaultDebounce, func() error {
		res, err := generate(opts)
		if err != nil {
			return err
		}
		logger.Info("regenerated", "out", res.Out, "methods", res.Methods)
		return nil
	})
}

func runMethods(cmd *cobra.Command, _ []string) error {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return fmt.Errorf("failed to get dir flag: %w", err)
	}
	typeName, err := cmd.Flags().GetString("type")
	if err != nil {
		return fmt.Errorf("failed to get type flag: %w", err)
	}
	pointer, err := cmd.Flags().GetBool("pointer")
	if err != nil {
		return fmt.Errorf("failed to get pointer flag: %w", err)
	}

	ix, err := loadPackage(dir)
	if err != nil {
		return err
	}
	if ix.isInterface(typeName) {
		pointer = false
	}
	methods, err := ix.methodSet(typeName, pointer)
	if err != nil {
		return err
	}
	for _, m := range methods {
		fmt.Fprintln(cmd.OutOrStdout(), formatSignature(m))
	}
	return nil
}

// newLogger builds the generator's slog logger. Logs go to w so stdout stays
// free for command output.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want text or json)", format)
	}
}

// defaultOutPath is <snake_target>_proxy.gen.go next to the spec file.
func defaultOutPath(specPath, target string) string {
	return filepath.Join(filepath.Dir(specPath), snakeCase(target)+"_proxy.gen.go")
}

func snakeCase(s string) string {
	var sb strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (unicode.IsLower(runes[i-1]) || nextLower) {
				sb.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
