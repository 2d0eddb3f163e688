// Command previewkit builds web projects into standalone preview pages and
// serves the preview gateway.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is set via -ldflags.
	Version = "dev"

	errBuildFailed = errors.New("build failed")
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "previewkit",
		Short: "Bundle web projects into sandboxed previews",
		Long: titleStyle.Render("previewkit") + subtitleStyle.Render(" - bundle web projects into sandboxed previews") + `

previewkit resolves a project's local modules, rewrites bare package imports
to CDN URLs and bundles everything into one HTML page that runs in a frame.

` + subtitleStyle.Render("Examples:") + `
  previewkit build ./my-app --out preview.html
  previewkit build ./my-app --minify --format iife
  previewkit serve --port 8081`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newBuildCmd())
	root.AddCommand(newServeCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errBuildFailed) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		}
		os.Exit(1)
	}
}
