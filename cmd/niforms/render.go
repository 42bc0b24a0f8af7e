package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pthm/niforms/internal/app"
)

var renderPostID string

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Expand the shortcodes in a file and print the HTML",
	Long: `Reads a page (or stdin when the file is "-"), expands every [ni-form]
shortcode and prints the result. Rendered forms are saved to the cache
exactly as the server would save them.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderPostID, "post-id", "", "post id mixed into the form hash (default: file name)")
}

func runRender(cmd *cobra.Command, args []string) error {
	var (
		body []byte
		err  error
	)
	postID := renderPostID
	if args[0] == "-" {
		body, err = io.ReadAll(cmd.InOrStdin())
	} else {
		body, err = os.ReadFile(args[0])
		if postID == "" {
			postID = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
	}
	if err != nil {
		return fmt.Errorf("failed to read page: %w", err)
	}

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	html, err := a.Registry.RenderContent(cmd.Context(), string(body), postID)
	if err != nil {
		return err
	}
	_, err = io.WriteString(cmd.OutOrStdout(), html)
	return err
}
