package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/graphgate/internal/recipes"
)

// RecipesOptions holds flags for the recipes command.
type RecipesOptions struct {
	*RootOptions
	File string
}

// RecipeListing is the JSON payload of the recipes command.
type RecipeListing struct {
	Materials []recipes.Recipe `json:"materials"`
	Styles    []string         `json:"heightmap_styles"`
}

// NewRecipesCommand creates the recipes command.
func NewRecipesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecipesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "List material and heightmap recipes",
		Long: `List the material recipes and heightmap styles the gateway can build.

With --file, a CUE catalog is loaded and checked instead of the embedded
one, which is how a new catalog is validated before deployment.

Example:
  graphgate recipes
  graphgate recipes --file ./recipes.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRecipes(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "CUE recipe catalog (default: embedded)")

	return cmd
}

func loadCatalog(path string) (*recipes.Catalog, error) {
	if path == "" {
		return recipes.Default()
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return recipes.Parse(src)
}

func listRecipes(opts *RecipesOptions, cmd *cobra.Command) error {
	catalog, err := loadCatalog(opts.File)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load recipes", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		styles := catalog.Styles()
		sort.Strings(styles)
		return formatter.Success(RecipeListing{Materials: catalog.Materials(), Styles: styles})
	}

	summary, err := catalog.Summary()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to render recipes", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), summary)
	return nil
}
