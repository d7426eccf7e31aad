package main

import (
	"fmt"

	"github.com/tositrino/arch-bootstrap/internal/cache"
	"github.com/spf13/cobra"
)

func createCacheCommand() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached artifacts",
		Long: `Manage the cache directory used by arch-bootstrap.

Available commands:
  clean    Remove cached packages or mirror listings`,
	}

	cacheCmd.AddCommand(createCacheCleanCommand())

	return cacheCmd
}

func createCacheCleanCommand() *cobra.Command {
	var (
		opts cache.CleanOptions
		all  bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove cached packages or mirror listings",
		Long: `Remove cached package archives or mirror directory listings to
reclaim disk space or force a fresh fetch.

By default, the command removes cached packages. Use flags to target
listings or to restrict cleanup to one repository's listing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			packagesFlag := cmd.Flags().Changed("packages")
			listingsFlag := cmd.Flags().Changed("listings")

			if all {
				opts.CleanPackages = true
				opts.CleanListings = true
			} else if !packagesFlag && !listingsFlag {
				opts.CleanPackages = true
			}

			if !opts.CleanPackages && !opts.CleanListings {
				return fmt.Errorf("nothing to clean: specify --packages, --listings, or --all")
			}

			result, err := cache.Clean(opts)
			if err != nil {
				return err
			}

			output := []string{}
			if opts.DryRun {
				output = append(output, "Dry run: no files were deleted.")
			}

			if len(result.RemovedPaths) > 0 {
				header := "Removed paths:"
				if opts.DryRun {
					header = "Would remove:"
				}
				output = append(output, header)
				output = append(output, indentPaths(result.RemovedPaths)...)
			}

			if len(result.RemovedPaths) == 0 && len(result.SkippedPaths) == 0 {
				scopeDesc := ""
				if opts.CleanPackages && opts.CleanListings {
					scopeDesc = "package or listing cache"
				} else if opts.CleanPackages {
					scopeDesc = "package cache"
				} else {
					scopeDesc = "listing cache"
				}
				if opts.Repo != "" {
					scopeDesc += fmt.Sprintf(" for repository '%s'", opts.Repo)
				}
				output = append(output, fmt.Sprintf("No %s entries found.", scopeDesc))
			}

			if len(result.SkippedPaths) > 0 {
				output = append(output, "Skipped (not found):")
				output = append(output, indentPaths(result.SkippedPaths)...)
			}

			writer := cmd.OutOrStdout()
			for _, line := range output {
				fmt.Fprintln(writer, line)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove both package and listing caches")
	cmd.Flags().BoolVar(&opts.CleanPackages, "packages", false, "Remove cached package archives")
	cmd.Flags().BoolVar(&opts.CleanListings, "listings", false, "Remove cached mirror listings")
	cmd.Flags().StringVar(&opts.Repo, "repo", "", "Restrict listing cleanup to a specific repository (e.g. core)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would be removed without deleting anything")

	return cmd
}

func indentPaths(values []string) []string {
	lines := make([]string, len(values))
	for i, v := range values {
		lines[i] = "  " + v
	}
	return lines
}
