package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/domain/repository"
)

var (
	projectsType     string
	projectsPage     int
	projectsPageSize int
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Browse saved projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved projects, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ct := entity.ContentType(projectsType)
		if ct != "" && !ct.Valid() {
			return fmt.Errorf("unknown content type %q", projectsType)
		}
		res, err := toolkit.Projects.List(cmd.Context(), localOwner, ct, repository.NewPagination(projectsPage, projectsPageSize))
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tUPDATED\tTITLE")
		for _, p := range res.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.ContentType, p.UpdatedAt.Local().Format("2006-01-02 15:04"), p.Title)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "page %d/%d, %d total\n", res.Page, max(res.TotalPages, 1), res.Total)
		return nil
	},
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Print a saved project as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := toolkit.Projects.Get(cmd.Context(), args[0], localOwner)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, p)
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a saved project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := toolkit.Projects.Delete(cmd.Context(), args[0], localOwner); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "deleted project %s\n", args[0])
		return nil
	},
}

func init() {
	projectsListCmd.Flags().StringVarP(&projectsType, "type", "t", "", "filter by content type")
	projectsListCmd.Flags().IntVar(&projectsPage, "page", 1, "page number")
	projectsListCmd.Flags().IntVar(&projectsPageSize, "page-size", 20, "page size")

	projectsCmd.AddCommand(projectsListCmd, projectsShowCmd, projectsDeleteCmd)
}
