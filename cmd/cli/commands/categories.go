package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// GetCategoriesCmd returns the categories command
func GetCategoriesCmd() *cobra.Command {
	return categoriesCmd
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the preset posting categories",
	RunE: func(_ *cobra.Command, _ []string) error {
		resp, err := apiClient.GetCategories(context.Background())
		if err != nil {
			return fmt.Errorf("error fetching categories: %w", err)
		}

		for _, category := range resp.Categories {
			fmt.Println(category)
		}
		return nil
	},
}
