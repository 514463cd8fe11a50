package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// GetTopicsCmd returns the topics command tree
func GetTopicsCmd() *cobra.Command {
	return topicsCmd
}

func init() {
	topicsCmd.AddCommand(suggestTitlesCmd)
	topicsCmd.AddCommand(relatedKeywordsCmd)

	suggestTitlesCmd.Flags().StringP("topic", "t", "", "Topic to suggest titles for")
	_ = suggestTitlesCmd.MarkFlagRequired("topic")
	suggestTitlesCmd.Flags().IntP("count", "n", 5, "Number of titles to suggest")

	relatedKeywordsCmd.Flags().StringP("keyword", "k", "", "Keyword to expand")
	_ = relatedKeywordsCmd.MarkFlagRequired("keyword")
}

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Research posting topics before starting a job",
}

var suggestTitlesCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest candidate post titles for a topic",
	RunE: func(cmd *cobra.Command, _ []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		count, _ := cmd.Flags().GetInt("count")

		resp, err := apiClient.SuggestTitles(context.Background(), topic, count)
		if err != nil {
			return fmt.Errorf("error fetching title suggestions: %w", err)
		}

		for i, title := range resp.Titles {
			fmt.Printf("%d. %s\n", i+1, title)
		}
		return nil
	},
}

var relatedKeywordsCmd = &cobra.Command{
	Use:   "related",
	Short: "Show search keywords related to a keyword",
	RunE: func(cmd *cobra.Command, _ []string) error {
		keyword, _ := cmd.Flags().GetString("keyword")

		resp, err := apiClient.RelatedKeywords(context.Background(), keyword)
		if err != nil {
			return fmt.Errorf("error fetching related keywords: %w", err)
		}

		for _, k := range resp.Keywords {
			fmt.Println(k)
		}
		return nil
	},
}
