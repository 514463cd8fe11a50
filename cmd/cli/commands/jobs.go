package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hanulsoft/blogpilot/pkg/api/v1/client"
)

// jobOutput represents the filtered output for a job
type jobOutput struct {
	JobID       string `json:"job_id"`
	State       string `json:"state"`
	FailureKind string `json:"failure_kind,omitempty"`
	Error       string `json:"error,omitempty"`
	PostURL     string `json:"post_url,omitempty"`
}

// jobListOutput represents the filtered output for a list of jobs
type jobListOutput struct {
	Jobs []jobOutput `json:"jobs"`
}

// GetJobsCmd returns the jobs command tree
func GetJobsCmd() *cobra.Command {
	return jobsCmd
}

func init() {
	jobsCmd.AddCommand(startJobCmd)
	jobsCmd.AddCommand(getJobCmd)
	jobsCmd.AddCommand(listJobsCmd)
	jobsCmd.AddCommand(jobEventsCmd)
	jobsCmd.AddCommand(cancelJobCmd)

	// Add flags
	startJobCmd.Flags().StringP("category", "c", "", "Posting category")
	startJobCmd.Flags().StringP("keyword", "k", "", "Posting keyword (skips trend discovery)")
	startJobCmd.Flags().StringP("reference-url", "r", "", "Reference article URL to feed into content generation")
	startJobCmd.Flags().Bool("no-image", false, "Skip image generation")
	startJobCmd.Flags().Bool("no-emoji", false, "Generate content without emoji")

	listJobsCmd.Flags().IntP("limit", "l", 10, "Limit the number of jobs returned")
	listJobsCmd.Flags().StringP("state", "t", "", "Filter jobs by state")

	getJobCmd.Flags().StringP("id", "i", "", "Job ID to fetch")
	_ = getJobCmd.MarkFlagRequired("id")

	jobEventsCmd.Flags().StringP("id", "i", "", "Job ID to fetch events for")
	_ = jobEventsCmd.MarkFlagRequired("id")

	cancelJobCmd.Flags().StringP("id", "i", "", "Job ID to cancel")
	_ = cancelJobCmd.MarkFlagRequired("id")
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage posting jobs",
}

var startJobCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new posting job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		category, _ := cmd.Flags().GetString("category")
		keyword, _ := cmd.Flags().GetString("keyword")
		referenceURL, _ := cmd.Flags().GetString("reference-url")
		noImage, _ := cmd.Flags().GetBool("no-image")
		noEmoji, _ := cmd.Flags().GetBool("no-emoji")

		req := startJobRequest(category, keyword, referenceURL, noImage, noEmoji)
		jobID, err := apiClient.StartJob(context.Background(), req)
		if err != nil {
			return fmt.Errorf("error starting job: %w", err)
		}

		fmt.Println(jobID)
		return nil
	},
}

var getJobCmd = &cobra.Command{
	Use:   "get",
	Short: "Get a specific job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetString("id")

		job, err := apiClient.GetJob(context.Background(), jobID)
		if err != nil {
			return fmt.Errorf("error fetching job: %w", err)
		}

		output := jobOutput{
			JobID:       job.JobID,
			State:       job.State.String(),
			FailureKind: string(job.FailureKind),
			Error:       job.Error,
			PostURL:     job.PostURL,
		}
		return printJSON(output)
	},
}

var listJobsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		state, _ := cmd.Flags().GetString("state")

		response, err := apiClient.ListJobs(context.Background(), listParams(limit, state))
		if err != nil {
			return fmt.Errorf("error fetching jobs: %w", err)
		}

		output := jobListOutput{
			Jobs: make([]jobOutput, len(response.Jobs)),
		}
		for i, job := range response.Jobs {
			output.Jobs[i] = jobOutput{
				JobID:       job.JobID,
				State:       job.State.String(),
				FailureKind: string(job.FailureKind),
				PostURL:     job.PostURL,
			}
		}
		return printJSON(output)
	},
}

var jobEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the progress events of a job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetString("id")

		events, err := apiClient.GetJobEvents(context.Background(), jobID)
		if err != nil {
			return fmt.Errorf("error fetching job events: %w", err)
		}

		for _, ev := range events {
			fmt.Printf("%s  %-20s %s\n", ev.Timestamp.Format("15:04:05"), ev.State, ev.Message)
		}
		return nil
	},
}

var cancelJobCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the running job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetString("id")

		if err := apiClient.CancelJob(context.Background(), jobID); err != nil {
			return fmt.Errorf("error cancelling job: %w", err)
		}

		fmt.Println("cancellation requested")
		return nil
	},
}

func startJobRequest(category, keyword, referenceURL string, noImage, noEmoji bool) client.StartJobRequest {
	req := client.StartJobRequest{Category: category, Keyword: keyword, ReferenceURL: referenceURL}
	if noImage {
		off := false
		req.IncludeImage = &off
	}
	if noEmoji {
		off := false
		req.IncludeEmoji = &off
	}
	return req
}

func listParams(limit int, state string) client.ListJobsParams {
	return client.ListJobsParams{Limit: limit, State: state}
}

func printJSON(v interface{}) error {
	prettyJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	fmt.Println(string(prettyJSON))
	return nil
}
