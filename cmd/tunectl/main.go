package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

func main() {
	root := &cobra.Command{
		Use:   "tunectl",
		Short: "Command line client for the hyperparameter tuning server",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "tuning server base URL")

	root.AddCommand(newSubmitCommand())
	root.AddCommand(newListCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newBestCommand())
	root.AddCommand(newResultsCommand())
	root.AddCommand(newStopCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newSubmitCommand() *cobra.Command {
	var specFile string
	var name string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a tuning job from a YAML spec file",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(specFile)
			if err != nil {
				return fmt.Errorf("reading spec file: %w", err)
			}

			body, err := json.Marshal(map[string]string{
				"name":      name,
				"spec_yaml": string(raw),
			})
			if err != nil {
				return err
			}

			resp, err := http.Post(serverURL+"/v1/jobs", "application/json", bytes.NewReader(body))
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			return printResponse(cmd, resp, http.StatusCreated)
		},
	}

	cmd.Flags().StringVarP(&specFile, "filename", "f", "", "path to the tuning spec YAML file")
	cmd.Flags().StringVar(&name, "name", "", "override the job name from the spec file")
	cmd.MarkFlagRequired("filename")

	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tuning jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return get(cmd, "/v1/jobs")
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of a tuning job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get(cmd, "/v1/jobs/"+args[0])
		},
	}
}

func newBestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "best <job-id>",
		Short: "Show the best trial found so far",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get(cmd, "/v1/jobs/"+args[0]+"/best")
		},
	}
}

func newResultsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "results <job-id>",
		Short: "Export the trial results of a tuning job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get(cmd, "/v1/jobs/"+args[0]+"/results")
		},
	}
}

func newStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <job-id>",
		Short: "Request a graceful stop of a tuning job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Post(serverURL+"/v1/jobs/"+args[0]+"/stop", "application/json", nil)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			return printResponse(cmd, resp, http.StatusOK)
		},
	}
}

func get(cmd *cobra.Command, path string) error {
	resp, err := http.Get(serverURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return printResponse(cmd, resp, http.StatusOK)
}

func printResponse(cmd *cobra.Command, resp *http.Response, wantStatus int) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != wantStatus {
		return fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(raw))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		cmd.Println(string(raw))
		return nil
	}
	cmd.Println(pretty.String())
	return nil
}
