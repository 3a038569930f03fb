package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/testops/taskwatch/internal/api"
)

var (
	generateOutput string
	generateFollow bool

	genURL          string
	genRequirements []string
	genTestType     string
	genLangGraph    bool

	genOpenAPIURL  string
	genOpenAPIFile string
	genEndpoints   []string
	genTestTypes   []string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Launch a test-generation job",
	Long: `Submits a generation job to the gateway and prints the new task's ID.

With --follow, the task's events are printed until it finishes.`,
}

var generateTestCasesCmd = &cobra.Command{
	Use:   "test-cases",
	Short: "Generate UI test cases for a page",
	Long: `Generates UI test cases for the page at --url from one or more
requirements.

Example:
  taskwatch generate test-cases --url https://shop.example.com/login \
    -r "user can log in" -r "bad password is rejected" --test-type both --follow`,
	Args: cobra.NoArgs,
	RunE: runGenerateTestCases,
}

var generateAPITestsCmd = &cobra.Command{
	Use:   "api-tests",
	Short: "Generate API tests from an OpenAPI document",
	Long: `Generates API tests from an OpenAPI document, given either as a URL or
as a local file.

Example:
  taskwatch generate api-tests --openapi-url https://api.example.com/openapi.json
  taskwatch generate api-tests --openapi-file ./openapi.yaml --endpoint "GET /users"`,
	Args: cobra.NoArgs,
	RunE: runGenerateAPITests,
}

func init() {
	generateCmd.PersistentFlags().StringVarP(&generateOutput, "output", "o", formatTable, "Output format (table, json, yaml)")
	generateCmd.PersistentFlags().BoolVarP(&generateFollow, "follow", "f", false, "Follow the new task's events until it finishes")

	tc := generateTestCasesCmd.Flags()
	tc.StringVar(&genURL, "url", "", "URL of the page under test (required)")
	tc.StringArrayVarP(&genRequirements, "requirement", "r", nil, "Requirement to cover (repeatable)")
	tc.StringVar(&genTestType, "test-type", string(api.TestTypeAutomated), "Kind of tests: manual, automated or both")
	tc.BoolVar(&genLangGraph, "langgraph", false, "Use the LangGraph pipeline")
	_ = generateTestCasesCmd.MarkFlagRequired("url")

	at := generateAPITestsCmd.Flags()
	at.StringVar(&genOpenAPIURL, "openapi-url", "", "URL of the OpenAPI document")
	at.StringVar(&genOpenAPIFile, "openapi-file", "", "Path to a local OpenAPI document")
	at.StringArrayVar(&genEndpoints, "endpoint", nil, "Only test this endpoint (repeatable)")
	at.StringArrayVar(&genTestTypes, "test-type", nil, "Kind of API test to generate (repeatable)")
	generateAPITestsCmd.MarkFlagsMutuallyExclusive("openapi-url", "openapi-file")

	generateCmd.AddCommand(generateTestCasesCmd, generateAPITestsCmd)
	rootCmd.AddCommand(generateCmd)
}

func runGenerateTestCases(cmd *cobra.Command, args []string) error {
	req := &api.GenerateTestCasesRequest{
		URL:          genURL,
		Requirements: genRequirements,
		TestType:     api.TestType(genTestType),
	}
	if cmd.Flags().Changed("langgraph") {
		req.UseLangGraph = &genLangGraph
	}
	if err := req.Validate(); err != nil {
		return err
	}

	return submit(cmd, func(c *api.Client) (*api.GenerateResponse, error) {
		return c.GenerateTestCases(commandContext(cmd), req)
	})
}

func runGenerateAPITests(cmd *cobra.Command, args []string) error {
	req := &api.GenerateAPITestsRequest{
		OpenAPIURL: genOpenAPIURL,
		Endpoints:  genEndpoints,
		TestTypes:  genTestTypes,
	}
	if genOpenAPIFile != "" {
		data, err := os.ReadFile(genOpenAPIFile)
		if err != nil {
			return fmt.Errorf("failed to read OpenAPI document: %w", err)
		}
		req.OpenAPISpec = string(data)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	return submit(cmd, func(c *api.Client) (*api.GenerateResponse, error) {
		return c.GenerateAPITests(commandContext(cmd), req)
	})
}

// submit sends a generate request, prints the created task and optionally
// follows it.
func submit(cmd *cobra.Command, send func(*api.Client) (*api.GenerateResponse, error)) error {
	if err := validateFormat(generateOutput); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg, false, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	resp, err := send(newClient(cfg))
	if err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}

	id := trackedID(resp)
	err = writeOutput(cmd.OutOrStdout(), generateOutput, resp, func(w io.Writer) error {
		fmt.Fprintf(w, "Task:\t%s\n", id)
		fmt.Fprintf(w, "Status:\t%s\n", dash(resp.Status))
		if resp.EndpointsCount != nil {
			fmt.Fprintf(w, "Endpoints:\t%d\n", *resp.EndpointsCount)
		}
		return nil
	})
	if err != nil || !generateFollow {
		return err
	}
	return followTask(commandContext(cmd), cmd, cfg, id)
}

// trackedID is the identifier used to follow a new job. The request ID is
// authoritative; the worker's task ID is a fallback.
func trackedID(resp *api.GenerateResponse) string {
	if resp.RequestID != "" {
		return resp.RequestID
	}
	return resp.TaskID
}
