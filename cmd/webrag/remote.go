package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/webrag/internal/cli"
	"github.com/hyperjump/webrag/internal/client"
	"github.com/hyperjump/webrag/internal/models"
	"github.com/spf13/cobra"
)

// newClient builds a service client from --server or the loaded config.
func newClient(opts *rootOptions, clientOpts ...client.Option) (*client.Client, cli.OutputFormat, error) {
	format, err := cli.ParseOutputFormat(opts.output)
	if err != nil {
		return nil, "", err
	}
	cfg, _, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	serverURL := opts.serverURL
	if serverURL == "" {
		serverURL = cfg.Client.ServiceURL
	}
	timeout := time.Duration(cfg.Client.TimeoutSeconds) * time.Second
	return client.New(serverURL, timeout, clientOpts...), format, nil
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var (
		scope        string
		forceRefresh bool
		chunkChars   int
		overlap      int
	)
	cmd := &cobra.Command{
		Use:   "ingest <url>...",
		Short: "Fetch, chunk and index URLs into a scope",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, format, err := newClient(opts)
			if err != nil {
				return err
			}
			req := &models.IngestRequest{
				URLs:         args,
				Scope:        scope,
				ForceRefresh: forceRefresh,
				ChunkChars:   chunkChars,
			}
			if cmd.Flags().Changed("overlap") {
				req.Overlap = &overlap
			}
			resp, err := c.Ingest(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}
			return cli.WriteIngest(cmd.OutOrStdout(), resp, format)
		},
	}
	cmd.Flags().StringVarP(&scope, "scope", "s", models.DefaultScope, "collection scope")
	cmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "re-download URLs that are already stored")
	cmd.Flags().IntVar(&chunkChars, "chunk-chars", 0, "chunk size in characters (default: server setting)")
	cmd.Flags().IntVar(&overlap, "overlap", 0, "chunk overlap in characters (default: server setting)")
	return cmd
}

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var (
		scope string
		k     int
	)
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Retrieve context for a query from stored pages",
		Long:  "Query is all remaining arguments joined by spaces.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, format, err := newClient(opts)
			if err != nil {
				return err
			}
			req := &models.QueryRequest{Query: strings.Join(args, " "), Scope: scope}
			if cmd.Flags().Changed("k") {
				req.K = &k
			}
			resp, err := c.Query(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}
			return cli.WriteQuery(cmd.OutOrStdout(), resp, format)
		},
	}
	cmd.Flags().StringVarP(&scope, "scope", "s", models.DefaultScope, "collection scope")
	cmd.Flags().IntVarP(&k, "k", "k", models.DefaultK, "number of chunks to retrieve")
	return cmd
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var (
		scope        string
		noSearch     bool
		k            int
		maxResults   int
		maxIngest    int
		forceRefresh bool
	)
	cmd := &cobra.Command{
		Use:   "ask <text>",
		Short: "Search the web, ingest the best results, then query",
		Long:  "Query is all remaining arguments joined by spaces.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, format, err := newClient(opts)
			if err != nil {
				return err
			}
			search := !noSearch
			resp, err := c.AskFull(cmd.Context(), &models.AskRequest{
				Query:            strings.Join(args, " "),
				Scope:            scope,
				Search:           &search,
				MaxSearchResults: &maxResults,
				MaxURLsToIngest:  &maxIngest,
				ForceRefresh:     forceRefresh,
				K:                &k,
			})
			if err != nil {
				return fmt.Errorf("ask failed: %w", err)
			}
			return cli.WriteAsk(cmd.OutOrStdout(), resp, format)
		},
	}
	cmd.Flags().StringVarP(&scope, "scope", "s", models.DefaultScope, "collection scope")
	cmd.Flags().BoolVar(&noSearch, "no-search", false, "skip web search and query stored pages only")
	cmd.Flags().IntVarP(&k, "k", "k", models.DefaultK, "number of chunks to retrieve")
	cmd.Flags().IntVar(&maxResults, "max-search-results", models.DefaultMaxSearchResults, "web search results to consider (1-10)")
	cmd.Flags().IntVar(&maxIngest, "max-urls", models.DefaultMaxURLsToIngest, "search results to ingest (0-10)")
	cmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "re-download URLs that are already stored")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var maxResults int
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Show the URLs a web search would ingest",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, format, err := newClient(opts)
			if err != nil {
				return err
			}
			urls, err := c.Search(cmd.Context(), strings.Join(args, " "), maxResults)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if format == cli.OutputJSON {
				return cli.WriteJSON(cmd.OutOrStdout(), map[string][]string{"urls": urls})
			}
			if len(urls) == 0 {
				cmd.Println("No results found.")
			}
			for i, u := range urls {
				cmd.Printf("[%d] %s\n", i+1, u)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&maxResults, "limit", "n", models.DefaultMaxSearchResults, "maximum number of results (1-10)")
	return cmd
}

func newCollectionsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List stored collections and disk usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, format, err := newClient(opts)
			if err != nil {
				return err
			}
			resp, err := c.Collections(cmd.Context())
			if err != nil {
				return fmt.Errorf("collections failed: %w", err)
			}
			return cli.WriteCollections(cmd.OutOrStdout(), resp, format)
		},
	}
}
