package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"fastflix/internal/model"
)

func newSearchCmd(e *env) *cobra.Command {
	req := model.SearchRequest{}
	var moviesOnly, tvOnly bool

	cmd := &cobra.Command{
		Use:     "search <query>",
		Short:   "Ask the backend for recommendations",
		GroupID: groupBackend,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.api(cmd.Context())
			if err != nil {
				return err
			}
			req.Query = strings.Join(args, " ")
			req.IncludeMovies = !tvOnly
			req.IncludeTVShows = !moviesOnly

			resp, err := client.Search(cmd.Context(), &req)
			if err != nil {
				return err
			}
			e.session.RecordPrompt(cmd.Context())
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().BoolVar(&moviesOnly, "movies", false, "only movies")
	cmd.Flags().BoolVar(&tvOnly, "tv", false, "only TV shows")
	cmd.Flags().StringVar(&req.Language, "language", "", "BCP 47 language for reasons and metadata")
	cmd.Flags().StringVar(&req.Country, "country", "", "ISO 3166-1 country for streaming providers")
	cmd.MarkFlagsMutuallyExclusive("movies", "tv")
	return cmd
}

func newTrialCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "trial",
		Short:   "Start or inspect the free trial",
		GroupID: groupBackend,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the one free trial",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := client.StartTrial(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the trial state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.api(cmd.Context())
			if err != nil {
				return err
			}
			status, err := client.Trial(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	})

	return cmd
}

func newMeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "me",
		Short:   "Print the signed-in user with subscription and trial state",
		GroupID: groupBackend,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.api(cmd.Context())
			if err != nil {
				return err
			}
			me, err := client.Me(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), me)
		},
	}
}
