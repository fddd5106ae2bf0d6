package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iammorganparry/clive/apps/recall/internal/models"
)

func newTeachCmd(st *state) *cobra.Command {
	var (
		phone, unit, topic, emotion string
		tags                        []string
	)
	cmd := &cobra.Command{
		Use:   "teach <content>",
		Short: "Store a new memory",
		Long: `Store a new memory for a person. The memory is embedded and linked to
similar memories the same person taught before.

Examples:
  recall teach --phone 628123 --unit ops --topic safety "The fire exit is the east stairwell"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := st.app.Service.Teach(cmd.Context(), &models.TeachRequest{
				Owner:   phone,
				Unit:    unit,
				Topic:   topic,
				Content: strings.Join(args, " "),
				Tags:    tags,
				Emotion: emotion,
			})
			if err != nil {
				return err
			}
			if st.asJSON {
				return printJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Stored: %s\n", resp.Memory.ID)
			if resp.EmbeddingSkipped {
				fmt.Fprintln(out, "Warning: no embedding model was reachable; the memory is not searchable yet.")
			}
			for _, l := range resp.Links {
				fmt.Fprintf(out, "  linked -> %s (weight %d)\n", l.TargetID, l.Weight)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "owner identity (required)")
	cmd.Flags().StringVar(&unit, "unit", "", "organizational unit (required)")
	cmd.Flags().StringVar(&topic, "topic", "", "topic label (required)")
	cmd.Flags().StringVar(&emotion, "emotion", "", "optional emotion label")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma-separated tags")
	return cmd
}

func newSearchCmd(st *state) *cobra.Command {
	var (
		phone, unit string
		topK        int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the most relevant memories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := st.app.Service.Search(cmd.Context(), &models.SearchRequest{
				Owner: phone,
				Unit:  unit,
				Query: strings.Join(args, " "),
				TopK:  topK,
			})
			if err != nil {
				return err
			}
			if st.asJSON {
				return printJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			if len(resp.Results) == 0 {
				fmt.Fprintln(out, resp.Message)
				return nil
			}
			for i, r := range resp.Results {
				fmt.Fprintf(out, "%d. [%.3f] %s: %s (%s)\n", i+1, r.Score, r.Memory.Topic, r.Memory.Content, r.Memory.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "owner identity (required)")
	cmd.Flags().StringVar(&unit, "unit", "", "organizational unit")
	cmd.Flags().IntVarP(&topK, "top", "k", 0, "maximum results (default from config)")
	return cmd
}

func newLinksCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "links <memory-id>",
		Short: "Show the memories a memory links to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			linked, err := st.app.Service.Linked(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if st.asJSON {
				return printJSON(cmd, linked)
			}

			out := cmd.OutOrStdout()
			if len(linked) == 0 {
				fmt.Fprintln(out, "No links.")
				return nil
			}
			for _, lm := range linked {
				fmt.Fprintf(out, "%s %3d  %s: %s (%s)\n", lm.Link.Kind, lm.Link.Weight, lm.Memory.Topic, lm.Memory.Content, lm.Memory.ID)
			}
			return nil
		},
	}
}

func newRecapCmd(st *state) *cobra.Command {
	var phone, unit string
	cmd := &cobra.Command{
		Use:   "recap",
		Short: "List the topics someone has taught",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := st.app.Service.Recap(cmd.Context(), phone, unit)
			if err != nil {
				return err
			}
			if st.asJSON {
				return printJSON(cmd, resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "owner identity (required)")
	cmd.Flags().StringVar(&unit, "unit", "", "organizational unit (required)")
	return cmd
}

func newRouteCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "route <prompt>",
		Short: "Answer a prompt with the model the router selects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			route := st.app.Router.Route(text)
			reply := st.app.Router.SelectAndGenerate(cmd.Context(), text)
			if st.asJSON {
				return printJSON(cmd, models.RouteResponse{Route: string(route), Reply: reply})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", route, reply)
			return nil
		},
	}
}
