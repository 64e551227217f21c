package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/colorbridge/internal/colorcmd"
)

func parseCmd() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "parse <message or colour>",
		Short: "Show what a chat message would do to the light",
		Example: `  colorbridge parse "%color rebeccapurple"
  colorbridge parse "#ffaa00"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			parser := colorcmd.NewParser(prefix)

			var (
				color colorcmd.Color
				err   error
			)
			if parser.IsCommand(input) {
				color, err = parser.Parse(input)
			} else {
				color, err = colorcmd.ParseLiteral(input)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "color %s %s\n", color.Hex(), color)
			fmt.Fprintf(out, "rgbw  %s\n", color.RGBW())
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", colorcmd.DefaultPrefix, "command prefix")

	return cmd
}
